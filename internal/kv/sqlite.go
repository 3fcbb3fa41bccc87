package kv

import (
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// DBFileName is the database file inside a kv data directory.
const DBFileName = "featurestore.kv.db"

const createKV = `CREATE TABLE IF NOT EXISTS kv (
    k BLOB PRIMARY KEY,
    v BLOB NOT NULL
) WITHOUT ROWID;`

// SQLiteSubstrate stores the key space in one SQLite table. Writes go to a
// pending transaction that Commit closes and reopens.
type SQLiteSubstrate struct {
	db *sql.DB
	tx *sql.Tx
}

// OpenSQLiteSubstrate opens or creates the database at path.
func OpenSQLiteSubstrate(path string) (*SQLiteSubstrate, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, types.WrapIO("open kv database", err)
	}

	// One connection: the pending transaction owns it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		createKV,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, types.WrapIO(fmt.Sprintf("execute %q", stmt), err)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		db.Close()
		return nil, types.WrapIO("begin kv transaction", err)
	}
	return &SQLiteSubstrate{db: db, tx: tx}, nil
}

func (s *SQLiteSubstrate) Get(key []byte) ([]byte, bool, error) {
	var v []byte
	err := s.tx.QueryRow("SELECT v FROM kv WHERE k = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, types.WrapIO("kv get", err)
	}
	return v, true, nil
}

func (s *SQLiteSubstrate) Put(key, value []byte) error {
	_, err := s.tx.Exec(
		"INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v",
		key, value)
	return types.WrapIO("kv put", err)
}

func (s *SQLiteSubstrate) Delete(key []byte) error {
	_, err := s.tx.Exec("DELETE FROM kv WHERE k = ?", key)
	return types.WrapIO("kv delete", err)
}

// Scan reads the matching range fully before calling fn, so fn may write
// to this or another substrate.
func (s *SQLiteSubstrate) Scan(prefix []byte, fn func(key, value []byte) error) error {
	var (
		rows *sql.Rows
		err  error
	)
	switch end := prefixEnd(prefix); {
	case len(prefix) == 0:
		rows, err = s.tx.Query("SELECT k, v FROM kv ORDER BY k")
	case end == nil:
		rows, err = s.tx.Query("SELECT k, v FROM kv WHERE k >= ? ORDER BY k", prefix)
	default:
		rows, err = s.tx.Query("SELECT k, v FROM kv WHERE k >= ? AND k < ? ORDER BY k", prefix, end)
	}
	if err != nil {
		return types.WrapIO("kv scan", err)
	}

	var entries [][2][]byte
	for rows.Next() {
		var k, v []byte
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return types.WrapIO("kv scan row", err)
		}
		entries = append(entries, [2][]byte{k, v})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return types.WrapIO("kv scan", err)
	}
	rows.Close()

	for _, e := range entries {
		if err := fn(e[0], e[1]); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteSubstrate) Commit() error {
	if err := s.tx.Commit(); err != nil {
		return types.WrapIO("kv commit", err)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return types.WrapIO("begin kv transaction", err)
	}
	s.tx = tx
	return nil
}

func (s *SQLiteSubstrate) Persistent() bool { return true }

// Close commits pending writes and closes the database.
func (s *SQLiteSubstrate) Close() error {
	if s.db == nil {
		return nil
	}
	err := multierr.Append(s.tx.Commit(), s.db.Close())
	s.db = nil
	return types.WrapIO("close kv database", err)
}
