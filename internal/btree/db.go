package btree

import (
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mesh-intelligence/featurestore/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// DBFileName is the database file inside a btree data directory.
const DBFileName = "featurestore.btree.db"

// Schema version tracking:
// 0 - initial tables
// 1 - index on metaclasses.class_key for instance queries
const currentSchemaVersion = 1

// openDB opens the database at dsn with one connection, applies pragmas
// and brings the schema up to date.
func openDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, types.WrapIO("open btree database", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, types.WrapIO("connect btree database", err)
	}

	// The pending transaction owns the only connection; an in-memory
	// database lives exactly as long as it does.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// memoryDSN names a private in-memory database.
func memoryDSN() string {
	return fmt.Sprintf("file:featurestore-%s?mode=memory", uuid.NewString())
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return types.WrapIO(fmt.Sprintf("execute %q", pragma), err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return types.WrapIO("execute schema", err)
	}
	return runMigrations(db)
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return types.WrapIO("get user_version", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("btree schema version %d is newer than %d: %w",
			version, currentSchemaVersion, types.ErrConfigMismatch)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return types.WrapIO("set user_version", err)
	}
	return nil
}

func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_metaclasses_class
		ON metaclasses(class_key, id)
	`)
	return types.WrapIO("migrate to v1", err)
}

// schemaVersion reports the stored user_version. Used by tests.
func schemaVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("PRAGMA user_version").Scan(&version)
	return version, err
}
