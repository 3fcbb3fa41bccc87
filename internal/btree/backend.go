// Package btree implements the btree backend family on clustered SQLite
// B-tree tables. Multi-valued slots are stored one row per element keyed by
// (id, feature, position), so ordering is native and no encoding strategy is
// involved.
package btree

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/featurestore/internal/mapping"
	"github.com/mesh-intelligence/featurestore/pkg/codec"
	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// Backend implements types.Backend over one SQLite database. Writes go to a
// pending transaction that Save commits.
type Backend struct {
	mapping.Extended

	db         *sql.DB
	tx         *sql.Tx
	codec      types.Codec
	persistent bool
	logger     *zap.Logger
	closed     atomic.Bool
}

var _ types.Backend = (*Backend)(nil)

// Open opens or creates the database file at path.
func Open(path string, c types.Codec, logger *zap.Logger) (*Backend, error) {
	return open(path, true, c, logger)
}

// OpenMemory creates a private in-memory database.
func OpenMemory(c types.Codec, logger *zap.Logger) (*Backend, error) {
	return open(memoryDSN(), false, c, logger)
}

func open(dsn string, persistent bool, c types.Codec, logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := openDB(dsn)
	if err != nil {
		return nil, err
	}
	tx, err := db.Begin()
	if err != nil {
		db.Close()
		return nil, types.WrapIO("begin btree transaction", err)
	}
	b := &Backend{
		db:         db,
		tx:         tx,
		codec:      codec.Or(c),
		persistent: persistent,
		logger:     logger.With(zap.String("family", types.BackendBTree)),
	}
	b.Extended = mapping.Extend(b)
	return b, nil
}

func (b *Backend) Family() string     { return types.BackendBTree }
func (b *Backend) Variant() string    { return types.MappingNative }
func (b *Backend) IsPersistent() bool { return b.persistent }

func (b *Backend) checkOpen() error {
	if b.closed.Load() {
		return types.ErrInvalidState
	}
	return nil
}

func (b *Backend) checkOwner(id types.ID) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	ok, err := b.exists("SELECT 1 FROM objects WHERE id = ?", id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("object %s: %w", id, types.ErrNotFound)
	}
	return nil
}

func (b *Backend) exists(query string, args ...any) (bool, error) {
	var one int
	err := b.tx.QueryRow(query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, types.WrapIO("btree query", err)
	}
	return true, nil
}

func (b *Backend) exec(op, query string, args ...any) (sql.Result, error) {
	res, err := b.tx.Exec(query, args...)
	if err != nil {
		return nil, types.WrapIO(op, err)
	}
	return res, nil
}

// readValue decodes the single value a query selects.
func (b *Backend) readValue(op, query string, args ...any) (any, bool, error) {
	var data []byte
	err := b.tx.QueryRow(query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, types.WrapIO(op, err)
	}
	v, err := b.codec.Unmarshal(data)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (b *Backend) Create(id types.ID) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	if id.IsZero() {
		return fmt.Errorf("create %q: %w", id, types.ErrInvalidID)
	}
	_, err := b.exec("create object", "INSERT OR IGNORE INTO objects (id) VALUES (?)", id)
	return err
}

func (b *Backend) Has(id types.ID) (bool, error) {
	if err := b.checkOpen(); err != nil {
		return false, err
	}
	return b.exists("SELECT 1 FROM objects WHERE id = ?", id)
}

func (b *Backend) ContainerOf(id types.ID) (types.ContainerDescriptor, bool, error) {
	var c types.ContainerDescriptor
	if err := b.checkOwner(id); err != nil {
		return c, false, err
	}
	err := b.tx.QueryRow("SELECT container, feature FROM containers WHERE id = ?", id).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return c, false, nil
	}
	if err != nil {
		return c, false, types.WrapIO("container of", err)
	}
	return c, true, nil
}

func (b *Backend) ContainerFor(id types.ID, container types.ContainerDescriptor) error {
	if err := b.checkOwner(id); err != nil {
		return err
	}
	if err := b.checkOwner(container.ID); err != nil {
		return err
	}
	_, err := b.exec("set container", `
		INSERT INTO containers (id, container, feature) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET container = excluded.container, feature = excluded.feature`,
		id, container.ID, container.Name)
	return err
}

func (b *Backend) RemoveContainer(id types.ID) error {
	if err := b.checkOwner(id); err != nil {
		return err
	}
	_, err := b.exec("remove container", "DELETE FROM containers WHERE id = ?", id)
	return err
}

func (b *Backend) MetaclassOf(id types.ID) (types.ClassDescriptor, bool, error) {
	var c types.ClassDescriptor
	if err := b.checkOwner(id); err != nil {
		return c, false, err
	}
	var data []byte
	err := b.tx.QueryRow(`
		SELECT c.descriptor FROM metaclasses m
		JOIN classes c ON c.class_key = m.class_key
		WHERE m.id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return c, false, nil
	}
	if err != nil {
		return c, false, types.WrapIO("metaclass of", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, false, fmt.Errorf("metaclass of %s: %w: %v", id, types.ErrInvalidData, err)
	}
	return c, true, nil
}

func (b *Backend) MetaclassFor(id types.ID, class types.ClassDescriptor) error {
	if err := b.checkOwner(id); err != nil {
		return err
	}
	if class.Abstract {
		return fmt.Errorf("metaclass %s is abstract: %w", class, types.ErrInvalidData)
	}
	data, err := json.Marshal(class)
	if err != nil {
		return err
	}
	if _, err := b.exec("register class",
		"INSERT OR IGNORE INTO classes (class_key, descriptor) VALUES (?, ?)", class.Key(), data); err != nil {
		return err
	}
	_, err = b.exec("set metaclass", `
		INSERT INTO metaclasses (id, class_key) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET class_key = excluded.class_key`, id, class.Key())
	return err
}

func (b *Backend) AllInstances(class types.ClassDescriptor, strict bool) ([]types.ID, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	if class.Abstract && strict {
		return nil, nil
	}

	keys := []string{class.Key()}
	if !strict {
		classes, err := b.registeredClasses()
		if err != nil {
			return nil, err
		}
		for _, c := range classes {
			if !c.Equal(class) && !c.Abstract && c.IsSubtypeOf(class) {
				keys = append(keys, c.Key())
			}
		}
	}

	var ids []types.ID
	for _, key := range keys {
		rows, err := b.tx.Query("SELECT id FROM metaclasses WHERE class_key = ? ORDER BY id", key)
		if err != nil {
			return nil, types.WrapIO("all instances", err)
		}
		for rows.Next() {
			var id types.ID
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, types.WrapIO("all instances", err)
			}
			ids = append(ids, id)
		}
		if err := multierr.Append(rows.Err(), rows.Close()); err != nil {
			return nil, types.WrapIO("all instances", err)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

func (b *Backend) registeredClasses() ([]types.ClassDescriptor, error) {
	rows, err := b.tx.Query("SELECT descriptor FROM classes ORDER BY class_key")
	if err != nil {
		return nil, types.WrapIO("list classes", err)
	}
	defer rows.Close()

	var classes []types.ClassDescriptor
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, types.WrapIO("list classes", err)
		}
		var c types.ClassDescriptor
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("class index: %w: %v", types.ErrInvalidData, err)
		}
		classes = append(classes, c)
	}
	return classes, types.WrapIO("list classes", rows.Err())
}

func (b *Backend) ValueOf(key types.FeatureKey) (any, bool, error) {
	if err := b.checkOwner(key.ID); err != nil {
		return nil, false, err
	}
	return b.readValue("value of", "SELECT value FROM single_values WHERE id = ? AND feature = ?", key.ID, key.Name)
}

func (b *Backend) ValueFor(key types.FeatureKey, value any) (any, bool, error) {
	if err := b.checkOwner(key.ID); err != nil {
		return nil, false, err
	}
	data, err := b.codec.Marshal(value)
	if err != nil {
		return nil, false, err
	}
	prev, ok, err := b.readValue("value of", "SELECT value FROM single_values WHERE id = ? AND feature = ?", key.ID, key.Name)
	if err != nil {
		return nil, false, err
	}
	if _, err := b.exec("set value", `
		INSERT INTO single_values (id, feature, value) VALUES (?, ?, ?)
		ON CONFLICT(id, feature) DO UPDATE SET value = excluded.value`, key.ID, key.Name, data); err != nil {
		return nil, false, err
	}
	return prev, ok, nil
}

func (b *Backend) UnsetValue(key types.FeatureKey) error {
	if err := b.checkOwner(key.ID); err != nil {
		return err
	}
	_, err := b.exec("unset value", "DELETE FROM single_values WHERE id = ? AND feature = ?", key.ID, key.Name)
	return err
}

func (b *Backend) HasValue(key types.FeatureKey) (bool, error) {
	if err := b.checkOwner(key.ID); err != nil {
		return false, err
	}
	return b.exists("SELECT 1 FROM single_values WHERE id = ? AND feature = ?", key.ID, key.Name)
}

func (b *Backend) ValueAt(key types.ManyFeatureKey) (any, bool, error) {
	if err := b.checkOwner(key.ID); err != nil {
		return nil, false, err
	}
	if err := key.CheckPosition(); err != nil {
		return nil, false, err
	}
	return b.readValue("value at", "SELECT value FROM many_values WHERE id = ? AND feature = ? AND position = ?",
		key.ID, key.Name, key.Position)
}

func (b *Backend) AllValuesOf(key types.FeatureKey) ([]any, error) {
	if err := b.checkOwner(key.ID); err != nil {
		return nil, err
	}
	rows, err := b.tx.Query("SELECT value FROM many_values WHERE id = ? AND feature = ? ORDER BY position",
		key.ID, key.Name)
	if err != nil {
		return nil, types.WrapIO("all values of", err)
	}
	defer rows.Close()

	var values []any
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, types.WrapIO("all values of", err)
		}
		v, err := b.codec.Unmarshal(data)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, types.WrapIO("all values of", rows.Err())
}

func (b *Backend) size(key types.FeatureKey) (int, error) {
	var n int
	err := b.tx.QueryRow("SELECT COUNT(*) FROM many_values WHERE id = ? AND feature = ?", key.ID, key.Name).Scan(&n)
	return n, types.WrapIO("size of value", err)
}

func (b *Backend) SetValueAt(key types.ManyFeatureKey, value any) (any, error) {
	if err := b.checkOwner(key.ID); err != nil {
		return nil, err
	}
	if err := key.CheckPosition(); err != nil {
		return nil, err
	}
	n, err := b.size(key.FeatureKey)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("set %s: %w", key, types.ErrNotFound)
	}
	if key.Position >= n {
		return nil, fmt.Errorf("set %s in %d values: %w", key, n, types.ErrIndexOutOfRange)
	}
	data, err := b.codec.Marshal(value)
	if err != nil {
		return nil, err
	}
	prev, _, err := b.readValue("value at", "SELECT value FROM many_values WHERE id = ? AND feature = ? AND position = ?",
		key.ID, key.Name, key.Position)
	if err != nil {
		return nil, err
	}
	_, err = b.exec("set value at", "UPDATE many_values SET value = ? WHERE id = ? AND feature = ? AND position = ?",
		data, key.ID, key.Name, key.Position)
	if err != nil {
		return nil, err
	}
	return prev, nil
}

// AddValue opens a gap at the insert position in two passes. Moving the
// tail to negative positions first keeps every intermediate row distinct
// under the primary key.
func (b *Backend) AddValue(key types.ManyFeatureKey, value any) error {
	if err := b.checkOwner(key.ID); err != nil {
		return err
	}
	if err := key.CheckPosition(); err != nil {
		return err
	}
	n, err := b.size(key.FeatureKey)
	if err != nil {
		return err
	}
	if key.Position > n {
		return fmt.Errorf("add %s to %d values: %w", key, n, types.ErrIndexOutOfRange)
	}
	data, err := b.codec.Marshal(value)
	if err != nil {
		return err
	}

	if key.Position < n {
		if _, err := b.exec("shift values", `
			UPDATE many_values SET position = -position - 1
			WHERE id = ? AND feature = ? AND position >= ?`, key.ID, key.Name, key.Position); err != nil {
			return err
		}
		if _, err := b.exec("shift values", `
			UPDATE many_values SET position = -position
			WHERE id = ? AND feature = ? AND position < 0`, key.ID, key.Name); err != nil {
			return err
		}
	}
	_, err = b.exec("add value", "INSERT INTO many_values (id, feature, position, value) VALUES (?, ?, ?, ?)",
		key.ID, key.Name, key.Position, data)
	return err
}

// RemoveValue closes the gap left at the removed position with the same
// two-pass renumbering as AddValue.
func (b *Backend) RemoveValue(key types.ManyFeatureKey) (any, bool, error) {
	if err := b.checkOwner(key.ID); err != nil {
		return nil, false, err
	}
	if err := key.CheckPosition(); err != nil {
		return nil, false, err
	}
	prev, ok, err := b.readValue("value at", "SELECT value FROM many_values WHERE id = ? AND feature = ? AND position = ?",
		key.ID, key.Name, key.Position)
	if err != nil || !ok {
		return nil, false, err
	}

	if _, err := b.exec("remove value", "DELETE FROM many_values WHERE id = ? AND feature = ? AND position = ?",
		key.ID, key.Name, key.Position); err != nil {
		return nil, false, err
	}
	if _, err := b.exec("shift values", `
		UPDATE many_values SET position = -position
		WHERE id = ? AND feature = ? AND position > ?`, key.ID, key.Name, key.Position); err != nil {
		return nil, false, err
	}
	if _, err := b.exec("shift values", `
		UPDATE many_values SET position = -position - 1
		WHERE id = ? AND feature = ? AND position < 0`, key.ID, key.Name); err != nil {
		return nil, false, err
	}
	return prev, true, nil
}

func (b *Backend) SizeOfValue(key types.FeatureKey) (int, error) {
	if err := b.checkOwner(key.ID); err != nil {
		return 0, err
	}
	return b.size(key)
}

func (b *Backend) RemoveAllValues(key types.FeatureKey) error {
	if err := b.checkOwner(key.ID); err != nil {
		return err
	}
	_, err := b.exec("remove all values", "DELETE FROM many_values WHERE id = ? AND feature = ?", key.ID, key.Name)
	return err
}

// Save commits the pending transaction and starts the next one.
func (b *Backend) Save() error {
	if b.closed.Load() {
		return nil
	}
	if err := b.tx.Commit(); err != nil {
		return types.WrapIO("btree commit", err)
	}
	tx, err := b.db.Begin()
	if err != nil {
		return types.WrapIO("begin btree transaction", err)
	}
	b.tx = tx
	return nil
}

// Close commits pending writes and closes the database. The backend is
// closed even when the commit fails.
func (b *Backend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := multierr.Append(b.tx.Commit(), b.db.Close())
	if err != nil {
		b.logger.Warn("closing database", zap.Error(err))
	}
	return types.WrapIO("close btree database", err)
}
