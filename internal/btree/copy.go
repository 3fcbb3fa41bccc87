package btree

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/featurestore/pkg/types"
)

type slotRow struct {
	id, feature string
	position    int
	value       []byte
}

// CopyTo copies every table into target. Values are decoded with this
// backend's codec and re-encoded with the target's. Multi-valued slots
// present in both are replaced, not merged.
func (b *Backend) CopyTo(target types.Backend) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	t, ok := target.(*Backend)
	if !ok {
		return fmt.Errorf("copy btree backend to %s: %w", target.Family(), types.ErrFamilyMismatch)
	}
	if err := t.checkOpen(); err != nil {
		return err
	}
	b.logger.Debug("copying backend", zap.Bool("target_persistent", t.persistent))

	copies := []struct {
		name   string
		query  string
		insert string
		cols   int
	}{
		{"objects", "SELECT id FROM objects",
			"INSERT OR IGNORE INTO objects (id) VALUES (?)", 1},
		{"containers", "SELECT id, container, feature FROM containers",
			"INSERT OR REPLACE INTO containers (id, container, feature) VALUES (?, ?, ?)", 3},
		{"classes", "SELECT class_key, descriptor FROM classes",
			"INSERT OR IGNORE INTO classes (class_key, descriptor) VALUES (?, ?)", 2},
		{"metaclasses", "SELECT id, class_key FROM metaclasses",
			"INSERT OR REPLACE INTO metaclasses (id, class_key) VALUES (?, ?)", 2},
	}
	for _, c := range copies {
		rows, err := b.readRows(c.query, c.cols)
		if err != nil {
			return fmt.Errorf("copy %s: %w", c.name, err)
		}
		for _, row := range rows {
			if _, err := t.exec("copy "+c.name, c.insert, row...); err != nil {
				return err
			}
		}
	}

	singles, err := b.readSlots("SELECT id, feature, 0, value FROM single_values")
	if err != nil {
		return err
	}
	for _, r := range singles {
		data, err := b.recode(t, r.value)
		if err != nil {
			return err
		}
		if _, err := t.exec("copy single_values",
			"INSERT OR REPLACE INTO single_values (id, feature, value) VALUES (?, ?, ?)", r.id, r.feature, data); err != nil {
			return err
		}
	}

	many, err := b.readSlots("SELECT id, feature, position, value FROM many_values ORDER BY id, feature, position")
	if err != nil {
		return err
	}
	for i, r := range many {
		if i == 0 || r.id != many[i-1].id || r.feature != many[i-1].feature {
			if _, err := t.exec("copy many_values",
				"DELETE FROM many_values WHERE id = ? AND feature = ?", r.id, r.feature); err != nil {
				return err
			}
		}
		data, err := b.recode(t, r.value)
		if err != nil {
			return err
		}
		if _, err := t.exec("copy many_values",
			"INSERT INTO many_values (id, feature, position, value) VALUES (?, ?, ?, ?)",
			r.id, r.feature, r.position, data); err != nil {
			return err
		}
	}
	return t.Save()
}

func (b *Backend) recode(t *Backend, data []byte) ([]byte, error) {
	v, err := b.codec.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return t.codec.Marshal(v)
}

func (b *Backend) readRows(query string, cols int) ([][]any, error) {
	rows, err := b.tx.Query(query)
	if err != nil {
		return nil, types.WrapIO("read rows", err)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		row := make([]any, cols)
		dest := make([]any, cols)
		for i := range row {
			dest[i] = &row[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, types.WrapIO("read rows", err)
		}
		out = append(out, row)
	}
	return out, types.WrapIO("read rows", rows.Err())
}

func (b *Backend) readSlots(query string) ([]slotRow, error) {
	rows, err := b.tx.Query(query)
	if err != nil {
		return nil, types.WrapIO("read slots", err)
	}
	defer rows.Close()

	var out []slotRow
	for rows.Next() {
		var r slotRow
		if err := rows.Scan(&r.id, &r.feature, &r.position, &r.value); err != nil {
			return nil, types.WrapIO("read slots", err)
		}
		out = append(out, r)
	}
	return out, types.WrapIO("read slots", rows.Err())
}
