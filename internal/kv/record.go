package kv

import (
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/featurestore/internal/mapping"
	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// Record kinds stored under slot keys.
const (
	recordValue = "v"
	recordMap   = "m"
	recordList  = "l"
	recordSize  = "n"
)

// record is the JSON envelope of a slot value. Values inside it are encoded
// with the backend's codec.
type record struct {
	Kind    string   `json:"k"`
	Value   []byte   `json:"v,omitempty"`
	Entries []entry  `json:"e,omitempty"`
	Items   [][]byte `json:"l,omitempty"`
	Size    int      `json:"n,omitempty"`
}

type entry struct {
	Pos   int    `json:"p"`
	Value []byte `json:"v"`
}

// encodeValue wraps a single attribute or reference value.
func (b *Backend) encodeValue(value any) ([]byte, error) {
	data, err := b.codec.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(record{Kind: recordValue, Value: data})
}

// encodeSlot wraps the slot shapes the mapping encodings store: a sparse
// map, a dense list or an element count.
func (b *Backend) encodeSlot(value any) ([]byte, error) {
	var r record
	switch v := value.(type) {
	case *mapping.SortedMap:
		r.Kind = recordMap
		for _, pos := range v.Keys() {
			item, _ := v.Get(pos)
			data, err := b.codec.Marshal(item)
			if err != nil {
				return nil, err
			}
			r.Entries = append(r.Entries, entry{Pos: pos, Value: data})
		}
	case []any:
		r.Kind = recordList
		for _, item := range v {
			data, err := b.codec.Marshal(item)
			if err != nil {
				return nil, err
			}
			r.Items = append(r.Items, data)
		}
	case int:
		r.Kind, r.Size = recordSize, v
	default:
		return nil, fmt.Errorf("encode slot %T: %w", value, types.ErrInvalidData)
	}
	return json.Marshal(r)
}

func (b *Backend) decodeSlot(data []byte) (any, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode slot: %w: %v", types.ErrInvalidData, err)
	}
	switch r.Kind {
	case recordValue:
		return b.codec.Unmarshal(r.Value)
	case recordSize:
		return r.Size, nil
	case recordMap:
		m := mapping.NewSortedMap()
		for _, e := range r.Entries {
			v, err := b.codec.Unmarshal(e.Value)
			if err != nil {
				return nil, err
			}
			m.Put(e.Pos, v)
		}
		return m, nil
	case recordList:
		l := make([]any, 0, len(r.Items))
		for _, item := range r.Items {
			v, err := b.codec.Unmarshal(item)
			if err != nil {
				return nil, err
			}
			l = append(l, v)
		}
		return l, nil
	default:
		return nil, fmt.Errorf("decode slot kind %q: %w", r.Kind, types.ErrInvalidData)
	}
}
