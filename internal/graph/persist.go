package graph

import (
	"encoding/json"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mesh-intelligence/featurestore/internal/jsonl"
	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// File names inside a graph data directory.
const (
	VerticesFile = "vertices.jsonl"
	EdgesFile    = "edges.jsonl"
)

// vertexRecord is one line of vertices.jsonl. Metaclass vertices carry
// Class; object vertices carry Props encoded with the backend codec.
type vertexRecord struct {
	ID    string                 `json:"id"`
	Class *types.ClassDescriptor `json:"class,omitempty"`
	Props map[string][]byte      `json:"props,omitempty"`
}

// edgeRecord is one line of edges.jsonl.
type edgeRecord struct {
	Label    string `json:"label"`
	Out      string `json:"out"`
	In       string `json:"in"`
	Position *int   `json:"position,omitempty"`
	Feature  string `json:"containingFeature,omitempty"`
}

func (b *Backend) load() error {
	vertices, err := jsonl.Read(filepath.Join(b.dir, VerticesFile))
	if err != nil {
		return types.WrapIO("load vertices", err)
	}
	edges, err := jsonl.Read(filepath.Join(b.dir, EdgesFile))
	if err != nil {
		return types.WrapIO("load edges", err)
	}

	for _, raw := range vertices {
		var rec vertexRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("vertex record: %w: %v", types.ErrInvalidData, err)
		}
		if rec.Class != nil {
			b.g.metaclasses[rec.Class.Key()] = *rec.Class
			continue
		}
		v := b.g.addVertex(types.ID(rec.ID))
		for name, data := range rec.Props {
			if isSizeProp(name) {
				var n int
				if err := json.Unmarshal(data, &n); err != nil {
					return fmt.Errorf("vertex %s %s: %w: %v", rec.ID, name, types.ErrInvalidData, err)
				}
				v.Props[name] = n
				continue
			}
			value, err := b.codec.Unmarshal(data)
			if err != nil {
				return fmt.Errorf("vertex %s property %s: %w", rec.ID, name, err)
			}
			v.Props[name] = value
		}
	}

	for _, raw := range edges {
		var rec edgeRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("edge record: %w: %v", types.ErrInvalidData, err)
		}
		e := &Edge{Label: rec.Label, Out: types.ID(rec.Out), In: rec.In, Position: noPosition, Feature: rec.Feature}
		if rec.Position != nil {
			e.Position = *rec.Position
		}
		b.g.addEdge(e)
	}
	return nil
}

// save writes both files. Callers hold the graph lock.
func (b *Backend) save() error {
	var vertices []json.RawMessage
	for _, key := range slices.Sorted(maps.Keys(b.g.metaclasses)) {
		c := b.g.metaclasses[key]
		line, err := json.Marshal(vertexRecord{ID: key, Class: &c})
		if err != nil {
			return err
		}
		vertices = append(vertices, line)
	}

	var edges []json.RawMessage
	for _, id := range b.g.sortedIDs() {
		v := b.g.vertices[id]
		rec := vertexRecord{ID: string(id), Props: make(map[string][]byte, len(v.Props))}
		for name, value := range v.Props {
			var (
				data []byte
				err  error
			)
			if isSizeProp(name) {
				data, err = json.Marshal(value)
			} else {
				data, err = b.codec.Marshal(value)
			}
			if err != nil {
				return fmt.Errorf("vertex %s property %s: %w", id, name, err)
			}
			rec.Props[name] = data
		}
		line, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		vertices = append(vertices, line)

		for _, e := range b.g.out[id] {
			er := edgeRecord{Label: e.Label, Out: string(e.Out), In: e.In, Feature: e.Feature}
			if e.Position != noPosition {
				pos := e.Position
				er.Position = &pos
			}
			line, err := json.Marshal(er)
			if err != nil {
				return err
			}
			edges = append(edges, line)
		}
	}

	if err := jsonl.Write(filepath.Join(b.dir, VerticesFile), vertices); err != nil {
		return types.WrapIO("save vertices", err)
	}
	if err := jsonl.Write(filepath.Join(b.dir, EdgesFile), edges); err != nil {
		return types.WrapIO("save edges", err)
	}
	return nil
}

// isSizeProp reports whether a property holds a list length.
func isSizeProp(name string) bool {
	return strings.HasSuffix(name, sizeSuffix)
}
