package graph

import (
	"maps"
	"slices"
	"sync"

	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// Edge labels and property names shared with earlier stores of this layout.
const (
	labelContainer  = "eContainer"
	labelInstanceOf = "kyanosInstanceOf"

	propContainingFeature = "containingFeature"
	propPosition          = "position"
	sizeSuffix            = ":size"
)

// noPosition marks an edge that carries a single-valued reference.
const noPosition = -1

// Vertex is one object. Props holds attribute values keyed by feature name,
// feature:N for list elements and feature:size for list lengths.
type Vertex struct {
	ID    types.ID
	Props map[string]any
}

// Edge is a directed, labelled edge. Position is noPosition except on
// elements of multi-valued references; Feature is set on container edges.
type Edge struct {
	Label    string
	Out      types.ID
	In       string
	Position int
	Feature  string
}

// Graph is an in-memory property graph with a separate index of metaclass
// vertices keyed by name@uri.
type Graph struct {
	mu          sync.RWMutex
	vertices    map[types.ID]*Vertex
	metaclasses map[string]types.ClassDescriptor
	out         map[types.ID][]*Edge
	in          map[string][]*Edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		vertices:    make(map[types.ID]*Vertex),
		metaclasses: make(map[string]types.ClassDescriptor),
		out:         make(map[types.ID][]*Edge),
		in:          make(map[string][]*Edge),
	}
}

func (g *Graph) vertex(id types.ID) (*Vertex, bool) {
	v, ok := g.vertices[id]
	return v, ok
}

func (g *Graph) addVertex(id types.ID) *Vertex {
	if v, ok := g.vertices[id]; ok {
		return v
	}
	v := &Vertex{ID: id, Props: make(map[string]any)}
	g.vertices[id] = v
	return v
}

func (g *Graph) addEdge(e *Edge) {
	g.out[e.Out] = append(g.out[e.Out], e)
	g.in[e.In] = append(g.in[e.In], e)
}

func (g *Graph) removeEdge(e *Edge) {
	drop := func(edges []*Edge) []*Edge {
		return slices.DeleteFunc(edges, func(x *Edge) bool { return x == e })
	}
	g.out[e.Out] = drop(g.out[e.Out])
	if len(g.out[e.Out]) == 0 {
		delete(g.out, e.Out)
	}
	g.in[e.In] = drop(g.in[e.In])
	if len(g.in[e.In]) == 0 {
		delete(g.in, e.In)
	}
}

// outEdge returns the first edge leaving id with label at position.
func (g *Graph) outEdge(id types.ID, label string, position int) *Edge {
	for _, e := range g.out[id] {
		if e.Label == label && e.Position == position {
			return e
		}
	}
	return nil
}

// outEdges returns the edges leaving id with label.
func (g *Graph) outEdges(id types.ID, label string) []*Edge {
	var edges []*Edge
	for _, e := range g.out[id] {
		if e.Label == label {
			edges = append(edges, e)
		}
	}
	return edges
}

// replaceVertex installs a copy of v and its outgoing edges, dropping
// whatever the graph held for v.ID before.
func (g *Graph) replaceVertex(v *Vertex, edges []*Edge) {
	for _, e := range slices.Clone(g.out[v.ID]) {
		g.removeEdge(e)
	}
	g.vertices[v.ID] = &Vertex{ID: v.ID, Props: maps.Clone(v.Props)}
	for _, e := range edges {
		c := *e
		g.addEdge(&c)
	}
}

// sortedIDs returns vertex IDs in order.
func (g *Graph) sortedIDs() []types.ID {
	return slices.Sorted(maps.Keys(g.vertices))
}
