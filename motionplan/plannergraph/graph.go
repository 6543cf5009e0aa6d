// Package plannergraph holds the vertices and edges built by a sampling based planner, with
// incremental connected component tracking.
package plannergraph

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"go.viam.com/planengine/cspace"
	"go.viam.com/planengine/utils/astar"
	"go.viam.com/planengine/utils/disjointset"
)

// Vertex is a configuration accepted into the graph.
type Vertex struct {
	Cfg *cspace.Cfg
	// ids of the vertices sharing an edge with this one
	Neighbors *roaring.Bitmap
	// ids of the vertices a connection was attempted to, successful or not
	Attempts *roaring.Bitmap
	IsGoal   bool

	component disjointset.Elem
}

// NewVertex returns a vertex owning cfg.
func NewVertex(cfg *cspace.Cfg) *Vertex {
	return &Vertex{Cfg: cfg, Neighbors: roaring.New(), Attempts: roaring.New()}
}

// Edge is a directed connection. Costs[0] is the cost of moving From -> To and Costs[1] the
// cost of the reverse move. Intermediates trace the path from From to To.
type Edge struct {
	From, To      int
	Costs         [2]float64
	Intermediates []*cspace.Cfg
}

// CostFrom returns the cost of traversing the edge starting at vertex v.
func (e *Edge) CostFrom(v int) float64 {
	if e.From == v {
		return e.Costs[0]
	}
	return e.Costs[1]
}

type edgeKey struct {
	lo, hi int
}

func keyOf(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// Graph is an arena of vertices and edges addressed by dense integer ids. It is not safe for
// concurrent use.
type Graph struct {
	vertices []*Vertex
	edges    []*Edge
	index    map[edgeKey]int
	comps    *disjointset.Forest
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		index: map[edgeKey]int{},
		comps: disjointset.New(),
	}
}

// NrVertices returns the number of vertices.
func (g *Graph) NrVertices() int {
	return len(g.vertices)
}

// NrEdges returns the number of edges.
func (g *Graph) NrEdges() int {
	return len(g.edges)
}

// NrComponents returns the number of connected components.
func (g *Graph) NrComponents() int {
	return g.comps.NrComponents()
}

// Vertex returns the vertex with the given id.
func (g *Graph) Vertex(id int) *Vertex {
	return g.vertices[id]
}

// Edges returns all edges in insertion order. The slice must not be modified.
func (g *Graph) Edges() []*Edge {
	return g.edges
}

// AddVertex moves v into the graph, places it in a new component and returns its id.
func (g *Graph) AddVertex(v *Vertex) int {
	if v.Neighbors == nil {
		v.Neighbors = roaring.New()
	}
	if v.Attempts == nil {
		v.Attempts = roaring.New()
	}
	v.component = g.comps.Make()
	g.vertices = append(g.vertices, v)
	return len(g.vertices) - 1
}

func (g *Graph) validID(id int) bool {
	return id >= 0 && id < len(g.vertices)
}

// AddEdge inserts e, records each endpoint as the other's neighbor and merges their components.
// Duplicate edges are not detected.
func (g *Graph) AddEdge(e *Edge) (int, error) {
	if !g.validID(e.From) || !g.validID(e.To) {
		return -1, cspace.NewPreconditionError("AddEdge",
			fmt.Sprintf("edge (%d, %d) references a vertex outside [0, %d)", e.From, e.To, len(g.vertices)))
	}
	id := len(g.edges)
	g.edges = append(g.edges, e)
	if _, ok := g.index[keyOf(e.From, e.To)]; !ok {
		g.index[keyOf(e.From, e.To)] = id
	}
	from, to := g.vertices[e.From], g.vertices[e.To]
	from.Neighbors.Add(uint32(e.To))
	to.Neighbors.Add(uint32(e.From))
	g.comps.Join(from.component, to.component)
	return id, nil
}

// FindEdge returns the first edge added between a and b, in either direction.
func (g *Graph) FindEdge(a, b int) (*Edge, bool) {
	id, ok := g.index[keyOf(a, b)]
	if !ok {
		return nil, false
	}
	return g.edges[id], true
}

// ArePathConnected reports whether a and b are in the same connected component.
func (g *Graph) ArePathConnected(a, b int) bool {
	return g.comps.Same(g.vertices[a].component, g.vertices[b].component)
}

// Successors implements astar.Graph.
func (g *Graph) Successors(v int) []int {
	ids := g.vertices[v].Neighbors.ToArray()
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}

// Cost implements astar.Graph.
func (g *Graph) Cost(u, v int) float64 {
	e, ok := g.FindEdge(u, v)
	if !ok {
		panic(fmt.Sprintf("no edge between %d and %d", u, v))
	}
	return e.CostFrom(u)
}

// ShortestPath searches for the cheapest path from start to a vertex satisfying isGoal.
func (g *Graph) ShortestPath(start int, isGoal func(int) bool, h astar.Heuristic) (astar.Result, bool) {
	return astar.Search(g, start, isGoal, h)
}

// Release returns every configuration held by the graph to f. The graph must not be used
// afterwards.
func (g *Graph) Release(f *cspace.Factory) {
	for _, v := range g.vertices {
		f.Delete(v.Cfg)
	}
	for _, e := range g.edges {
		for _, c := range e.Intermediates {
			f.Delete(c)
		}
	}
	g.vertices = nil
	g.edges = nil
	g.index = map[edgeKey]int{}
	g.comps = disjointset.New()
}
