// Package astar implements best-first shortest path search over implicit graphs whose vertices
// are dense integer ids.
package astar

import (
	"container/heap"
	"math"
)

// Graph is the implicit graph searched by Search.
type Graph interface {
	// Successors returns the ids reachable from v in one step.
	Successors(v int) []int
	// Cost returns the cost of moving from u to its successor v. Costs must be non-negative
	// for the returned path to be optimal.
	Cost(u, v int) float64
}

// Heuristic estimates the remaining cost from v to the closest goal. It must never
// overestimate; nil means a zero estimate, which degrades the search to Dijkstra.
type Heuristic func(v int) float64

// Result is a path found by Search.
type Result struct {
	Path []int
	Cost float64
}

type item struct {
	v     int
	g     float64
	f     float64
	index int
}

type openList []*item

func (ol openList) Len() int { return len(ol) }

func (ol openList) Less(i, j int) bool {
	if ol[i].f == ol[j].f {
		return ol[i].g > ol[j].g
	}
	return ol[i].f < ol[j].f
}

func (ol openList) Swap(i, j int) {
	ol[i], ol[j] = ol[j], ol[i]
	ol[i].index = i
	ol[j].index = j
}

func (ol *openList) Push(x interface{}) {
	it := x.(*item)
	it.index = len(*ol)
	*ol = append(*ol, it)
}

func (ol *openList) Pop() interface{} {
	old := *ol
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*ol = old[:n-1]
	return it
}

// Search runs A* from start until a vertex satisfying isGoal is expanded. It returns false when
// no goal is reachable.
func Search(g Graph, start int, isGoal func(v int) bool, h Heuristic) (Result, bool) {
	if h == nil {
		h = func(int) float64 { return 0 }
	}

	best := map[int]float64{start: 0}
	parent := map[int]int{}
	open := map[int]*item{}
	closed := map[int]bool{}

	ol := &openList{}
	first := &item{v: start, g: 0, f: h(start)}
	heap.Push(ol, first)
	open[start] = first

	for ol.Len() > 0 {
		curr := heap.Pop(ol).(*item)
		delete(open, curr.v)
		if isGoal(curr.v) {
			return Result{Path: reconstruct(parent, start, curr.v), Cost: curr.g}, true
		}
		closed[curr.v] = true

		for _, next := range g.Successors(curr.v) {
			if closed[next] {
				continue
			}
			g2 := curr.g + g.Cost(curr.v, next)
			if prev, seen := best[next]; seen && g2 >= prev {
				continue
			}
			best[next] = g2
			parent[next] = curr.v
			if it, ok := open[next]; ok {
				it.g = g2
				it.f = g2 + h(next)
				heap.Fix(ol, it.index)
				continue
			}
			it := &item{v: next, g: g2, f: g2 + h(next)}
			heap.Push(ol, it)
			open[next] = it
		}
	}
	return Result{Cost: math.Inf(1)}, false
}

func reconstruct(parent map[int]int, start, end int) []int {
	path := []int{end}
	for v := end; v != start; {
		v = parent[v]
		path = append(path, v)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
