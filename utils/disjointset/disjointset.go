// Package disjointset tracks connected components over a growing set of elements.
package disjointset

import "fmt"

// Elem is a handle to an element of a Forest. Handles are dense indices in creation order.
type Elem int

// Forest is a union-find structure with path compression and union by rank. Elements live
// in an arena owned by the forest and are never removed.
type Forest struct {
	parent []Elem
	rank   []uint8
	comps  int
}

// New returns an empty forest.
func New() *Forest {
	return &Forest{}
}

// Make adds a new singleton element and returns its handle.
func (f *Forest) Make() Elem {
	e := Elem(len(f.parent))
	f.parent = append(f.parent, e)
	f.rank = append(f.rank, 0)
	f.comps++
	return e
}

// Len returns the number of elements ever made.
func (f *Forest) Len() int {
	return len(f.parent)
}

// NrComponents returns the number of disjoint sets.
func (f *Forest) NrComponents() int {
	return f.comps
}

// Find returns the representative of the set containing e, compressing the path on the way.
func (f *Forest) Find(e Elem) Elem {
	f.mustContain(e)
	for e != f.parent[e] {
		// path halving
		f.parent[e] = f.parent[f.parent[e]]
		e = f.parent[e]
	}
	return e
}

// Join merges the sets containing a and b. It returns false when they were already joined.
func (f *Forest) Join(a, b Elem) bool {
	root1 := f.Find(a)
	root2 := f.Find(b)
	if root1 == root2 {
		return false
	}
	switch {
	case f.rank[root1] < f.rank[root2]:
		f.parent[root1] = root2
	case f.rank[root1] > f.rank[root2]:
		f.parent[root2] = root1
	default:
		f.rank[root1]++
		f.parent[root2] = root1
	}
	f.comps--
	return true
}

// Same reports whether a and b belong to the same set.
func (f *Forest) Same(a, b Elem) bool {
	return f.Find(a) == f.Find(b)
}

func (f *Forest) mustContain(e Elem) {
	if e < 0 || int(e) >= len(f.parent) {
		panic(fmt.Sprintf("disjointset: element %d not in forest of %d", e, len(f.parent)))
	}
}
