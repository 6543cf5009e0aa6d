// Package grid partitions a bounded box of R^n into a regular lattice of cells with dense
// integer ids.
package grid

import (
	"errors"
	"fmt"

	"go.viam.com/planengine/utils"
)

// Grid is a regular n-dimensional lattice. The first dimension varies fastest in cell ids.
type Grid struct {
	dims  []int
	min   []float64
	max   []float64
	units []float64
}

// New returns a grid with dims[i] cells along dimension i spanning [min[i], max[i]].
func New(dims []int, min, max []float64) (*Grid, error) {
	if len(dims) == 0 {
		return nil, errors.New("grid needs at least one dimension")
	}
	if len(min) != len(dims) || len(max) != len(dims) {
		return nil, fmt.Errorf("grid bounds have %d/%d entries for %d dimensions", len(min), len(max), len(dims))
	}
	g := &Grid{
		dims:  append([]int(nil), dims...),
		min:   append([]float64(nil), min...),
		max:   append([]float64(nil), max...),
		units: make([]float64, len(dims)),
	}
	for i, d := range dims {
		if d <= 0 {
			return nil, fmt.Errorf("grid dimension %d has %d cells", i, d)
		}
		if !(max[i] > min[i]) {
			return nil, fmt.Errorf("grid dimension %d has empty range [%v, %v]", i, min[i], max[i])
		}
		g.units[i] = (max[i] - min[i]) / float64(d)
	}
	return g, nil
}

// NrDims returns the dimensionality of the grid.
func (g *Grid) NrDims() int {
	return len(g.dims)
}

// NrCells returns the total number of cells.
func (g *Grid) NrCells() int {
	n := 1
	for _, d := range g.dims {
		n *= d
	}
	return n
}

// Coord returns the cell coordinate of value p along dimension i. Values outside the grid
// are clamped to the border cell, and NaN lands in the last cell.
func (g *Grid) Coord(i int, p float64) int {
	return utils.FloorClampInt((p-g.min[i])/g.units[i], 0, g.dims[i]-1)
}

// Coords writes the cell coordinates of p into coords, allocating when coords is nil.
func (g *Grid) Coords(p []float64, coords []int) []int {
	if coords == nil {
		coords = make([]int, len(g.dims))
	}
	for i := range g.dims {
		coords[i] = g.Coord(i, p[i])
	}
	return coords
}

// CellID returns the id of the cell containing p.
func (g *Grid) CellID(p []float64) int {
	id := 0
	stride := 1
	for i, d := range g.dims {
		id += g.Coord(i, p[i]) * stride
		stride *= d
	}
	return id
}

// IDFromCoords returns the id of the cell at the given coordinates.
func (g *Grid) IDFromCoords(coords []int) int {
	id := 0
	stride := 1
	for i, d := range g.dims {
		id += coords[i] * stride
		stride *= d
	}
	return id
}

// CoordsFromID constructs the cell coordinates for the input id. It is the converse of
// IDFromCoords. If coords is nil a new slice of the appropriate length is allocated.
func (g *Grid) CoordsFromID(id int, coords []int) []int {
	if id < 0 || id >= g.NrCells() {
		panic(fmt.Sprintf("bad cell id %d", id))
	}
	if coords == nil {
		coords = make([]int, len(g.dims))
	}
	for i, d := range g.dims {
		coords[i] = id % d
		id /= d
	}
	return coords
}

// CellCenter returns the center point of the cell with the given id.
func (g *Grid) CellCenter(id int) []float64 {
	coords := g.CoordsFromID(id, nil)
	center := make([]float64, len(g.dims))
	for i, c := range coords {
		center[i] = g.min[i] + (float64(c)+0.5)*g.units[i]
	}
	return center
}

// Inside reports whether p lies within the grid bounds.
func (g *Grid) Inside(p []float64) bool {
	for i := range g.dims {
		if p[i] < g.min[i] || p[i] > g.max[i] {
			return false
		}
	}
	return true
}
