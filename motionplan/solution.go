package motionplan

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"go.viam.com/planengine/cspace"
)

// Solution is a path through the planner graph. Cfgs holds the vertex configurations in
// travel order with the intermediates of every traversed edge between them. The solution owns
// its configurations.
type Solution struct {
	Cost      float64
	VertexIDs []int
	Cfgs      []*cspace.Cfg
}

// Write prints the solution as the cost, the vertex count and ids, then the configuration
// count and one configuration per line.
func (s *Solution) Write(w io.Writer, f *cspace.Factory) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, cspace.FormatFloat(s.Cost))
	fmt.Fprintln(bw, len(s.VertexIDs))
	fmt.Fprintln(bw, strings.Join(lo.Map(s.VertexIDs, func(id, _ int) string {
		return strconv.Itoa(id)
	}), " "))
	fmt.Fprintln(bw, len(s.Cfgs))
	for _, c := range s.Cfgs {
		if err := f.Print(bw, c); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Release returns the configurations of the solution to f.
func (s *Solution) Release(f *cspace.Factory) {
	for _, c := range s.Cfgs {
		f.Delete(c)
	}
	s.Cfgs = nil
}

// ReadSolution reads a solution written by Write.
func ReadSolution(r io.Reader, f *cspace.Factory) (*Solution, error) {
	tr := cspace.NewTokenReader(r)
	sol := &Solution{}
	var err error
	if sol.Cost, err = tr.Float(); err != nil {
		return nil, newFormatError("solution cost", 0, err)
	}
	n, err := readCount(tr)
	if err != nil {
		return nil, newFormatError("solution vertex count", 0, err)
	}
	for i := 0; i < n; i++ {
		id, err := tr.Int()
		if err != nil {
			return nil, newFormatError("solution vertex", i, err)
		}
		sol.VertexIDs = append(sol.VertexIDs, id)
	}
	m, err := readCount(tr)
	if err != nil {
		return nil, newFormatError("solution configuration count", 0, err)
	}
	for i := 0; i < m; i++ {
		c, err := f.Read(tr)
		if err != nil {
			sol.Release(f)
			return nil, newFormatError("solution configuration", i, err)
		}
		sol.Cfgs = append(sol.Cfgs, c)
	}
	return sol, nil
}

func readCount(tr *cspace.TokenReader) (int, error) {
	n, err := tr.Int()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return n, nil
}
