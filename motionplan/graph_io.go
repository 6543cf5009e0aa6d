package motionplan

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.uber.org/multierr"

	"go.viam.com/planengine/cspace"
	"go.viam.com/planengine/motionplan/plannergraph"
)

// WriteGraph prints the vertex count and one configuration per line, then the edge count and
// for every edge a line "from to forward reverse k" followed by its k intermediates.
func (sbp *samplingPlanner) WriteGraph(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, sbp.graph.NrVertices())
	for id := 0; id < sbp.graph.NrVertices(); id++ {
		if err := sbp.printCfg(bw, sbp.graph.Vertex(id).Cfg); err != nil {
			return err
		}
	}
	fmt.Fprintln(bw, sbp.graph.NrEdges())
	for _, e := range sbp.graph.Edges() {
		fmt.Fprintf(bw, "%d %d %s %s %d\n", e.From, e.To,
			cspace.FormatFloat(e.Costs[0]), cspace.FormatFloat(e.Costs[1]), len(e.Intermediates))
		for _, c := range e.Intermediates {
			if err := sbp.printCfg(bw, c); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func (sbp *samplingPlanner) printCfg(bw *bufio.Writer, c *cspace.Cfg) error {
	if err := sbp.factory.Print(bw, c); err != nil {
		return err
	}
	return bw.WriteByte('\n')
}

type rawEdge struct {
	from, to int
	costs    [2]float64
	inter    []*cspace.Cfg
}

// graphRecords is a fully parsed graph file that has not been merged into a planner yet.
type graphRecords struct {
	cfgs  []*cspace.Cfg
	edges []rawEdge
}

func (gr *graphRecords) release(f *cspace.Factory) {
	for _, c := range gr.cfgs {
		f.Delete(c)
	}
	for _, e := range gr.edges {
		for _, c := range e.inter {
			f.Delete(c)
		}
	}
}

func parseGraph(r io.Reader, f *cspace.Factory) (*graphRecords, error) {
	tr := cspace.NewTokenReader(r)
	gr := &graphRecords{}
	fail := func(record string, index int, err error) (*graphRecords, error) {
		gr.release(f)
		return nil, newFormatError(record, index, err)
	}

	nv, err := readCount(tr)
	if err != nil {
		return fail("vertex count", 0, err)
	}
	for i := 0; i < nv; i++ {
		c, err := f.Read(tr)
		if err != nil {
			return fail("vertex", i, err)
		}
		gr.cfgs = append(gr.cfgs, c)
	}
	ne, err := readCount(tr)
	if err != nil {
		return fail("edge count", 0, err)
	}
	for i := 0; i < ne; i++ {
		e, err := readEdge(tr, f, nv)
		if err != nil {
			return fail("edge", i, err)
		}
		gr.edges = append(gr.edges, e)
	}
	return gr, nil
}

func readEdge(tr *cspace.TokenReader, f *cspace.Factory, nv int) (rawEdge, error) {
	var e rawEdge
	var err error
	if e.from, err = tr.Int(); err != nil {
		return e, err
	}
	if e.to, err = tr.Int(); err != nil {
		return e, err
	}
	if e.from < 0 || e.from >= nv || e.to < 0 || e.to >= nv {
		return e, errors.Errorf("endpoints %d %d outside [0, %d)", e.from, e.to, nv)
	}
	for i := range e.costs {
		if e.costs[i], err = tr.Float(); err != nil {
			return e, errors.Wrap(err, "reading costs")
		}
	}
	k, err := readCount(tr)
	if err != nil {
		return e, errors.Wrap(err, "reading intermediate count")
	}
	for j := 0; j < k; j++ {
		c, err := f.Read(tr)
		if err != nil {
			for _, done := range e.inter {
				f.Delete(done)
			}
			return rawEdge{}, errors.Wrapf(err, "reading intermediate %d", j)
		}
		e.inter = append(e.inter, c)
	}
	return e, nil
}

// ReadGraph merges a graph written by WriteGraph into the planner. The input is parsed in full
// before the planner is touched, so a malformed input leaves it unchanged. Configurations
// within find_cfg_tolerance of an existing vertex map onto that vertex, edges that already
// exist are skipped and infinite costs are recomputed with the edge cost evaluator.
func (sbp *samplingPlanner) ReadGraph(ctx context.Context, r io.Reader) error {
	ctx, span := trace.StartSpan(ctx, "ReadGraph")
	defer span.End()

	gr, err := parseGraph(r, sbp.factory)
	if err != nil {
		return err
	}

	ids := make([]int, len(gr.cfgs))
	var applyErr error
	for i, c := range gr.cfgs {
		gr.cfgs[i] = nil
		ids[i] = -1
		if applyErr != nil {
			sbp.factory.Delete(c)
			continue
		}
		if vid, ok := sbp.FindCfg(ctx, c); ok {
			ids[i] = vid
			sbp.factory.Delete(c)
			continue
		}
		vid, ok, err := sbp.AddVertex(c)
		if !ok {
			sbp.factory.Delete(c)
		} else {
			ids[i] = vid
		}
		applyErr = err
	}

	merged := 0
	for i := range gr.edges {
		e := &gr.edges[i]
		a, b := ids[e.from], ids[e.to]
		if applyErr != nil || a < 0 || b < 0 || a == b {
			continue
		}
		if _, exists := sbp.graph.FindEdge(a, b); exists {
			continue
		}
		if math.IsInf(e.costs[0], 1) || math.IsInf(e.costs[1], 1) {
			fwd, rev := cspace.EvaluatePath(sbp.problem.EdgeCost, sbp.graph.Vertex(a).Cfg, sbp.graph.Vertex(b).Cfg, e.inter)
			if math.IsInf(e.costs[0], 1) {
				e.costs[0] = fwd
			}
			if math.IsInf(e.costs[1], 1) {
				e.costs[1] = rev
			}
		}
		if err := sbp.addEdge(&plannergraph.Edge{From: a, To: b, Costs: e.costs, Intermediates: e.inter}); err != nil {
			applyErr = err
			continue
		}
		e.inter = nil
		merged++
	}
	gr.release(sbp.factory)

	sbp.logger.Debugw("graph read", "vertices", len(ids), "edgesMerged", merged, "edgesRead", len(gr.edges))
	return applyErr
}

// WriteCheckpoint writes the graph zstd compressed.
func (sbp *samplingPlanner) WriteCheckpoint(w io.Writer) (err error) {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, enc.Close())
	}()
	return sbp.WriteGraph(enc)
}

// ReadCheckpoint merges a graph written by WriteCheckpoint.
func (sbp *samplingPlanner) ReadCheckpoint(ctx context.Context, r io.Reader) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer dec.Close()
	if err := sbp.ReadGraph(ctx, dec); err != nil {
		return errors.Wrap(err, "reading checkpoint")
	}
	return nil
}
