package motionplan

import (
	"context"
	"math/rand"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"go.opencensus.io/trace"
	"golang.org/x/sync/errgroup"

	"go.viam.com/planengine/cspace"
	"go.viam.com/planengine/motionplan/plannergraph"
	"go.viam.com/planengine/utils"
)

// prmPlanner builds a roadmap in batches: it accepts prm_batch_size sampled configurations,
// then tries to connect each new vertex to its prm_neighbors nearest vertices. With
// num_threads above one, sampling and improving run concurrently, so the sampler and improver
// must be safe for concurrent use. Acceptance and graph updates stay serial.
type prmPlanner struct {
	*samplingPlanner
	// vertices still waiting for their connection attempts
	pending *roaring.Bitmap
}

func newPRMPlanner(sbp *samplingPlanner) *prmPlanner {
	pp := &prmPlanner{samplingPlanner: sbp, pending: roaring.New()}
	sbp.hooks = pp
	return pp
}

func (pp *prmPlanner) admit(*cspace.Cfg) (bool, error) {
	return true, nil
}

// added queues every new vertex for connection, including those merged by ReadGraph.
func (pp *prmPlanner) added(vid int) error {
	pp.pending.Add(uint32(vid))
	return nil
}

// Start adds the start configuration and, when the goal test can produce one, an example goal
// configuration to the roadmap.
func (pp *prmPlanner) Start(ctx context.Context, init *cspace.Cfg) error {
	if err := pp.samplingPlanner.Start(ctx, init); err != nil {
		return err
	}
	if pp.example == nil {
		return nil
	}
	ex := pp.example.AcceptableExample()
	if ex == nil {
		return nil
	}
	_, err := pp.addOrFind(ctx, ex)
	return err
}

func (pp *prmPlanner) Solve(ctx context.Context, d time.Duration) (bool, error) {
	ctx, span := trace.StartSpan(ctx, "prmPlanner.Solve")
	defer span.End()
	start := pp.clock.Now()
	defer func() {
		pp.metrics.AddTiming("Solve", pp.clock.Since(start))
	}()
	if !pp.started {
		return false, errNotStarted
	}
	defer utils.SlowLogger(ctx, "still solving", "planner", pp.kind, pp.logger)()

	b := pp.newBudget(d)
	// accepted configurations still owed to the current batch, -1 when a new batch is due
	remaining := -1
	if pp.pending.IsEmpty() {
		remaining = pp.planOpts.PRMBatchSize
	}
	for !pp.IsSolved() && !b.expired() {
		if err := ctx.Err(); err != nil {
			return pp.IsSolved(), err
		}
		b.tick()

		if remaining == -1 && pp.pending.IsEmpty() {
			remaining = pp.planOpts.PRMBatchSize
		}
		if remaining > 0 {
			added, err := pp.sampleBatch(ctx, remaining)
			if err != nil {
				return pp.IsSolved(), err
			}
			remaining -= added
			if remaining == 0 {
				remaining = -1
			}
			continue
		}

		vid := int(pp.pending.Minimum())
		pp.pending.Remove(uint32(vid))
		if err := pp.generateEdges(ctx, vid); err != nil {
			return pp.IsSolved(), err
		}
	}
	pp.logger.CDebugw(ctx, "roadmap solve finished", "iterations", b.iters,
		"vertices", pp.graph.NrVertices(), "edges", pp.graph.NrEdges(),
		"components", pp.graph.NrComponents(), "solved", pp.IsSolved())
	return pp.IsSolved(), nil
}

// sampleBatch draws n candidates and adds the accepted ones, returning how many were added.
func (pp *prmPlanner) sampleBatch(ctx context.Context, n int) (int, error) {
	ctx, span := trace.StartSpan(ctx, "sampleBatch")
	defer span.End()

	cands, err := pp.sampleCandidates(ctx, n)
	if err != nil {
		return 0, err
	}
	added := 0
	for i, cfg := range cands {
		ok, err := pp.problem.Acceptor.IsAcceptable(cfg)
		if err == nil && ok {
			_, ok, err = pp.AddVertex(cfg)
		}
		if !ok {
			pp.factory.Delete(cfg)
		}
		if err != nil {
			for _, c := range cands[i+1:] {
				pp.factory.Delete(c)
			}
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// sampleCandidates returns n sampled and improved configurations owned by the caller.
func (pp *prmPlanner) sampleCandidates(ctx context.Context, n int) ([]*cspace.Cfg, error) {
	cands := make([]*cspace.Cfg, n)
	for i := range cands {
		cands[i] = pp.factory.New()
	}
	sample := func(rng *rand.Rand, cfg *cspace.Cfg) {
		pp.problem.Sampler.Sample(rng, cfg)
		pp.problem.Improver.Improve(cfg)
	}

	threads := pp.planOpts.numThreads()
	if threads == 1 || n == 1 {
		for _, cfg := range cands {
			sample(pp.randseed, cfg)
		}
		return cands, nil
	}

	// per worker sources are seeded serially to keep runs reproducible
	chunk := (n + threads - 1) / threads
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for lo := 0; lo < n; lo += chunk {
		lo := lo
		hi := min(lo+chunk, n)
		//nolint:gosec
		rng := rand.New(rand.NewSource(pp.randseed.Int63()))
		g.Go(func() error {
			for _, cfg := range cands[lo:hi] {
				if err := gctx.Err(); err != nil {
					return err
				}
				sample(rng, cfg)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, cfg := range cands {
			pp.factory.Delete(cfg)
		}
		return nil, err
	}
	return cands, nil
}

// generateEdges tries to connect vid to its nearest neighbors.
func (pp *prmPlanner) generateEdges(ctx context.Context, vid int) error {
	_, span := trace.StartSpan(ctx, "generateEdges")
	defer span.End()
	start := pp.clock.Now()
	defer func() {
		pp.metrics.AddTiming("generateEdges", pp.clock.Since(start))
	}()

	for _, n := range pp.nn.kNearest(pp.graph.Vertex(vid).Cfg, pp.planOpts.PRMNeighbors, vid) {
		if err := pp.generateEdge(vid, n.vid); err != nil {
			return err
		}
	}
	return nil
}

// generateEdge attempts a single connection. Pairs already attempted are skipped, and so are
// pairs in the same component unless a draw below prm_prob_allow_cycles permits the cycle.
func (pp *prmPlanner) generateEdge(vid1, vid2 int) error {
	if vid1 == vid2 {
		return nil
	}
	if pp.randseed.Float64() > pp.planOpts.PRMProbAllowCycles && pp.graph.ArePathConnected(vid1, vid2) {
		pp.metrics.Inc(CounterCycleSkips, 1)
		return nil
	}
	v1, v2 := pp.graph.Vertex(vid1), pp.graph.Vertex(vid2)
	if v1.Attempts.Contains(uint32(vid2)) {
		return nil
	}
	v1.Attempts.Add(uint32(vid2))
	v2.Attempts.Add(uint32(vid1))

	var inter []*cspace.Cfg
	ok, err := pp.connect(v1.Cfg, v2.Cfg, &inter)
	if err != nil || !ok {
		for _, c := range inter {
			pp.factory.Delete(c)
		}
		return err
	}
	fwd, rev := cspace.EvaluatePath(pp.problem.EdgeCost, v1.Cfg, v2.Cfg, inter)
	return pp.addEdge(&plannergraph.Edge{
		From:          vid1,
		To:            vid2,
		Costs:         [2]float64{fwd, rev},
		Intermediates: inter,
	})
}

// connect generates the intermediate configurations of a connection from c1 to c2 into inter.
// Interpolating generators step evenly toward c2; other generators chain offspring until one
// lands within one_step_distance of c2 or extend_max_steps runs out.
func (pp *prmPlanner) connect(c1, c2 *cspace.Cfg, inter *[]*cspace.Cfg) (bool, error) {
	step := pp.planOpts.OneStepDistance
	d := pp.problem.Distance.Distance(c1, c2)

	next := func(parent, target *cspace.Cfg, t float64) (*cspace.Cfg, bool, error) {
		cfg := pp.factory.New()
		if err := pp.problem.Generator.Generate(pp.randseed, parent, target, cfg, t); err != nil {
			pp.factory.Delete(cfg)
			return nil, false, err
		}
		ok, err := pp.problem.Acceptor.IsAcceptable(cfg)
		if err != nil || !ok {
			pp.factory.Delete(cfg)
			return nil, false, err
		}
		*inter = append(*inter, cfg)
		pp.bindSource(cfg)
		return cfg, true, nil
	}

	pp.bindSource(c1)
	if pp.toTarget {
		if d == 0 {
			return true, nil
		}
		tstep := step / d
		for t := tstep; t < 1; t += tstep {
			if _, ok, err := next(c1, c2, t); err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}

	parent := c1
	for i := 0; pp.problem.Distance.Distance(parent, c2) > step; i++ {
		if i >= pp.planOpts.ExtendMaxSteps {
			return false, nil
		}
		cfg, ok, err := next(parent, c2, step)
		if err != nil || !ok {
			return false, err
		}
		parent = cfg
	}
	return true, nil
}
