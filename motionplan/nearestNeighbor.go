package motionplan

import (
	"context"
	"math"
	"sort"
	"sync"

	"go.viam.com/utils"
	"gonum.org/v1/gonum/spatial/kdtree"

	"go.viam.com/planengine/cspace"
)

const neighborsBeforeParallelization = 1000

type neighbor struct {
	dist float64
	vid  int
}

// nearestNeighborIndex answers proximity queries over the configurations of the planner graph.
type nearestNeighborIndex interface {
	insert(vid int, cfg *cspace.Cfg)
	size() int
	// nearest returns the closest key to q. Querying an empty index is a precondition violation.
	nearest(ctx context.Context, q *cspace.Cfg) (neighbor, error)
	// kNearest returns up to k keys other than exclude, closest first.
	kNearest(q *cspace.Cfg, k, exclude int) []neighbor
	// withinRadius returns the keys other than exclude within r of q, closest first.
	withinRadius(q *cspace.Cfg, r float64, exclude int) []neighbor
}

func newNearestNeighborIndex(kind string, metric cspace.Distance, nCPU int) (nearestNeighborIndex, error) {
	switch kind {
	case NNIndexKDTree:
		lp, ok := metric.(*cspace.LpDistance)
		if !ok || !lp.IsEuclidean() {
			return nil, cspace.NewPreconditionError("newNearestNeighborIndex",
				"the kd-tree index requires a euclidean distance without angular dimensions")
		}
		return &kdNeighbors{tree: &kdtree.Tree{}}, nil
	case NNIndexBrute, "":
		return &neighborManager{metric: metric, nCPU: nCPU}, nil
	default:
		return nil, NewUnknownPlannerError(kind)
	}
}

// neighborManager scans every key, in parallel once the index is large.
type neighborManager struct {
	metric cspace.Distance
	vids   []int
	cfgs   []*cspace.Cfg
	nCPU   int
}

func (nm *neighborManager) insert(vid int, cfg *cspace.Cfg) {
	nm.vids = append(nm.vids, vid)
	nm.cfgs = append(nm.cfgs, cfg)
}

func (nm *neighborManager) size() int {
	return len(nm.vids)
}

func (nm *neighborManager) nearest(ctx context.Context, q *cspace.Cfg) (neighbor, error) {
	if len(nm.vids) == 0 {
		return neighbor{}, errEmptyIndex
	}
	if len(nm.vids) > neighborsBeforeParallelization && nm.nCPU > 1 {
		// If the index is large, calculate distances in parallel
		return nm.parallelNearestNeighbor(ctx, q)
	}
	return nm.scan(q, 0, len(nm.vids)), nil
}

func (nm *neighborManager) scan(q *cspace.Cfg, lo, hi int) neighbor {
	best := neighbor{dist: math.Inf(1), vid: -1}
	for i := lo; i < hi; i++ {
		dist := nm.metric.Distance(q, nm.cfgs[i])
		if dist < best.dist {
			best = neighbor{dist: dist, vid: nm.vids[i]}
		}
	}
	return best
}

func (nm *neighborManager) parallelNearestNeighbor(ctx context.Context, q *cspace.Cfg) (neighbor, error) {
	chunk := (len(nm.vids) + nm.nCPU - 1) / nm.nCPU
	results := make([]neighbor, nm.nCPU)
	var wg sync.WaitGroup
	for w := 0; w < nm.nCPU; w++ {
		w := w
		lo := w * chunk
		hi := lo + chunk
		if hi > len(nm.vids) {
			hi = len(nm.vids)
		}
		results[w] = neighbor{dist: math.Inf(1), vid: -1}
		if lo >= hi {
			continue
		}
		wg.Add(1)
		utils.PanicCapturingGo(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			results[w] = nm.scan(q, lo, hi)
		})
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return neighbor{}, err
	}

	best := results[0]
	for _, nn := range results[1:] {
		// ties go to the lower chunk so the answer matches a serial scan
		if nn.dist < best.dist {
			best = nn
		}
	}
	return best, nil
}

func (nm *neighborManager) all(q *cspace.Cfg, exclude int) []neighbor {
	allCosts := make([]neighbor, 0, len(nm.vids))
	for i, vid := range nm.vids {
		if vid == exclude {
			continue
		}
		allCosts = append(allCosts, neighbor{dist: nm.metric.Distance(q, nm.cfgs[i]), vid: vid})
	}
	sortNeighbors(allCosts)
	return allCosts
}

func (nm *neighborManager) kNearest(q *cspace.Cfg, k, exclude int) []neighbor {
	allCosts := nm.all(q, exclude)
	if k < len(allCosts) {
		allCosts = allCosts[:k]
	}
	return allCosts
}

func (nm *neighborManager) withinRadius(q *cspace.Cfg, r float64, exclude int) []neighbor {
	allCosts := nm.all(q, exclude)
	n := sort.Search(len(allCosts), func(i int) bool { return allCosts[i].dist > r })
	return allCosts[:n]
}

func sortNeighbors(ns []neighbor) {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].dist == ns[j].dist {
			return ns[i].vid < ns[j].vid
		}
		return ns[i].dist < ns[j].dist
	})
}

// kdPoint is a vertex configuration stored in a kd-tree.
type kdPoint struct {
	vals []float64
	vid  int
}

func (p kdPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.vals[d] - c.(kdPoint).vals[d]
}

func (p kdPoint) Dims() int {
	return len(p.vals)
}

// Distance returns the squared euclidean distance.
func (p kdPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(kdPoint)
	sum := 0.0
	for i, v := range p.vals {
		d := v - q.vals[i]
		sum += d * d
	}
	return sum
}

// kdNeighbors indexes euclidean configurations in a gonum kd-tree. Insertions do not rebalance
// the tree.
type kdNeighbors struct {
	tree *kdtree.Tree
	n    int
}

func (kd *kdNeighbors) insert(vid int, cfg *cspace.Cfg) {
	kd.tree.Insert(kdPoint{vals: cfg.Values(), vid: vid}, false)
	kd.n++
}

func (kd *kdNeighbors) size() int {
	return kd.n
}

func (kd *kdNeighbors) nearest(_ context.Context, q *cspace.Cfg) (neighbor, error) {
	if kd.n == 0 {
		return neighbor{}, errEmptyIndex
	}
	c, d := kd.tree.Nearest(kdPoint{vals: q.Values(), vid: -1})
	return neighbor{dist: math.Sqrt(d), vid: c.(kdPoint).vid}, nil
}

func collectNeighbors(heap kdtree.Heap, exclude int) []neighbor {
	out := make([]neighbor, 0, len(heap))
	for _, cd := range heap {
		if cd.Comparable == nil {
			continue
		}
		p := cd.Comparable.(kdPoint)
		if p.vid == exclude {
			continue
		}
		out = append(out, neighbor{dist: math.Sqrt(cd.Dist), vid: p.vid})
	}
	sortNeighbors(out)
	return out
}

func (kd *kdNeighbors) kNearest(q *cspace.Cfg, k, exclude int) []neighbor {
	if kd.n == 0 || k <= 0 {
		return nil
	}
	keeper := kdtree.NewNKeeper(k + 1)
	kd.tree.NearestSet(keeper, kdPoint{vals: q.Values(), vid: -1})
	out := collectNeighbors(keeper.Heap, exclude)
	if len(out) > k {
		out = out[:k]
	}
	return out
}

func (kd *kdNeighbors) withinRadius(q *cspace.Cfg, r float64, exclude int) []neighbor {
	if kd.n == 0 {
		return nil
	}
	keeper := kdtree.NewDistKeeper(r * r)
	kd.tree.NearestSet(keeper, kdPoint{vals: q.Values(), vid: -1})
	return collectNeighbors(keeper.Heap, exclude)
}
