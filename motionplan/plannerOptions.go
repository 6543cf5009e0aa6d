package motionplan

import (
	"encoding/json"
	"math"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/planengine/utils"
)

// default values for planning options.
const (
	// Distance covered by a single extension or interpolation step.
	defaultOneStepDistance = 0.1

	// Maximum number of steps a single tree extension may take.
	defaultExtendMaxSteps = 100

	// A tree extension stops once it gets this close to its target.
	defaultExtendReachedTargetDist = 0.1

	// Probability of extending toward a goal configuration instead of a random sample.
	defaultGoalBias = 0.05

	// Number of nearest vertices a roadmap tries to connect each new vertex to.
	defaultPRMNeighbors = 10

	// Number of accepted configurations generated per roadmap batch.
	defaultPRMBatchSize = 100

	// Probability of attempting a roadmap connection that would close a cycle.
	defaultPRMProbAllowCycles = 0.0

	// Radius within which vertices count as neighbors for density weighting.
	defaultESTNeighborhoodRadius = 2.0

	// Number of cells per projection axis for grid weighting.
	defaultPGTGranularity = 30

	// Energy axis partition of the region weighted strategy.
	defaultFELTREnergyGranularity = 100
	defaultFELTREnergyMin         = -50.0
	defaultFELTREnergyMax         = 200.0

	// Number of cells per projection axis inside a region.
	defaultFELTRCellGranularity = 30

	// Candidates closer than this to a configuration already in their cell are dropped.
	defaultFELTRSimilarityThreshold = 0.25

	// Exponent of the indexed region weights.
	defaultSprintPower = 2

	// default number of seconds a single Solve call may take.
	defaultTimeout = 300.

	// random seed.
	defaultRandomSeed = 0
)

// Region weighting modes of the energy region strategy.
const (
	WeightingQuad     = "quad"
	WeightingGaussian = "gaussian"
)

// Nearest neighbor index kinds.
const (
	NNIndexBrute  = "brute"
	NNIndexKDTree = "kdtree"
)

// DefaultFindCfgTolerance is the distance under which FindCfg treats two configurations as the same.
var DefaultFindCfgTolerance = math.Ldexp(1, -36)

var defaultNumThreads = utils.MinInt(runtime.NumCPU()/2, 10)

func init() {
	defaultNumThreads = utils.GetenvInt(utils.NumThreadsEnvVar, defaultNumThreads)
}

// NewBasicPlannerOptions specifies a set of basic options for the planner.
func NewBasicPlannerOptions() *PlannerOptions {
	opt := &PlannerOptions{}
	opt.OneStepDistance = defaultOneStepDistance
	opt.ExtendMaxSteps = defaultExtendMaxSteps
	opt.ExtendReachedTargetDist = defaultExtendReachedTargetDist
	opt.GoalBias = defaultGoalBias
	opt.SampleValidTarget = true

	opt.PRMNeighbors = defaultPRMNeighbors
	opt.PRMBatchSize = defaultPRMBatchSize
	opt.PRMProbAllowCycles = defaultPRMProbAllowCycles

	opt.ESTNeighborhoodRadius = defaultESTNeighborhoodRadius
	opt.PGTGranularity = defaultPGTGranularity

	opt.FELTREnergyGranularity = defaultFELTREnergyGranularity
	opt.FELTREnergyMin = defaultFELTREnergyMin
	opt.FELTREnergyMax = defaultFELTREnergyMax
	opt.FELTRCellGranularity = defaultFELTRCellGranularity
	opt.FELTRSimilarityThreshold = defaultFELTRSimilarityThreshold
	opt.FELTRWeighting = WeightingQuad

	opt.SprintPower = defaultSprintPower

	opt.Timeout = defaultTimeout
	opt.RandomSeed = defaultRandomSeed
	opt.NumThreads = defaultNumThreads
	opt.NNIndex = NNIndexBrute
	opt.FindCfgTolerance = DefaultFindCfgTolerance

	return opt
}

// PlannerOptions are a set of options to be passed to a planner which will specify how to solve a motion planning problem.
type PlannerOptions struct {
	// Distance covered by one extension step. Interpolating generators receive it as a fraction
	// of the remaining distance, perturbing generators as the perturbation magnitude.
	OneStepDistance float64 `json:"one_step_distance"`

	// Tree strategies.
	ExtendMaxSteps          int     `json:"extend_max_steps"`
	ExtendReachedTargetDist float64 `json:"extend_reached_target_dist"`
	GoalBias                float64 `json:"goal_bias"`
	// Resample targets until the acceptor accepts them.
	SampleValidTarget bool `json:"sample_valid_target"`

	// Roadmap strategy.
	PRMNeighbors       int     `json:"prm_neighbors"`
	PRMBatchSize       int     `json:"prm_batch_size"`
	PRMProbAllowCycles float64 `json:"prm_prob_allow_cycles"`

	// Density weighted strategy.
	ESTNeighborhoodRadius float64 `json:"est_neighborhood_radius"`

	// Grid weighted strategy. Bounds of the projection grid default to the bounds reported by
	// the projector.
	PGTGranularity int       `json:"pgt_granularity"`
	ProjectionMin  []float64 `json:"projection_min"`
	ProjectionMax  []float64 `json:"projection_max"`

	// Energy region strategy.
	FELTREnergyGranularity   int     `json:"feltr_energy_granularity"`
	FELTREnergyMin           float64 `json:"feltr_energy_min"`
	FELTREnergyMax           float64 `json:"feltr_energy_max"`
	FELTRCellGranularity     int     `json:"feltr_cell_granularity"`
	FELTRSimilarityThreshold float64 `json:"feltr_similarity_threshold"`
	FELTRWeighting           string  `json:"feltr_weighting"`

	// Indexed region strategy.
	SprintRegions int `json:"sprint_regions"`
	SprintPower   int `json:"sprint_power"`

	// Number of seconds before a Solve call returns unsolved.
	Timeout float64 `json:"timeout"`

	// Maximum number of iterations per Solve call, unlimited when zero.
	PlanIter int `json:"plan_iter"`

	// The random seed used when no random source is supplied. This parameter guarantees deterministic
	// outputs for a given set of identical inputs
	RandomSeed int `json:"rseed"`

	// Number of goroutines used for nearest neighbor scans and roadmap sampling.
	NumThreads int `json:"num_threads"`

	NNIndex          string  `json:"nn_index"`
	FindCfgTolerance float64 `json:"find_cfg_tolerance"`
}

// NewPlannerOptionsFromExtra returns basic default settings updated by overridden parameters
// found in extra.
func NewPlannerOptionsFromExtra(extra map[string]interface{}) (*PlannerOptions, error) {
	opt := NewBasicPlannerOptions()

	jsonString, err := json.Marshal(extra)
	if err != nil {
		return nil, err
	}
	err = json.Unmarshal(jsonString, opt)
	if err != nil {
		return nil, errors.Wrap(err, "invalid planner options")
	}

	if err := opt.Validate(); err != nil {
		return nil, err
	}
	return opt, nil
}

// Validate returns an error naming the first option holding an unusable value.
func (p *PlannerOptions) Validate() error {
	switch {
	case p.OneStepDistance <= 0:
		return errors.New("one_step_distance must be positive")
	case p.ExtendMaxSteps <= 0:
		return errors.New("extend_max_steps must be positive")
	case p.ExtendReachedTargetDist < 0:
		return errors.New("extend_reached_target_dist can't be negative")
	case !isProbability(p.GoalBias):
		return errors.New("goal_bias must be in [0, 1]")
	case p.PRMNeighbors <= 0:
		return errors.New("prm_neighbors must be positive")
	case p.PRMBatchSize <= 0:
		return errors.New("prm_batch_size must be positive")
	case !isProbability(p.PRMProbAllowCycles):
		return errors.New("prm_prob_allow_cycles must be in [0, 1]")
	case p.ESTNeighborhoodRadius < 0:
		return errors.New("est_neighborhood_radius can't be negative")
	case p.PGTGranularity <= 0:
		return errors.New("pgt_granularity must be positive")
	case len(p.ProjectionMin) != len(p.ProjectionMax):
		return errors.New("projection_min and projection_max must have the same length")
	case p.FELTREnergyGranularity <= 0 || p.FELTRCellGranularity <= 0:
		return errors.New("feltr granularities must be positive")
	case p.FELTREnergyMin >= p.FELTREnergyMax:
		return errors.New("feltr_energy_min must be below feltr_energy_max")
	case p.FELTRSimilarityThreshold < 0:
		return errors.New("feltr_similarity_threshold can't be negative")
	case !lo.Contains([]string{WeightingQuad, WeightingGaussian}, p.FELTRWeighting):
		return errors.Errorf("unknown feltr_weighting %q", p.FELTRWeighting)
	case p.SprintRegions < 0:
		return errors.New("sprint_regions can't be negative")
	case p.Timeout <= 0:
		return errors.New("timeout must be positive")
	case p.PlanIter < 0:
		return errors.New("plan_iter can't be negative")
	case !lo.Contains([]string{NNIndexBrute, NNIndexKDTree}, p.NNIndex):
		return errors.Errorf("unknown nn_index %q", p.NNIndex)
	case p.FindCfgTolerance < 0:
		return errors.New("find_cfg_tolerance can't be negative")
	}
	for i := range p.ProjectionMin {
		if p.ProjectionMin[i] > p.ProjectionMax[i] {
			return errors.Errorf("projection_min[%d] exceeds projection_max[%d]", i, i)
		}
	}
	return nil
}

func isProbability(x float64) bool {
	return x >= 0 && x <= 1
}

func (p *PlannerOptions) timeoutDuration() time.Duration {
	return time.Duration(p.Timeout * float64(time.Second))
}

func (p *PlannerOptions) numThreads() int {
	return utils.MaxInt(1, p.NumThreads)
}
