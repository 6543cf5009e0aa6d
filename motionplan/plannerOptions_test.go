package motionplan

import (
	"testing"
	"time"

	"go.viam.com/test"
)

func TestNewPlannerOptionsFromExtra(t *testing.T) {
	opt, err := NewPlannerOptionsFromExtra(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opt, test.ShouldResemble, NewBasicPlannerOptions())
	test.That(t, opt.FindCfgTolerance, test.ShouldEqual, 1.0/(1<<36))
	test.That(t, opt.timeoutDuration(), test.ShouldEqual, 300*time.Second)

	opt, err = NewPlannerOptionsFromExtra(map[string]interface{}{
		"one_step_distance":   0.25,
		"prm_neighbors":       4,
		"feltr_weighting":     WeightingGaussian,
		"projection_min":      []float64{-1, -2},
		"projection_max":      []float64{1, 2},
		"timeout":             1.5,
		"rseed":               7,
		"nn_index":            NNIndexKDTree,
		"unrelated_key":       "ignored",
		"sample_valid_target": false,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opt.OneStepDistance, test.ShouldEqual, 0.25)
	test.That(t, opt.PRMNeighbors, test.ShouldEqual, 4)
	test.That(t, opt.FELTRWeighting, test.ShouldEqual, WeightingGaussian)
	test.That(t, opt.ProjectionMax, test.ShouldResemble, []float64{1, 2})
	test.That(t, opt.timeoutDuration(), test.ShouldEqual, 1500*time.Millisecond)
	test.That(t, opt.RandomSeed, test.ShouldEqual, 7)
	test.That(t, opt.NNIndex, test.ShouldEqual, NNIndexKDTree)
	test.That(t, opt.SampleValidTarget, test.ShouldBeFalse)
	// untouched options keep their defaults
	test.That(t, opt.ExtendMaxSteps, test.ShouldEqual, defaultExtendMaxSteps)

	_, err = NewPlannerOptionsFromExtra(map[string]interface{}{"prm_neighbors": "ten"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "invalid planner options")
}

func TestPlannerOptionsValidate(t *testing.T) {
	for _, tc := range []struct {
		name  string
		extra map[string]interface{}
		msg   string
	}{
		{"step", map[string]interface{}{"one_step_distance": 0.0}, "one_step_distance"},
		{"max steps", map[string]interface{}{"extend_max_steps": -1}, "extend_max_steps"},
		{"goal bias", map[string]interface{}{"goal_bias": 1.5}, "goal_bias"},
		{"batch", map[string]interface{}{"prm_batch_size": 0}, "prm_batch_size"},
		{"cycles", map[string]interface{}{"prm_prob_allow_cycles": -0.1}, "prm_prob_allow_cycles"},
		{"granularity", map[string]interface{}{"pgt_granularity": 0}, "pgt_granularity"},
		{"bounds length", map[string]interface{}{"projection_min": []float64{0}}, "same length"},
		{"bounds order", map[string]interface{}{
			"projection_min": []float64{0, 3},
			"projection_max": []float64{1, 2},
		}, "projection_min[1]"},
		{"energy range", map[string]interface{}{"feltr_energy_min": 10, "feltr_energy_max": 10}, "feltr_energy_min"},
		{"weighting", map[string]interface{}{"feltr_weighting": "cubic"}, "feltr_weighting"},
		{"regions", map[string]interface{}{"sprint_regions": -2}, "sprint_regions"},
		{"timeout", map[string]interface{}{"timeout": 0}, "timeout"},
		{"index", map[string]interface{}{"nn_index": "ball"}, "nn_index"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPlannerOptionsFromExtra(tc.extra)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.msg)
		})
	}
}

func TestNumThreads(t *testing.T) {
	opt := NewBasicPlannerOptions()
	opt.NumThreads = 0
	test.That(t, opt.numThreads(), test.ShouldEqual, 1)
	opt.NumThreads = 6
	test.That(t, opt.numThreads(), test.ShouldEqual, 6)
}
