package motionplan

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Names of the counters a planner reports to its Metrics.
const (
	CounterVerticesAdded         = "vertices_added"
	CounterEdgesAdded            = "edges_added"
	CounterExtendFailed          = "extend_failed"
	CounterExtendOK              = "extend_ok"
	CounterExtendReachedTarget   = "extend_reached_target"
	CounterExtendReachedGoal     = "extend_reached_goal"
	CounterGranularityRejections = "granularity_rejections"
	CounterCycleSkips            = "cycle_skips"
)

// Metrics receives timing and counter updates from a planner.
type Metrics interface {
	AddTiming(opName string, dur time.Duration)
	Inc(counter string, n int64)
}

// InvocationCounters is used to count the number of times a method has been invoked and the
// accumulated time spent in that function.
type InvocationCounters struct {
	calls     atomic.Int64
	timeNanos atomic.Int64
}

// PlanMeta is meta data about plan generation. It implements Metrics.
type PlanMeta struct {
	mu       sync.Mutex
	Timing   map[string]*InvocationCounters
	Counters map[string]*atomic.Int64
}

// NewPlanMeta constructs PlanMeta.
func NewPlanMeta() *PlanMeta {
	return &PlanMeta{
		Timing:   make(map[string]*InvocationCounters),
		Counters: make(map[string]*atomic.Int64),
	}
}

// DeferTiming can be used as a one-liner for tracking a function invocation. Expected usage at the
// top of a function is:
//
//	defer planMeta.DeferTiming("functionName", time.Now())
func (pm *PlanMeta) DeferTiming(opName string, start time.Time) {
	pm.AddTiming(opName, time.Since(start))
}

// AddTiming will increment the invocation count and time spent for an "operation".
func (pm *PlanMeta) AddTiming(opName string, dur time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	ic, exists := pm.Timing[opName]
	if !exists {
		ic = &InvocationCounters{}
		pm.Timing[opName] = ic
	}
	ic.calls.Add(1)
	ic.timeNanos.Add(dur.Nanoseconds())
}

// Inc adds n to the named counter.
func (pm *PlanMeta) Inc(counter string, n int64) {
	pm.mu.Lock()
	c, exists := pm.Counters[counter]
	if !exists {
		c = &atomic.Int64{}
		pm.Counters[counter] = c
	}
	pm.mu.Unlock()
	c.Add(n)
}

// Count returns the value of the named counter.
func (pm *PlanMeta) Count(counter string) int64 {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if c, ok := pm.Counters[counter]; ok {
		return c.Load()
	}
	return 0
}

// OutputTiming pretty-prints in a text format the timing and counter information, sorted by name.
func (pm *PlanMeta) OutputTiming(outputWriter io.Writer) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	ops := make([]string, 0, len(pm.Timing))
	for op := range pm.Timing {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		//nolint:errcheck
		fmt.Fprintf(outputWriter, "%-24s %v\n", op+":", pm.Timing[op])
	}

	counters := make([]string, 0, len(pm.Counters))
	for name := range pm.Counters {
		counters = append(counters, name)
	}
	sort.Strings(counters)
	for _, name := range counters {
		//nolint:errcheck
		fmt.Fprintf(outputWriter, "%-24s %d\n", name+":", pm.Counters[name].Load())
	}
}

// Calls returns the number of times a function was called.
func (ic *InvocationCounters) Calls() int64 {
	if ic == nil {
		return 0
	}

	return ic.calls.Load()
}

// TotalTimeNanos returns the total accumulated runtime of a function as a time in nanoseconds.
func (ic *InvocationCounters) TotalTimeNanos() int64 {
	if ic == nil {
		return 0
	}

	return ic.timeNanos.Load()
}

// TotalTime returns the total accumulated runtime of a function as a time.Duration.
func (ic *InvocationCounters) TotalTime() time.Duration {
	return time.Duration(ic.TotalTimeNanos())
}

// Average returns the average time spent per function invocation. Returns a zero-value when a
// function was not called.
func (ic *InvocationCounters) Average() time.Duration {
	calls := ic.Calls()
	if calls == 0 {
		return time.Duration(0)
	}

	return time.Duration(ic.TotalTimeNanos() / calls)
}

// String is a pretty-formated string representation of the number of calls/total time/average.
func (ic *InvocationCounters) String() string {
	// Calls is fixed at three spaces, right aligned.
	// Total time is fixed at thirteen spaces, left aligned.
	return fmt.Sprintf("Calls: %3d Total time: %-13s Average time: %v",
		ic.Calls(), ic.TotalTime(), ic.Average())
}

// NoopMetrics discards every update.
type NoopMetrics struct{}

// AddTiming implements Metrics.
func (NoopMetrics) AddTiming(string, time.Duration) {}

// Inc implements Metrics.
func (NoopMetrics) Inc(string, int64) {}
