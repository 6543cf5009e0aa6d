package motionplan

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestPlanMeta(t *testing.T) {
	pm := NewPlanMeta()
	pm.AddTiming("Solve", 2*time.Second)
	pm.AddTiming("Solve", 4*time.Second)
	test.That(t, pm.Timing["Solve"].Calls(), test.ShouldEqual, int64(2))
	test.That(t, pm.Timing["Solve"].TotalTime(), test.ShouldEqual, 6*time.Second)
	test.That(t, pm.Timing["Solve"].Average(), test.ShouldEqual, 3*time.Second)

	var nilCounters *InvocationCounters
	test.That(t, nilCounters.Average(), test.ShouldEqual, time.Duration(0))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				pm.Inc(CounterVerticesAdded, 1)
			}
		}()
	}
	wg.Wait()
	test.That(t, pm.Count(CounterVerticesAdded), test.ShouldEqual, int64(800))
	test.That(t, pm.Count(CounterCycleSkips), test.ShouldEqual, int64(0))

	var buf bytes.Buffer
	pm.OutputTiming(&buf)
	test.That(t, buf.String(), test.ShouldContainSubstring, "Solve:")
	test.That(t, buf.String(), test.ShouldContainSubstring, "vertices_added:")
	test.That(t, buf.String(), test.ShouldContainSubstring, "800")
}
