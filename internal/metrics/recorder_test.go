package metrics

import (
	"sync"
	"time"
)

// testRecorder counts calls; it is safe for concurrent use like the real recorders.
type testRecorder struct {
	mu            sync.Mutex
	hookDurations map[string]int
	hookResults   map[string]map[ResultLabel]int
	buildOutcomes map[BuildOutcomeLabel]int
	fileResults   map[ResultLabel]int
	inFlight      int
	maxInFlight   int
}

func newTestRecorder() *testRecorder {
	return &testRecorder{
		hookDurations: map[string]int{},
		hookResults:   map[string]map[ResultLabel]int{},
		buildOutcomes: map[BuildOutcomeLabel]int{},
		fileResults:   map[ResultLabel]int{},
	}
}

func (t *testRecorder) ObserveHookDuration(hook, plugin string, _ time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hookDurations[hook+"/"+plugin]++
}

func (t *testRecorder) IncHookResult(hook, plugin string, result ResultLabel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := hook + "/" + plugin
	m, ok := t.hookResults[key]
	if !ok {
		m = map[ResultLabel]int{}
		t.hookResults[key] = m
	}
	m[result]++
}

func (t *testRecorder) ObserveBuildDuration(time.Duration) {}

func (t *testRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buildOutcomes[outcome]++
}

func (t *testRecorder) IncFileResult(result ResultLabel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fileResults[result]++
}

func (t *testRecorder) AddJobsInFlight(delta int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inFlight += delta
	if t.inFlight > t.maxInFlight {
		t.maxInFlight = t.inFlight
	}
}

func (t *testRecorder) SetWorkers(int) {}

var (
	_ Recorder = (*testRecorder)(nil)
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)
