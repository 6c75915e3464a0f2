package ml

import "sync"

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu                sync.Mutex
	trainingRuns      int
	trainingFailures  int
	cancellations     int
	durationSum       float64
	lastLoss          float64
	lastRSquared      float64
	predictions       int
	predictionErrors  int
	latencySum        float64
	transitionsByName map[string]int
}

func (m *MockMetrics) TrainingRunsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trainingRuns++
}

func (m *MockMetrics) TrainingFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trainingFailures++
}

func (m *MockMetrics) TrainingCancellationsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancellations++
}

func (m *MockMetrics) TrainingDurationObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durationSum += v
}

func (m *MockMetrics) TrainingLossSet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLoss = v
}

func (m *MockMetrics) TrainingRSquaredSet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRSquared = v
}

func (m *MockMetrics) PredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *MockMetrics) PredictionFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictionErrors++
}

func (m *MockMetrics) PredictionLatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
}

func (m *MockMetrics) TransitionsInc(to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transitionsByName == nil {
		m.transitionsByName = make(map[string]int)
	}
	m.transitionsByName[to]++
}

// Snapshot returns the counters recorded so far.
func (m *MockMetrics) Snapshot() (runs, failures, cancellations, predictions, predictionErrors int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trainingRuns, m.trainingFailures, m.cancellations, m.predictions, m.predictionErrors
}

// Transitions returns how many times the session entered the named status.
func (m *MockMetrics) Transitions(to string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionsByName[to]
}
