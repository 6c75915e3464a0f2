package metrics

import "github.com/prometheus/client_golang/prometheus"

// Interfaces for metrics to avoid circular imports
type MetricsCounter interface {
	Inc()
}

type MetricsGauge interface {
	Set(float64)
	Add(float64)
}

// MetricsWrapper adapts Metrics to the method set the ml session expects,
// and exposes the data metrics the HTTP workspace updates.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) TrainingRunsInc()                   { w.m.TrainingRuns.Inc() }
func (w *MetricsWrapper) TrainingFailuresInc()               { w.m.TrainingFailures.Inc() }
func (w *MetricsWrapper) TrainingCancellationsInc()          { w.m.TrainingCancellations.Inc() }
func (w *MetricsWrapper) TrainingDurationObserve(v float64)  { w.m.TrainingDuration.Observe(v) }
func (w *MetricsWrapper) TrainingLossSet(v float64)          { w.m.TrainingLoss.Set(v) }
func (w *MetricsWrapper) TrainingRSquaredSet(v float64)      { w.m.TrainingRSquared.Set(v) }
func (w *MetricsWrapper) PredictionsInc()                    { w.m.Predictions.Inc() }
func (w *MetricsWrapper) PredictionFailuresInc()             { w.m.PredictionFailures.Inc() }
func (w *MetricsWrapper) PredictionLatencyObserve(v float64) { w.m.PredictionLatency.Observe(v) }

func (w *MetricsWrapper) TransitionsInc(to string) {
	w.m.Transitions.WithLabelValues(to).Inc()
}

func (w *MetricsWrapper) TrainingSetSize() MetricsGauge {
	return &GaugeWrapper{w.m.TrainingSetSize}
}

func (w *MetricsWrapper) EditRejections() MetricsCounter {
	return &CounterWrapper{w.m.EditRejections}
}

type CounterWrapper struct {
	c prometheus.Counter
}

func (cw *CounterWrapper) Inc() {
	cw.c.Inc()
}

type GaugeWrapper struct {
	g prometheus.Gauge
}

func (gw *GaugeWrapper) Set(v float64) {
	gw.g.Set(v)
}

func (gw *GaugeWrapper) Add(v float64) {
	gw.g.Add(v)
}
