package server

import (
	"context"
	"sync"

	"regression-lab/internal/dataset"
	"regression-lab/internal/metrics"
	"regression-lab/internal/ml"
)

// Workspace is the presentation-side owner of the current training set.
// It is the only component that replaces the set, always with the result of a
// dataset transform, and it hands the session a snapshot when training starts.
type Workspace struct {
	mu      sync.RWMutex
	pairs   dataset.Set
	seed    dataset.Set
	session *ml.Session
	metrics *metrics.MetricsWrapper // optional
}

// NewWorkspace creates a workspace starting from seed.
func NewWorkspace(seed dataset.Set, session *ml.Session, mw *metrics.MetricsWrapper) *Workspace {
	w := &Workspace{
		pairs:   seed.Clone(),
		seed:    seed.Clone(),
		session: session,
		metrics: mw,
	}
	w.recordSize()
	return w
}

// Session returns the regression session.
func (w *Workspace) Session() *ml.Session {
	return w.session
}

// Pairs returns a copy of the current training set.
func (w *Workspace) Pairs() dataset.Set {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pairs.Clone()
}

// UpdatePair applies dataset.UpdatePair to the current set.
func (w *Workspace) UpdatePair(index int, field dataset.Field, raw string) (dataset.Set, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	next, err := dataset.UpdatePair(w.pairs, index, field, raw)
	if err != nil {
		if w.metrics != nil {
			w.metrics.EditRejections().Inc()
		}
		return w.pairs.Clone(), err
	}
	w.pairs = next
	return next.Clone(), nil
}

// AddPair applies dataset.AddPair to the current set.
func (w *Workspace) AddPair() dataset.Set {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pairs = dataset.AddPair(w.pairs)
	w.recordSizeLocked()
	return w.pairs.Clone()
}

// Reset restores the seed set.
func (w *Workspace) Reset() dataset.Set {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pairs = w.seed.Clone()
	w.recordSizeLocked()
	return w.pairs.Clone()
}

// StartTraining hands the session a snapshot of the current set.
func (w *Workspace) StartTraining() (string, error) {
	return w.session.StartTraining(w.Pairs())
}

// Train starts a run on the current set and waits for it.
func (w *Workspace) Train(ctx context.Context) (ml.State, error) {
	return w.session.Train(ctx, w.Pairs())
}

// SetValueToPredict forwards to the session, counting rejected input.
func (w *Workspace) SetValueToPredict(raw string) error {
	err := w.session.SetValueToPredict(raw)
	if err != nil && w.metrics != nil {
		w.metrics.EditRejections().Inc()
	}
	return err
}

func (w *Workspace) recordSize() {
	w.mu.RLock()
	defer w.mu.RUnlock()
	w.recordSizeLocked()
}

func (w *Workspace) recordSizeLocked() {
	if w.metrics != nil {
		w.metrics.TrainingSetSize().Set(float64(len(w.pairs)))
	}
}
