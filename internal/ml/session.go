package ml

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"regression-lab/internal/dataset"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Status is the lifecycle state of a Session's model.
type Status int

const (
	Untrained Status = iota
	Training
	Trained
	Failed
)

var statusNames = map[Status]string{
	Untrained: "untrained",
	Training:  "training",
	Trained:   "trained",
	Failed:    "failed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText renders the status by name in JSON payloads.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *Status) UnmarshalText(b []byte) error {
	for k, v := range statusNames {
		if v == string(b) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(b))
}

// Status messages shown alongside the numeric prediction field.
const (
	MessageUntrained = "Click on train!"
	MessageTraining  = "Training..."
	MessageReady     = "Ready for making predictions"
	MessageClosed    = "Session closed"
)

// MetricsInterface defines metrics methods needed by the session
type MetricsInterface interface {
	TrainingRunsInc()
	TrainingFailuresInc()
	TrainingCancellationsInc()
	TrainingDurationObserve(float64)
	TrainingLossSet(float64)
	TrainingRSquaredSet(float64)
	PredictionsInc()
	PredictionFailuresInc()
	PredictionLatencyObserve(float64)
	TransitionsInc(to string)
}

// SessionOptions configures a Session.
type SessionOptions struct {
	Epochs  int           // defaults to DefaultEpochs
	Timeout time.Duration // 0 means training runs until it finishes or is cancelled
	Metrics MetricsInterface

	// OnEpoch observes training progress. It runs on the training goroutine.
	OnEpoch func(runID string, epoch int, loss float64)
}

// State is a consistent snapshot of a Session.
type State struct {
	Status         Status     `json:"status"`
	StatusMessage  string     `json:"status_message"`
	ValueToPredict int        `json:"value_to_predict"`
	LastPrediction *float64   `json:"last_prediction,omitempty"`
	Error          string     `json:"error,omitempty"`
	RunID          string     `json:"run_id,omitempty"`
	TrainedAt      *time.Time `json:"trained_at,omitempty"`
	Result         *FitResult `json:"result,omitempty"`
}

// Session owns one model's lifecycle: the training snapshot, the trained model,
// the value to predict and the last prediction. All methods are safe for
// concurrent use; at most one training run is in flight at a time.
type Session struct {
	trainer Trainer
	opts    SessionOptions

	mu             sync.Mutex
	status         Status
	model          Model // non-nil iff status == Trained
	message        string
	valueToPredict int
	lastPrediction *float64
	err            error
	runID          string
	result         *FitResult
	trainedAt      time.Time
	generation     uint64
	cancel         context.CancelFunc
	done           chan struct{}
	closed         bool

	subs    map[int]chan Transition
	nextSub int
}

// NewSession creates an untrained session driving the given trainer.
func NewSession(trainer Trainer, opts SessionOptions) *Session {
	if opts.Epochs <= 0 {
		opts.Epochs = DefaultEpochs
	}
	return &Session{
		trainer:        trainer,
		opts:           opts,
		status:         Untrained,
		message:        MessageUntrained,
		valueToPredict: 1,
		subs:           make(map[int]chan Transition),
	}
}

// StartTraining snapshots pairs and fits a new model in the background.
// It returns the run ID immediately; use Wait or Subscribe to observe the outcome.
// Any previous model and prediction are discarded once the run starts.
func (s *Session) StartTraining(pairs dataset.Set) (string, error) {
	if len(pairs) == 0 {
		return "", ErrEmptyTrainingSet
	}
	xs, ys := pairs.Columns()
	if len(xs) != len(ys) {
		return "", &TrainingError{Err: ErrLengthMismatch}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrSessionClosed
	}
	if s.status == Training {
		s.mu.Unlock()
		return "", ErrTrainingInProgress
	}

	s.generation++
	gen := s.generation
	runID := uuid.NewString()

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if s.opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), s.opts.Timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	done := make(chan struct{})

	s.cancel = cancel
	s.done = done
	s.runID = runID
	s.model = nil
	s.lastPrediction = nil
	s.result = nil
	s.err = nil
	s.transition(Training, MessageTraining, nil)
	s.mu.Unlock()

	if s.opts.Metrics != nil {
		s.opts.Metrics.TrainingRunsInc()
	}

	log.Info().
		Str("run_id", runID).
		Int("samples", len(xs)).
		Int("epochs", s.opts.Epochs).
		Msg("training started")

	go s.run(ctx, cancel, done, gen, runID, xs, ys)
	return runID, nil
}

func (s *Session) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}, gen uint64, runID string, xs, ys []float64) {
	defer close(done)
	defer cancel()

	start := time.Now()
	model, result, err := s.fit(ctx, runID, xs, ys)
	elapsed := time.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.closed {
		log.Debug().Str("run_id", runID).Msg("discarding superseded training run")
		return
	}
	s.cancel = nil

	if s.opts.Metrics != nil {
		s.opts.Metrics.TrainingDurationObserve(elapsed.Seconds())
	}

	if err != nil {
		s.err = &TrainingError{RunID: runID, Err: err}
		if s.opts.Metrics != nil {
			if errors.Is(err, context.Canceled) {
				s.opts.Metrics.TrainingCancellationsInc()
			} else {
				s.opts.Metrics.TrainingFailuresInc()
			}
		}
		log.Warn().Err(err).Str("run_id", runID).Dur("elapsed", elapsed).Msg("training failed")
		s.transition(Failed, "Training failed: "+err.Error(), s.err)
		return
	}

	s.model = model
	s.result = &result
	s.trainedAt = time.Now()
	if s.opts.Metrics != nil {
		s.opts.Metrics.TrainingLossSet(result.FinalLoss)
		s.opts.Metrics.TrainingRSquaredSet(result.RSquared)
	}
	log.Info().
		Str("run_id", runID).
		Float64("loss", result.FinalLoss).
		Float64("weight", result.Weight).
		Float64("bias", result.Bias).
		Float64("r_squared", result.RSquared).
		Dur("elapsed", elapsed).
		Msg("training finished")
	s.transition(Trained, MessageReady, nil)
}

func (s *Session) fit(ctx context.Context, runID string, xs, ys []float64) (Model, FitResult, error) {
	model, err := s.trainer.CreateLinearModel(1)
	if err != nil {
		return nil, FitResult{}, fmt.Errorf("create model: %w", err)
	}
	if err := s.trainer.Compile(model, MeanSquaredError, SGD); err != nil {
		return nil, FitResult{}, fmt.Errorf("compile model: %w", err)
	}

	opts := FitOptions{Epochs: s.opts.Epochs, BatchSize: len(xs)}
	if s.opts.OnEpoch != nil {
		opts.OnEpochEnd = func(epoch int, loss float64) {
			s.opts.OnEpoch(runID, epoch, loss)
		}
	}

	result, err := s.trainer.Fit(ctx, model, xs, ys, opts)
	if err != nil {
		return nil, FitResult{}, fmt.Errorf("fit model: %w", err)
	}
	return model, result, nil
}

// Wait blocks until the current training run, if any, has completed and
// returns the resulting state. A Failed run returns its TrainingError.
func (s *Session) Wait(ctx context.Context) (State, error) {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return s.State(), ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == Failed {
		return s.stateLocked(), s.err
	}
	return s.stateLocked(), nil
}

// Train starts a run and waits for it. If ctx ends first the run is cancelled.
func (s *Session) Train(ctx context.Context, pairs dataset.Set) (State, error) {
	if _, err := s.StartTraining(pairs); err != nil {
		return s.State(), err
	}
	st, err := s.Wait(ctx)
	if ctx.Err() != nil {
		s.Cancel()
	}
	return st, err
}

// Cancel stops the in-flight training run. The session moves to Failed once
// the trainer observes the cancellation. It reports whether a run was cancelled.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != Training || s.cancel == nil {
		return false
	}
	s.cancel()
	log.Info().Str("run_id", s.runID).Msg("training cancellation requested")
	return true
}

// SetValueToPredict parses raw as the next prediction input.
// On a parse error the current value is kept.
func (s *Session) SetValueToPredict(raw string) error {
	v, err := dataset.ParseInt("valueToPredict", raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.valueToPredict = v
	s.mu.Unlock()
	return nil
}

// Predict evaluates the trained model on the current value to predict.
func (s *Session) Predict() (float64, error) {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != Trained || s.model == nil {
		if s.opts.Metrics != nil {
			s.opts.Metrics.PredictionFailuresInc()
		}
		return 0, &NotTrainedError{Status: s.status}
	}

	y, err := s.model.Predict(float64(s.valueToPredict))
	if err != nil {
		if s.opts.Metrics != nil {
			s.opts.Metrics.PredictionFailuresInc()
		}
		return 0, fmt.Errorf("predict %d: %w", s.valueToPredict, err)
	}

	input := s.valueToPredict
	s.lastPrediction = &y
	if s.opts.Metrics != nil {
		s.opts.Metrics.PredictionsInc()
		s.opts.Metrics.PredictionLatencyObserve(time.Since(start).Seconds())
	}
	s.publish(Transition{
		From:       Trained,
		To:         Trained,
		RunID:      s.runID,
		Message:    s.message,
		Input:      &input,
		Prediction: &y,
		At:         time.Now(),
	})
	return y, nil
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	st := State{
		Status:         s.status,
		StatusMessage:  s.message,
		ValueToPredict: s.valueToPredict,
		RunID:          s.runID,
	}
	if s.lastPrediction != nil {
		v := *s.lastPrediction
		st.LastPrediction = &v
	}
	if s.err != nil {
		st.Error = s.err.Error()
	}
	if s.result != nil {
		r := *s.result
		st.Result = &r
	}
	if !s.trainedAt.IsZero() && s.status == Trained {
		t := s.trainedAt
		st.TrainedAt = &t
	}
	return st
}

// Err returns the error of the last failed run, if the session is Failed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != Failed {
		return nil
	}
	return s.err
}

// Close cancels any in-flight run, waits for it, releases the model and
// closes all subscriber channels. The session cannot be trained afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	done := s.done
	s.mu.Unlock()

	if done != nil {
		<-done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.model = nil
	s.lastPrediction = nil
	s.cancel = nil
	s.transition(Untrained, MessageClosed, nil)
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
