// Package ml provides the regression session for the training tool.
// It defines the trainer contract the session drives, a gradient-descent
// implementation of that contract built on gonum, and the Session state machine
// that moves a model from untrained through training to trained or failed.
//
// The trainer is treated as an opaque backend: the session only creates, compiles,
// fits and queries a model through the Trainer and Model interfaces.
package ml

import "context"

// LossKind selects the loss a model is compiled with.
type LossKind string

// OptimizerKind selects the optimizer a model is compiled with.
type OptimizerKind string

const (
	MeanSquaredError LossKind      = "meanSquaredError"
	SGD              OptimizerKind = "sgd"
)

const (
	DefaultEpochs       = 250
	DefaultLearningRate = 0.01
)

// Model is a handle to model state owned by the trainer that created it.
type Model interface {
	// Predict evaluates the model on a single one-feature input.
	Predict(x float64) (float64, error)
}

// Trainer defines the regression backend used by Session.
// Implementations must be safe to call from a goroutine other than the one that
// created the model, but a single model is never fitted concurrently.
type Trainer interface {
	// CreateLinearModel builds a single dense unit taking inputDim features.
	CreateLinearModel(inputDim int) (Model, error)

	// Compile configures the loss and optimizer used by Fit.
	Compile(m Model, loss LossKind, optimizer OptimizerKind) error

	// Fit runs the optimizer over xs/ys and returns once all epochs are done,
	// the context is cancelled, or training fails.
	Fit(ctx context.Context, m Model, xs, ys []float64, opts FitOptions) (FitResult, error)
}

// FitOptions controls a single Fit call.
type FitOptions struct {
	Epochs    int
	BatchSize int // 0 or >= len(xs) means full batch

	// OnEpochEnd, when set, is called after every epoch with the loss measured
	// before that epoch's update.
	OnEpochEnd func(epoch int, loss float64)
}

// FitResult summarises a completed fit.
type FitResult struct {
	Epochs    int     `json:"epochs"`
	Samples   int     `json:"samples"`
	FinalLoss float64 `json:"final_loss"`
	Weight    float64 `json:"weight"`
	Bias      float64 `json:"bias"`
	RSquared  float64 `json:"r_squared"`
}
