package ml

import (
	"context"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// SGDTrainer fits dense linear units with plain gradient descent on mean squared error.
type SGDTrainer struct {
	LearningRate float64
}

// NewSGDTrainer creates a trainer with the given learning rate, or
// DefaultLearningRate when lr is not positive.
func NewSGDTrainer(lr float64) *SGDTrainer {
	if lr <= 0 {
		lr = DefaultLearningRate
	}
	return &SGDTrainer{LearningRate: lr}
}

// DenseModel is a single dense unit: y = x·kernel + bias.
type DenseModel struct {
	mu        sync.RWMutex
	inputDim  int
	kernel    *mat.Dense // inputDim x 1
	bias      float64
	loss      LossKind
	optimizer OptimizerKind
	compiled  bool
}

// Predict implements Model.
func (m *DenseModel) Predict(x float64) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.inputDim != 1 {
		return 0, ErrUnsupportedInputDim
	}
	return x*m.kernel.At(0, 0) + m.bias, nil
}

// Params returns the fitted weight and bias.
func (m *DenseModel) Params() (weight, bias float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.kernel.At(0, 0), m.bias
}

// CreateLinearModel implements Trainer. Parameters start at zero so that fits
// are reproducible.
func (t *SGDTrainer) CreateLinearModel(inputDim int) (Model, error) {
	if inputDim != 1 {
		return nil, fmt.Errorf("%w: got input dimension %d", ErrUnsupportedInputDim, inputDim)
	}
	return &DenseModel{
		inputDim: inputDim,
		kernel:   mat.NewDense(inputDim, 1, nil),
	}, nil
}

// Compile implements Trainer.
func (t *SGDTrainer) Compile(model Model, loss LossKind, optimizer OptimizerKind) error {
	m, ok := model.(*DenseModel)
	if !ok {
		return ErrForeignModel
	}
	if loss != MeanSquaredError {
		return fmt.Errorf("%w: %q", ErrUnsupportedLoss, loss)
	}
	if optimizer != SGD {
		return fmt.Errorf("%w: %q", ErrUnsupportedOptimizer, optimizer)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loss = loss
	m.optimizer = optimizer
	m.compiled = true
	return nil
}

// Fit implements Trainer.
func (t *SGDTrainer) Fit(ctx context.Context, model Model, xs, ys []float64, opts FitOptions) (FitResult, error) {
	m, ok := model.(*DenseModel)
	if !ok {
		return FitResult{}, ErrForeignModel
	}

	n := len(xs)
	if n == 0 {
		return FitResult{}, ErrEmptyInput
	}
	if len(ys) != n {
		return FitResult{}, fmt.Errorf("%w: %d x values, %d y values", ErrLengthMismatch, n, len(ys))
	}

	epochs := opts.Epochs
	if epochs <= 0 {
		epochs = DefaultEpochs
	}
	batch := opts.BatchSize
	if batch <= 0 || batch > n {
		batch = n
	}
	lr := t.LearningRate
	if lr <= 0 {
		lr = DefaultLearningRate
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.compiled {
		return FitResult{}, ErrNotCompiled
	}

	X := mat.NewDense(n, 1, append([]float64(nil), xs...))
	Y := mat.NewVecDense(n, append([]float64(nil), ys...))

	for epoch := 1; epoch <= epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return FitResult{}, err
		}

		loss := m.mse(X, Y)
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return FitResult{}, fmt.Errorf("%w at epoch %d", ErrDiverged, epoch)
		}

		for start := 0; start < n; start += batch {
			end := min(start+batch, n)
			m.step(X.Slice(start, end, 0, 1).(*mat.Dense), Y.SliceVec(start, end).(*mat.VecDense), lr)
		}

		if opts.OnEpochEnd != nil {
			opts.OnEpochEnd(epoch, loss)
		}
	}

	final := m.mse(X, Y)
	if math.IsNaN(final) || math.IsInf(final, 0) {
		return FitResult{}, fmt.Errorf("%w after %d epochs", ErrDiverged, epochs)
	}

	w := m.kernel.At(0, 0)
	r2 := stat.RSquared(xs, ys, nil, m.bias, w)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		// constant targets have no variance to explain
		r2 = 0
	}

	return FitResult{
		Epochs:    epochs,
		Samples:   n,
		FinalLoss: final,
		Weight:    w,
		Bias:      m.bias,
		RSquared:  r2,
	}, nil
}

// residuals returns X·kernel + bias - Y.
func (m *DenseModel) residuals(X *mat.Dense, Y *mat.VecDense) *mat.VecDense {
	r := mat.NewVecDense(Y.Len(), nil)
	r.MulVec(X, m.kernel.ColView(0))
	for i := 0; i < r.Len(); i++ {
		r.SetVec(i, r.AtVec(i)+m.bias)
	}
	r.SubVec(r, Y)
	return r
}

func (m *DenseModel) mse(X *mat.Dense, Y *mat.VecDense) float64 {
	r := m.residuals(X, Y)
	return mat.Dot(r, r) / float64(r.Len())
}

// step applies one gradient update for a batch:
// dL/dk = 2/n Xᵀr, dL/db = 2/n Σr.
func (m *DenseModel) step(X *mat.Dense, Y *mat.VecDense, lr float64) {
	r := m.residuals(X, Y)
	scale := 2 / float64(r.Len())

	var grad mat.Dense
	grad.Mul(X.T(), r)
	grad.Scale(lr*scale, &grad)
	m.kernel.Sub(m.kernel, &grad)

	m.bias -= lr * scale * mat.Sum(r)
}
