package ml

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compiledModel(t *testing.T, tr *SGDTrainer) Model {
	t.Helper()
	m, err := tr.CreateLinearModel(1)
	require.NoError(t, err)
	require.NoError(t, tr.Compile(m, MeanSquaredError, SGD))
	return m
}

func TestSGDTrainer_ConvergesOnLinearData(t *testing.T) {
	tr := NewSGDTrainer(0.01)
	m := compiledModel(t, tr)

	xs := []float64{-1, 0, 1, 2, 3, 4}
	ys := []float64{-3, -1, 1, 3, 5, 7}

	res, err := tr.Fit(context.Background(), m, xs, ys, FitOptions{Epochs: 250})
	require.NoError(t, err)

	assert.Equal(t, 250, res.Epochs)
	assert.Equal(t, 6, res.Samples)
	assert.InDelta(t, 2.0, res.Weight, 0.1)
	assert.InDelta(t, -1.0, res.Bias, 0.25)
	assert.Less(t, res.FinalLoss, 0.05)
	assert.Greater(t, res.RSquared, 0.99)

	for x, want := range map[float64]float64{1: 1, 4: 7, 0: -1} {
		got, err := m.Predict(x)
		require.NoError(t, err)
		assert.InDelta(t, want, got, 0.5, "predict(%v)", x)
	}
}

func TestSGDTrainer_LossDecreases(t *testing.T) {
	tr := NewSGDTrainer(0)
	assert.Equal(t, DefaultLearningRate, tr.LearningRate)
	m := compiledModel(t, tr)

	var losses []float64
	_, err := tr.Fit(context.Background(), m, []float64{-1, 0, 1, 2}, []float64{-3, -1, 1, 3}, FitOptions{
		Epochs: 50,
		OnEpochEnd: func(epoch int, loss float64) {
			assert.Equal(t, len(losses)+1, epoch)
			losses = append(losses, loss)
		},
	})
	require.NoError(t, err)
	require.Len(t, losses, 50)
	for i := 1; i < len(losses); i++ {
		assert.LessOrEqual(t, losses[i], losses[i-1], "loss went up at epoch %d", i+1)
	}
}

func TestSGDTrainer_MiniBatch(t *testing.T) {
	tr := NewSGDTrainer(0.01)
	m := compiledModel(t, tr)

	xs := []float64{-2, -1, 0, 1, 2, 3}
	ys := []float64{5, 4, 3, 2, 1, 0}
	res, err := tr.Fit(context.Background(), m, xs, ys, FitOptions{Epochs: 400, BatchSize: 2})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, res.Weight, 0.1)
	assert.InDelta(t, 3.0, res.Bias, 0.2)
}

func TestSGDTrainer_DefaultEpochs(t *testing.T) {
	tr := NewSGDTrainer(0.01)
	m := compiledModel(t, tr)

	res, err := tr.Fit(context.Background(), m, []float64{1, 2}, []float64{1, 2}, FitOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultEpochs, res.Epochs)
}

func TestSGDTrainer_ConstantTargets(t *testing.T) {
	tr := NewSGDTrainer(0.01)
	m := compiledModel(t, tr)

	res, err := tr.Fit(context.Background(), m, []float64{1, 1, 1}, []float64{4, 4, 4}, FitOptions{Epochs: 10})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.RSquared)
}

func TestSGDTrainer_Errors(t *testing.T) {
	tr := NewSGDTrainer(0.01)
	ctx := context.Background()

	t.Run("input dimension", func(t *testing.T) {
		_, err := tr.CreateLinearModel(2)
		assert.ErrorIs(t, err, ErrUnsupportedInputDim)
	})

	t.Run("unsupported loss", func(t *testing.T) {
		m, _ := tr.CreateLinearModel(1)
		assert.ErrorIs(t, tr.Compile(m, LossKind("hinge"), SGD), ErrUnsupportedLoss)
	})

	t.Run("unsupported optimizer", func(t *testing.T) {
		m, _ := tr.CreateLinearModel(1)
		assert.ErrorIs(t, tr.Compile(m, MeanSquaredError, OptimizerKind("adam")), ErrUnsupportedOptimizer)
	})

	t.Run("not compiled", func(t *testing.T) {
		m, _ := tr.CreateLinearModel(1)
		_, err := tr.Fit(ctx, m, []float64{1}, []float64{1}, FitOptions{})
		assert.ErrorIs(t, err, ErrNotCompiled)
	})

	t.Run("foreign model", func(t *testing.T) {
		_, err := tr.Fit(ctx, stubModel{}, []float64{1}, []float64{1}, FitOptions{})
		assert.ErrorIs(t, err, ErrForeignModel)
		assert.ErrorIs(t, tr.Compile(stubModel{}, MeanSquaredError, SGD), ErrForeignModel)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := tr.Fit(ctx, compiledModel(t, tr), nil, nil, FitOptions{})
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := tr.Fit(ctx, compiledModel(t, tr), []float64{1, 2}, []float64{1}, FitOptions{})
		assert.ErrorIs(t, err, ErrLengthMismatch)
	})

	t.Run("diverges", func(t *testing.T) {
		_, err := tr.Fit(ctx, compiledModel(t, tr), []float64{1000, 2000}, []float64{1, 2}, FitOptions{Epochs: 250})
		assert.ErrorIs(t, err, ErrDiverged)
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := tr.Fit(cctx, compiledModel(t, tr), []float64{1}, []float64{1}, FitOptions{})
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

type stubModel struct{}

func (stubModel) Predict(x float64) (float64, error) { return x, nil }
