package ml

import (
	"errors"
	"fmt"
)

// Session errors
var (
	ErrNotTrained         = errors.New("model is not trained")
	ErrEmptyTrainingSet   = errors.New("training set is empty")
	ErrTrainingInProgress = errors.New("training already in progress")
	ErrSessionClosed      = errors.New("session is closed")
)

// Trainer errors
var (
	ErrUnsupportedInputDim  = errors.New("only single-feature models are supported")
	ErrUnsupportedLoss      = errors.New("unsupported loss")
	ErrUnsupportedOptimizer = errors.New("unsupported optimizer")
	ErrNotCompiled          = errors.New("model has not been compiled")
	ErrForeignModel         = errors.New("model was not created by this trainer")
	ErrEmptyInput           = errors.New("no training samples")
	ErrLengthMismatch       = errors.New("x and y sample counts differ")
	ErrDiverged             = errors.New("training diverged")
)

// NotTrainedError is returned by Predict when the session has no trained model.
type NotTrainedError struct {
	Status Status
}

func (e *NotTrainedError) Error() string {
	return fmt.Sprintf("cannot predict: %v (status %s)", ErrNotTrained, e.Status)
}

func (e *NotTrainedError) Unwrap() error { return ErrNotTrained }

// TrainingError records why a training run ended in the Failed state.
type TrainingError struct {
	RunID string
	Err   error
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("training run %s failed: %v", e.RunID, e.Err)
}

func (e *TrainingError) Unwrap() error { return e.Err }
