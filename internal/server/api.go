package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"regression-lab/internal/dataset"
	"regression-lab/internal/ml"

	"github.com/rs/zerolog/log"
)

// Error kinds reported in ErrorResponse.Kind.
const (
	KindParse      = "parse"
	KindIndex      = "index"
	KindNotTrained = "not_trained"
	KindBusy       = "busy"
	KindValidation = "validation"
	KindTraining   = "training"
	KindInternal   = "internal"
)

// ValueRequest carries raw user input for an editable field.
type ValueRequest struct {
	Value string `json:"value"`
}

// PairsResponse is the current training set.
type PairsResponse struct {
	Pairs dataset.Set `json:"pairs"`
}

// TrainResponse is returned by POST /api/train.
type TrainResponse struct {
	RunID string   `json:"run_id"`
	State ml.State `json:"state"`
}

// CancelResponse is returned by POST /api/train/cancel.
type CancelResponse struct {
	Cancelled bool     `json:"cancelled"`
	State     ml.State `json:"state"`
}

// PredictResponse is returned by POST /api/predict.
type PredictResponse struct {
	Input      int      `json:"input"`
	Prediction float64  `json:"prediction"`
	State      ml.State `json:"state"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string    `json:"status"`
	Session ml.Status `json:"session"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// classify maps domain errors onto an HTTP status and error kind.
func classify(err error) (int, string) {
	var (
		parseErr    *dataset.ParseError
		indexErr    *dataset.IndexError
		notTrained  *ml.NotTrainedError
		trainingErr *ml.TrainingError
	)
	switch {
	case errors.As(err, &parseErr):
		return http.StatusBadRequest, KindParse
	case errors.As(err, &indexErr):
		return http.StatusNotFound, KindIndex
	case errors.As(err, &notTrained):
		return http.StatusConflict, KindNotTrained
	case errors.Is(err, ml.ErrTrainingInProgress), errors.Is(err, ml.ErrSessionClosed):
		return http.StatusConflict, KindBusy
	case errors.Is(err, dataset.ErrUnknownField):
		return http.StatusBadRequest, KindValidation
	case errors.Is(err, ml.ErrEmptyTrainingSet):
		return http.StatusUnprocessableEntity, KindValidation
	case errors.As(err, &trainingErr):
		return http.StatusUnprocessableEntity, KindTraining
	default:
		return http.StatusInternalServerError, KindInternal
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg, Kind: KindValidation})
}
