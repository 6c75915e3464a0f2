package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"regression-lab/internal/dataset"
	"regression-lab/internal/metrics"
	"regression-lab/internal/ml"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingTrainer never finishes a fit on its own; runs end only by cancellation.
type blockingTrainer struct {
	*ml.SGDTrainer
	started chan struct{}
}

func (b *blockingTrainer) Fit(ctx context.Context, m ml.Model, xs, ys []float64, opts ml.FitOptions) (ml.FitResult, error) {
	b.started <- struct{}{}
	<-ctx.Done()
	return ml.FitResult{}, ctx.Err()
}

type fixture struct {
	srv     *Server
	ts      *httptest.Server
	session *ml.Session
	reg     *prometheus.Registry
}

func newFixture(t *testing.T, trainer ml.Trainer, seed dataset.Set) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	mw := metrics.NewWrapper(metrics.NewWithRegistry(reg))
	session := ml.NewSession(trainer, ml.SessionOptions{Metrics: mw})
	srv := New(NewWorkspace(seed, session, mw), reg, 0)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		session.Close()
		srv.Stop()
	})
	return &fixture{srv: srv, ts: ts, session: session, reg: reg}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) (int, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, f.ts.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestPairsEndpoints(t *testing.T) {
	f := newFixture(t, ml.NewSGDTrainer(ml.DefaultLearningRate), dataset.Seed())

	code, body := f.do(t, "GET", "/api/pairs", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, dataset.Seed(), decode[PairsResponse](t, body).Pairs)

	code, body = f.do(t, "POST", "/api/pairs", nil)
	require.Equal(t, http.StatusCreated, code)
	pairs := decode[PairsResponse](t, body).Pairs
	require.Len(t, pairs, 7)
	assert.Equal(t, dataset.DefaultPair, pairs[6])

	code, body = f.do(t, "PUT", "/api/pairs/6/y", ValueRequest{Value: "11"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, dataset.Pair{X: 1, Y: 11}, decode[PairsResponse](t, body).Pairs[6])

	code, body = f.do(t, "POST", "/api/pairs/reset", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, dataset.Seed(), decode[PairsResponse](t, body).Pairs)
}

func TestUpdatePair_Errors(t *testing.T) {
	f := newFixture(t, ml.NewSGDTrainer(ml.DefaultLearningRate), dataset.Seed())

	tests := []struct {
		name     string
		path     string
		body     interface{}
		wantCode int
		wantKind string
	}{
		{"non-numeric value", "/api/pairs/0/x", ValueRequest{Value: "abc"}, http.StatusBadRequest, KindParse},
		{"empty value", "/api/pairs/0/y", ValueRequest{Value: ""}, http.StatusBadRequest, KindParse},
		{"index out of range", "/api/pairs/99/x", ValueRequest{Value: "3"}, http.StatusNotFound, KindIndex},
		{"unknown field", "/api/pairs/0/z", ValueRequest{Value: "3"}, http.StatusBadRequest, KindValidation},
		{"malformed body", "/api/pairs/0/x", "not an object", http.StatusBadRequest, KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := f.do(t, "PUT", tt.path, tt.body)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantKind, decode[ErrorResponse](t, body).Kind)
		})
	}

	// Rejected edits leave the set untouched.
	_, body := f.do(t, "GET", "/api/pairs", nil)
	assert.Equal(t, dataset.Seed(), decode[PairsResponse](t, body).Pairs)
}

func TestTrainAndPredict(t *testing.T) {
	f := newFixture(t, ml.NewSGDTrainer(ml.DefaultLearningRate), dataset.Seed())

	code, body := f.do(t, "POST", "/api/predict", nil)
	require.Equal(t, http.StatusConflict, code)
	assert.Equal(t, KindNotTrained, decode[ErrorResponse](t, body).Kind)

	code, body = f.do(t, "POST", "/api/train?wait=true", nil)
	require.Equal(t, http.StatusOK, code, string(body))
	trained := decode[TrainResponse](t, body)
	assert.Equal(t, ml.Trained, trained.State.Status)
	assert.Equal(t, ml.MessageReady, trained.State.StatusMessage)
	assert.NotEmpty(t, trained.RunID)
	require.NotNil(t, trained.State.Result)
	assert.InDelta(t, 2.0, trained.State.Result.Weight, 0.1)

	code, body = f.do(t, "PUT", "/api/predict/value", ValueRequest{Value: "4"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 4, decode[ml.State](t, body).ValueToPredict)

	code, body = f.do(t, "POST", "/api/predict", nil)
	require.Equal(t, http.StatusOK, code)
	pred := decode[PredictResponse](t, body)
	assert.Equal(t, 4, pred.Input)
	assert.InDelta(t, 7.0, pred.Prediction, 0.5)
	require.NotNil(t, pred.State.LastPrediction)
	assert.Equal(t, pred.Prediction, *pred.State.LastPrediction)

	code, body = f.do(t, "GET", "/api/session", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, ml.Trained, decode[ml.State](t, body).Status)
}

func TestSetValue_RejectsNonNumeric(t *testing.T) {
	f := newFixture(t, ml.NewSGDTrainer(ml.DefaultLearningRate), dataset.Seed())

	code, body := f.do(t, "PUT", "/api/predict/value", ValueRequest{Value: "four"})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, KindParse, decode[ErrorResponse](t, body).Kind)
	assert.Equal(t, 1, f.session.State().ValueToPredict)
}

func TestTrain_EmptySet(t *testing.T) {
	f := newFixture(t, ml.NewSGDTrainer(ml.DefaultLearningRate), dataset.Set{})

	code, body := f.do(t, "POST", "/api/train", nil)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, KindValidation, decode[ErrorResponse](t, body).Kind)
	assert.Equal(t, ml.Untrained, f.session.State().Status)
}

func TestTrain_BusyAndCancel(t *testing.T) {
	trainer := &blockingTrainer{SGDTrainer: ml.NewSGDTrainer(ml.DefaultLearningRate), started: make(chan struct{}, 1)}
	f := newFixture(t, trainer, dataset.Seed())

	code, body := f.do(t, "POST", "/api/train", nil)
	require.Equal(t, http.StatusAccepted, code)
	started := decode[TrainResponse](t, body)
	assert.Equal(t, ml.Training, started.State.Status)
	<-trainer.started

	code, body = f.do(t, "POST", "/api/train", nil)
	require.Equal(t, http.StatusConflict, code)
	assert.Equal(t, KindBusy, decode[ErrorResponse](t, body).Kind)

	code, body = f.do(t, "POST", "/api/train/cancel", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decode[CancelResponse](t, body).Cancelled)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := f.session.Wait(ctx)
	require.Error(t, err)
	assert.Equal(t, ml.Failed, st.Status)

	code, body = f.do(t, "POST", "/api/train/cancel", nil)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, decode[CancelResponse](t, body).Cancelled)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, ml.NewSGDTrainer(ml.DefaultLearningRate), dataset.Seed())

	code, body := f.do(t, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, code)
	health := decode[HealthResponse](t, body)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, ml.Untrained, health.Session)

	f.do(t, "PUT", "/api/pairs/0/x", ValueRequest{Value: "x"})

	code, body = f.do(t, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, code)
	text := string(body)
	assert.Contains(t, text, "training_set_pairs 6")
	assert.Contains(t, text, "edit_rejections_total 1")
}

func TestWebSocket_StreamsTransitions(t *testing.T) {
	f := newFixture(t, ml.NewSGDTrainer(ml.DefaultLearningRate), dataset.Seed())

	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return f.srv.Hub().ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	code, _ := f.do(t, "POST", "/api/train?wait=true", nil)
	require.Equal(t, http.StatusOK, code)

	var got []ml.Status
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for len(got) < 2 {
		var ev ml.Transition
		require.NoError(t, conn.ReadJSON(&ev))
		got = append(got, ev.To)
	}
	assert.Equal(t, []ml.Status{ml.Training, ml.Trained}, got)
}
