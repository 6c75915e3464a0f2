// Package server exposes a regression workspace over HTTP.
//
// The REST API edits the training set and drives the session; /ws streams
// session transitions to WebSocket clients so front ends can render
// Training... / Ready for making predictions without polling.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"regression-lab/internal/dataset"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Server serves the workspace API and the transition stream.
type Server struct {
	workspace *Workspace
	hub       *Hub
	router    *mux.Router
	server    *http.Server
	isRunning bool
	mu        sync.Mutex
	closeHub  sync.Once
}

// New builds the router for ws. When gatherer is non-nil it is also served on
// /metrics. The transition hub starts broadcasting immediately.
func New(ws *Workspace, gatherer prometheus.Gatherer, port int) *Server {
	s := &Server{
		workspace: ws,
		hub:       NewHub(ws.Session()),
	}
	go s.hub.Run()

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/pairs", s.handleListPairs).Methods("GET")
	api.HandleFunc("/pairs", s.handleAddPair).Methods("POST")
	api.HandleFunc("/pairs/reset", s.handleResetPairs).Methods("POST")
	api.HandleFunc("/pairs/{index:[0-9]+}/{field}", s.handleUpdatePair).Methods("PUT")
	api.HandleFunc("/train", s.handleTrain).Methods("POST")
	api.HandleFunc("/train/cancel", s.handleCancel).Methods("POST")
	api.HandleFunc("/session", s.handleSession).Methods("GET")
	api.HandleFunc("/predict/value", s.handleSetValue).Methods("PUT")
	api.HandleFunc("/predict", s.handlePredict).Methods("POST")
	r.Handle("/ws", s.hub).Methods("GET")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
	s.router = r

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
		// No WriteTimeout: /api/train?wait=true holds the response open for the run.
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the transition hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start starts listening in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("server is already running")
	}

	go func() {
		log.Info().Str("address", s.server.Addr).Msg("Starting regression API server")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Regression API server failed")
		}
	}()

	s.isRunning = true
	return nil
}

// Stop shuts down the listener and disconnects WebSocket clients.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.isRunning {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = s.server.Shutdown(ctx)
		s.isRunning = false
	}
	s.closeHub.Do(s.hub.Close)

	if err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	log.Info().Msg("Regression API server stopped")
	return nil
}

func (s *Server) handleListPairs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PairsResponse{Pairs: s.workspace.Pairs()})
}

func (s *Server) handleAddPair(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, PairsResponse{Pairs: s.workspace.AddPair()})
}

func (s *Server) handleResetPairs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PairsResponse{Pairs: s.workspace.Reset()})
}

func (s *Server) handleUpdatePair(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		writeBadRequest(w, "invalid pair index")
		return
	}
	field, err := dataset.ParseField(vars["field"])
	if err != nil {
		writeError(w, err)
		return
	}
	var req ValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	pairs, err := s.workspace.UpdatePair(index, field, req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PairsResponse{Pairs: pairs})
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		st, err := s.workspace.Train(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, TrainResponse{RunID: st.RunID, State: st})
		return
	}

	runID, err := s.workspace.StartTraining()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, TrainResponse{RunID: runID, State: s.workspace.Session().State()})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	cancelled := s.workspace.Session().Cancel()
	writeJSON(w, http.StatusOK, CancelResponse{Cancelled: cancelled, State: s.workspace.Session().State()})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.workspace.Session().State())
}

func (s *Server) handleSetValue(w http.ResponseWriter, r *http.Request) {
	var req ValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := s.workspace.SetValueToPredict(req.Value); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.workspace.Session().State())
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	session := s.workspace.Session()
	y, err := session.Predict()
	if err != nil {
		writeError(w, err)
		return
	}
	st := session.State()
	writeJSON(w, http.StatusOK, PredictResponse{Input: st.ValueToPredict, Prediction: y, State: st})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Session: s.workspace.Session().State().Status})
}
