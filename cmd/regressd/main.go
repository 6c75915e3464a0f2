package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"regression-lab/internal/cfg"
	"regression-lab/internal/logging"
	"regression-lab/internal/metrics"
	"regression-lab/internal/ml"
	"regression-lab/internal/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	logCloser, err := logging.Setup(logging.Options{Level: c.LogLevel, File: c.LogFile})
	if err != nil {
		log.Fatal().Err(err).Msg("logging setup failed")
	}
	defer logCloser.Close()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	session := initializeSession(c, mw)
	workspace := server.NewWorkspace(c.Seed, session, mw)

	startMetricsServer(ctx, c)

	api := server.New(workspace, prometheus.DefaultGatherer, c.HTTPPort)
	if err := api.Start(); err != nil {
		log.Fatal().Err(err).Msg("API server start failed")
	}

	log.Info().
		Int("http_port", c.HTTPPort).
		Int("metrics_port", c.MetricsPort).
		Int("epochs", c.Epochs).
		Float64("learning_rate", c.LearningRate).
		Int("pairs", len(c.Seed)).
		Msg("regressd started")

	waitForShutdown(ctx, cancel)

	session.Close()
	if err := api.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop API server")
	}
}

// initializeSession builds the SGD trainer and the regression session.
func initializeSession(c cfg.Settings, mw *metrics.MetricsWrapper) *ml.Session {
	trainer := ml.NewSGDTrainer(c.LearningRate)
	return ml.NewSession(trainer, ml.SessionOptions{
		Epochs:  c.Epochs,
		Timeout: c.TrainTimeout,
		Metrics: mw,
		OnEpoch: func(runID string, epoch int, loss float64) {
			if epoch%50 == 0 {
				log.Debug().Str("run_id", runID).Int("epoch", epoch).Float64("loss", loss).Msg("epoch finished")
			}
		},
	})
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(ctx context.Context, c cfg.Settings) {
	go func() {
		mux := http.NewServeMux()

		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		mux.Handle("/metrics", promhttp.Handler())

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", c.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			if err := srv.Shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to shutdown metrics server")
			}
		}()

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func waitForShutdown(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	cancel()
}
