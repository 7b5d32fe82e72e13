// Package main implements the sector RAG HTTP API server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/WessleyAI/sector-rag/engine/domain"
	"github.com/WessleyAI/sector-rag/internal/app"
	"github.com/WessleyAI/sector-rag/pkg/config"
	"github.com/WessleyAI/sector-rag/pkg/metrics"
	"github.com/WessleyAI/sector-rag/pkg/mid"
)

const maxBodyBytes = 1 << 20

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newHandler(a.Service, a.Metrics, cfg.CORSOrigin, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// querier is the slice of rag.Service the handlers need.
type querier interface {
	ExecuteQuery(ctx context.Context, in domain.QueryInput) (*domain.QueryOutput, error)
}

func newHandler(svc querier, reg *metrics.Registry, corsOrigin string, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/query", handleQuery(svc, logger))
	mux.Handle("GET /metrics", reg.Handler())

	return mid.Chain(mux,
		mid.RequestID(),
		mid.OTel("sector-rag-api"),
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(corsOrigin),
	)
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Rule  string `json:"rule,omitempty"`
}

func handleQuery(svc querier, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in domain.QueryInput
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
			return
		}

		out, err := svc.ExecuteQuery(r.Context(), in)
		if err != nil {
			var ve *domain.ValidationError
			if errors.As(err, &ve) {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Error(), Field: ve.Field, Rule: ve.Rule})
				return
			}
			logger.Error("rag query failed", "err", err, "sector_id", in.SectorID, "request_id", mid.RequestIDFrom(r.Context()))
			status := http.StatusBadGateway
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				status = http.StatusGatewayTimeout
			}
			writeJSON(w, status, errorResponse{Error: "upstream capability unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
