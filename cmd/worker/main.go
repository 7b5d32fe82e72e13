// Package main implements the NATS query worker. It answers request/reply
// queries on rag.query and publishes judge verdicts on rag.evaluated.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/WessleyAI/sector-rag/engine/domain"
	"github.com/WessleyAI/sector-rag/internal/app"
	"github.com/WessleyAI/sector-rag/pkg/config"
	"github.com/WessleyAI/sector-rag/pkg/natsutil"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Subjects.
const (
	SubjectQuery     = "rag.query"
	SubjectEvaluated = "rag.evaluated"
	queueGroup       = "rag-workers"
)

// EvaluatedEvent is published for every answer that was judged.
type EvaluatedEvent struct {
	RequestID      string            `json:"request_id"`
	SectorID       string            `json:"sector_id"`
	ConversationID string            `json:"conversation_id,omitempty"`
	Evaluation     domain.Evaluation `json:"evaluation"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("worker exited with error", "err", err)
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

	nc, err := nats.Connect(cfg.NATSURL, nats.Name("sector-rag-worker"))
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Drain()

	sub, err := serve(nc, a.Service, logger)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	logger.Info("worker listening", "subject", SubjectQuery, "queue", queueGroup)
	<-ctx.Done()
	logger.Info("shutdown signal received")
	return nil
}

type querier interface {
	ExecuteQuery(ctx context.Context, in domain.QueryInput) (*domain.QueryOutput, error)
}

func serve(nc *nats.Conn, svc querier, logger *slog.Logger) (*nats.Subscription, error) {
	return natsutil.Serve(nc, SubjectQuery, natsutil.ServeOpts{
		Queue:    queueGroup,
		Classify: classify,
		Logger:   logger,
	}, func(ctx context.Context, in domain.QueryInput) (domain.QueryOutput, error) {
		reqID := uuid.NewString()
		log := logger.With("request_id", reqID, "sector_id", in.SectorID)

		out, err := svc.ExecuteQuery(ctx, in)
		if err != nil {
			log.Warn("query failed", "err", err)
			return domain.QueryOutput{}, err
		}
		if out.Evaluation != nil {
			ev := EvaluatedEvent{
				RequestID:      reqID,
				SectorID:       in.SectorID,
				ConversationID: out.ConversationID,
				Evaluation:     *out.Evaluation,
			}
			if err := natsutil.Publish(ctx, nc, SubjectEvaluated, ev); err != nil {
				log.Warn("publish evaluation failed", "err", err)
			}
		}
		return *out, nil
	})
}

func classify(err error) string {
	if errors.Is(err, domain.ErrInvalidInput) {
		return natsutil.KindBadRequest
	}
	return natsutil.KindInternal
}
