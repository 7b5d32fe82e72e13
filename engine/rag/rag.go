// Package rag orchestrates the Retrieval-Augmented Generation query pipeline.
// It validates a question, embeds it (expanding short queries first), searches
// the sector's fragments, generates a structured answer with graceful
// degradation and scores the answer with two LLM judges.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/WessleyAI/sector-rag/engine/domain"
	"github.com/WessleyAI/sector-rag/engine/llm"
	"github.com/WessleyAI/sector-rag/pkg/fn"
	"github.com/WessleyAI/sector-rag/pkg/metrics"
)

// VectorSearcher finds fragments similar to vector inside one namespace.
// Zero results is a valid outcome, not an error.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, namespace string, limit int, minScore float64) ([]domain.Fragment, error)
}

// SectorResolver maps a sector id to a human-readable name.
type SectorResolver interface {
	SectorName(ctx context.Context, sectorID string) (string, error)
}

// Deps are the capability clients the pipeline runs against. Sectors and
// Metrics are optional.
type Deps struct {
	Embedder  llm.Embedder
	Searcher  VectorSearcher
	Generator llm.Generator
	Sectors   SectorResolver
	Metrics   *metrics.Registry
}

// Options configures the pipeline.
type Options struct {
	// Model is reported in output metadata when the generator does not name one.
	Model           string
	Temperature     float32
	MaxOutputTokens int
	// MaxContextChars bounds the fragment text placed in the answer prompt.
	MaxContextChars int
	Expander        ExpanderOptions
	Judge           llm.Config
	// Evaluate enables the LLM-as-judge step.
	Evaluate bool
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Temperature:     0.3,
		MaxOutputTokens: 2048,
		MaxContextChars: 12000,
		Expander:        DefaultExpanderOptions(),
		Judge:           DefaultJudgeConfig,
		Evaluate:        true,
	}
}

// Service is the RAG orchestration service. It holds no per-request state and
// is safe for concurrent use.
type Service struct {
	embedder  llm.Embedder
	searcher  VectorSearcher
	sectors   SectorResolver
	expander  *Expander
	responder *Responder
	evaluator *Evaluator
	opts      Options
	logger    *slog.Logger
	metrics   *pipelineMetrics
}

// New creates a new RAG Service.
func New(deps Deps, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	m := newPipelineMetrics(deps.Metrics)

	expander := NewExpander(deps.Generator, opts.Expander, logger)
	expander.metrics = m
	responder := NewResponder(deps.Generator, llm.Config{Temperature: opts.Temperature, MaxOutputTokens: opts.MaxOutputTokens}, logger)
	responder.metrics = m
	evaluator := NewEvaluator(deps.Generator, opts.Judge, logger)
	evaluator.metrics = m

	return &Service{
		embedder:  deps.Embedder,
		searcher:  deps.Searcher,
		sectors:   deps.Sectors,
		expander:  expander,
		responder: responder,
		evaluator: evaluator,
		opts:      opts,
		logger:    logger,
		metrics:   m,
	}
}

// ExecuteQuery runs the full pipeline for one question. Only invalid input
// (a *domain.ValidationError) and embedding failures are returned as errors;
// every other failure degrades to a best-effort output.
func (s *Service) ExecuteQuery(ctx context.Context, in domain.QueryInput) (*domain.QueryOutput, error) {
	defer s.metrics.begin()()

	params, err := step(ctx, s.metrics, "validate", in, func(_ context.Context, in domain.QueryInput) fn.Result[domain.QueryParams] {
		return fn.FromPair(in.Resolve())
	}).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("rag: validate: %w", err)
	}
	log := s.logger.With("sector_id", params.SectorID)
	log.Info("rag query start", "query_len", len(params.Query), "max_results", params.MaxResults)

	vector, err := step(ctx, s.metrics, "embed", params.Query, s.embed).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("rag: embed query: %w", err)
	}

	searchText, _ := step(ctx, s.metrics, "expand", params.Query, func(ctx context.Context, q string) fn.Result[string] {
		return fn.Ok(s.expander.Expand(ctx, q))
	}).Unwrap()
	expanded := searchText != params.Query
	if expanded {
		log.Info("rag query expanded", "expanded_len", len(searchText))
		vector, err = step(ctx, s.metrics, "embed", searchText, s.embed).Unwrap()
		if err != nil {
			return nil, fmt.Errorf("rag: embed expanded query: %w", err)
		}
	}

	fragments, err := step(ctx, s.metrics, "search", vector, func(ctx context.Context, v []float32) fn.Result[[]domain.Fragment] {
		return fn.FromPair(s.searcher.Search(ctx, v, params.SectorID, params.MaxResults, params.MinSimilarity))
	}).Unwrap()

	var out *domain.QueryOutput
	switch {
	case err != nil:
		log.Error("rag: search failed", "err", err)
		s.metrics.degraded("search")
		out = s.searchFailed()
	case len(fragments) == 0:
		log.Info("rag search done", "fragments", 0)
		out = s.noContext(ctx, params)
	default:
		log.Info("rag search done", "fragments", len(fragments))
		out = s.answer(ctx, params, fragments)
	}
	out.ConversationID = params.ConversationID
	out.Metadata.QueryExpanded = expanded

	s.metrics.query(out.ResponseType)
	log.Info("rag query done", "response_type", out.ResponseType, "fragments_used", out.Metadata.FragmentsUsed)
	return out, nil
}

func (s *Service) noContext(ctx context.Context, params domain.QueryParams) *domain.QueryOutput {
	ans, _ := step(ctx, s.metrics, "generate", params, func(ctx context.Context, p domain.QueryParams) fn.Result[Answer] {
		return fn.Ok(s.responder.Fallback(ctx, p.Query, s.sectorName(ctx, p.SectorID)))
	}).Unwrap()
	return &domain.QueryOutput{
		Response:     ans.Text,
		ResponseType: domain.ResponseNoContext,
		Sources:      []domain.Fragment{},
		Metadata:     s.metadata(ans.Model, 0, 0),
	}
}

func (s *Service) searchFailed() *domain.QueryOutput {
	return &domain.QueryOutput{
		Response:     SearchFailedMessage,
		ResponseType: domain.ResponseError,
		Sources:      []domain.Fragment{},
		Metadata:     s.metadata("", 0, 0),
	}
}

func (s *Service) answer(ctx context.Context, params domain.QueryParams, fragments []domain.Fragment) *domain.QueryOutput {
	prompt, used := AnswerPrompt(params.Query, fragments, s.opts.MaxContextChars)
	sources := fragments[:used]

	ans, err := step(ctx, s.metrics, "generate", prompt, s.responder.Answer).Unwrap()
	if err != nil {
		s.logger.Error("rag: answer generation failed", "sector_id", params.SectorID, "err", err)
		return &domain.QueryOutput{
			Response:     GenerationFailedMessage,
			ResponseType: domain.ResponseError,
			Sources:      sources,
			Metadata:     s.metadata("", len(fragments), used),
		}
	}

	out := &domain.QueryOutput{
		Response:     ans.Text,
		ResponseType: domain.ResponseAnswer,
		Structured:   ans.Structured,
		Sources:      sources,
		Metadata:     s.metadata(ans.Model, len(fragments), used),
	}
	if s.opts.Evaluate {
		out.Evaluation = s.evaluate(ctx, params.Query, ans.Text, sources)
	}
	return out
}

// evaluate returns nil when no judge produced a verdict.
func (s *Service) evaluate(ctx context.Context, query, answer string, sources []domain.Fragment) *domain.Evaluation {
	contexts := make([]string, len(sources))
	for i, f := range sources {
		contexts[i] = f.Content
	}
	eval, err := step(ctx, s.metrics, "evaluate", contexts, func(ctx context.Context, contexts []string) fn.Result[domain.Evaluation] {
		return fn.Catch(func() fn.Result[domain.Evaluation] {
			return fn.Ok(s.evaluator.Evaluate(ctx, query, answer, contexts))
		})
	}).Unwrap()
	if err != nil || eval.Failed() {
		s.logger.Warn("rag: evaluation unavailable, omitting", "err", err)
		return nil
	}
	return &eval
}

func (s *Service) sectorName(ctx context.Context, sectorID string) string {
	if s.sectors == nil {
		return ""
	}
	name, err := s.sectors.SectorName(ctx, sectorID)
	if err != nil {
		s.logger.Warn("rag: sector lookup failed", "sector_id", sectorID, "err", err)
		return ""
	}
	return name
}

func (s *Service) metadata(model string, retrieved, used int) domain.OutputMetadata {
	if model == "" {
		model = s.opts.Model
	}
	return domain.OutputMetadata{
		Model:              model,
		Temperature:        s.opts.Temperature,
		FragmentsRetrieved: retrieved,
		FragmentsUsed:      used,
	}
}

func (s *Service) embed(ctx context.Context, text string) fn.Result[[]float32] {
	return fn.FromPair(s.embedder.Embed(ctx, text))
}

// step runs stage in a span named rag.<name> and records its latency.
func step[In, Out any](ctx context.Context, m *pipelineMetrics, name string, in In, stage fn.Stage[In, Out]) fn.Result[Out] {
	defer m.stage(name, time.Now())
	return fn.TracedStage("rag."+name, stage)(ctx, in)
}
