package rag

import (
	"context"
	"log/slog"

	"github.com/WessleyAI/sector-rag/engine/domain"
	"github.com/WessleyAI/sector-rag/engine/llm"
	"github.com/WessleyAI/sector-rag/pkg/fn"
)

// Judge dimensions.
const (
	DimensionFaithfulness = "faithfulness"
	DimensionRelevancy    = "relevancy"
)

// DefaultJudgeConfig is a low-temperature, short-output configuration.
var DefaultJudgeConfig = llm.Config{Temperature: 0.1, MaxOutputTokens: 300}

// Evaluator scores an answer with two independent LLM-as-judge calls.
type Evaluator struct {
	gen     llm.Generator
	cfg     llm.Config
	logger  *slog.Logger
	metrics *pipelineMetrics
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(gen llm.Generator, cfg llm.Config, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{gen: gen, cfg: cfg, logger: logger}
}

// Evaluate runs the faithfulness and relevancy judges concurrently and waits
// for both. A failing judge reports UNKNOWN without affecting the other.
func (e *Evaluator) Evaluate(ctx context.Context, query, answer string, contexts []string) domain.Evaluation {
	scores := fn.FanOut(
		func() domain.EvaluationScore {
			return e.judge(ctx, DimensionFaithfulness, FaithfulnessPrompt(answer, contexts))
		},
		func() domain.EvaluationScore {
			return e.judge(ctx, DimensionRelevancy, RelevancyPrompt(query, answer))
		},
	)
	return domain.Evaluation{Faithfulness: scores[0], Relevancy: scores[1]}
}

func (e *Evaluator) judge(ctx context.Context, dimension, prompt string) domain.EvaluationScore {
	res := fn.Catch(func() fn.Result[domain.EvaluationScore] {
		return e.ask(ctx, prompt)
	})
	score, err := res.Unwrap()
	if err != nil {
		e.logger.Warn("rag: evaluation failed", "dimension", dimension, "err", err)
		score = domain.UnknownScore(err)
	}
	e.metrics.evaluated(dimension, score.Status)
	return score
}

func (e *Evaluator) ask(ctx context.Context, prompt string) fn.Result[domain.EvaluationScore] {
	gen := fn.FromPair(e.gen.Generate(ctx, llm.GenerateRequest{Prompt: prompt, Schema: &judgeSchema, Config: e.cfg}))
	return fn.AndThen(gen, func(g llm.Generation) fn.Result[domain.EvaluationScore] {
		return fn.FromPair(decodeVerdict(structuredBody(g)))
	})
}
