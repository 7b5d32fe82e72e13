package rag

import (
	"context"
	"log/slog"
	"strings"

	"github.com/WessleyAI/sector-rag/engine/domain"
	"github.com/WessleyAI/sector-rag/engine/llm"
	"github.com/WessleyAI/sector-rag/pkg/fn"
)

// Static last-resort texts.
const (
	NoContextApology = "I'm sorry, I couldn't find information about that in the available documentation. " +
		"Please try rephrasing your question or contact the team responsible for this area."
	GenerationFailedMessage = "I'm sorry, I couldn't generate an answer right now. Please try again in a few moments."
	SearchFailedMessage     = "I'm sorry, I couldn't search the documentation right now. Please try again in a few moments."
)

// Answer is the outcome of answer generation. Structured is nil when the
// structured call failed and the plain-text fallback produced Text.
type Answer struct {
	Text       string
	Structured *domain.StructuredResponse
	Model      string
}

// Responder turns prompts into answers, degrading from structured output to
// plain text, and from a generated fallback to a static apology.
type Responder struct {
	gen     llm.Generator
	cfg     llm.Config
	logger  *slog.Logger
	metrics *pipelineMetrics
}

// NewResponder creates a Responder using cfg for every generation call.
func NewResponder(gen llm.Generator, cfg llm.Config, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{gen: gen, cfg: cfg, logger: logger}
}

// Answer generates a structured answer for prompt, falling back to a plain-text
// call with the same prompt and config. It fails only if both calls fail.
func (r *Responder) Answer(ctx context.Context, prompt string) fn.Result[Answer] {
	structured := r.noteFailure("structured", r.structured)
	return fn.Fallback(structured, fn.Stage[string, Answer](r.plain))(ctx, prompt)
}

// Fallback generates the no-context answer. It never fails: if the generator
// call fails the static apology is returned.
func (r *Responder) Fallback(ctx context.Context, query, sectorName string) Answer {
	prompt := FallbackPrompt(query, sectorName)
	stage := fn.OrDefault(fn.Stage[string, Answer](r.plain), func(_ string, err error) Answer {
		r.logger.Warn("rag: fallback generation failed, using static apology", "err", err)
		r.metrics.degraded("fallback")
		return Answer{Text: NoContextApology}
	})
	return stage(ctx, prompt).UnwrapOr(Answer{Text: NoContextApology})
}

func (r *Responder) structured(ctx context.Context, prompt string) fn.Result[Answer] {
	gen := fn.FromPair(r.gen.Generate(ctx, llm.GenerateRequest{Prompt: prompt, Schema: &answerSchema, Config: r.cfg}))
	return fn.AndThen(gen, func(g llm.Generation) fn.Result[Answer] {
		decoded := fn.FromPair(decodeStructured(structuredBody(g)))
		return fn.MapResult(decoded, func(s domain.StructuredResponse) Answer {
			return Answer{Text: s.Text(), Structured: &s, Model: g.Model}
		})
	})
}

// plain returns the generated text as-is; whitespace-only output counts as empty.
func (r *Responder) plain(ctx context.Context, prompt string) fn.Result[Answer] {
	gen, err := r.gen.Generate(ctx, llm.GenerateRequest{Prompt: prompt, Config: r.cfg})
	if err != nil {
		return fn.Err[Answer](err)
	}
	if strings.TrimSpace(gen.Text) == "" {
		return fn.Err[Answer](llm.ErrEmptyGeneration)
	}
	return fn.Ok(Answer{Text: gen.Text, Model: gen.Model})
}

// structuredBody prefers the provider's JSON payload and falls back to the text.
func structuredBody(g llm.Generation) []byte {
	if len(g.Structured) > 0 {
		return []byte(g.Structured)
	}
	return []byte(g.Text)
}

// noteFailure logs and counts failures of stage without altering its result.
func (r *Responder) noteFailure(name string, stage fn.Stage[string, Answer]) fn.Stage[string, Answer] {
	return func(ctx context.Context, prompt string) fn.Result[Answer] {
		res := stage(ctx, prompt)
		if _, err := res.Unwrap(); err != nil {
			r.logger.Warn("rag: generation failed, degrading", "stage", name, "err", err)
			r.metrics.degraded(name)
		}
		return res
	}
}
