package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/WessleyAI/sector-rag/engine/llm"
	"github.com/WessleyAI/sector-rag/pkg/fn"
)

var errExpansionRejected = errors.New("expansion rejected")

// ExpanderOptions configures query expansion.
type ExpanderOptions struct {
	// MinWords is the word count at which a query is descriptive enough to
	// skip expansion.
	MinWords    int
	MaxChars    int
	MaxTokens   int
	Temperature float32
}

// DefaultExpanderOptions returns the standard expansion settings.
func DefaultExpanderOptions() ExpanderOptions {
	return ExpanderOptions{
		MinWords:    10,
		MaxChars:    500,
		MaxTokens:   100,
		Temperature: 0.3,
	}
}

// Expander enriches short queries with synonyms and related terms before they
// are embedded. Expansion never fails: any problem yields the original query.
type Expander struct {
	gen     llm.Generator
	opts    ExpanderOptions
	logger  *slog.Logger
	metrics *pipelineMetrics
}

// NewExpander creates an Expander.
func NewExpander(gen llm.Generator, opts ExpanderOptions, logger *slog.Logger) *Expander {
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{gen: gen, opts: opts, logger: logger}
}

// NeedsExpansion reports whether query is short enough to be expanded.
func (e *Expander) NeedsExpansion(query string) bool {
	return len(strings.Fields(query)) < e.opts.MinWords
}

// Expand returns the enriched query, or query itself when expansion is skipped
// or fails.
func (e *Expander) Expand(ctx context.Context, query string) string {
	if !e.NeedsExpansion(query) {
		return query
	}
	stage := fn.OrDefault(fn.Stage[string, string](e.generate), func(q string, err error) string {
		e.logger.Warn("rag: query expansion failed, using original query", "err", err)
		e.metrics.degraded("expand")
		return q
	})
	return stage(ctx, query).UnwrapOr(query)
}

func (e *Expander) generate(ctx context.Context, query string) fn.Result[string] {
	gen, err := e.gen.Generate(ctx, llm.GenerateRequest{
		Prompt: ExpansionPrompt(query, e.opts.MaxChars),
		Config: llm.Config{Temperature: e.opts.Temperature, MaxOutputTokens: e.opts.MaxTokens},
	})
	if err != nil {
		return fn.Err[string](err)
	}
	expanded := strings.Trim(strings.TrimSpace(gen.Text), "\"'`")
	expanded = strings.TrimSpace(expanded)
	switch n := utf8.RuneCountInString(expanded); {
	case n == 0:
		return fn.Err[string](fmt.Errorf("%w: empty", errExpansionRejected))
	case n > e.opts.MaxChars:
		return fn.Err[string](fmt.Errorf("%w: %d characters exceeds %d", errExpansionRejected, n, e.opts.MaxChars))
	}
	return fn.Ok(expanded)
}
