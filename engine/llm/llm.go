// Package llm defines the embedding and generation capabilities consumed by
// the RAG pipeline. Concrete providers live in pkg/openai and pkg/ollama.
package llm

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// ErrEmptyGeneration is returned by providers when the model produced no text.
var ErrEmptyGeneration = errors.New("llm: empty generation")

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces text, optionally constrained to a JSON schema.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (Generation, error)
}

// Config bounds a single generation call.
type Config struct {
	Temperature     float32
	MaxOutputTokens int
}

// Schema names a JSON schema the output must conform to.
type Schema struct {
	Name        string
	Description string
	Definition  jsonschema.Definition
}

// GenerateRequest is one generation call. A nil Schema asks for plain text.
type GenerateRequest struct {
	Prompt string
	Schema *Schema
	Config Config
}

// Generation is the provider's answer. Structured is set only when a schema was
// requested and the provider returned a JSON document.
type Generation struct {
	Text       string
	Structured json.RawMessage
	Model      string
}
