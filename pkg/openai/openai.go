// Package openai implements the llm capabilities against any
// OpenAI-compatible chat completions and embeddings API.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/WessleyAI/sector-rag/engine/llm"
	openai "github.com/sashabaranov/go-openai"
)

// Options configures a Client.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	EmbedModel string
}

// Client is an OpenAI-backed embedder and generator.
type Client struct {
	client     *openai.Client
	model      string
	embedModel string
}

var (
	_ llm.Embedder  = (*Client)(nil)
	_ llm.Generator = (*Client)(nil)
)

// New creates a client. An empty BaseURL targets api.openai.com.
func New(opts Options) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return &Client{
		client:     openai.NewClientWithConfig(cfg),
		model:      opts.Model,
		embedModel: opts.EmbedModel,
	}
}

// Embed implements llm.Embedder.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.embedModel),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai embed: empty vector")
	}
	return resp.Data[0].Embedding, nil
}

// Generate implements llm.Generator. A schema is sent as a json_schema
// response format.
func (c *Client) Generate(ctx context.Context, req llm.GenerateRequest) (llm.Generation, error) {
	creq := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: req.Config.Temperature,
		MaxTokens:   req.Config.MaxOutputTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
	if req.Schema != nil {
		def := req.Schema.Definition
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:        req.Schema.Name,
				Description: req.Schema.Description,
				Schema:      &def,
			},
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return llm.Generation{}, fmt.Errorf("openai generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return llm.Generation{}, llm.ErrEmptyGeneration
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return llm.Generation{}, llm.ErrEmptyGeneration
	}

	gen := llm.Generation{Text: text, Model: resp.Model}
	if gen.Model == "" {
		gen.Model = c.model
	}
	if req.Schema != nil {
		if !json.Valid([]byte(text)) {
			return llm.Generation{}, fmt.Errorf("openai generate: %s output is not JSON", req.Schema.Name)
		}
		gen.Structured = json.RawMessage(text)
	}
	return gen, nil
}
