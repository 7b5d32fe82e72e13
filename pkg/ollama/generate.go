package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/WessleyAI/sector-rag/engine/llm"
)

type generateOptions struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateReq struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Format  json.RawMessage `json:"format,omitempty"`
	Options generateOptions `json:"options"`
}

type generateResp struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate implements llm.Generator. A schema is passed through Ollama's
// format field, which constrains the output to that JSON schema.
func (c *Client) Generate(ctx context.Context, req llm.GenerateRequest) (llm.Generation, error) {
	body := generateReq{
		Model:  c.model,
		Prompt: req.Prompt,
		Options: generateOptions{
			Temperature: req.Config.Temperature,
			NumPredict:  req.Config.MaxOutputTokens,
		},
	}
	if req.Schema != nil {
		format, err := json.Marshal(req.Schema.Definition)
		if err != nil {
			return llm.Generation{}, fmt.Errorf("ollama generate: schema %s: %w", req.Schema.Name, err)
		}
		body.Format = format
	}

	var resp generateResp
	if err := c.post(ctx, "/api/generate", body, &resp); err != nil {
		return llm.Generation{}, fmt.Errorf("ollama generate: %w", err)
	}
	text := strings.TrimSpace(resp.Response)
	if text == "" {
		return llm.Generation{}, llm.ErrEmptyGeneration
	}

	gen := llm.Generation{Text: text, Model: resp.Model}
	if gen.Model == "" {
		gen.Model = c.model
	}
	if req.Schema != nil {
		if !json.Valid([]byte(text)) {
			return llm.Generation{}, fmt.Errorf("ollama generate: %s output is not JSON", req.Schema.Name)
		}
		gen.Structured = json.RawMessage(text)
	}
	return gen, nil
}
