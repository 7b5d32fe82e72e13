package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/WessleyAI/sector-rag/engine/llm"
	"github.com/sashabaranov/go-openai/jsonschema"
)

func newServer(t *testing.T, path string, handle func(body map[string]any) any) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			t.Errorf("path = %s, want %s", r.URL.Path, path)
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(handle(body))
	}))
	t.Cleanup(srv.Close)
	return New(Options{APIKey: "test-key", BaseURL: srv.URL + "/v1", Model: "gpt-4o-mini", EmbedModel: "text-embedding-3-small"})
}

func chatReply(content string) map[string]any {
	return map[string]any{
		"id":    "chatcmpl-1",
		"model": "gpt-4o-mini-2024-07-18",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	}
}

func TestEmbed(t *testing.T) {
	c := newServer(t, "/v1/embeddings", func(body map[string]any) any {
		if body["model"] != "text-embedding-3-small" {
			t.Errorf("model = %v", body["model"])
		}
		return map[string]any{
			"object": "list",
			"data":   []map[string]any{{"object": "embedding", "index": 0, "embedding": []float32{0.25, 0.5}}},
		}
	})
	vec, err := c.Embed(context.Background(), "vacation policy")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 2 || vec[1] != 0.5 {
		t.Fatalf("vec = %v", vec)
	}
}

func TestEmbedEmpty(t *testing.T) {
	c := newServer(t, "/v1/embeddings", func(map[string]any) any {
		return map[string]any{"object": "list", "data": []any{}}
	})
	if _, err := c.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestGeneratePlain(t *testing.T) {
	c := newServer(t, "/v1/chat/completions", func(body map[string]any) any {
		if _, ok := body["response_format"]; ok {
			t.Error("plain request must not set response_format")
		}
		msgs := body["messages"].([]any)
		if len(msgs) != 1 || msgs[0].(map[string]any)["content"] != "prompt" {
			t.Errorf("messages = %v", msgs)
		}
		if body["max_tokens"].(float64) != 300 {
			t.Errorf("max_tokens = %v", body["max_tokens"])
		}
		return chatReply(" plain answer ")
	})
	gen, err := c.Generate(context.Background(), llm.GenerateRequest{Prompt: "prompt", Config: llm.Config{Temperature: 0.1, MaxOutputTokens: 300}})
	if err != nil {
		t.Fatal(err)
	}
	if gen.Text != "plain answer" || gen.Model != "gpt-4o-mini-2024-07-18" || gen.Structured != nil {
		t.Fatalf("gen = %+v", gen)
	}
}

func TestGenerateStructured(t *testing.T) {
	schema := &llm.Schema{Name: "judge_verdict", Definition: jsonschema.Definition{
		Type:       jsonschema.Object,
		Properties: map[string]jsonschema.Definition{"score": {Type: jsonschema.Number}},
		Required:   []string{"score"},
	}}
	c := newServer(t, "/v1/chat/completions", func(body map[string]any) any {
		rf, _ := body["response_format"].(map[string]any)
		js, _ := rf["json_schema"].(map[string]any)
		if rf["type"] != "json_schema" || js["name"] != "judge_verdict" {
			t.Errorf("response_format = %v", body["response_format"])
		}
		if s, _ := js["schema"].(map[string]any); s["type"] != "object" {
			t.Errorf("schema = %v", js["schema"])
		}
		return chatReply(`{"score":0.9}`)
	})
	gen, err := c.Generate(context.Background(), llm.GenerateRequest{Prompt: "p", Schema: schema})
	if err != nil {
		t.Fatal(err)
	}
	if string(gen.Structured) != `{"score":0.9}` {
		t.Fatalf("Structured = %s", gen.Structured)
	}
}

func TestGenerateRejectsNonJSONStructured(t *testing.T) {
	c := newServer(t, "/v1/chat/completions", func(map[string]any) any { return chatReply("not json") })
	_, err := c.Generate(context.Background(), llm.GenerateRequest{Prompt: "p", Schema: &llm.Schema{Name: "s"}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestGenerateEmpty(t *testing.T) {
	c := newServer(t, "/v1/chat/completions", func(map[string]any) any { return chatReply("") })
	if _, err := c.Generate(context.Background(), llm.GenerateRequest{Prompt: "p"}); !errors.Is(err, llm.ErrEmptyGeneration) {
		t.Fatalf("err = %v", err)
	}
	none := newServer(t, "/v1/chat/completions", func(map[string]any) any {
		return map[string]any{"id": "x", "choices": []any{}}
	})
	if _, err := none.Generate(context.Background(), llm.GenerateRequest{Prompt: "p"}); !errors.Is(err, llm.ErrEmptyGeneration) {
		t.Fatalf("err = %v", err)
	}
}
