package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/WessleyAI/sector-rag/engine/llm"
	"github.com/sashabaranov/go-openai/jsonschema"
)

func newServer(t *testing.T, path string, handle func(body map[string]any) (int, any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		status, resp := handle(body)
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewDefaultsURL(t *testing.T) {
	if c := New("", "m", "e"); c.baseURL != DefaultURL {
		t.Fatalf("baseURL = %q", c.baseURL)
	}
}

func TestEmbed(t *testing.T) {
	srv := newServer(t, "/api/embeddings", func(body map[string]any) (int, any) {
		if body["model"] != "nomic-embed-text" || body["prompt"] != "hello" {
			t.Errorf("body = %v", body)
		}
		return http.StatusOK, map[string]any{"embedding": []float64{0.5, -1}}
	})
	vec, err := New(srv.URL, "llama3", "nomic-embed-text").Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 2 || vec[0] != 0.5 || vec[1] != -1 {
		t.Fatalf("vec = %v", vec)
	}
}

func TestEmbedErrors(t *testing.T) {
	srv := newServer(t, "/api/embeddings", func(map[string]any) (int, any) {
		return http.StatusInternalServerError, map[string]any{"error": "model not loaded"}
	})
	_, err := New(srv.URL, "m", "e").Embed(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "status 500") || !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("err = %v", err)
	}

	empty := newServer(t, "/api/embeddings", func(map[string]any) (int, any) {
		return http.StatusOK, map[string]any{"embedding": []float64{}}
	})
	if _, err := New(empty.URL, "m", "e").Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error for empty vector")
	}
}

func TestGeneratePlain(t *testing.T) {
	srv := newServer(t, "/api/generate", func(body map[string]any) (int, any) {
		if _, ok := body["format"]; ok {
			t.Error("plain request must not carry a format")
		}
		if body["stream"] != false {
			t.Errorf("stream = %v", body["stream"])
		}
		opts := body["options"].(map[string]any)
		if opts["temperature"].(float64) < 0.29 || opts["num_predict"].(float64) != 100 {
			t.Errorf("options = %v", opts)
		}
		return http.StatusOK, map[string]any{"model": "llama3:8b", "response": "  an answer \n", "done": true}
	})
	gen, err := New(srv.URL, "llama3", "e").Generate(context.Background(), llm.GenerateRequest{
		Prompt: "q",
		Config: llm.Config{Temperature: 0.3, MaxOutputTokens: 100},
	})
	if err != nil {
		t.Fatal(err)
	}
	if gen.Text != "an answer" || gen.Model != "llama3:8b" || gen.Structured != nil {
		t.Fatalf("gen = %+v", gen)
	}
}

func TestGenerateStructured(t *testing.T) {
	schema := &llm.Schema{Name: "verdict", Definition: jsonschema.Definition{
		Type:       jsonschema.Object,
		Properties: map[string]jsonschema.Definition{"score": {Type: jsonschema.Number}},
		Required:   []string{"score"},
	}}
	srv := newServer(t, "/api/generate", func(body map[string]any) (int, any) {
		format, ok := body["format"].(map[string]any)
		if !ok || format["type"] != "object" {
			t.Errorf("format = %v", body["format"])
		}
		return http.StatusOK, map[string]any{"response": `{"score": 0.8}`}
	})
	gen, err := New(srv.URL, "llama3", "e").Generate(context.Background(), llm.GenerateRequest{Prompt: "q", Schema: schema})
	if err != nil {
		t.Fatal(err)
	}
	if string(gen.Structured) != `{"score": 0.8}` || gen.Model != "llama3" {
		t.Fatalf("gen = %+v", gen)
	}
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name     string
		response string
		schema   bool
		want     error
	}{
		{"empty", "   ", false, llm.ErrEmptyGeneration},
		{"not json", "sure, here it is", true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, "/api/generate", func(map[string]any) (int, any) {
				return http.StatusOK, map[string]any{"response": tt.response}
			})
			req := llm.GenerateRequest{Prompt: "q"}
			if tt.schema {
				req.Schema = &llm.Schema{Name: "s", Definition: jsonschema.Definition{Type: jsonschema.Object}}
			}
			_, err := New(srv.URL, "m", "e").Generate(context.Background(), req)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGenerateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New("http://127.0.0.1:1", "m", "e").Generate(ctx, llm.GenerateRequest{Prompt: "q"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
