package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/WessleyAI/sector-rag/engine/llm"
)

var answerConfig = llm.Config{Temperature: 0.3, MaxOutputTokens: 2048}

func TestResponderAnswer_Structured(t *testing.T) {
	gen := newFakeGenerator(map[callKind]replyFunc{callStructured: structured(validAnswerJSON)})
	r := NewResponder(gen, answerConfig, nil)

	ans, err := r.Answer(context.Background(), "prompt").Unwrap()
	if err != nil {
		t.Fatal(err)
	}
	if ans.Structured == nil || ans.Structured.Summary != "Employees get 22 vacation days per year." {
		t.Fatalf("Structured = %+v", ans.Structured)
	}
	if ans.Text != ans.Structured.Text() || ans.Model != "test-model" {
		t.Errorf("ans = %+v", ans)
	}
	req := gen.calls(callStructured)[0]
	if req.Schema == nil || req.Schema.Name != answerSchema.Name || req.Config != answerConfig {
		t.Errorf("request = %+v", req)
	}
	if len(gen.calls(callPlain)) != 0 {
		t.Error("plain tier should not run")
	}
}

func TestResponderAnswer_StructuredInText(t *testing.T) {
	// Providers without native structured output return the JSON document as text.
	gen := newFakeGenerator(map[callKind]replyFunc{callStructured: text(validAnswerJSON)})
	r := NewResponder(gen, answerConfig, nil)

	ans, err := r.Answer(context.Background(), "prompt").Unwrap()
	if err != nil {
		t.Fatal(err)
	}
	if ans.Structured == nil {
		t.Fatal("expected structured answer decoded from text")
	}
}

func TestResponderAnswer_PlainFallback(t *testing.T) {
	gen := newFakeGenerator(map[callKind]replyFunc{
		callStructured: fail(errBoom),
		callPlain:      text("  Employees get 22 days.\n"),
	})
	r := NewResponder(gen, answerConfig, nil)

	ans, err := r.Answer(context.Background(), "prompt").Unwrap()
	if err != nil {
		t.Fatal(err)
	}
	if ans.Structured != nil || ans.Text != "  Employees get 22 days.\n" {
		t.Errorf("ans = %+v", ans)
	}
}

func TestResponderAnswer_BothFail(t *testing.T) {
	gen := newFakeGenerator(map[callKind]replyFunc{
		callStructured: fail(errBoom),
		callPlain:      text("   "),
	})
	r := NewResponder(gen, answerConfig, nil)

	_, err := r.Answer(context.Background(), "prompt").Unwrap()
	if !errors.Is(err, llm.ErrEmptyGeneration) {
		t.Fatalf("expected ErrEmptyGeneration from the plain tier, got %v", err)
	}
}

func TestResponderFallback(t *testing.T) {
	gen := newFakeGenerator(map[callKind]replyFunc{callFallback: text("Sorry about that.")})
	r := NewResponder(gen, answerConfig, nil)

	ans := r.Fallback(context.Background(), "q", "HR")
	if ans.Text != "Sorry about that." || ans.Structured != nil {
		t.Errorf("ans = %+v", ans)
	}
	if gen.calls(callFallback)[0].Schema != nil {
		t.Error("fallback must request plain text")
	}
}

func TestResponderFallback_StaticApology(t *testing.T) {
	for name, reply := range map[string]replyFunc{
		"error": fail(errBoom),
		"empty": text(""),
	} {
		t.Run(name, func(t *testing.T) {
			gen := newFakeGenerator(map[callKind]replyFunc{callFallback: reply})
			r := NewResponder(gen, answerConfig, nil)
			if ans := r.Fallback(context.Background(), "q", ""); ans.Text != NoContextApology {
				t.Errorf("Text = %q", ans.Text)
			}
		})
	}
}
