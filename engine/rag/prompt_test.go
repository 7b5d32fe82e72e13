package rag

import (
	"strings"
	"testing"

	"github.com/WessleyAI/sector-rag/engine/domain"
)

func TestAnswerPrompt(t *testing.T) {
	prompt, used := AnswerPrompt("How many vacation days?", testFragments, 0)
	if used != 2 {
		t.Fatalf("used = %d, want 2", used)
	}
	for _, want := range []string{
		"[1] " + testFragments[0].Content,
		"[2] " + testFragments[1].Content,
		"QUESTION:\nHow many vacation days?",
		`"steps"`,
		"not covered",
		languageRule,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Index(prompt, "[1]") > strings.Index(prompt, "[2]") {
		t.Error("fragments out of order")
	}
}

func TestAnswerPrompt_Budget(t *testing.T) {
	big := []domain.Fragment{
		{ID: "a", Content: strings.Repeat("a", 500)},
		{ID: "b", Content: "short"},
	}
	prompt, used := AnswerPrompt("q", big, 100)
	if used != 1 {
		t.Fatalf("used = %d, want first fragment only", used)
	}
	if !strings.Contains(prompt, strings.Repeat("a", 500)) {
		t.Error("first fragment must always be included")
	}
	if strings.Contains(prompt, "[2]") {
		t.Error("second fragment exceeds the budget")
	}
}

func TestAnswerPrompt_Pure(t *testing.T) {
	a, _ := AnswerPrompt("q", testFragments, 0)
	b, _ := AnswerPrompt("q", testFragments, 0)
	if a != b {
		t.Error("prompt is not deterministic")
	}
}

func TestFallbackPrompt(t *testing.T) {
	withSector := FallbackPrompt("¿Cuántos días de vacaciones tengo?", "Recursos Humanos")
	if !strings.Contains(withSector, `"Recursos Humanos"`) {
		t.Error("missing sector name")
	}
	if !strings.Contains(withSector, "¿Cuántos días de vacaciones tengo?") {
		t.Error("missing query")
	}
	for _, p := range []string{withSector, FallbackPrompt("q", "")} {
		if !strings.Contains(p, "3 sentences") || !strings.Contains(p, languageRule) {
			t.Errorf("fallback prompt missing instructions:\n%s", p)
		}
	}
	if strings.Contains(FallbackPrompt("q", ""), `""`) {
		t.Error("empty sector name should not be quoted")
	}
}

func TestExpansionPrompt(t *testing.T) {
	p := ExpansionPrompt("vacation days", 500)
	for _, want := range []string{"vacation days", "under 500 characters", "ONLY the enriched query", "same language"} {
		if !strings.Contains(p, want) {
			t.Errorf("expansion prompt missing %q", want)
		}
	}
}

func TestJudgePrompts(t *testing.T) {
	f := FaithfulnessPrompt("the answer", []string{"ctx one", "ctx two"})
	if !strings.Contains(f, "[1] ctx one") || !strings.Contains(f, "[2] ctx two") || !strings.Contains(f, "the answer") {
		t.Errorf("faithfulness prompt:\n%s", f)
	}
	r := RelevancyPrompt("the question", "the answer")
	if !strings.Contains(r, "the question") || !strings.Contains(r, "the answer") {
		t.Errorf("relevancy prompt:\n%s", r)
	}
	for _, p := range []string{f, r} {
		if !strings.Contains(p, `"PASS" if the score is 0.6 or higher`) {
			t.Errorf("judge prompt missing threshold rule:\n%s", p)
		}
	}
}
