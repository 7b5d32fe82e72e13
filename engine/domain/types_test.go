package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestStructuredResponseText(t *testing.T) {
	s := StructuredResponse{
		Summary: "You get 20 vacation days.",
		Sections: []Section{
			{Title: "Allowance", Content: "20 days per calendar year.", Type: SectionInfo},
			{Title: "How to request", Content: "Use the HR portal.", Type: SectionSteps},
		},
		KeyPoints: []string{"Plan ahead"},
	}
	text := s.Text()
	if !strings.HasPrefix(text, "You get 20 vacation days.") {
		t.Errorf("summary should lead: %q", text)
	}
	for _, want := range []string{"Allowance", "Use the HR portal.", "- Plan ahead"} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q: %q", want, text)
		}
	}
}

func TestUnknownScore(t *testing.T) {
	s := UnknownScore(errors.New("timeout"))
	if s.Status != StatusUnknown || s.Score != 0 {
		t.Fatalf("unexpected score: %+v", s)
	}
	if s.Reasoning != "Evaluation failed: timeout" {
		t.Errorf("unexpected reasoning: %q", s.Reasoning)
	}
}

func TestEvaluationFailed(t *testing.T) {
	unknown := UnknownScore(errors.New("x"))
	pass := EvaluationScore{Score: 0.9, Status: StatusPass}
	if !(Evaluation{Faithfulness: unknown, Relevancy: unknown}).Failed() {
		t.Error("both unknown should be failed")
	}
	if (Evaluation{Faithfulness: unknown, Relevancy: pass}).Failed() {
		t.Error("one verdict should not be failed")
	}
}
