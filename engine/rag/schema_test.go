package rag

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/WessleyAI/sector-rag/engine/domain"
)

func TestAnswerSchemaMarshals(t *testing.T) {
	raw, err := json.Marshal(answerSchema.Definition)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Required   []string `json:"required"`
		Properties struct {
			Sections struct {
				Items struct {
					Properties struct {
						Type struct {
							Enum []string `json:"enum"`
						} `json:"type"`
					} `json:"properties"`
				} `json:"items"`
			} `json:"sections"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Required) != 2 || doc.Required[0] != "summary" || doc.Required[1] != "sections" {
		t.Errorf("required = %v", doc.Required)
	}
	if got := doc.Properties.Sections.Items.Properties.Type.Enum; len(got) != 4 {
		t.Errorf("section type enum = %v", got)
	}
}

func TestDecodeStructured(t *testing.T) {
	s, err := decodeStructured([]byte(validAnswerJSON))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Sections) != 2 || s.Sections[1].Type != domain.SectionSteps {
		t.Errorf("sections = %+v", s.Sections)
	}

	_, err = decodeStructured([]byte(`{"summary":"  ","sections":[{"title":"a","content":"b","type":"tip"}]}`))
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Field != "summary" || !errors.Is(err, domain.ErrInvalidOutput) {
		t.Errorf("expected summary validation error, got %v", err)
	}
}

func TestDecodeVerdict(t *testing.T) {
	score, err := decodeVerdict([]byte(`{"score":0.6,"status":"PASS","reasoning":"borderline"}`))
	if err != nil {
		t.Fatal(err)
	}
	want := domain.EvaluationScore{Score: 0.6, Status: domain.StatusPass, Reasoning: "borderline"}
	if score != want {
		t.Errorf("score = %+v, want %+v", score, want)
	}
	if _, err := decodeVerdict([]byte(`{"score":0.6,"status":"UNKNOWN","reasoning":"r"}`)); err == nil {
		t.Error("judges may not report UNKNOWN themselves")
	}
}
