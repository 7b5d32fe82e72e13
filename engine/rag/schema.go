package rag

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/WessleyAI/sector-rag/engine/domain"
	"github.com/WessleyAI/sector-rag/engine/llm"
	"github.com/sashabaranov/go-openai/jsonschema"
)

var answerSchema = llm.Schema{
	Name:        "structured_answer",
	Description: "An answer organized into a summary and typed sections.",
	Definition: jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"summary": {Type: jsonschema.String, Description: "One or two sentences answering the question."},
			"sections": {
				Type: jsonschema.Array,
				Items: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"title":   {Type: jsonschema.String},
						"content": {Type: jsonschema.String},
						"type": {
							Type: jsonschema.String,
							Enum: []string{
								string(domain.SectionInfo), string(domain.SectionSteps),
								string(domain.SectionWarning), string(domain.SectionTip),
							},
						},
					},
					Required: []string{"title", "content", "type"},
				},
			},
			"key_points":     {Type: jsonschema.Array, Items: &jsonschema.Definition{Type: jsonschema.String}},
			"related_topics": {Type: jsonschema.Array, Items: &jsonschema.Definition{Type: jsonschema.String}},
		},
		Required: []string{"summary", "sections"},
	},
}

var judgeSchema = llm.Schema{
	Name:        "judge_verdict",
	Description: "A score between 0 and 1 with a PASS or FAIL status.",
	Definition: jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"score":     {Type: jsonschema.Number},
			"status":    {Type: jsonschema.String, Enum: []string{string(domain.StatusPass), string(domain.StatusFail)}},
			"reasoning": {Type: jsonschema.String},
		},
		Required: []string{"score", "status", "reasoning"},
	},
}

// decodeStructured parses and validates a structured answer.
func decodeStructured(raw []byte) (domain.StructuredResponse, error) {
	var s domain.StructuredResponse
	if err := json.Unmarshal(raw, &s); err != nil {
		return domain.StructuredResponse{}, fmt.Errorf("decode structured answer: %w", err)
	}
	if err := domain.ValidateStructured(s); err != nil {
		return domain.StructuredResponse{}, err
	}
	return s, nil
}

type verdict struct {
	Score     *float64 `json:"score" validate:"required,min=0,max=1"`
	Status    string   `json:"status" validate:"oneof=PASS FAIL"`
	Reasoning string   `json:"reasoning"`
}

// decodeVerdict parses a judge verdict. The judge's status must agree with the
// pass threshold.
func decodeVerdict(raw []byte) (domain.EvaluationScore, error) {
	var v verdict
	if err := json.Unmarshal(raw, &v); err != nil {
		return domain.EvaluationScore{}, fmt.Errorf("decode verdict: %w", err)
	}
	if v.Score != nil && math.IsNaN(*v.Score) {
		return domain.EvaluationScore{}, fmt.Errorf("decode verdict: score is NaN")
	}
	if err := domain.ValidateStruct(v); err != nil {
		return domain.EvaluationScore{}, err
	}
	status := domain.EvaluationStatus(v.Status)
	if (*v.Score >= domain.PassThreshold) != (status == domain.StatusPass) {
		return domain.EvaluationScore{}, fmt.Errorf("verdict status %s inconsistent with score %.2f", status, *v.Score)
	}
	return domain.EvaluationScore{Score: *v.Score, Status: status, Reasoning: v.Reasoning}, nil
}
