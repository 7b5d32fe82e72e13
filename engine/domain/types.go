// Package domain defines the request-scoped data model of the RAG query
// pipeline and acts as the validation gate at its entry point.
package domain

import (
	"fmt"
	"strings"
)

// Query defaults and limits.
const (
	DefaultMaxResults    = 5
	MinMaxResults        = 1
	MaxMaxResults        = 10
	DefaultMinSimilarity = 0.55

	// PassThreshold is the judge score at or above which an evaluation passes.
	PassThreshold = 0.6
)

// ResponseType classifies how a query was answered.
type ResponseType string

const (
	ResponseAnswer    ResponseType = "ANSWER"
	ResponseNoContext ResponseType = "NO_CONTEXT"
	ResponseError     ResponseType = "ERROR"
)

// SectionType tags a section of a structured answer.
type SectionType string

const (
	SectionInfo    SectionType = "info"
	SectionSteps   SectionType = "steps"
	SectionWarning SectionType = "warning"
	SectionTip     SectionType = "tip"
)

// EvaluationStatus is the verdict of a single judge.
type EvaluationStatus string

const (
	StatusPass    EvaluationStatus = "PASS"
	StatusFail    EvaluationStatus = "FAIL"
	StatusUnknown EvaluationStatus = "UNKNOWN"
)

// QueryInput is the caller-facing request. Nil MaxResults and MinSimilarity
// take their defaults; explicit values are range-checked, never clamped.
type QueryInput struct {
	Query          string   `json:"query"`
	SectorID       string   `json:"sector_id"`
	ConversationID string   `json:"conversation_id,omitempty"`
	MaxResults     *int     `json:"max_results,omitempty"`
	MinSimilarity  *float64 `json:"min_similarity,omitempty"`
}

// QueryParams is a validated QueryInput with defaults applied.
type QueryParams struct {
	Query          string  `json:"query" validate:"notblank"`
	SectorID       string  `json:"sector_id" validate:"notblank"`
	ConversationID string  `json:"conversation_id,omitempty"`
	MaxResults     int     `json:"max_results" validate:"min=1,max=10"`
	MinSimilarity  float64 `json:"min_similarity" validate:"min=0,max=1"`
}

// Fragment is a retrieved unit of document content. Fragments are produced by
// the vector search capability and are not modified afterwards.
type Fragment struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Similarity float64        `json:"similarity"`
	SourceID   string         `json:"source_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Section is one typed block of a structured answer.
type Section struct {
	Title   string      `json:"title" validate:"notblank"`
	Content string      `json:"content" validate:"notblank"`
	Type    SectionType `json:"type" validate:"oneof=info steps warning tip"`
}

// StructuredResponse is the generation target schema.
type StructuredResponse struct {
	Summary       string    `json:"summary" validate:"notblank"`
	Sections      []Section `json:"sections" validate:"min=1,dive"`
	KeyPoints     []string  `json:"key_points,omitempty"`
	RelatedTopics []string  `json:"related_topics,omitempty"`
}

// Text renders the structured answer as plain text.
func (s StructuredResponse) Text() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(s.Summary))
	for _, sec := range s.Sections {
		fmt.Fprintf(&b, "\n\n%s\n%s", strings.TrimSpace(sec.Title), strings.TrimSpace(sec.Content))
	}
	if len(s.KeyPoints) > 0 {
		b.WriteString("\n")
		for _, p := range s.KeyPoints {
			fmt.Fprintf(&b, "\n- %s", p)
		}
	}
	return b.String()
}

// EvaluationScore is the result of one LLM-as-judge assessment.
type EvaluationScore struct {
	Score     float64          `json:"score"`
	Status    EvaluationStatus `json:"status"`
	Reasoning string           `json:"reasoning"`
}

// UnknownScore builds the score reported when a judge could not run.
func UnknownScore(cause error) EvaluationScore {
	return EvaluationScore{
		Score:     0,
		Status:    StatusUnknown,
		Reasoning: fmt.Sprintf("Evaluation failed: %v", cause),
	}
}

// Evaluation holds both judge dimensions. Either may be UNKNOWN.
type Evaluation struct {
	Faithfulness EvaluationScore `json:"faithfulness"`
	Relevancy    EvaluationScore `json:"relevancy"`
}

// Failed reports whether neither judge produced a verdict.
func (e Evaluation) Failed() bool {
	return e.Faithfulness.Status == StatusUnknown && e.Relevancy.Status == StatusUnknown
}

// OutputMetadata describes how an output was produced.
type OutputMetadata struct {
	Model              string  `json:"model"`
	Temperature        float32 `json:"temperature"`
	FragmentsRetrieved int     `json:"fragments_retrieved"`
	FragmentsUsed      int     `json:"fragments_used"`
	QueryExpanded      bool    `json:"query_expanded"`
}

// QueryOutput is the terminal artifact returned to the caller.
type QueryOutput struct {
	Response       string              `json:"response"`
	ResponseType   ResponseType        `json:"response_type"`
	Structured     *StructuredResponse `json:"structured,omitempty"`
	Sources        []Fragment          `json:"sources"`
	ConversationID string              `json:"conversation_id,omitempty"`
	Evaluation     *Evaluation         `json:"evaluation,omitempty"`
	Metadata       OutputMetadata      `json:"metadata"`
}
