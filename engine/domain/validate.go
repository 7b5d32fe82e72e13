package domain

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// notblank rejects empty and whitespace-only strings.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Resolve applies defaults to in and validates the result. It fails with a
// *ValidationError wrapping ErrInvalidInput on the first violation.
func (in QueryInput) Resolve() (QueryParams, error) {
	p := QueryParams{
		Query:          strings.TrimSpace(in.Query),
		SectorID:       strings.TrimSpace(in.SectorID),
		ConversationID: in.ConversationID,
		MaxResults:     DefaultMaxResults,
		MinSimilarity:  DefaultMinSimilarity,
	}
	if in.MaxResults != nil {
		p.MaxResults = *in.MaxResults
	}
	if in.MinSimilarity != nil {
		p.MinSimilarity = *in.MinSimilarity
	}
	if math.IsNaN(p.MinSimilarity) {
		return QueryParams{}, &ValidationError{Field: "min_similarity", Value: "NaN", Rule: "number", Wrapped: ErrInvalidInput}
	}
	if err := check(p, ErrInvalidInput); err != nil {
		return QueryParams{}, err
	}
	return p, nil
}

// ValidateStructured checks a decoded StructuredResponse against its schema.
func ValidateStructured(s StructuredResponse) error {
	return check(s, ErrInvalidOutput)
}

// ValidateStruct validates any struct carrying `validate` tags, reporting
// failures as a *ValidationError wrapping ErrInvalidOutput. It is used for
// model output that was decoded from JSON.
func ValidateStruct(v any) error {
	return check(v, ErrInvalidOutput)
}

func check(v any, sentinel error) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validation: %w: %v", sentinel, err)
	}
	fe := verrs[0]
	rule := fe.Tag()
	if fe.Param() != "" {
		rule += "=" + fe.Param()
	}
	return &ValidationError{
		Field:   fieldPath(fe.Namespace()),
		Value:   fmt.Sprint(fe.Value()),
		Rule:    rule,
		Wrapped: sentinel,
	}
}

// fieldPath drops the leading struct type name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
