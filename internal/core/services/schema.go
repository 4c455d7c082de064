package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
)

// BaytCandidate is a generated couplet annotation that passed validation.
type BaytCandidate struct {
	BaytHint string   `json:"bayt_hint" validate:"notblank"`
	Affect   []string `json:"affect" validate:"max=2,dive,affect"`
}

// SchemaValidator checks generated couplet annotations against the
// structural and vocabulary constraints. It holds no per-call state.
type SchemaValidator struct {
	validate *validator.Validate
}

// NewSchemaValidator creates a validator with the affect vocabulary registered.
func NewSchemaValidator() *SchemaValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("affect", func(fl validator.FieldLevel) bool {
		return domain.IsAffect(fl.Field().String())
	})
	return &SchemaValidator{validate: v}
}

// Validate converts a decoded JSON object into a BaytCandidate, or returns a
// *domain.SchemaError naming the first violated constraint.
func (s *SchemaValidator) Validate(obj map[string]any) (BaytCandidate, error) {
	rawHint, ok := obj["bayt_hint"]
	if !ok {
		return BaytCandidate{}, &domain.SchemaError{Field: "bayt_hint", Reason: "missing"}
	}
	hint, ok := rawHint.(string)
	if !ok {
		return BaytCandidate{}, &domain.SchemaError{Field: "bayt_hint", Reason: fmt.Sprintf("want string, got %T", rawHint)}
	}

	rawAffect, ok := obj["affect"]
	if !ok {
		return BaytCandidate{}, &domain.SchemaError{Field: "affect", Reason: "missing"}
	}
	list, ok := rawAffect.([]any)
	if !ok {
		return BaytCandidate{}, &domain.SchemaError{Field: "affect", Reason: fmt.Sprintf("want list, got %T", rawAffect)}
	}
	affect := make([]string, len(list))
	for i, item := range list {
		label, ok := item.(string)
		if !ok {
			return BaytCandidate{}, &domain.SchemaError{
				Field:  fmt.Sprintf("affect[%d]", i),
				Reason: fmt.Sprintf("want string, got %T", item),
			}
		}
		affect[i] = label
	}

	candidate := BaytCandidate{BaytHint: strings.TrimSpace(hint), Affect: affect}
	if err := s.validate.Struct(candidate); err != nil {
		return BaytCandidate{}, schemaError(err)
	}
	return candidate, nil
}

func schemaError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &domain.SchemaError{Field: "candidate", Reason: err.Error()}
	}
	fe := verrs[0]
	var reason string
	switch fe.Tag() {
	case "notblank":
		reason = "blank"
	case "max":
		reason = fmt.Sprintf("more than %d labels", domain.MaxAffects)
	case "affect":
		reason = fmt.Sprintf("label %q not in vocabulary", fe.Value())
	default:
		reason = "failed " + fe.Tag()
	}
	return &domain.SchemaError{Field: fe.Field(), Reason: reason}
}
