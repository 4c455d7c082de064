package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrRateLimited", ErrRateLimited},
		{"ErrMalformedPayload", ErrMalformedPayload},
		{"ErrRetriesExhausted", ErrRetriesExhausted},
		{"ErrSchemaInvalid", ErrSchemaInvalid},
		{"ErrInputNotFound", ErrInputNotFound},
		{"ErrMissingAxis", ErrMissingAxis},
		{"ErrMissingRawUnit", ErrMissingRawUnit},
		{"ErrEmptyAxis", ErrEmptyAxis},
		{"ErrEmbeddingsNotFound", ErrEmbeddingsNotFound},
		{"ErrCorruptRecord", ErrCorruptRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrors_Wrapped(t *testing.T) {
	err := fmt.Errorf("poem_id=7: %w", ErrMissingAxis)

	assert.True(t, errors.Is(err, ErrMissingAxis))
	assert.False(t, errors.Is(err, ErrEmptyAxis))
}

func TestSchemaError(t *testing.T) {
	var err error = &SchemaError{Field: "affect", Reason: "more than 2 labels"}

	assert.Equal(t, "schema invalid: affect: more than 2 labels", err.Error())
	assert.True(t, errors.Is(err, ErrSchemaInvalid))
	assert.True(t, errors.Is(fmt.Errorf("attempt 1: %w", err), ErrSchemaInvalid))
	assert.False(t, errors.Is(err, ErrMalformedPayload))

	var schemaErr *SchemaError
	assert.True(t, errors.As(fmt.Errorf("wrap: %w", err), &schemaErr))
	assert.Equal(t, "affect", schemaErr.Field)
}
