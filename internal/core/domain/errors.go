package domain

import "errors"

// Domain errors represent pipeline failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider or stage.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the generation service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Generation Errors.

	// ErrRateLimited indicates the generation service rejected a request
	// because its rate limit was exceeded. Always retried.
	ErrRateLimited = errors.New("rate limited")

	// ErrMalformedPayload indicates the generation service returned
	// content that is not a JSON object. Always retried.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrRetriesExhausted indicates a configured attempt ceiling was reached.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrSchemaInvalid indicates a candidate annotation failed validation.
	ErrSchemaInvalid = errors.New("schema invalid")

	// Precondition Errors.
	// These abort a stage. Completed units are on disk, so a restart resumes.

	// ErrInputNotFound indicates a stage input file does not exist.
	ErrInputNotFound = errors.New("input file not found")

	// ErrMissingAxis indicates a poem has no axis annotation.
	ErrMissingAxis = errors.New("missing ghazal axis")

	// ErrMissingRawUnit indicates an annotation has no raw couplet.
	ErrMissingRawUnit = errors.New("missing raw unit")

	// ErrEmptyAxis indicates the generation service returned an empty axis.
	ErrEmptyAxis = errors.New("empty ghazal axis")

	// ErrEmbeddingsNotFound indicates the precomputed embeddings file is absent.
	ErrEmbeddingsNotFound = errors.New("embeddings not found")

	// ErrCorruptRecord indicates a record file contains an unreadable line.
	ErrCorruptRecord = errors.New("corrupt record")
)

// SchemaError describes why a candidate annotation was rejected.
// It matches ErrSchemaInvalid with errors.Is.
type SchemaError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return "schema invalid: " + e.Field + ": " + e.Reason
}

// Is reports whether target is ErrSchemaInvalid.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchemaInvalid
}
