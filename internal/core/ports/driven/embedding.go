package driven

import "context"

// EmbeddingService turns dataset rows and fal queries into vectors. Rows and
// queries must go through the same model for retrieval to be meaningful.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order. Rate limiting
	// is reported as domain.ErrRateLimited so the embed stage can back off.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector size, or zero when not yet known. Adapters
	// may refine it after the first response.
	Dimensions() int

	// ModelName is recorded in the run journal.
	ModelName() string

	// Ping checks reachability and, where the provider allows, that the
	// model is available.
	Ping(ctx context.Context) error

	Close() error
}
