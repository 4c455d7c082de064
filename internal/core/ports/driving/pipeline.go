package driving

import (
	"context"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
)

// PipelineService runs the annotation stages.
// Every stage is resumable: records already present in its output are skipped.
type PipelineService interface {
	// RunStage runs a single stage to completion.
	RunStage(ctx context.Context, stage domain.Stage) (*domain.StageReport, error)

	// RunStages runs the given stages in order, stopping at the first failure.
	// Reports for completed stages are returned alongside the error.
	RunStages(ctx context.Context, stages []domain.Stage) ([]*domain.StageReport, error)
}

// FalService retrieves a couplet for a query and renders its fal.
type FalService interface {
	// Fal embeds the query, retrieves the nearest couplet and assembles its fal.
	// Returns domain.ErrEmbeddingsNotFound if the embeddings file is missing.
	Fal(ctx context.Context, query string) (string, error)
}

// RunHistoryService exposes the stage run journal.
type RunHistoryService interface {
	// List returns the most recent runs, newest first.
	List(ctx context.Context, limit int) ([]domain.StageRun, error)

	// Get returns a single run.
	Get(ctx context.Context, id string) (*domain.StageRun, error)
}
