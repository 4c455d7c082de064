package driven

import (
	"context"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
)

// RunJournal records every stage invocation.
type RunJournal interface {
	// Start records a new running stage.
	Start(ctx context.Context, run *domain.StageRun) error

	// Finish records the final state of a run.
	Finish(ctx context.Context, run *domain.StageRun) error

	// Get returns a run by id.
	// Returns domain.ErrNotFound if the run does not exist.
	Get(ctx context.Context, id string) (*domain.StageRun, error)

	// List returns the most recent runs, newest first.
	// A limit of zero returns all runs.
	List(ctx context.Context, limit int) ([]domain.StageRun, error)
}
