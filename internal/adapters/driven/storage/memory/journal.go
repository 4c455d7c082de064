package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
	"github.com/custodia-labs/yaar-cli/internal/core/ports/driven"
)

// Ensure RunJournal implements the interface.
var _ driven.RunJournal = (*RunJournal)(nil)

// RunJournal is an in-memory implementation of driven.RunJournal.
type RunJournal struct {
	mu   sync.RWMutex
	runs map[string]domain.StageRun
}

// NewRunJournal creates an empty journal.
func NewRunJournal() *RunJournal {
	return &RunJournal{runs: make(map[string]domain.StageRun)}
}

// Start records a new running stage.
func (j *RunJournal) Start(_ context.Context, run *domain.StageRun) error {
	if run == nil || run.ID == "" {
		return domain.ErrInvalidInput
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs[run.ID] = *run
	return nil
}

// Finish records the final state of a run.
func (j *RunJournal) Finish(_ context.Context, run *domain.StageRun) error {
	if run == nil {
		return domain.ErrInvalidInput
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.runs[run.ID]; !ok {
		return domain.ErrNotFound
	}
	j.runs[run.ID] = *run
	return nil
}

// Get returns a run by id.
func (j *RunJournal) Get(_ context.Context, id string) (*domain.StageRun, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	run, ok := j.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &run, nil
}

// List returns the most recent runs, newest first.
func (j *RunJournal) List(_ context.Context, limit int) ([]domain.StageRun, error) {
	j.mu.RLock()
	runs := make([]domain.StageRun, 0, len(j.runs))
	for _, r := range j.runs {
		runs = append(runs, r)
	}
	j.mu.RUnlock()

	sort.Slice(runs, func(a, b int) bool {
		return runs[a].StartedAt.After(runs[b].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
