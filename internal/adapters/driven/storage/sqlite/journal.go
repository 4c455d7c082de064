package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
	"github.com/custodia-labs/yaar-cli/internal/core/ports/driven"
)

// RunJournal implements driven.RunJournal.
type RunJournal struct {
	store *Store
}

var _ driven.RunJournal = (*RunJournal)(nil)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, stage, input_path, output_path, model, prompt_version, status,
	started_at, finished_at, total, processed, skipped, outcome_counts, error`

// Start records a new running stage.
func (j *RunJournal) Start(ctx context.Context, run *domain.StageRun) error {
	if run == nil || run.ID == "" {
		return domain.ErrInvalidInput
	}

	counts, err := marshalCounts(run.Counts)
	if err != nil {
		return err
	}

	_, err = j.store.db.ExecContext(ctx, `
		INSERT INTO stage_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, string(run.Stage), run.Input, run.Output, run.Model, run.PromptVersion,
		string(run.Status), run.StartedAt.UTC().Format(timeLayout),
		formatNullableTime(run.FinishedAt), run.Total, run.Processed, run.Skipped,
		counts, nullString(run.Error))
	if err != nil {
		return fmt.Errorf("saving stage run: %w", err)
	}
	return nil
}

// Finish records the final state of a run.
func (j *RunJournal) Finish(ctx context.Context, run *domain.StageRun) error {
	if run == nil {
		return domain.ErrInvalidInput
	}

	counts, err := marshalCounts(run.Counts)
	if err != nil {
		return err
	}

	res, err := j.store.db.ExecContext(ctx, `
		UPDATE stage_runs SET
			status = ?,
			finished_at = ?,
			total = ?,
			processed = ?,
			skipped = ?,
			outcome_counts = ?,
			error = ?
		WHERE id = ?
	`, string(run.Status), formatNullableTime(run.FinishedAt), run.Total, run.Processed,
		run.Skipped, counts, nullString(run.Error), run.ID)
	if err != nil {
		return fmt.Errorf("finishing stage run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing stage run: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Get returns a run by id.
func (j *RunJournal) Get(ctx context.Context, id string) (*domain.StageRun, error) {
	row := j.store.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM stage_runs WHERE id = ?`, id)
	return scanRun(row)
}

// List returns the most recent runs, newest first.
func (j *RunJournal) List(ctx context.Context, limit int) ([]domain.StageRun, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := j.store.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM stage_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying stage runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.StageRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stage runs: %w", err)
	}
	return runs, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.StageRun, error) {
	var (
		run        domain.StageRun
		stage      string
		status     string
		startedAt  string
		finishedAt sql.NullString
		counts     string
		errText    sql.NullString
	)

	err := row.Scan(&run.ID, &stage, &run.Input, &run.Output, &run.Model, &run.PromptVersion,
		&status, &startedAt, &finishedAt, &run.Total, &run.Processed, &run.Skipped, &counts, &errText)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning stage run: %w", err)
	}

	run.Stage = domain.Stage(stage)
	run.Status = domain.RunStatus(status)
	if t, err := time.Parse(timeLayout, startedAt); err == nil {
		run.StartedAt = t
	}
	run.FinishedAt = parseNullableTime(finishedAt)
	if errText.Valid {
		run.Error = errText.String
	}
	if err := json.Unmarshal([]byte(counts), &run.Counts); err != nil {
		return nil, fmt.Errorf("decoding outcome counts: %w", err)
	}
	return &run, nil
}

func marshalCounts(counts map[domain.Outcome]int) (string, error) {
	if counts == nil {
		return "{}", nil
	}
	data, err := json.Marshal(counts)
	if err != nil {
		return "", fmt.Errorf("encoding outcome counts: %w", err)
	}
	return string(data), nil
}

// formatNullableTime formats a time pointer for storage.
func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

// parseNullableTime parses a nullable time column.
func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

// nullString converts an empty string to NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
