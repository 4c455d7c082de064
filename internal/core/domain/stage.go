package domain

import "time"

// Stage identifies one batch job of the pipeline.
type Stage string

// Pipeline stages in execution order.
const (
	StageAxis              Stage = "axis"
	StageBayt              Stage = "bayt"
	StageRepair            Stage = "repair"
	StageNormalizeExplicit Stage = "normalize-explicit"
	StageNormalizeResidual Stage = "normalize-residual"
	StageDataset           Stage = "dataset"
	StageEmbed             Stage = "embed"
)

// AnnotationStages returns the stages that produce the canonical annotation corpus.
func AnnotationStages() []Stage {
	return []Stage{
		StageAxis,
		StageBayt,
		StageRepair,
		StageNormalizeExplicit,
		StageNormalizeResidual,
	}
}

// AllStages returns every stage in execution order.
func AllStages() []Stage {
	return append(AnnotationStages(), StageDataset, StageEmbed)
}

// IsValid returns true if the stage is recognised.
func (s Stage) IsValid() bool {
	switch s {
	case StageAxis, StageBayt, StageRepair, StageNormalizeExplicit,
		StageNormalizeResidual, StageDataset, StageEmbed:
		return true
	default:
		return false
	}
}

// UsesLLM returns true if the stage calls the generation service.
func (s Stage) UsesLLM() bool {
	return s == StageAxis || s == StageBayt || s == StageRepair
}

// String returns the string representation.
func (s Stage) String() string {
	return string(s)
}

// Description returns a human-readable description of the stage.
func (s Stage) Description() string {
	switch s {
	case StageAxis:
		return "Ghazal axis extraction (v1)"
	case StageBayt:
		return "Bayt hint and affect extraction (v1)"
	case StageRepair:
		return "Long hint repair (v1 → v1.1)"
	case StageNormalizeExplicit:
		return "Explicit directive normalization (v1.1 → v1.2)"
	case StageNormalizeResidual:
		return "Residual directive normalization (v1.2 → v1.3)"
	case StageDataset:
		return "Canonical dataset export"
	case StageEmbed:
		return "Couplet embedding build"
	default:
		return unknownDescription
	}
}

// Outcome is the per-unit result reported on the console.
type Outcome string

// Per-unit outcomes.
const (
	OutcomeOK         Outcome = "OK"
	OutcomeReject     Outcome = "REJECT"
	OutcomeBlank      Outcome = "BLANK"
	OutcomeRepaired   Outcome = "REPAIRED"
	OutcomeKept       Outcome = "KEPT"
	OutcomeNormalized Outcome = "NORMALIZED"
	OutcomeUnchanged  Outcome = "UNCHANGED"
	OutcomeSkipped    Outcome = "SKIPPED"
	OutcomeRateLimit  Outcome = "RATE LIMIT"
	OutcomeRetry      Outcome = "WARN"
)

// Progress is one console progress event.
type Progress struct {
	Stage   Stage
	Outcome Outcome
	Key     UnitKey
	Attempt int
	Affect  []string
	Before  string
	After   string
	Wait    time.Duration
}

// StageReport summarises one stage invocation.
type StageReport struct {
	Stage     Stage
	Input     string
	Output    string
	Total     int
	Skipped   int
	Processed int
	Counts    map[Outcome]int
	Duration  time.Duration
}

// NewStageReport returns an empty report for a stage.
func NewStageReport(stage Stage, input, output string) *StageReport {
	return &StageReport{
		Stage:  stage,
		Input:  input,
		Output: output,
		Counts: make(map[Outcome]int),
	}
}

// Record counts an outcome.
func (r *StageReport) Record(o Outcome) {
	r.Counts[o]++
}

// RunStatus is the state of a journaled stage run.
type RunStatus string

// Run states.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// StageRun is a journal entry for one stage invocation.
type StageRun struct {
	ID            string
	Stage         Stage
	Input         string
	Output        string
	Model         string
	PromptVersion string
	Status        RunStatus
	StartedAt     time.Time
	FinishedAt    *time.Time
	Total         int
	Processed     int
	Skipped       int
	Counts        map[Outcome]int
	Error         string
}

// Duration returns the elapsed run time, or zero if the run is still open.
func (r StageRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
