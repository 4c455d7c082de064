package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
)

// mockPipeline implements driving.PipelineService for testing.
type mockPipeline struct {
	calls [][]domain.Stage
	err   error
}

func (m *mockPipeline) RunStage(ctx context.Context, stage domain.Stage) (*domain.StageReport, error) {
	reports, err := m.RunStages(ctx, []domain.Stage{stage})
	if len(reports) == 0 {
		return nil, err
	}
	return reports[0], err
}

func (m *mockPipeline) RunStages(_ context.Context, stages []domain.Stage) ([]*domain.StageReport, error) {
	m.calls = append(m.calls, stages)
	if m.err != nil {
		return nil, m.err
	}
	reports := make([]*domain.StageReport, len(stages))
	for i, s := range stages {
		reports[i] = domain.NewStageReport(s, "in", "out")
		reports[i].Processed = 2
	}
	return reports, nil
}

// mockFal implements driving.FalService for testing.
type mockFal struct {
	query string
	out   string
	err   error
}

func (m *mockFal) Fal(_ context.Context, query string) (string, error) {
	m.query = query
	return m.out, m.err
}

// mockRunHistory implements driving.RunHistoryService for testing.
type mockRunHistory struct {
	runs []domain.StageRun
	err  error
}

func (m *mockRunHistory) List(_ context.Context, limit int) ([]domain.StageRun, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit > 0 && limit < len(m.runs) {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

func (m *mockRunHistory) Get(_ context.Context, id string) (*domain.StageRun, error) {
	for i := range m.runs {
		if m.runs[i].ID == id {
			return &m.runs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

// mockSettings implements driving.SettingsService for testing.
type mockSettings struct {
	settings    domain.AppSettings
	validateErr error
	pingErr     error
	llm         []string
	embedding   []string
}

func newMockSettings() *mockSettings {
	return &mockSettings{settings: domain.DefaultAppSettings()}
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettings) Save(s *domain.AppSettings) error {
	m.settings = *s
	return nil
}

func (m *mockSettings) SetLLMProvider(p domain.AIProvider, model, apiKey string) error {
	m.llm = []string{string(p), model, apiKey}
	return nil
}

func (m *mockSettings) SetEmbeddingProvider(p domain.AIProvider, model, apiKey string) error {
	m.embedding = []string{string(p), model, apiKey}
	return nil
}

func (m *mockSettings) Validate() error { return m.validateErr }

func (m *mockSettings) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettings) ValidateLLMConfig(_ context.Context) error { return m.pingErr }

func (m *mockSettings) ValidateEmbeddingConfig(_ context.Context) error { return m.pingErr }

// installServices swaps in the given services and restores the previous ones
// when the test ends.
func installServices(t *testing.T, s *Services) {
	t.Helper()
	oldPipeline, oldFal, oldRuns, oldSettings := pipelineService, falService, runHistoryService, settingsService
	SetServices(s)
	t.Cleanup(func() {
		pipelineService, falService, runHistoryService, settingsService = oldPipeline, oldFal, oldRuns, oldSettings
		closeServices = nil
	})
}

// execute runs the root command with fresh flag values.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	normalizePass = ""
	runAll = false
	runsJSON = false
	runsLimit = 20

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}
