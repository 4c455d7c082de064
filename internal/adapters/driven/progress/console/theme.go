package console

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
)

// Theme defines the colour palette for progress tags.
type Theme struct {
	// Success marks units written as asked.
	Success lipgloss.Color

	// Notice marks units changed by a deterministic or repair pass.
	Notice lipgloss.Color

	// Warning marks retries and fallbacks.
	Warning lipgloss.Color

	// Error marks rejections.
	Error lipgloss.Color

	// Muted is for skipped and unchanged units.
	Muted lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Success: lipgloss.Color("#A6E3A1"), // Green
		Notice:  lipgloss.Color("#06B6D4"), // Cyan
		Warning: lipgloss.Color("#F9E2AF"), // Yellow
		Error:   lipgloss.Color("#F38BA8"), // Red
		Muted:   lipgloss.Color("#6C7086"), // Medium gray
	}
}

// Styles maps each outcome to the style of its tag.
type Styles struct {
	tags    map[domain.Outcome]lipgloss.Style
	summary lipgloss.Style
	plain   bool
}

// NewStyles creates styles from a theme. A nil theme uses DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	return &Styles{
		tags: map[domain.Outcome]lipgloss.Style{
			domain.OutcomeOK:         fg(theme.Success),
			domain.OutcomeRepaired:   fg(theme.Notice),
			domain.OutcomeNormalized: fg(theme.Notice),
			domain.OutcomeBlank:      fg(theme.Warning),
			domain.OutcomeRetry:      fg(theme.Warning),
			domain.OutcomeRateLimit:  fg(theme.Warning),
			domain.OutcomeReject:     fg(theme.Error).Bold(true),
			domain.OutcomeKept:       fg(theme.Muted),
			domain.OutcomeUnchanged:  fg(theme.Muted),
			domain.OutcomeSkipped:    fg(theme.Muted),
		},
		summary: lipgloss.NewStyle().Bold(true),
	}
}

// PlainStyles returns styles that render text unchanged.
func PlainStyles() *Styles {
	return &Styles{plain: true}
}

// Tag renders the bracketed outcome tag.
func (s *Styles) Tag(o domain.Outcome) string {
	tag := "[" + string(o) + "]"
	if s.plain {
		return tag
	}
	if st, ok := s.tags[o]; ok {
		return st.Render(tag)
	}
	return tag
}

// Summary renders a summary line.
func (s *Styles) Summary(text string) string {
	if s.plain {
		return text
	}
	return s.summary.Render(text)
}
