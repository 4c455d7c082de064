// Package console prints per-unit pipeline progress to a terminal.
package console

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
	"github.com/custodia-labs/yaar-cli/internal/core/ports/driven"
)

// Ensure Reporter implements the interface.
var _ driven.ProgressReporter = (*Reporter)(nil)

// Reporter writes one line per progress event.
type Reporter struct {
	mu     sync.Mutex
	out    io.Writer
	styles *Styles
}

// NewReporter creates a reporter writing to out. Tags are coloured only when
// out is a terminal.
func NewReporter(out io.Writer) *Reporter {
	styles := PlainStyles()
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		styles = NewStyles(nil)
	}
	return NewReporterWithStyles(out, styles)
}

// NewReporterWithStyles creates a reporter with explicit styles.
func NewReporterWithStyles(out io.Writer, styles *Styles) *Reporter {
	if styles == nil {
		styles = PlainStyles()
	}
	return &Reporter{out: out, styles: styles}
}

// Report prints a progress line.
func (r *Reporter) Report(p domain.Progress) {
	line := r.styles.Tag(p.Outcome) + " " + describe(p)

	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, strings.TrimRight(line, " "))
}

// Summary prints the totals of a finished stage.
func (r *Reporter) Summary(rep *domain.StageReport) {
	if rep == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: Processed %d rows", rep.Stage, rep.Processed)
	if rep.Skipped > 0 {
		fmt.Fprintf(&sb, ", skipped %d", rep.Skipped)
	}
	if counts := formatCounts(rep.Counts); counts != "" {
		sb.WriteString(" (" + counts + ")")
	}
	if rep.Duration > 0 {
		fmt.Fprintf(&sb, " in %s", rep.Duration.Round(time.Millisecond))
	}
	if rep.Output != "" {
		sb.WriteString(" -> " + rep.Output)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, r.styles.Summary(sb.String()))
}

func describe(p domain.Progress) string {
	switch p.Outcome {
	case domain.OutcomeRateLimit:
		return fmt.Sprintf("sleeping %.1fs...", p.Wait.Seconds())
	case domain.OutcomeRetry:
		return "Invalid JSON, retrying..."
	case domain.OutcomeReject:
		return fmt.Sprintf("%s attempt=%d affect=%s", p.Key, p.Attempt, formatAffect(p.Affect))
	case domain.OutcomeBlank:
		return fmt.Sprintf("%s affect=[]", p.Key)
	case domain.OutcomeRepaired, domain.OutcomeNormalized:
		return fmt.Sprintf("%s %q -> %q", p.Key, p.Before, p.After)
	}

	s := p.Key.String()
	if p.Stage == domain.StageBayt && p.Outcome == domain.OutcomeOK {
		s += " affect=" + formatAffect(p.Affect)
	}
	return s
}

func formatAffect(affect []string) string {
	return "[" + strings.Join(affect, ", ") + "]"
}

func formatCounts(counts map[domain.Outcome]int) string {
	keys := make([]string, 0, len(counts))
	for o, n := range counts {
		if n > 0 {
			keys = append(keys, string(o))
		}
	}
	slices.Sort(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[domain.Outcome(k)])
	}
	return strings.Join(parts, " ")
}
