package output

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"forkcheck/internal/alerts"
)

// ReportSink renders the run as a Markdown report on Close.
type ReportSink struct {
	path   string
	file   *os.File
	mu     sync.Mutex
	record Record
}

func NewReportSink(path string) (*ReportSink, error) {
	if path == "" {
		return nil, fmt.Errorf("report path required")
	}

	f, err := createWithDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}

	return &ReportSink{path: path, file: f}, nil
}

func (s *ReportSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.add(v)
	return nil
}

func (s *ReportSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.file.WriteString(renderReport(s.record))
	if closeErr := s.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

func renderReport(r Record) string {
	var b strings.Builder
	b.WriteString("# Fork Check Report\n\n")

	v := r.Verdict
	if v == nil {
		b.WriteString("The run ended before a decision was made.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "- **Fork:** `%s`\n", v.Repo)
	if v.Source != "" {
		fmt.Fprintf(&b, "- **Source:** `%s`\n", v.Source)
	}
	fmt.Fprintf(&b, "- **can-merge:** `%s`\n", v.CanMerge)
	if len(v.Languages) > 0 {
		fmt.Fprintf(&b, "- **Languages:** %s\n", strings.Join(v.Languages, ", "))
	}
	switch {
	case v.ScanSkipped:
		b.WriteString("- **CodeQL scan:** skipped\n")
	case v.RunURL != "":
		fmt.Fprintf(&b, "- **CodeQL scan:** %s ([run %d](%s))\n", v.ScanState, v.RunID, v.RunURL)
	case v.ScanState != "":
		fmt.Fprintf(&b, "- **CodeQL scan:** %s\n", v.ScanState)
	}
	if v.Message != "" {
		fmt.Fprintf(&b, "\n> %s\n", v.Message)
	}

	if len(v.Blocking) > 0 {
		b.WriteString("\n## Blocking alerts\n\n")
		b.WriteString("| Source | # | Severity | Subject |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, a := range v.Blocking {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", a.Source, alertLink(a), a.Severity, escapeCell(a.Subject))
		}
	}

	if len(r.Steps) > 0 {
		b.WriteString("\n## Steps\n\n")
		b.WriteString("| Step | Action | Status | Detail |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, st := range r.Steps {
			detail := normalizeReason(st.Message)
			if st.HTTPStatus != 0 {
				detail = strings.TrimSpace(fmt.Sprintf("%d %s", st.HTTPStatus, detail))
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", st.Name, st.Action, st.Status, escapeCell(detail))
		}
	}
	return b.String()
}

func alertLink(a alerts.Alert) string {
	if a.URL == "" {
		return fmt.Sprintf("%d", a.Number)
	}
	return fmt.Sprintf("[%d](%s)", a.Number, a.URL)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

// normalizeReason collapses whitespace and truncates long failure text so a
// table row stays on one line.
func normalizeReason(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 120 {
		return s[:117] + "..."
	}
	return s
}
