package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"forkcheck/internal/alerts"
)

func TestMarkdownReportContract(t *testing.T) {
	reportPath := filepath.Join(t.TempDir(), "forkcheck-report.md")

	s, err := NewReportSink(reportPath)
	if err != nil {
		t.Fatalf("NewReportSink failed: %v", err)
	}

	for _, st := range sampleSteps() {
		_ = s.Write(st)
	}
	long := Step{Name: "alerts", Action: "enable-vulnerability-alerts", Status: StepFailed, Message: "forbidden:  " + strings.Repeat("x", 200) + " | tail"}
	_ = s.Write(long)
	_ = s.Write(sampleVerdict())
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	b, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	out := string(b)

	for _, want := range []string{
		"# Fork Check Report",
		"- **Fork:** `fork-org/widgets`",
		"- **Source:** `upstream/widgets`",
		"- **can-merge:** `needs-manual-check`",
		"- **Languages:** Go",
		"- **CodeQL scan:** completed ([run 42](https://github.com/fork-org/widgets/actions/runs/42))",
		"> " + alerts.MessageBlocking,
		"## Blocking alerts",
		"| dependabot | [3](https://github.com/fork-org/widgets/security/dependabot/3) | critical | lodash |",
		"## Steps",
		"| cleanup | delete-repo | skipped | 404 not-found (404 Not Found): Not Found |",
		"| fork | create-fork | ok | 202 |",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "...") {
		t.Fatalf("expected long step message to be truncated:\n%s", out)
	}
}

func TestMarkdownReport_ScanSkippedAndClean(t *testing.T) {
	out := renderReport(Record{Verdict: &Verdict{
		Repo:        "fork-org/widgets",
		CanMerge:    alerts.DecisionUpdateFork,
		ScanSkipped: true,
	}})
	if !strings.Contains(out, "- **CodeQL scan:** skipped") {
		t.Fatalf("expected skipped scan line:\n%s", out)
	}
	if strings.Contains(out, "## Blocking alerts") || strings.Contains(out, "> ") {
		t.Fatalf("clean verdict must not render alerts or a message:\n%s", out)
	}
}

func TestMarkdownReport_NoVerdict(t *testing.T) {
	out := renderReport(Record{Steps: sampleSteps()})
	if !strings.Contains(out, "ended before a decision") {
		t.Fatalf("unexpected report:\n%s", out)
	}
}

func TestNewReportSink_RequiresPath(t *testing.T) {
	if _, err := NewReportSink(""); err == nil {
		t.Fatalf("expected error, got nil")
	}
}
