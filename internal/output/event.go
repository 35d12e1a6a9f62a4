package output

import "forkcheck/internal/alerts"

type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// Step is the record of one stage of a run (fork, inject, poll, ...).
type Step struct {
	Name       string     `json:"step"`
	Action     string     `json:"action,omitempty"`
	Status     StepStatus `json:"status"`
	HTTPStatus int        `json:"http_status,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// Verdict is the final merge decision for a target repository.
type Verdict struct {
	Repo        string          `json:"repo"`
	Source      string          `json:"source"`
	CanMerge    alerts.Decision `json:"can_merge"`
	Message     string          `json:"message,omitempty"`
	Languages   []string        `json:"languages,omitempty"`
	ScanState   string          `json:"scan_state,omitempty"`
	ScanSkipped bool            `json:"scan_skipped"`
	RunID       int64           `json:"run_id,omitempty"`
	RunURL      string          `json:"run_url,omitempty"`
	Blocking    []alerts.Alert  `json:"blocking,omitempty"`
}

// Event is a lifecycle record for NDJSON streaming output:
// run.started, step.finished, run.decided and run.finished.
type Event struct {
	Type string `json:"type"`
	Repo string `json:"repo,omitempty"`
	*Step
	Verdict  *Verdict `json:"verdict,omitempty"`
	ExitCode int      `json:"exit_code,omitempty"`
}

func eventFrom(v any) (Event, bool) {
	switch t := v.(type) {
	case Event:
		return t, true
	case Step:
		return Event{Type: "step.finished", Step: &t}, true
	case Verdict:
		return Event{Type: "run.decided", Repo: t.Repo, Verdict: &t}, true
	default:
		return Event{}, false
	}
}

// Record is the aggregate of one run, written by the JSON formats.
type Record struct {
	Repo     string   `json:"repo,omitempty"`
	Steps    []Step   `json:"steps"`
	Verdict  *Verdict `json:"verdict,omitempty"`
	ExitCode int      `json:"exit_code"`
}

func (r *Record) add(v any) {
	switch t := v.(type) {
	case Step:
		r.Steps = append(r.Steps, t)
	case Verdict:
		r.Verdict = &t
		r.Repo = t.Repo
	case Event:
		if t.Repo != "" && r.Repo == "" {
			r.Repo = t.Repo
		}
		if t.Type == "run.finished" {
			r.ExitCode = t.ExitCode
		}
	}
}
