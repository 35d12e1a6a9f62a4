package output

import "forkcheck/internal/alerts"

func sampleVerdict() Verdict {
	return Verdict{
		Repo:      "fork-org/widgets",
		Source:    "upstream/widgets",
		CanMerge:  alerts.DecisionNeedsManualCheck,
		Message:   alerts.MessageBlocking,
		Languages: []string{"Go"},
		ScanState: "completed",
		RunID:     42,
		RunURL:    "https://github.com/fork-org/widgets/actions/runs/42",
		Blocking: []alerts.Alert{
			{Source: alerts.SourceDependabot, Number: 3, Severity: alerts.SeverityCritical, Subject: "lodash", URL: "https://github.com/fork-org/widgets/security/dependabot/3"},
		},
	}
}

func sampleSteps() []Step {
	return []Step{
		{Name: "cleanup", Action: "delete-repo", Status: StepSkipped, HTTPStatus: 404, Message: "not-found (404 Not Found): Not Found"},
		{Name: "fork", Action: "create-fork", Status: StepOK, HTTPStatus: 202},
		{Name: "inject", Action: "put-file", Status: StepOK, Message: "languages: Go"},
	}
}
