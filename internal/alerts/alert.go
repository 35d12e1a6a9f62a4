// Package alerts reduces code scanning and Dependabot findings to a single
// severity scale and decides whether a fork may be updated.
package alerts

import (
	"strings"

	"github.com/google/go-github/v81/github"
)

type Source string

const (
	SourceCodeScanning Source = "code-scanning"
	SourceDependabot   Source = "dependabot"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityNone     Severity = "none"
)

// ParseSeverity normalizes GitHub's severity strings. Unknown or empty
// values map to SeverityNone. Dependabot reports "moderate" where code
// scanning says "medium".
func ParseSeverity(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium", "moderate":
		return SeverityMedium
	case "low":
		return SeverityLow
	default:
		return SeverityNone
	}
}

// Alert is one finding from either feed.
type Alert struct {
	Source   Source   `json:"source"`
	Number   int      `json:"number,omitempty"`
	Severity Severity `json:"severity"`
	// Subject is the rule id for code scanning and the package name for
	// Dependabot.
	Subject string `json:"subject,omitempty"`
	URL     string `json:"url,omitempty"`
}

func FromCodeScanning(a *github.Alert) Alert {
	return Alert{
		Source:   SourceCodeScanning,
		Number:   a.GetNumber(),
		Severity: ParseSeverity(a.GetRule().GetSecuritySeverityLevel()),
		Subject:  a.GetRule().GetID(),
		URL:      a.GetHTMLURL(),
	}
}

func FromDependabot(a *github.DependabotAlert) Alert {
	return Alert{
		Source:   SourceDependabot,
		Number:   a.GetNumber(),
		Severity: ParseSeverity(a.GetSecurityAdvisory().GetSeverity()),
		Subject:  a.GetDependency().GetPackage().GetName(),
		URL:      a.GetHTMLURL(),
	}
}

// Feed is the outcome of reading one alert source. Retrieved distinguishes
// "read, nothing found" from "could not be read".
type Feed struct {
	Source    Source
	Alerts    []Alert
	Retrieved bool
}

func CodeScanningFeed(raw []*github.Alert, retrieved bool) Feed {
	f := Feed{Source: SourceCodeScanning, Retrieved: retrieved}
	for _, a := range raw {
		if a != nil {
			f.Alerts = append(f.Alerts, FromCodeScanning(a))
		}
	}
	return f
}

func DependabotFeed(raw []*github.DependabotAlert, retrieved bool) Feed {
	f := Feed{Source: SourceDependabot, Retrieved: retrieved}
	for _, a := range raw {
		if a != nil {
			f.Alerts = append(f.Alerts, FromDependabot(a))
		}
	}
	return f
}
