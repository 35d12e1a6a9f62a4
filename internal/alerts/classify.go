package alerts

import (
	"fmt"
	"sort"
	"strings"
)

type Decision string

const (
	DecisionUpdateFork       Decision = "update-fork"
	DecisionNeedsManualCheck Decision = "needs-manual-check"
)

const (
	MessageBlocking      = "Blocking CodeQL scan and/or Dependabot alerts"
	MessageNoAlertsFound = "No CodeQL scan or Dependabot alerts found"
	MessageFeedMissing   = "Could not retrieve all alert feeds"
)

// Outcome is the merge decision plus the explanation a human reviewer sees.
// Message is empty only for a clean UpdateFork.
type Outcome struct {
	Decision Decision `json:"decision"`
	Message  string   `json:"message,omitempty"`
	Blocking []Alert  `json:"blocking,omitempty"`
}

func IsBlocking(a Alert) bool {
	return a.Severity == SeverityCritical || a.Severity == SeverityHigh
}

// Blocking returns every blocking alert across feeds, ordered by source,
// severity and number so the result does not depend on feed order.
func Blocking(feeds ...Feed) []Alert {
	var out []Alert
	for _, f := range feeds {
		for _, a := range f.Alerts {
			if IsBlocking(a) {
				out = append(out, a)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		if out[i].Severity != out[j].Severity {
			return out[i].Severity == SeverityCritical
		}
		return out[i].Number < out[j].Number
	})
	return out
}

type Options struct {
	// RequireAllFeeds treats any consulted feed that could not be read as a
	// reason for manual review. When false only the case where no feed at
	// all was read is conservative.
	RequireAllFeeds bool
}

// Classify decides on the consulted feeds. It never returns UpdateFork when
// no feed was retrieved.
func Classify(opts Options, feeds ...Feed) Outcome {
	var missing []string
	retrieved := 0
	for _, f := range feeds {
		if f.Retrieved {
			retrieved++
			continue
		}
		missing = append(missing, string(f.Source))
	}

	if retrieved == 0 {
		return Outcome{Decision: DecisionNeedsManualCheck, Message: MessageNoAlertsFound}
	}

	if blocking := Blocking(feeds...); len(blocking) > 0 {
		return Outcome{
			Decision: DecisionNeedsManualCheck,
			Message:  MessageBlocking,
			Blocking: blocking,
		}
	}

	if opts.RequireAllFeeds && len(missing) > 0 {
		sort.Strings(missing)
		return Outcome{
			Decision: DecisionNeedsManualCheck,
			Message:  fmt.Sprintf("%s (%s)", MessageFeedMissing, strings.Join(missing, ", ")),
		}
	}

	return Outcome{Decision: DecisionUpdateFork}
}

// Summary renders the outcome as Markdown for the tracking issue.
func (o Outcome) Summary() string {
	if o.Message == "" {
		return ""
	}
	if len(o.Blocking) == 0 {
		return o.Message
	}
	var b strings.Builder
	b.WriteString(o.Message)
	b.WriteString("\n")
	for _, a := range o.Blocking {
		fmt.Fprintf(&b, "\n- **%s** %s", a.Severity, a.Source)
		if a.Number != 0 {
			fmt.Fprintf(&b, " #%d", a.Number)
		}
		if a.Subject != "" {
			fmt.Fprintf(&b, " `%s`", a.Subject)
		}
		if a.URL != "" {
			fmt.Fprintf(&b, " (%s)", a.URL)
		}
	}
	return b.String()
}
