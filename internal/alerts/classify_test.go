package alerts

import (
	"reflect"
	"strings"
	"testing"

	"github.com/google/go-github/v81/github"
)

func codeScanning(severities ...string) []*github.Alert {
	out := make([]*github.Alert, 0, len(severities))
	for i, s := range severities {
		out = append(out, &github.Alert{
			Number: github.Ptr(i + 1),
			Rule:   &github.Rule{ID: github.Ptr("go/rule"), SecuritySeverityLevel: github.Ptr(s)},
		})
	}
	return out
}

func dependabot(severities ...string) []*github.DependabotAlert {
	out := make([]*github.DependabotAlert, 0, len(severities))
	for i, s := range severities {
		out = append(out, &github.DependabotAlert{
			Number:           github.Ptr(i + 1),
			SecurityAdvisory: &github.DependabotSecurityAdvisory{Severity: github.Ptr(s)},
		})
	}
	return out
}

func TestParseSeverity(t *testing.T) {
	tests := map[string]Severity{
		"critical": SeverityCritical,
		"HIGH":     SeverityHigh,
		" medium ": SeverityMedium,
		"moderate": SeverityMedium,
		"low":      SeverityLow,
		"none":     SeverityNone,
		"":         SeverityNone,
		"warning":  SeverityNone,
	}
	for raw, want := range tests {
		if got := ParseSeverity(raw); got != want {
			t.Errorf("ParseSeverity(%q): want %q, got %q", raw, want, got)
		}
	}
}

func TestIsBlocking_EitherFeed(t *testing.T) {
	for _, s := range []string{"critical", "high"} {
		t.Run(s, func(t *testing.T) {
			cs := CodeScanningFeed(codeScanning(s), true)
			dep := DependabotFeed(dependabot(s), true)
			if len(Blocking(cs)) != 1 {
				t.Fatalf("code scanning %s should block", s)
			}
			if len(Blocking(dep)) != 1 {
				t.Fatalf("dependabot %s should block", s)
			}
		})
	}
	for _, s := range []string{"medium", "low", "none"} {
		t.Run(s, func(t *testing.T) {
			cs := CodeScanningFeed(codeScanning(s), true)
			dep := DependabotFeed(dependabot(s), true)
			if got := Blocking(cs, dep); len(got) != 0 {
				t.Fatalf("%s should not block, got %v", s, got)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	strict := Options{RequireAllFeeds: true}
	lenient := Options{}

	tests := []struct {
		name         string
		opts         Options
		feeds        []Feed
		wantDecision Decision
		wantMessage  string
		wantBlocking int
	}{
		{
			name:         "both feeds absent",
			opts:         lenient,
			feeds:        []Feed{CodeScanningFeed(nil, false), DependabotFeed(nil, false)},
			wantDecision: DecisionNeedsManualCheck,
			wantMessage:  MessageNoAlertsFound,
		},
		{
			name:         "both feeds absent strict",
			opts:         strict,
			feeds:        []Feed{CodeScanningFeed(nil, false), DependabotFeed(nil, false)},
			wantDecision: DecisionNeedsManualCheck,
			wantMessage:  MessageNoAlertsFound,
		},
		{
			name:         "no feeds consulted",
			opts:         strict,
			wantDecision: DecisionNeedsManualCheck,
			wantMessage:  MessageNoAlertsFound,
		},
		{
			name:         "high code scanning alert blocks",
			opts:         strict,
			feeds:        []Feed{CodeScanningFeed(codeScanning("high"), true), DependabotFeed(nil, true)},
			wantDecision: DecisionNeedsManualCheck,
			wantMessage:  MessageBlocking,
			wantBlocking: 1,
		},
		{
			name:         "low code scanning alert passes",
			opts:         strict,
			feeds:        []Feed{CodeScanningFeed(codeScanning("low"), true), DependabotFeed(nil, true)},
			wantDecision: DecisionUpdateFork,
		},
		{
			name:         "critical dependabot alert blocks with empty code scanning",
			opts:         strict,
			feeds:        []Feed{CodeScanningFeed(nil, true), DependabotFeed(dependabot("critical"), true)},
			wantDecision: DecisionNeedsManualCheck,
			wantMessage:  MessageBlocking,
			wantBlocking: 1,
		},
		{
			name:         "one feed absent lenient passes",
			opts:         lenient,
			feeds:        []Feed{CodeScanningFeed(nil, false), DependabotFeed(dependabot("low"), true)},
			wantDecision: DecisionUpdateFork,
		},
		{
			name:         "one feed absent strict needs review",
			opts:         strict,
			feeds:        []Feed{CodeScanningFeed(nil, false), DependabotFeed(dependabot("low"), true)},
			wantDecision: DecisionNeedsManualCheck,
			wantMessage:  MessageFeedMissing + " (code-scanning)",
		},
		{
			name:         "blocking wins over missing feed",
			opts:         strict,
			feeds:        []Feed{CodeScanningFeed(nil, false), DependabotFeed(dependabot("high", "low", "critical"), true)},
			wantDecision: DecisionNeedsManualCheck,
			wantMessage:  MessageBlocking,
			wantBlocking: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.opts, tt.feeds...)
			if got.Decision != tt.wantDecision {
				t.Fatalf("decision: want %q, got %q", tt.wantDecision, got.Decision)
			}
			if got.Message != tt.wantMessage {
				t.Fatalf("message: want %q, got %q", tt.wantMessage, got.Message)
			}
			if len(got.Blocking) != tt.wantBlocking {
				t.Fatalf("blocking: want %d, got %d", tt.wantBlocking, len(got.Blocking))
			}
		})
	}
}

func TestClassify_OrderIndependent(t *testing.T) {
	base := []string{"low", "high", "medium", "critical", "none"}
	permutations := [][]string{
		{"low", "high", "medium", "critical", "none"},
		{"none", "critical", "medium", "high", "low"},
		{"critical", "low", "none", "high", "medium"},
	}

	want := Classify(Options{RequireAllFeeds: true},
		CodeScanningFeed(codeScanning(base...), true),
		DependabotFeed(dependabot(base...), true),
	)
	for _, p := range permutations {
		a := Classify(Options{RequireAllFeeds: true},
			CodeScanningFeed(codeScanning(p...), true),
			DependabotFeed(dependabot(p...), true),
		)
		b := Classify(Options{RequireAllFeeds: true},
			DependabotFeed(dependabot(p...), true),
			CodeScanningFeed(codeScanning(p...), true),
		)
		if a.Decision != want.Decision || b.Decision != want.Decision {
			t.Fatalf("decision changed under permutation %v", p)
		}
		if len(a.Blocking) != len(want.Blocking) || len(b.Blocking) != len(want.Blocking) {
			t.Fatalf("blocking count changed under permutation %v", p)
		}
		sev := func(o Outcome) []Severity {
			var out []Severity
			for _, x := range o.Blocking {
				out = append(out, x.Severity)
			}
			return out
		}
		if !reflect.DeepEqual(sev(a), sev(b)) {
			t.Fatalf("blocking order depends on feed order: %v vs %v", sev(a), sev(b))
		}
	}
}

func TestFeeds_SkipNilEntries(t *testing.T) {
	cs := CodeScanningFeed([]*github.Alert{nil, {Rule: &github.Rule{SecuritySeverityLevel: github.Ptr("high")}}}, true)
	if len(cs.Alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(cs.Alerts))
	}
	dep := DependabotFeed([]*github.DependabotAlert{nil}, true)
	if len(dep.Alerts) != 0 || !dep.Retrieved {
		t.Fatalf("unexpected feed %+v", dep)
	}
}

func TestOutcome_Summary(t *testing.T) {
	if got := (Outcome{Decision: DecisionUpdateFork}).Summary(); got != "" {
		t.Fatalf("expected empty summary, got %q", got)
	}

	o := Classify(Options{}, DependabotFeed([]*github.DependabotAlert{{
		Number:           github.Ptr(7),
		HTMLURL:          github.Ptr("https://github.com/o/r/security/dependabot/7"),
		SecurityAdvisory: &github.DependabotSecurityAdvisory{Severity: github.Ptr("critical")},
		Dependency:       &github.Dependency{Package: &github.VulnerabilityPackage{Name: github.Ptr("lodash")}},
	}}, true))
	s := o.Summary()
	for _, want := range []string{MessageBlocking, "**critical** dependabot #7", "`lodash`", "security/dependabot/7"} {
		if !strings.Contains(s, want) {
			t.Fatalf("summary missing %q: %q", want, s)
		}
	}
}
