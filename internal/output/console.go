package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"forkcheck/internal/alerts"

	"github.com/fatih/color"
)

// ConsoleSink prints human-readable progress in text format, or the same
// structured output as EmitSink in json and ndjson formats.
type ConsoleSink struct {
	writer io.Writer
	format string // "text", "json", "ndjson"
	mu     sync.Mutex
	s      *stream
}

func NewConsoleSink(w io.Writer, format string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}
	cs := &ConsoleSink{writer: w, format: format}
	if format != "text" {
		// An unknown format leaves s nil and fails on first use.
		cs.s, _ = newStream(w, format)
	}
	return cs
}

var (
	okColor      = color.New(color.FgGreen)
	failedColor  = color.New(color.FgRed)
	skippedColor = color.New(color.FgYellow)
	mergeColor   = color.New(color.FgGreen, color.Bold)
	manualColor  = color.New(color.FgRed, color.Bold)
)

func statusColor(s StepStatus) *color.Color {
	switch s {
	case StepOK:
		return okColor
	case StepFailed:
		return failedColor
	default:
		return skippedColor
	}
}

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.format == "text":
		if err := s.writeText(v); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	case s.s != nil:
		return s.s.write(v)
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

func (s *ConsoleSink) writeText(v any) error {
	switch t := v.(type) {
	case Step:
		if _, err := statusColor(t.Status).Fprintf(s.writer, "[%s]", t.Status); err != nil {
			return err
		}
		line := " " + t.Name
		if t.Action != "" {
			line += ": " + t.Action
		}
		if t.HTTPStatus != 0 {
			line += fmt.Sprintf(" (%d)", t.HTTPStatus)
		}
		if t.Message != "" {
			line += " - " + t.Message
		}
		_, err := fmt.Fprintln(s.writer, line)
		return err
	case Verdict:
		c := manualColor
		if t.CanMerge == alerts.DecisionUpdateFork {
			c = mergeColor
		}
		if _, err := fmt.Fprintf(s.writer, "%s: can-merge=", t.Repo); err != nil {
			return err
		}
		if _, err := c.Fprintln(s.writer, t.CanMerge); err != nil {
			return err
		}
		if t.Message != "" {
			if _, err := fmt.Fprintf(s.writer, "  %s\n", t.Message); err != nil {
				return err
			}
		}
		for _, a := range t.Blocking {
			if _, err := fmt.Fprintf(s.writer, "  - %s %s #%d %s\n", a.Severity, a.Source, a.Number, a.Subject); err != nil {
				return err
			}
		}
		return nil
	default:
		// Lifecycle events carry nothing a reader needs in text mode.
		return nil
	}
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.format == "text":
		return nil
	case s.s != nil:
		return s.s.finish()
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}
