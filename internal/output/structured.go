package output

import (
	"encoding/json"
	"fmt"
	"io"
)

const (
	FormatJSON   = "json"
	FormatNDJSON = "ndjson"
)

type flusher interface {
	Flush() error
}

func flushIfPossible(w io.Writer) error {
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// stream renders records as JSON. In json format the run is folded into one
// Record written by finish; in ndjson format every record becomes an Event
// line as soon as it is written. Callers serialize access.
type stream struct {
	w      io.Writer
	format string
	record Record
}

func newStream(w io.Writer, format string) (*stream, error) {
	if format != FormatJSON && format != FormatNDJSON {
		return nil, fmt.Errorf("unsupported structured format: %s", format)
	}
	return &stream{w: w, format: format}, nil
}

func (s *stream) write(v any) error {
	if s.format == FormatJSON {
		s.record.add(v)
		return nil
	}
	e, ok := eventFrom(v)
	if !ok {
		return nil
	}
	if err := json.NewEncoder(s.w).Encode(e); err != nil {
		return err
	}
	return flushIfPossible(s.w)
}

func (s *stream) finish() error {
	if s.format != FormatJSON {
		return nil
	}
	enc := json.NewEncoder(s.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.record); err != nil {
		return err
	}
	return flushIfPossible(s.w)
}
