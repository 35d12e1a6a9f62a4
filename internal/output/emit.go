package output

import (
	"fmt"
	"io"
	"sync"
)

// EmitSink writes an additional structured stream, usually to stdout next
// to the text console. json writes one Record on Close; ndjson streams
// Event lines.
type EmitSink struct {
	mu sync.Mutex
	s  *stream
}

func NewEmitSink(w io.Writer, format string) (*EmitSink, error) {
	if w == nil {
		return nil, fmt.Errorf("emit sink writer must not be nil")
	}
	s, err := newStream(w, format)
	if err != nil {
		return nil, fmt.Errorf("emit sink: %w", err)
	}
	return &EmitSink{s: s}, nil
}

func (e *EmitSink) Write(v any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.write(v)
}

func (e *EmitSink) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.finish()
}
