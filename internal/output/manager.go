package output

import (
	"errors"
	"fmt"
)

// Sink is a destination for run records: Step, Verdict and Event values.
// Sinks ignore value types they do not render.
type Sink interface {
	Write(v any) error
	Close() error
}

var errNilManager = errors.New("output manager is nil")

// Manager fans every record out to all sinks. A failing sink does not stop
// the others from receiving the record.
type Manager struct {
	sinks []Sink
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) AddSink(s Sink) error {
	if m == nil {
		return errNilManager
	}
	if s == nil {
		return errors.New("sink must not be nil")
	}
	m.sinks = append(m.sinks, s)
	return nil
}

func (m *Manager) Len() int {
	if m == nil {
		return 0
	}
	return len(m.sinks)
}

func (m *Manager) Write(v any) error {
	return m.each("writing to", func(s Sink) error { return s.Write(v) })
}

func (m *Manager) Close() error {
	return m.each("closing", Sink.Close)
}

func (m *Manager) each(verb string, fn func(Sink) error) error {
	if m == nil {
		return errNilManager
	}
	var errs []error
	for _, s := range m.sinks {
		if err := fn(s); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", s, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors %s sinks: %w", verb, errors.Join(errs...))
	}
	return nil
}
