package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileSink persists the run to --out. ndjson lines land on disk as each
// step finishes, so a killed run still leaves a partial log.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
	s    *stream
}

// InferFormat picks json or ndjson from the file extension when format is
// empty.
func InferFormat(path, format string) (string, error) {
	if format != "" {
		return format, nil
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return FormatJSON, nil
	case ".ndjson", ".jsonl":
		return FormatNDJSON, nil
	default:
		return "", fmt.Errorf("cannot infer output format from file extension %q", ext)
	}
}

func NewFileSink(path string, format string) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("output path required")
	}
	format, err := InferFormat(path, format)
	if err != nil {
		return nil, err
	}
	if format != FormatJSON && format != FormatNDJSON {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	f, err := createWithDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	s, err := newStream(f, format)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &FileSink{file: f, s: s}, nil
}

func createWithDir(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}

func (fs *FileSink) Write(v any) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.s.write(v)
}

func (fs *FileSink) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	err := fs.s.finish()
	if closeErr := fs.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
