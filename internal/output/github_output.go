package output

import (
	"fmt"
	"os"
	"sync"
)

// GitHubOutputSink appends step outputs to the file GitHub Actions names in
// $GITHUB_OUTPUT, one key=value per line. Only the Verdict is written.
type GitHubOutputSink struct {
	path string
	file *os.File
	mu   sync.Mutex
}

func NewGitHubOutputSink(path string) (*GitHubOutputSink, error) {
	if path == "" {
		return nil, fmt.Errorf("github output path required")
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open github output file: %w", err)
	}
	return &GitHubOutputSink{path: path, file: f}, nil
}

func (s *GitHubOutputSink) Write(v any) error {
	verdict, ok := v.(Verdict)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.file, "can-merge=%s\nscan-skipped=%t\n", verdict.CanMerge, verdict.ScanSkipped)
	return err
}

func (s *GitHubOutputSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
