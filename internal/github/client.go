package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/go-github/v81/github"
	"golang.org/x/oauth2"
)

const userAgent = "forkcheck"

type Client struct {
	Client *github.Client
	HTTP   *http.Client
}

type options struct {
	verbose bool
	// writer receives verbose HTTP lines (stderr by default) so the
	// machine-readable output on stdout stays clean.
	writer     io.Writer
	enterprise string
}

type Option func(*options)

func WithVerbose(enabled bool, writer io.Writer) Option {
	return func(o *options) {
		o.verbose = enabled
		o.writer = writer
	}
}

// WithEnterpriseURL points the client at a GitHub Enterprise Server host
// (https://<host>/ or https://<host>/api/v3/). Empty keeps github.com.
func WithEnterpriseURL(raw string) Option {
	return func(o *options) {
		o.enterprise = strings.TrimSpace(raw)
	}
}

// loggingRoundTripper emits one line per request and response (including
// latency) when verbose logging is enabled.
type loggingRoundTripper struct {
	base http.RoundTripper
	w    io.Writer
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	if t.w != nil {
		_, _ = fmt.Fprintf(t.w, "[verbose] github api: %s %s\n", req.Method, req.URL.String())
	}
	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start)
	if t.w != nil {
		if err != nil {
			_, _ = fmt.Fprintf(t.w, "[verbose] github api: error after %s: %v\n", dur.Truncate(time.Millisecond), err)
		} else {
			_, _ = fmt.Fprintf(t.w, "[verbose] github api: %d %s (%s)\n", resp.StatusCode, http.StatusText(resp.StatusCode), dur.Truncate(time.Millisecond))
		}
	}
	return resp, err
}

// NewClient builds a REST client authenticated with token. Repository
// operations and tracking-issue comments use two separate clients, one per
// credential.
func NewClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	if ctx == nil {
		return nil, fmt.Errorf("github client: ctx is nil")
	}

	o := &options{}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}
	if o.verbose && o.writer == nil {
		o.writer = os.Stderr
	}

	transport := http.DefaultTransport
	if o.verbose {
		transport = &loggingRoundTripper{base: transport, w: o.writer}
	}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}
	tc := &http.Client{Transport: transport}

	gc := github.NewClient(tc)
	gc.UserAgent = userAgent
	if o.enterprise != "" {
		var err error
		gc, err = gc.WithEnterpriseURLs(o.enterprise, o.enterprise)
		if err != nil {
			return nil, fmt.Errorf("github client: enterprise url: %w", err)
		}
	}

	return &Client{
		Client: gc,
		HTTP:   tc,
	}, nil
}
