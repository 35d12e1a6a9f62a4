package actions

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/google/go-github/v81/github"
)

type FailureKind string

const (
	FailureNotFound     FailureKind = "not-found"
	FailureUnauthorized FailureKind = "unauthorized"
	FailureForbidden    FailureKind = "forbidden"
	FailureRateLimited  FailureKind = "rate-limited"
	FailureNetwork      FailureKind = "network"
	FailureCanceled     FailureKind = "canceled"
	FailureRejected     FailureKind = "rejected"
	FailureOther        FailureKind = "other"
)

// Failure is the log-safe description of a failed remote action.
type Failure struct {
	Kind       FailureKind
	StatusCode int
	Message    string
}

func (f Failure) String() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("%s (%d %s): %s", f.Kind, f.StatusCode, http.StatusText(f.StatusCode), f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// describeFailure classifies err and produces a message that never carries
// the full request URL.
func describeFailure(err error) Failure {
	if err == nil {
		return Failure{Kind: FailureOther, Message: "unknown error"}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Failure{Kind: FailureCanceled, Message: err.Error()}
	}

	var limited *github.RateLimitError
	if errors.As(err, &limited) {
		f := Failure{Kind: FailureRateLimited, Message: strings.TrimSpace(limited.Message)}
		if limited.Response != nil {
			f.StatusCode = limited.Response.StatusCode
		}
		if f.Message == "" {
			f.Message = "GitHub API rate limit exceeded"
		}
		return f
	}

	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		f := Failure{Kind: FailureRateLimited, Message: strings.TrimSpace(abuse.Message)}
		if abuse.Response != nil {
			f.StatusCode = abuse.Response.StatusCode
		}
		if f.Message == "" {
			f.Message = "GitHub API secondary rate limit exceeded"
		}
		return f
	}

	var er *github.ErrorResponse
	if errors.As(err, &er) {
		f := Failure{Kind: FailureOther, Message: strings.TrimSpace(er.Message)}
		if er.Response != nil {
			f.StatusCode = er.Response.StatusCode
		}
		switch f.StatusCode {
		case http.StatusNotFound:
			f.Kind = FailureNotFound
		case http.StatusUnauthorized:
			f.Kind = FailureUnauthorized
		case http.StatusForbidden:
			f.Kind = FailureForbidden
		case http.StatusUnprocessableEntity, http.StatusConflict:
			f.Kind = FailureRejected
		}
		if f.Message == "" {
			f.Message = "GitHub API request failed"
		}
		return f
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Failure{Kind: FailureNetwork, Message: scrubRequest(err.Error())}
	}

	return Failure{Kind: FailureOther, Message: scrubRequest(err.Error())}
}

// scrubRequest drops the leading "GET https://...: " part of go-github and
// net/http error strings.
func scrubRequest(s string) string {
	s = strings.TrimSpace(s)
	for _, m := range []string{"GET ", "POST ", "PUT ", "PATCH ", "DELETE "} {
		if !strings.HasPrefix(s, m) {
			continue
		}
		if i := strings.Index(s, "https://"); i >= 0 {
			if j := strings.Index(s[i:], ": "); j >= 0 {
				return strings.TrimSpace(s[i+j+2:])
			}
		}
		if j := strings.Index(s, ": "); j >= 0 {
			return strings.TrimSpace(s[j+2:])
		}
		break
	}
	// net/http wraps transport errors as: Get "https://...": dial tcp ...
	if i := strings.Index(s, "\": "); i >= 0 && strings.Contains(s[:i], "://") {
		return strings.TrimSpace(s[i+3:])
	}
	if s == "" {
		return "GitHub API request failed"
	}
	return s
}
