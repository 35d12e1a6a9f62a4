// Package workflow injects the CodeQL scanning workflow into the working
// repository.
package workflow

import (
	"context"
	"fmt"

	"forkcheck/internal/actions"

	"github.com/sirupsen/logrus"
)

const (
	DefaultFile          = "codeql-analysis-check.yml"
	DefaultCommitMessage = "Inject codeql workflow"
)

// Path is where a workflow file lives inside a repository.
func Path(file string) string {
	return ".github/workflows/" + file
}

type Outcome string

const (
	OutcomePublished   Outcome = "published"
	OutcomeNoLanguages Outcome = "no-languages"
	OutcomeFailed      Outcome = "failed"
)

type Result struct {
	Outcome   Outcome
	Languages LanguageSet
	Path      string
	Reason    string
}

type Options struct {
	// Template is the raw workflow template with one Placeholder.
	Template string
	// Supported filters detected languages. Empty disables filtering.
	Supported []string
	File      string
	Message   string
	// Branch to commit to; empty means the repository default branch.
	Branch string
}

type Injector struct {
	inv  *actions.Invoker
	opts Options
	log  logrus.FieldLogger
}

func NewInjector(inv *actions.Invoker, opts Options, log logrus.FieldLogger) *Injector {
	if opts.File == "" {
		opts.File = DefaultFile
	}
	if opts.Message == "" {
		opts.Message = DefaultCommitMessage
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Injector{inv: inv, opts: opts, log: log}
}

// Inject detects languages, renders the template and publishes it. An empty
// language set after filtering is OutcomeNoLanguages and publishes nothing.
// Lookup and publish failures are contained and reported as OutcomeFailed.
func (i *Injector) Inject(ctx context.Context) Result {
	path := Path(i.opts.File)

	detected, ok := actions.Invoke(ctx, i.inv, actions.ListLanguages{}).Get()
	if !ok {
		return Result{Outcome: OutcomeFailed, Path: path, Reason: "could not list repository languages"}
	}

	all := FromBytes(detected)
	langs := all.Filter(i.opts.Supported)
	i.log.WithFields(logrus.Fields{
		"detected":  []string(all),
		"supported": []string(langs),
	}).Info("detected languages")

	if len(langs) == 0 {
		i.log.Info("no supported languages for CodeQL")
		return Result{Outcome: OutcomeNoLanguages, Path: path}
	}

	content, err := Render(i.opts.Template, langs)
	if err != nil {
		i.log.WithError(err).Warn("workflow template rejected")
		return Result{Outcome: OutcomeFailed, Languages: langs, Path: path, Reason: err.Error()}
	}

	// A fork may already carry the file from its parent; updating requires
	// the current blob SHA. A missing file is the normal case.
	var sha string
	existing := actions.Invoke(ctx, i.inv, actions.GetFile{Path: path, Ref: i.opts.Branch})
	if file, ok := existing.Get(); ok && file != nil {
		sha = file.GetSHA()
	}

	put := actions.Invoke(ctx, i.inv, actions.PutFile{
		Path:    path,
		Message: i.opts.Message,
		Content: []byte(content),
		Branch:  i.opts.Branch,
		SHA:     sha,
	})
	if !put.OK() {
		return Result{
			Outcome:   OutcomeFailed,
			Languages: langs,
			Path:      path,
			Reason:    fmt.Sprintf("publish %s: %s", path, put.Failure.Message),
		}
	}

	i.log.WithField("path", path).Info("workflow file published")
	return Result{Outcome: OutcomePublished, Languages: langs, Path: path}
}
