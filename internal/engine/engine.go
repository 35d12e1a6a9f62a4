// Package engine runs the fork check: fork, enable alerting, inject and run
// CodeQL, classify the alerts and report the merge decision.
//
// A run is strictly sequential and single-goroutine. Remote failures never
// abort it; every load-bearing result is checked and an unusable one ends
// the run with needs-manual-check.
package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"forkcheck/internal/actions"
	"forkcheck/internal/alerts"
	"forkcheck/internal/config"
	gh "forkcheck/internal/github"
	"forkcheck/internal/output"
	"forkcheck/internal/pace"
	"forkcheck/internal/scan"
	"forkcheck/internal/workflow"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-github/v81/github"
	"github.com/sirupsen/logrus"
)

const (
	MessageForkFailed      = "Fork creation failed"
	MessageInjectionFailed = "CodeQL scan injection failed"
	MessageScanIncomplete  = "CodeQL scan did not complete"
	MessageInterrupted     = "Run interrupted before a decision"
	MessageForkOwner       = "Fork landed under an unexpected owner"
)

// reportTimeout bounds the tracking comment, which runs even after the run
// context was canceled or timed out.
const reportTimeout = 30 * time.Second

// Exit code contract:
// 0 = update-fork
// 1 = needs-manual-check
// 3 = fatal error (the run did not start)
const (
	ExitUpdateFork       = 0
	ExitNeedsManualCheck = 1
	ExitFatal            = 3
)

func exitCodeFor(d alerts.Decision) int {
	if d == alerts.DecisionUpdateFork {
		return ExitUpdateFork
	}
	return ExitNeedsManualCheck
}

func setupOutputManager(cfg *config.Config) (*output.Manager, error) {
	outMgr := output.NewManager()

	add := func(s output.Sink, err error) error {
		if err != nil {
			return err
		}
		return outMgr.AddSink(s)
	}

	// Console Sink
	if !cfg.Output.NoConsole {
		if err := add(output.NewConsoleSink(nil, cfg.Output.ConsoleFormat), nil); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Emit Sinks (additional structured streams)
	for _, emit := range cfg.Output.Emit {
		if err := add(output.NewEmitSink(os.Stdout, emit)); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	if cfg.Output.Out != "" {
		if err := add(output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	if cfg.Output.Report != "" {
		if err := add(output.NewReportSink(cfg.Output.Report)); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// GitHub Actions step output (can-merge)
	if cfg.Output.GitHubOutput != "" {
		if err := add(output.NewGitHubOutputSink(cfg.Output.GitHubOutput)); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	return outMgr, nil
}

type Engine struct {
	// Client acts on the source and working repositories.
	Client *gh.Client
	// IssueClient posts the tracking comment. Nil disables reporting.
	IssueClient *gh.Client

	Log     logrus.FieldLogger
	Sleeper pace.Sleeper
	// PollTimer drives the scan poller; nil uses a wall clock timer.
	PollTimer backoff.Timer
	Now       func() time.Time

	// outputs is a test seam. If nil, sinks are built from the config.
	outputs func(cfg *config.Config) (*output.Manager, error)
}

func NewEngine(client, issueClient *gh.Client, log logrus.FieldLogger) *Engine {
	return &Engine{
		Client:      client,
		IssueClient: issueClient,
		Log:         log,
		Sleeper:     pace.Real{},
		Now:         time.Now,
	}
}

func (e *Engine) defaults() {
	if e.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		e.Log = l
	}
	if e.Sleeper == nil {
		e.Sleeper = pace.Real{}
	}
	if e.Now == nil {
		e.Now = time.Now
	}
}

// Run executes one fork check and returns the process exit code.
func (e *Engine) Run(ctx context.Context, cfg *config.Config) int {
	e.defaults()

	setup := e.outputs
	if setup == nil {
		setup = setupOutputManager
	}
	outMgr, err := setup(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output sinks: %v\n", err)
		return ExitFatal
	}
	defer outMgr.Close()

	repo := targetOf(cfg).Fork().String()
	_ = outMgr.Write(output.Event{Type: "run.started", Repo: repo})

	verdict := e.Execute(ctx, cfg, outMgr)

	code := exitCodeFor(verdict.CanMerge)
	_ = outMgr.Write(output.Event{Type: "run.finished", Repo: repo, ExitCode: code})
	return code
}

func targetOf(cfg *config.Config) actions.Target {
	return actions.Target{
		SourceOwner:  cfg.Target.SourceOwner,
		WorkingOwner: cfg.Target.WorkingOwner,
		Name:         cfg.Target.Repo,
	}
}

// run carries the state of one Execute call.
type run struct {
	e      *Engine
	cfg    *config.Config
	out    *output.Manager
	log    logrus.FieldLogger
	target actions.Target
	fork   *actions.Invoker

	verdict output.Verdict
	outcome alerts.Outcome
}

// Execute performs the fork check and writes each step and the final
// Verdict to out. It always returns a decision.
func (e *Engine) Execute(ctx context.Context, cfg *config.Config, out *output.Manager) output.Verdict {
	e.defaults()

	target := targetOf(cfg)
	log := e.Log.WithFields(logrus.Fields{"source": target.Source().String(), "fork": target.Fork().String()})

	r := &run{
		e:      e,
		cfg:    cfg,
		out:    out,
		log:    log,
		target: target,
		fork:   actions.NewInvoker(clientOf(e.Client), target.Fork(), actions.NewRequestBudget(), log),
		verdict: output.Verdict{
			Repo:   target.Fork().String(),
			Source: target.Source().String(),
		},
	}

	r.execute(ctx)

	r.verdict.CanMerge = r.outcome.Decision
	r.verdict.Message = r.outcome.Message
	r.verdict.Blocking = r.outcome.Blocking
	log.WithFields(logrus.Fields{
		"can_merge": r.verdict.CanMerge,
		"message":   r.verdict.Message,
	}).Info("decision")
	r.write(r.verdict)

	reportCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()
	e.report(reportCtx, r)
	return r.verdict
}

func clientOf(c *gh.Client) *github.Client {
	if c == nil {
		return nil
	}
	return c.Client
}

func (r *run) manual(message string) {
	r.outcome = alerts.Outcome{Decision: alerts.DecisionNeedsManualCheck, Message: message}
}

func (r *run) write(v any) {
	if r.out == nil {
		return
	}
	if err := r.out.Write(v); err != nil {
		r.log.WithError(err).Warn("output write failed")
	}
}

// wait pauses between steps. It reports false once the context is done.
func (r *run) wait(ctx context.Context, d time.Duration, why string) bool {
	r.log.WithFields(logrus.Fields{"duration": d, "reason": why}).Debug("waiting")
	if err := r.e.Sleeper.Sleep(ctx, d); err != nil {
		r.log.WithError(err).Warn("wait interrupted")
		return false
	}
	return true
}

func (r *run) execute(ctx context.Context) {
	if !r.preflight(ctx) {
		return
	}

	// 1. Remove a stale fork. A missing repository is the normal case.
	del := actions.Invoke(ctx, r.fork, actions.DeleteRepo{})
	r.write(stepOf("cleanup", del, output.StepSkipped))

	// 2. Fork.
	org := r.target.WorkingOwner
	if r.cfg.Target.PersonalFork {
		org = ""
	}
	forked := actions.Invoke(ctx, r.fork, actions.CreateFork{SourceOwner: r.target.SourceOwner, Organization: org})
	branch := ""
	if repo, ok := forked.Get(); ok && repo != nil {
		branch = repo.GetParent().GetDefaultBranch()
		if branch == "" {
			branch = repo.GetDefaultBranch()
		}
	}
	st := stepOf("fork", forked, output.StepFailed)
	if forked.OK() && branch == "" {
		st.Status = output.StepFailed
		st.Message = "fork has no default branch"
	}
	// Every later step addresses WorkingOwner/Name. A personal fork lands
	// under the token's user, which must be the working owner.
	owner := ""
	if repo, ok := forked.Get(); ok && repo != nil {
		owner = repo.GetOwner().GetLogin()
	}
	misplaced := owner != "" && !strings.EqualFold(owner, r.target.WorkingOwner)
	if forked.OK() && misplaced {
		st.Status = output.StepFailed
		st.Message = fmt.Sprintf("fork created under %s, want %s", owner, r.target.WorkingOwner)
	}
	r.write(st)
	if !forked.OK() || branch == "" {
		r.manual(MessageForkFailed)
		return
	}
	if misplaced {
		r.manual(MessageForkOwner)
		return
	}

	// 3. Enable Dependabot alerts (best effort).
	if !r.wait(ctx, r.cfg.Timing.AfterFork, "fork creation") {
		r.manual(MessageInterrupted)
		return
	}
	enabled := actions.Invoke(ctx, r.fork, actions.EnableVulnerabilityAlerts{})
	r.write(stepOf("alerts", enabled, output.StepFailed))

	// 4. Inject the CodeQL workflow.
	if !r.wait(ctx, r.cfg.Timing.AfterAlerts, "alert enablement") {
		r.manual(MessageInterrupted)
		return
	}
	injected := r.inject(ctx)

	// 5. Scan, or fall back to Dependabot alone.
	switch injected.Outcome {
	case workflow.OutcomePublished:
		r.scanAndClassify(ctx, branch)
	default:
		r.dependabotOnly(ctx, injected)
	}
}

func (r *run) inject(ctx context.Context) workflow.Result {
	tmpl, err := workflow.LoadTemplate(r.cfg.Workflow.Template)
	if err != nil {
		r.log.WithError(err).Warn("workflow template unavailable")
		res := workflow.Result{Outcome: workflow.OutcomeFailed, Path: workflow.Path(r.cfg.Workflow.File), Reason: err.Error()}
		r.write(output.Step{Name: "inject", Action: actions.PutFile{}.Name(), Status: output.StepFailed, Message: res.Reason})
		return res
	}

	inj := workflow.NewInjector(r.fork, workflow.Options{
		Template:  tmpl,
		Supported: r.cfg.Workflow.Languages,
		File:      r.cfg.Workflow.File,
		Message:   r.cfg.Workflow.CommitMessage,
	}, r.log)
	res := inj.Inject(ctx)
	r.verdict.Languages = []string(res.Languages)

	st := output.Step{Name: "inject", Action: actions.PutFile{}.Name()}
	switch res.Outcome {
	case workflow.OutcomePublished:
		st.Status = output.StepOK
		st.Message = fmt.Sprintf("%s (%s)", res.Path, strings.Join(res.Languages, ", "))
	case workflow.OutcomeNoLanguages:
		st.Status = output.StepSkipped
		st.Message = "no supported languages for CodeQL"
	default:
		st.Status = output.StepFailed
		st.Message = res.Reason
	}
	r.write(st)
	return res
}

func (r *run) scanAndClassify(ctx context.Context, branch string) {
	if !r.wait(ctx, r.cfg.Timing.BeforeDispatch, "workflow propagation") {
		r.manual(MessageInterrupted)
		return
	}

	dispatchedAt := r.e.Now()
	dispatched := actions.Invoke(ctx, r.fork, actions.DispatchWorkflow{File: r.cfg.Workflow.File, Ref: branch})
	st := stepOf("dispatch", dispatched, output.StepFailed)
	accepted := dispatched.OK() && dispatched.StatusCode == 204
	if dispatched.OK() && !accepted {
		st.Status = output.StepFailed
		st.Message = fmt.Sprintf("dispatch answered %d, want 204", dispatched.StatusCode)
	}
	r.write(st)
	if !accepted {
		r.manual(MessageInjectionFailed)
		return
	}

	if !r.wait(ctx, r.cfg.Timing.BeforePoll, "run start") {
		r.manual(MessageInterrupted)
		return
	}

	poller := scan.NewPoller(r.fork, scan.Options{
		File:        r.cfg.Workflow.File,
		Branch:      branch,
		Interval:    r.cfg.Timing.PollInterval,
		MaxAttempts: r.cfg.Timing.MaxPollAttempts,
		Timer:       r.e.PollTimer,
	}, r.log)
	polled := poller.Wait(ctx, dispatchedAt)
	r.verdict.ScanState = string(polled.State)
	r.verdict.RunID = polled.Run.ID
	r.verdict.RunURL = polled.Run.URL

	pst := output.Step{
		Name:    "scan",
		Action:  actions.GetWorkflowRun{}.Name(),
		Status:  output.StepOK,
		Message: fmt.Sprintf("%s after %d attempts", polled.State, polled.Attempts),
	}
	if polled.Run.Conclusion != "" {
		pst.Message += ", conclusion " + polled.Run.Conclusion
	}
	if !polled.Completed() {
		pst.Status = output.StepFailed
	}
	r.write(pst)
	if !polled.Completed() {
		r.manual(MessageScanIncomplete)
		return
	}

	dependabot := r.dependabotFeed(ctx)
	codeScanning := r.codeScanningFeed(ctx)
	r.outcome = alerts.Classify(r.classifyOptions(), codeScanning, dependabot)
}

// dependabotOnly is the degraded path when no CodeQL scan can run. The
// code scanning feed counts as read and empty.
func (r *run) dependabotOnly(ctx context.Context, injected workflow.Result) {
	r.verdict.ScanSkipped = true
	if !r.wait(ctx, r.cfg.Timing.NoLanguageWait, "dependabot analysis") {
		r.manual(MessageInterrupted)
		return
	}

	dependabot := r.dependabotFeed(ctx)
	r.outcome = alerts.Classify(r.classifyOptions(), alerts.CodeScanningFeed(nil, true), dependabot)

	if injected.Outcome == workflow.OutcomeFailed && r.outcome.Decision == alerts.DecisionNeedsManualCheck {
		r.outcome.Message = fmt.Sprintf("%s (workflow injection failed: %s)", r.outcome.Message, injected.Reason)
	}
}

func (r *run) classifyOptions() alerts.Options {
	return alerts.Options{RequireAllFeeds: r.cfg.Runtime.RequireAllFeeds}
}

func (r *run) dependabotFeed(ctx context.Context) alerts.Feed {
	res := actions.Invoke(ctx, r.fork, actions.ListDependabotAlerts{State: r.cfg.Runtime.AlertState})
	st := stepOf("dependabot", res, output.StepFailed)
	if res.OK() {
		st.Message = fmt.Sprintf("%d alerts", len(res.Value))
	}
	r.write(st)
	return alerts.DependabotFeed(res.Value, res.OK())
}

func (r *run) codeScanningFeed(ctx context.Context) alerts.Feed {
	res := actions.Invoke(ctx, r.fork, actions.ListCodeScanningAlerts{State: r.cfg.Runtime.AlertState})
	st := stepOf("code-scanning", res, output.StepFailed)
	if res.OK() {
		st.Message = fmt.Sprintf("%d alerts", len(res.Value))
	}
	r.write(st)
	return alerts.CodeScanningFeed(res.Value, res.OK())
}

// stepOf records an action result; onFailure is the status a failed call
// gets (cleanup failures are expected and recorded as skipped).
func stepOf[T any](name string, res actions.Result[T], onFailure output.StepStatus) output.Step {
	st := output.Step{Name: name, Action: res.Action, HTTPStatus: res.StatusCode, Status: output.StepOK}
	if !res.OK() {
		st.Status = onFailure
		st.Message = res.Failure.String()
	}
	return st
}
