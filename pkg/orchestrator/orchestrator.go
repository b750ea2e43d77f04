// Package orchestrator drives unattended coding runs: it opens agent
// sessions in a loop, classifies how each one ended, and decides how
// long to wait before the next.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/harun/vigil/internal/metrics"
	"github.com/harun/vigil/pkg/agent"
	"github.com/harun/vigil/pkg/ledger"
	"github.com/harun/vigil/pkg/policy"
	"github.com/harun/vigil/pkg/project"
	"github.com/harun/vigil/pkg/prompt"
	"github.com/harun/vigil/pkg/transcript"
)

const (
	// DefaultAutoContinueDelay is the pause between back-to-back
	// sessions, long enough to break out with Ctrl-C.
	DefaultAutoContinueDelay = 3 * time.Second

	// DefaultFallbackSleep applies when a rate limit was hit but no
	// reset time could be parsed from the response.
	DefaultFallbackSleep = 30 * time.Minute

	// DefaultResetBuffer is added past the announced reset time so the
	// first request after waking does not land on a still-closed window.
	DefaultResetBuffer = 60 * time.Second

	// DefaultErrorRetryDelay is the pause after a failed session before
	// trying again.
	DefaultErrorRetryDelay = 10 * time.Second
)

// Consumer turns a finished session into a classification.
type Consumer interface {
	Consume(sess agent.Session) transcript.Classification
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Service    agent.Service
	Classifier Consumer
	Prompts    *prompt.Store
	Project    project.State
	Policies   *policy.Builder

	// Optional bookkeeping.
	Ledger  *ledger.Ledger
	Metrics *metrics.Metrics

	AutoContinueDelay time.Duration
	FallbackSleep     time.Duration
	ResetBuffer       time.Duration
	ErrorRetryDelay   time.Duration

	// MaxIterations caps the run; zero means run until cancelled.
	MaxIterations int

	Logger zerolog.Logger
}

// Orchestrator runs the session loop for one project.
type Orchestrator struct {
	cfg    Config
	runID  string
	logger zerolog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New validates the configuration and creates an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("agent service is required")
	}
	if cfg.Classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if cfg.Prompts == nil {
		return nil, fmt.Errorf("prompt store is required")
	}
	if cfg.Project.Dir == "" {
		return nil, fmt.Errorf("project is required")
	}
	if cfg.Policies == nil {
		return nil, fmt.Errorf("policy builder is required")
	}

	if cfg.AutoContinueDelay <= 0 {
		cfg.AutoContinueDelay = DefaultAutoContinueDelay
	}
	if cfg.FallbackSleep <= 0 {
		cfg.FallbackSleep = DefaultFallbackSleep
	}
	if cfg.ResetBuffer <= 0 {
		cfg.ResetBuffer = DefaultResetBuffer
	}
	if cfg.ErrorRetryDelay <= 0 {
		cfg.ErrorRetryDelay = DefaultErrorRetryDelay
	}

	runID := uuid.New().String()
	return &Orchestrator{
		cfg:    cfg,
		runID:  runID,
		logger: cfg.Logger.With().Str("component", "orchestrator").Str("run_id", runID).Logger(),
		now:    time.Now,
		sleep:  sleepCtx,
	}, nil
}

// RunID identifies this run in the ledger.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Run executes the session loop until the context is cancelled or the
// iteration cap is reached. A fresh project gets the spec copied in and
// the initializer prompt for its very first session; every session
// after that uses the continuation prompt, whether or not the first one
// produced the feature marker.
func (o *Orchestrator) Run(ctx context.Context) error {
	handle, err := o.cfg.Policies.EnsurePolicy(o.cfg.Project.Dir)
	if err != nil {
		return fmt.Errorf("failed to ensure security policy: %w", err)
	}
	o.logger.Info().Str("path", handle.Path).Bool("created", handle.Created).Msg("Security policy in place")

	first := !o.cfg.Project.HasStarted()
	if first {
		if err := o.copySpec(); err != nil {
			return err
		}
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go o.watchProgress(watchCtx)

	for iteration := 1; ; iteration++ {
		if o.cfg.MaxIterations > 0 && iteration > o.cfg.MaxIterations {
			o.logger.Info().Int("iterations", o.cfg.MaxIterations).Msg("Iteration cap reached")
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		promptText, kind, err := o.pickPrompt(first)
		if err != nil {
			return err
		}

		o.logger.Info().Int("iteration", iteration).Str("prompt", kind).Msg("Opening session")
		startedAt := o.now()

		cls := o.runSession(ctx, promptText)
		finishedAt := o.now()
		first = false

		delay, note := o.decideDelay(cls)
		o.record(ledger.Record{
			RunID:        o.runID,
			Iteration:    iteration,
			PromptKind:   kind,
			Outcome:      cls.Outcome.String(),
			StartedAt:    startedAt,
			FinishedAt:   finishedAt,
			SleepSeconds: delay.Seconds(),
			Note:         note,
		})
		o.observe(cls, finishedAt.Sub(startedAt), delay)

		if err := o.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// runSession opens one session and classifies its transcript.
func (o *Orchestrator) runSession(ctx context.Context, promptText string) transcript.Classification {
	if m := o.cfg.Metrics; m != nil {
		m.SessionsTotal.Inc()
		m.SessionsActive.Inc()
		defer m.SessionsActive.Dec()
	}

	sess, err := o.cfg.Service.Open(ctx, promptText)
	if err != nil {
		return transcript.Classification{Outcome: transcript.OutcomeError, Err: err}
	}
	defer sess.Close()

	return o.cfg.Classifier.Consume(sess)
}

// decideDelay maps a classification to the wait before the next session.
func (o *Orchestrator) decideDelay(cls transcript.Classification) (time.Duration, string) {
	switch cls.Outcome {
	case transcript.OutcomeRateLimited:
		if !cls.ResumeKnown {
			o.logger.Warn().Dur("sleep", o.cfg.FallbackSleep).Msg("Rate limited, reset time unknown")
			return o.cfg.FallbackSleep, "reset time unknown, fallback sleep"
		}
		wakeAt := cls.ResumeAt.Add(o.cfg.ResetBuffer)
		delay := wakeAt.Sub(o.now())
		if delay < 0 {
			delay = 0
		}
		o.logger.Warn().Time("resume_at", wakeAt).Dur("sleep", delay).Msg("Rate limited, waiting for reset")
		return delay, fmt.Sprintf("waiting for reset at %s", wakeAt.Format(time.RFC3339))

	case transcript.OutcomeError:
		o.logger.Error().Err(cls.Err).Dur("sleep", o.cfg.ErrorRetryDelay).Msg("Session failed, retrying")
		note := "session failed"
		if cls.Err != nil {
			note = fmt.Sprintf("session failed: %v", cls.Err)
		}
		return o.cfg.ErrorRetryDelay, note

	default:
		if progress, err := o.cfg.Project.ReadProgress(); err == nil {
			o.logger.Info().Str("progress", progress.String()).Msg("Session complete")
		}
		return o.cfg.AutoContinueDelay, ""
	}
}

// pickPrompt returns the initializer only for the first session of a
// fresh project. Later sessions always continue, even when the first
// one failed to bootstrap; the continuation prompt has to cope with an
// incomplete project anyway.
func (o *Orchestrator) pickPrompt(first bool) (string, string, error) {
	if first {
		text, err := o.cfg.Prompts.Initializer()
		return text, "initializer", err
	}
	text, err := o.cfg.Prompts.Continuation()
	return text, "continuation", err
}

func (o *Orchestrator) copySpec() error {
	specPath := o.cfg.Prompts.SpecPath()
	if _, err := os.Stat(specPath); err != nil {
		o.logger.Debug().Str("path", specPath).Msg("No application spec to copy")
		return nil
	}
	if err := o.cfg.Project.CopySpecFrom(specPath); err != nil {
		return fmt.Errorf("failed to copy application spec: %w", err)
	}
	o.logger.Info().Str("path", specPath).Msg("Copied application spec into project")
	return nil
}

// watchProgress logs marker updates while sessions run.
func (o *Orchestrator) watchProgress(ctx context.Context) {
	ch := make(chan project.Progress, 1)
	watcher := project.NewWatcher(o.cfg.Project, o.logger)

	go func() {
		if err := watcher.Run(ctx, ch); err != nil {
			o.logger.Warn().Err(err).Msg("Progress watcher stopped")
		}
	}()

	for progress := range ch {
		o.logger.Info().Str("progress", progress.String()).Msg("Feature progress updated")
	}
}

func (o *Orchestrator) record(rec ledger.Record) {
	if o.cfg.Ledger == nil {
		return
	}
	if err := o.cfg.Ledger.Append(rec); err != nil {
		o.logger.Warn().Err(err).Msg("Failed to record iteration")
	}
}

func (o *Orchestrator) observe(cls transcript.Classification, elapsed, delay time.Duration) {
	m := o.cfg.Metrics
	if m == nil {
		return
	}
	m.IterationsTotal.WithLabelValues(cls.Outcome.String()).Inc()
	m.IterationDuration.Observe(elapsed.Seconds())
	m.SleepSecondsTotal.Add(delay.Seconds())
	if cls.Outcome == transcript.OutcomeRateLimited {
		m.RateLimitHitsTotal.Inc()
	}
}

// sleepCtx waits for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
