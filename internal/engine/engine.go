// Package engine runs the application loop: discover, deduplicate, filter,
// gate, apply, record.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/browser"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/filtering"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/form"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/jobs"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/ledger"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/logger"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/pacing"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/profile"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/utils"
)

// ErrSessionLost reports that the browser session died. The run cannot continue.
var ErrSessionLost = errors.New("browser session lost")

const (
	defaultCheckpointEvery = 10
	defaultFormTimeout     = 5 * time.Minute
)

// Source yields postings until io.EOF.
type Source interface {
	Next(ctx context.Context) (*jobs.Posting, error)
}

type Evaluator interface {
	Evaluate(p *jobs.Posting) filtering.Decision
}

// Applier runs one application. An error means the session is unusable.
type Applier interface {
	Run(ctx context.Context, posting *jobs.Posting, p *profile.Profile) (form.Outcome, error)
}

type Ledger interface {
	HasRecord(postingID string) bool
	Record(r ledger.Record) error
	Checkpoint(ctx context.Context, s ledger.Session) error
}

type Pacer interface {
	Permit() pacing.Permission
	WaitInterval() time.Duration
	Counts() (today, thisRun int)
}

// Config tunes the loop.
type Config struct {
	// CheckpointEvery persists the ledger after this many processed postings.
	CheckpointEvery int
	// FormTimeout bounds a single application.
	FormTimeout time.Duration
	// DryRun evaluates and gates postings without applying or recording.
	DryRun bool
}

// Deps are the collaborators of the loop.
type Deps struct {
	Source  Source
	Filter  Evaluator
	Applier Applier
	Ledger  Ledger
	Pacer   Pacer
	Profile *profile.Profile
}

type Engine struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger

	wait func(context.Context, time.Duration) error
	now  func() time.Time
}

func New(cfg Config, deps Deps, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = defaultCheckpointEvery
	}
	if cfg.FormTimeout <= 0 {
		cfg.FormTimeout = defaultFormTimeout
	}
	return &Engine{cfg: cfg, deps: deps, logger: log, wait: utils.WaitFor, now: time.Now}
}

// Run processes postings until the source is exhausted, a cap is reached, ctx
// is cancelled or the browser session is lost. The returned state is final and
// checkpointed. Only a lost session or a ledger failure returns an error.
func (e *Engine) Run(ctx context.Context) (State, error) {
	state := State{RunID: uuid.NewString(), StartedAt: e.now()}
	log := e.logger.With(zap.String("run_id", state.RunID))
	log.Info("session started", zap.Bool("dry_run", e.cfg.DryRun))

	var (
		runErr         error
		lastCheckpoint int
		attempted      bool
	)

loop:
	for {
		if ctx.Err() != nil {
			state.StopReason = StopCancelled
			break
		}

		posting, err := e.deps.Source.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			state.StopReason = StopExhausted
			break loop
		case err != nil && ctx.Err() != nil:
			state.StopReason = StopCancelled
			break loop
		case errors.Is(err, browser.ErrStaleSession):
			state.StopReason = StopFatal
			runErr = fmt.Errorf("%w: %w", ErrSessionLost, err)
			break loop
		case err != nil:
			state.StopReason = StopFatal
			runErr = fmt.Errorf("discover postings: %w", err)
			break loop
		}

		plog := log.With(logger.PostingFields(posting.ID, posting.Title, posting.Company)...)
		if e.deps.Ledger.HasRecord(posting.ID) {
			plog.Debug("posting already recorded")
			continue
		}

		decision := e.deps.Filter.Evaluate(posting)
		if !decision.Accepted {
			plog.Info("posting filtered out", zap.String("reason", decision.Reason))
			if !e.cfg.DryRun {
				e.record(plog, &state, posting, form.StatusSkipped, decision.Reason, false)
			}
			state.Processed++
			state.Skipped++
			if err := e.maybeCheckpoint(ctx, &state, &lastCheckpoint); err != nil {
				state.StopReason = StopFatal
				runErr = err
				break
			}
			continue
		}

		permit := e.deps.Pacer.Permit()
		state.Today, state.ThisRun = e.deps.Pacer.Counts()
		if !permit.Allowed {
			plog.Info("application cap reached", zap.String("cap", permit.Reason))
			state.StopReason = StopRateCap
			state.CapReason = permit.Reason
			break
		}

		if e.cfg.DryRun {
			plog.Info("dry run: would apply", zap.String("url", posting.URL))
			state.Processed++
			continue
		}

		if attempted {
			delay := e.deps.Pacer.WaitInterval()
			plog.Debug("waiting before next application", zap.Duration("delay", delay))
			if err := e.wait(ctx, delay); err != nil {
				state.StopReason = StopCancelled
				break
			}
		}

		// The form is never interrupted by cancellation; only the form timeout bounds it.
		formCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.FormTimeout)
		outcome, err := e.deps.Applier.Run(formCtx, posting, e.deps.Profile)
		cancel()
		attempted = true
		if err != nil {
			plog.Error("browser session lost during application, posting left unrecorded for the next run", zap.Error(err))
			state.Interrupted = posting.ID
			state.StopReason = StopFatal
			runErr = fmt.Errorf("%w: %w", ErrSessionLost, err)
			break
		}

		e.record(plog, &state, posting, outcome.Status, outcome.Reason, outcome.Attempted())
		state.Processed++
		switch outcome.Status {
		case form.StatusApplied:
			state.Applied++
		case form.StatusFailed:
			state.Failed++
		default:
			state.Skipped++
		}
		plog.Info("posting processed",
			zap.String("status", string(outcome.Status)),
			zap.String("reason", outcome.Reason),
			zap.Int("steps", outcome.Steps),
		)

		if err := e.maybeCheckpoint(ctx, &state, &lastCheckpoint); err != nil {
			state.StopReason = StopFatal
			runErr = err
			break
		}
	}

	state.FinishedAt = e.now()
	state.Today, state.ThisRun = e.deps.Pacer.Counts()
	if !e.cfg.DryRun {
		if err := e.deps.Ledger.Checkpoint(context.WithoutCancel(ctx), state.session()); err != nil {
			log.Error("final checkpoint failed", zap.Error(err))
			if runErr == nil {
				runErr = fmt.Errorf("checkpoint: %w", err)
				state.StopReason = StopFatal
			}
		}
	}

	log.Info("session finished",
		zap.String("stop_reason", string(state.StopReason)),
		zap.String("interrupted_posting", state.Interrupted),
		zap.Duration("duration", state.Duration()),
		zap.Int("processed", state.Processed),
		zap.Int("applied", state.Applied),
		zap.Int("failed", state.Failed),
		zap.Int("skipped", state.Skipped),
		zap.Float64("success_rate", state.SuccessRate()),
	)
	return state, runErr
}

func (e *Engine) record(log *zap.Logger, state *State, p *jobs.Posting, status form.Status, reason string, attempted bool) {
	err := e.deps.Ledger.Record(ledger.Record{
		PostingID: p.ID,
		Status:    string(status),
		Reason:    reason,
		Timestamp: e.now(),
		Title:     p.Title,
		Company:   p.Company,
		Location:  p.Location,
		URL:       p.URL,
		Attempted: attempted,
		RunID:     state.RunID,
	})
	if err != nil {
		log.Warn("recording outcome", zap.Error(err))
	}
}

func (e *Engine) maybeCheckpoint(ctx context.Context, state *State, last *int) error {
	if e.cfg.DryRun || state.Processed-*last < e.cfg.CheckpointEvery {
		return nil
	}
	if err := e.deps.Ledger.Checkpoint(context.WithoutCancel(ctx), state.session()); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	*last = state.Processed
	return nil
}
