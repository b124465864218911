package form

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/browser"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/jobs"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/logger"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/profile"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/resolver"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/utils"
)

const defaultMaxSteps = 10

// Config bounds a form run.
type Config struct {
	MaxSteps int
	Retry    RetryPolicy
}

// Machine runs one application form at a time.
type Machine struct {
	driver  Driver
	answers Answerer
	cfg     Config
	logger  *zap.Logger
	wait    func(context.Context, time.Duration) error
}

func New(driver Driver, answers Answerer, cfg Config, log *zap.Logger) *Machine {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaultMaxSteps
	}
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	return &Machine{driver: driver, answers: answers, cfg: cfg, logger: log, wait: utils.WaitFor}
}

type run struct {
	m       *Machine
	posting *jobs.Posting
	profile *profile.Profile
	log     *zap.Logger
	state   State
	steps   int
	answers int
}

// Run applies to posting. Every per-posting problem becomes a failed or skipped
// Outcome; the returned error is reserved for a lost browser session.
func (m *Machine) Run(ctx context.Context, posting *jobs.Posting, p *profile.Profile) (Outcome, error) {
	r := &run{
		m:       m,
		posting: posting,
		profile: p,
		log:     logger.WithFields(m.logger, logger.PostingFields(posting.ID, posting.Title, posting.Company)...),
		state:   StateStarted,
	}

	outcome, err := r.execute(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("posting %s: %w", posting.ID, err)
	}
	if outcome.State == StateFailed {
		if abortErr := m.driver.Abort(context.WithoutCancel(ctx)); abortErr != nil {
			r.log.Debug("abort application", zap.Error(abortErr))
		}
	}
	r.log.Info("form finished",
		zap.String("state", string(outcome.State)),
		zap.String("reason", outcome.Reason),
		zap.Int("steps", outcome.Steps),
		zap.Int("answers", outcome.Answers),
	)
	return outcome, nil
}

func (r *run) transition(to State) {
	r.log.Debug("form transition", zap.String("from", string(r.state)), zap.String("to", string(to)))
	r.state = to
}

func (r *run) retry(ctx context.Context, fn func() error) error {
	return r.m.cfg.Retry.Do(ctx, r.m.wait, fn)
}

// fail converts err into a failed outcome, or returns it when the session is gone.
func (r *run) fail(ctx context.Context, reason string, err error) (Outcome, error) {
	if errors.Is(err, browser.ErrStaleSession) {
		return Outcome{}, err
	}
	if errors.Is(err, ErrRejected) {
		reason = ReasonRejected
	} else if ctx.Err() != nil {
		reason = ReasonFormTimeout
	}
	r.log.Debug("form failed", zap.String("reason", reason), zap.Error(err))
	r.transition(StateFailed)
	return failed(reason, r.steps, r.answers), nil
}

func (r *run) execute(ctx context.Context) (Outcome, error) {
	err := r.retry(ctx, func() error { return r.m.driver.Open(ctx, r.posting) })
	switch {
	case errors.Is(err, ErrNoEntryPoint):
		r.transition(StateSkipped)
		return skipped(ReasonUnsupportedFlow), nil
	case err != nil:
		return r.fail(ctx, ReasonOpenFailed, err)
	}

	r.transition(StateFieldFilling)
	validationRetries := 0
	for {
		if r.steps >= r.m.cfg.MaxSteps {
			return r.fail(ctx, ReasonTooManySteps, fmt.Errorf("more than %d steps", r.m.cfg.MaxSteps))
		}
		r.steps++

		if reason, err := r.fillStep(ctx); err != nil {
			return r.fail(ctx, reason, err)
		}

		var page Page
		err := r.retry(ctx, func() error {
			var err error
			page, err = r.m.driver.Advance(ctx)
			return err
		})
		switch {
		case errors.Is(err, ErrValidation):
			validationRetries++
			if validationRetries >= r.m.cfg.Retry.Attempts {
				return r.fail(ctx, ReasonUnresolvableField, err)
			}
			r.log.Debug("step has invalid fields, filling again", zap.Int("step", r.steps))
			r.steps--
			continue
		case err != nil:
			return r.fail(ctx, ReasonStepFailed, err)
		}
		validationRetries = 0

		switch page {
		case PageSubmitted:
			r.transition(StateSubmitted)
			return submitted(r.steps, r.answers), nil
		case PageReview:
			r.transition(StateReviewing)
			if err := r.retry(ctx, func() error { return r.m.driver.Submit(ctx) }); err != nil {
				return r.fail(ctx, ReasonSubmitFailed, err)
			}
			r.transition(StateSubmitted)
			return submitted(r.steps, r.answers), nil
		}
	}
}

// fillStep fills every empty or invalid field of the current step.
func (r *run) fillStep(ctx context.Context) (string, error) {
	var fields []Field
	err := r.retry(ctx, func() error {
		var err error
		fields, err = r.m.driver.Fields(ctx)
		return err
	})
	if err != nil {
		return ReasonStepFailed, err
	}

	for _, field := range fields {
		if field.Filled && !field.Invalid {
			continue
		}
		if field.Kind == FieldFile {
			if err := r.upload(ctx, field); err != nil {
				return ReasonUnresolvableField, err
			}
			continue
		}

		answer := r.m.answers.Resolve(ctx, resolver.Question{
			Text:    field.Label,
			Kind:    field.AnswerKind(),
			Options: field.Options,
			Posting: r.posting,
		}, r.profile)
		if !answer.Valid() {
			if field.Required {
				return ReasonUnresolvableField, fmt.Errorf("no usable answer for %q", field.Label)
			}
			continue
		}

		if err := r.retry(ctx, func() error { return r.m.driver.Fill(ctx, field, answer) }); err != nil {
			return ReasonUnresolvableField, fmt.Errorf("fill %q: %w", field.Label, err)
		}
		r.answers++
	}
	return "", nil
}

func (r *run) upload(ctx context.Context, field Field) error {
	path := ""
	if r.profile != nil {
		path = r.profile.ResumePath
		if strings.Contains(strings.ToLower(field.Label), "cover") {
			path = r.profile.CoverLetterPath
		}
	}
	if path == "" {
		if field.Required {
			return fmt.Errorf("no document configured for %q", field.Label)
		}
		return nil
	}
	return r.retry(ctx, func() error { return r.m.driver.Upload(ctx, field, path) })
}
