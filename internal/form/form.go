// Package form drives a multi-step application form as an explicit state machine.
package form

import (
	"context"
	"errors"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/jobs"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/profile"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/resolver"
)

var (
	// ErrNoEntryPoint reports that the posting has no supported application flow.
	ErrNoEntryPoint = errors.New("no supported application entry point")
	// ErrValidation reports that the page refused to advance because of field errors.
	ErrValidation = errors.New("form validation failed")
	// ErrRejected reports an explicit rejection by the platform. It is never retried.
	ErrRejected = errors.New("application rejected")
)

// State is a state of the form state machine.
type State string

const (
	StateStarted      State = "started"
	StateFieldFilling State = "field-filling"
	StateReviewing    State = "reviewing"
	StateSubmitted    State = "submitted"
	StateFailed       State = "failed"
	StateSkipped      State = "skipped"
)

// Status is the terminal outcome recorded in the ledger.
type Status string

const (
	StatusApplied Status = "applied"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Outcome reasons.
const (
	ReasonSubmitted         = "submitted"
	ReasonUnsupportedFlow   = "unsupported-flow"
	ReasonUnresolvableField = "unresolvable-field"
	ReasonTooManySteps      = "too-many-steps"
	ReasonRejected          = "rejected"
	ReasonOpenFailed        = "open-failed"
	ReasonStepFailed        = "step-failed"
	ReasonSubmitFailed      = "submit-failed"
	ReasonFormTimeout       = "form-timeout"
)

// Outcome is the terminal result of one form run.
type Outcome struct {
	State   State
	Status  Status
	Reason  string
	Steps   int
	Answers int
}

// Attempted reports whether the platform saw an application attempt.
func (o Outcome) Attempted() bool {
	return o.State != StateSkipped
}

func submitted(steps, answers int) Outcome {
	return Outcome{State: StateSubmitted, Status: StatusApplied, Reason: ReasonSubmitted, Steps: steps, Answers: answers}
}

func failed(reason string, steps, answers int) Outcome {
	return Outcome{State: StateFailed, Status: StatusFailed, Reason: reason, Steps: steps, Answers: answers}
}

func skipped(reason string) Outcome {
	return Outcome{State: StateSkipped, Status: StatusSkipped, Reason: reason}
}

// FieldKind is the input type of a form field.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldNumber
	FieldBool
	FieldChoice
	FieldFile
)

// Field is a single input on the current form step.
type Field struct {
	// ID is the driver's handle for the field.
	ID       string
	Label    string
	Kind     FieldKind
	Options  []string
	Required bool
	// Filled is true when the field already holds a value.
	Filled bool
	// Invalid is true when the page flagged the field.
	Invalid bool
}

// AnswerKind maps a field kind onto the resolver answer kind.
func (f Field) AnswerKind() resolver.Kind {
	switch f.Kind {
	case FieldNumber:
		return resolver.KindNumber
	case FieldBool:
		return resolver.KindBool
	case FieldChoice:
		return resolver.KindChoice
	default:
		return resolver.KindText
	}
}

// Page is what the form shows after advancing.
type Page int

const (
	PageForm Page = iota
	PageReview
	PageSubmitted
)

// Driver performs the platform specific form actions.
type Driver interface {
	// Open starts the application; ErrNoEntryPoint when the posting has no supported flow.
	Open(ctx context.Context, posting *jobs.Posting) error
	Fields(ctx context.Context) ([]Field, error)
	Fill(ctx context.Context, field Field, answer resolver.Answer) error
	Upload(ctx context.Context, field Field, path string) error
	// Advance moves to the next step and reports what is shown.
	Advance(ctx context.Context) (Page, error)
	// Submit acknowledges the review step and submits the application.
	Submit(ctx context.Context) error
	// Abort discards an unfinished application.
	Abort(ctx context.Context) error
}

// Answerer resolves form questions.
type Answerer interface {
	Resolve(ctx context.Context, q resolver.Question, p *profile.Profile) resolver.Answer
}
