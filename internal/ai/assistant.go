package ai

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable reports that the AI service could not produce an answer.
	ErrUnavailable = errors.New("ai service unavailable")
	// ErrTimeout reports that the AI service did not answer in time.
	ErrTimeout = errors.New("ai service timed out")
)

// Options tune a single completion.
type Options struct {
	MaxTokens   int
	Temperature float64
}

// Completer produces text for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// Classify maps a provider error onto ErrTimeout or ErrUnavailable, keeping the
// original error in the chain.
func Classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Join(ErrTimeout, err)
	}
	return errors.Join(ErrUnavailable, err)
}
