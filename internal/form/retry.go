package form

import (
	"context"
	"time"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/browser"
)

// RetryPolicy is an exponential backoff with a cap for transient browser errors.
type RetryPolicy struct {
	Attempts       int           `mapstructure:"attempts" yaml:"attempts" validate:"gte=1,lte=10"`
	InitialBackoff time.Duration `mapstructure:"initial-backoff" yaml:"initial-backoff" validate:"gte=0"`
	MaxBackoff     time.Duration `mapstructure:"max-backoff" yaml:"max-backoff" validate:"gte=0"`
	Multiplier     float64       `mapstructure:"multiplier" yaml:"multiplier" validate:"gte=1"`
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, InitialBackoff: 500 * time.Millisecond, MaxBackoff: 5 * time.Second, Multiplier: 2}
}

// Backoff returns the wait before retry number attempt (1 based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 || p.InitialBackoff <= 0 {
		return 0
	}
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	d := float64(p.InitialBackoff)
	for i := 1; i < attempt; i++ {
		d *= multiplier
		if p.MaxBackoff > 0 && d >= float64(p.MaxBackoff) {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && time.Duration(d) > p.MaxBackoff {
		return p.MaxBackoff
	}
	return time.Duration(d)
}

// Do runs fn until it succeeds, fails with a non-transient error, or the
// attempts are used up. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, wait func(context.Context, time.Duration) error, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil || !browser.IsTransient(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		if werr := wait(ctx, p.Backoff(attempt)); werr != nil {
			return err
		}
	}
	return err
}
