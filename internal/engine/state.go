package engine

import (
	"time"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/ledger"
)

// StopReason tells why a run ended.
type StopReason string

const (
	StopExhausted StopReason = "exhausted"
	StopRateCap   StopReason = "rate-cap"
	StopCancelled StopReason = "cancelled"
	StopFatal     StopReason = "fatal"
)

// State holds the counters of one run. Only the engine mutates it.
type State struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Processed int
	Applied   int
	Failed    int
	Skipped   int

	// Today and ThisRun are the cap counters of the pacer.
	Today   int
	ThisRun int

	StopReason StopReason
	// CapReason names the cap when StopReason is StopRateCap.
	CapReason string
	// Interrupted is the posting whose form was running when the session was
	// lost. It has no ledger record and is retried by the next run.
	Interrupted string
}

func (s State) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// SuccessRate is the share of applied postings among the attempted ones, in percent.
func (s State) SuccessRate() float64 {
	attempted := s.Applied + s.Failed
	if attempted == 0 {
		return 0
	}
	return float64(s.Applied) / float64(attempted) * 100
}

func (s State) session() ledger.Session {
	reason := string(s.StopReason)
	if s.CapReason != "" {
		reason += ":" + s.CapReason
	}
	if s.Interrupted != "" {
		reason += ":interrupted=" + s.Interrupted
	}
	return ledger.Session{
		RunID:      s.RunID,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Processed:  s.Processed,
		Applied:    s.Applied,
		Failed:     s.Failed,
		Skipped:    s.Skipped,
		Today:      s.Today,
		ThisRun:    s.ThisRun,
		StopReason: reason,
	}
}
