package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/browser"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/filtering"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/form"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/jobs"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/ledger"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/pacing"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/profile"
)

type sliceSource struct {
	postings []*jobs.Posting
	// errAt returns err instead of the posting at that index.
	errAt int
	err   error
	next  int
}

func newSource(n int) *sliceSource {
	s := &sliceSource{errAt: -1}
	for i := 0; i < n; i++ {
		s.postings = append(s.postings, &jobs.Posting{
			ID:      fmt.Sprintf("job-%d", i),
			Title:   "Go Engineer",
			Company: fmt.Sprintf("Company %d", i),
		})
	}
	return s
}

func (s *sliceSource) Next(ctx context.Context) (*jobs.Posting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next == s.errAt {
		return nil, s.err
	}
	if s.next >= len(s.postings) {
		return nil, io.EOF
	}
	p := s.postings[s.next]
	s.next++
	return p, nil
}

type mockApplier struct {
	mock.Mock
}

func (m *mockApplier) Run(ctx context.Context, posting *jobs.Posting, p *profile.Profile) (form.Outcome, error) {
	args := m.Called(ctx, posting, p)
	return args.Get(0).(form.Outcome), args.Error(1)
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) HasRecord(id string) bool {
	return m.Called(id).Bool(0)
}

func (m *mockLedger) Record(r ledger.Record) error {
	return m.Called(r).Error(0)
}

func (m *mockLedger) Checkpoint(ctx context.Context, s ledger.Session) error {
	return m.Called(ctx, s).Error(0)
}

var applied = form.Outcome{State: form.StateSubmitted, Status: form.StatusApplied, Reason: form.ReasonSubmitted, Steps: 2}

func newTestEngine(t *testing.T, cfg Config, deps Deps) (*Engine, *[]time.Duration) {
	t.Helper()
	if deps.Filter == nil {
		deps.Filter = filtering.New(filtering.Criteria{}, nil)
	}
	if deps.Pacer == nil {
		deps.Pacer = pacing.New(pacing.Config{})
	}
	e := New(cfg, deps, zaptest.NewLogger(t))
	waits := &[]time.Duration{}
	e.wait = func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return ctx.Err()
	}
	return e, waits
}

func openLedger(t *testing.T, path string) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(context.Background(), path, zaptest.NewLogger(t))
	require.NoError(t, err)
	return l
}

func TestRunTwiceOverSamePostings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	applier := new(mockApplier)
	applier.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(applied, nil)

	for run := 0; run < 2; run++ {
		l := openLedger(t, path)
		e, _ := newTestEngine(t, Config{}, Deps{Source: newSource(10), Applier: applier, Ledger: l})

		state, err := e.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StopExhausted, state.StopReason)
		if run == 0 {
			assert.Equal(t, 10, state.Applied)
		} else {
			assert.Equal(t, 0, state.Processed, "second run must not re-process recorded postings")
		}
		require.NoError(t, l.Close())
	}

	applier.AssertNumberOfCalls(t, "Run", 10)

	l := openLedger(t, path)
	defer l.Close()
	records, err := l.Records(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 10)
}

func TestRunRecordsFilteredPostings(t *testing.T) {
	source := newSource(3)
	source.postings[1].Company = "Globex"

	applier := new(mockApplier)
	applier.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(applied, nil)

	l := openLedger(t, filepath.Join(t.TempDir(), "ledger.db"))
	defer l.Close()

	e, _ := newTestEngine(t, Config{}, Deps{
		Source:  source,
		Filter:  filtering.New(filtering.Criteria{CompanyBlacklist: []string{"globex"}}, nil),
		Applier: applier,
		Ledger:  l,
	})

	state, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, state.Processed)
	assert.Equal(t, 2, state.Applied)
	assert.Equal(t, 1, state.Skipped)
	applier.AssertNumberOfCalls(t, "Run", 2)

	records, err := l.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, r := range records {
		if r.PostingID == "job-1" {
			assert.Equal(t, "skipped", r.Status)
			assert.Equal(t, filtering.ReasonBlacklistedCompany, r.Reason)
			assert.False(t, r.Attempted)
		}
	}
}

func TestRunStopsAtCap(t *testing.T) {
	applier := new(mockApplier)
	applier.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(applied, nil)

	l := openLedger(t, filepath.Join(t.TempDir(), "ledger.db"))
	defer l.Close()

	e, _ := newTestEngine(t, Config{}, Deps{
		Source:  newSource(5),
		Applier: applier,
		Ledger:  l,
		Pacer:   pacing.New(pacing.Config{DailyCap: 2}),
	})

	state, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StopRateCap, state.StopReason)
	assert.Equal(t, pacing.ReasonDailyCap, state.CapReason)
	assert.Equal(t, 2, state.Applied)
	assert.Equal(t, 2, state.Today)
	assert.False(t, l.HasRecord("job-2"), "the posting hitting the cap must stay unrecorded")
}

func TestRunSessionLostDuringApplication(t *testing.T) {
	source := newSource(3)
	applier := new(mockApplier)
	applier.On("Run", mock.Anything, source.postings[0], mock.Anything).Return(applied, nil)
	applier.On("Run", mock.Anything, source.postings[1], mock.Anything).Return(form.Outcome{}, browser.ErrStaleSession)

	led := new(mockLedger)
	led.On("HasRecord", mock.Anything).Return(false)
	led.On("Record", mock.Anything).Return(nil)
	led.On("Checkpoint", mock.Anything, mock.Anything).Return(nil)

	e, _ := newTestEngine(t, Config{}, Deps{Source: source, Applier: applier, Ledger: led})
	core, logs := observer.New(zapcore.ErrorLevel)
	e.logger = zap.New(core)

	state, err := e.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionLost)
	assert.ErrorIs(t, err, browser.ErrStaleSession)
	assert.Equal(t, StopFatal, state.StopReason)
	assert.Equal(t, 1, state.Processed)
	assert.Equal(t, "job-1", state.Interrupted)
	led.AssertNumberOfCalls(t, "Record", 1)
	led.AssertNumberOfCalls(t, "Checkpoint", 1)
	led.AssertCalled(t, "Checkpoint", mock.Anything, mock.MatchedBy(func(s ledger.Session) bool {
		return s.StopReason == "fatal:interrupted=job-1"
	}))

	entries := logs.FilterField(zap.String("posting_id", "job-1")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}

func TestRunSessionLostDuringDiscovery(t *testing.T) {
	source := newSource(3)
	source.errAt = 1
	source.err = fmt.Errorf("navigate: %w", browser.ErrStaleSession)

	applier := new(mockApplier)
	applier.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(applied, nil)
	led := new(mockLedger)
	led.On("HasRecord", mock.Anything).Return(false)
	led.On("Record", mock.Anything).Return(nil)
	led.On("Checkpoint", mock.Anything, mock.Anything).Return(nil)

	e, _ := newTestEngine(t, Config{}, Deps{Source: source, Applier: applier, Ledger: led})

	state, err := e.Run(context.Background())
	assert.ErrorIs(t, err, ErrSessionLost)
	assert.Equal(t, StopFatal, state.StopReason)
	assert.Equal(t, 1, state.Applied)
}

func TestRunCancellationDoesNotInterruptForm(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := newSource(3)
	applier := new(mockApplier)
	var formCtxErr error
	applier.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			cancel()
			formCtxErr = args.Get(0).(context.Context).Err()
		}).
		Return(applied, nil).Once()

	led := new(mockLedger)
	led.On("HasRecord", mock.Anything).Return(false)
	led.On("Record", mock.Anything).Return(nil)
	led.On("Checkpoint", mock.Anything, mock.Anything).Return(nil)

	e, _ := newTestEngine(t, Config{}, Deps{Source: source, Applier: applier, Ledger: led})

	state, err := e.Run(ctx)
	require.NoError(t, err)
	assert.NoError(t, formCtxErr, "the form must not see the cancellation")
	assert.Equal(t, StopCancelled, state.StopReason)
	assert.Equal(t, 1, state.Applied)
	led.AssertNumberOfCalls(t, "Record", 1)
	led.AssertNumberOfCalls(t, "Checkpoint", 1)
}

func TestRunCheckpointsEveryN(t *testing.T) {
	led := new(mockLedger)
	led.On("HasRecord", mock.Anything).Return(false)
	led.On("Record", mock.Anything).Return(nil)
	led.On("Checkpoint", mock.Anything, mock.Anything).Return(nil)

	applier := new(mockApplier)
	applier.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(applied, nil)

	e, _ := newTestEngine(t, Config{CheckpointEvery: 2}, Deps{Source: newSource(5), Applier: applier, Ledger: led})

	state, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, state.Processed)
	// After 2 and 4 postings, then at the end.
	led.AssertNumberOfCalls(t, "Checkpoint", 3)

	last := led.Calls[len(led.Calls)-1]
	session := last.Arguments.Get(1).(ledger.Session)
	assert.Equal(t, state.RunID, session.RunID)
	assert.Equal(t, "exhausted", session.StopReason)
	assert.Equal(t, 5, session.Applied)
}

func TestRunCheckpointFailureStopsRun(t *testing.T) {
	led := new(mockLedger)
	led.On("HasRecord", mock.Anything).Return(false)
	led.On("Record", mock.Anything).Return(nil)
	led.On("Checkpoint", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	applier := new(mockApplier)
	applier.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(applied, nil)

	e, _ := newTestEngine(t, Config{CheckpointEvery: 1}, Deps{Source: newSource(3), Applier: applier, Ledger: led})

	state, err := e.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StopFatal, state.StopReason)
	applier.AssertNumberOfCalls(t, "Run", 1)
}

func TestRunDryRun(t *testing.T) {
	led := new(mockLedger)
	led.On("HasRecord", mock.Anything).Return(false)

	applier := new(mockApplier)
	source := newSource(4)
	source.postings[0].Title = "Senior Java Developer"

	e, _ := newTestEngine(t, Config{DryRun: true}, Deps{
		Source:  source,
		Filter:  filtering.New(filtering.Criteria{TitleBlacklist: []string{"java"}}, nil),
		Applier: applier,
		Ledger:  led,
		Pacer:   pacing.New(pacing.Config{RunCap: 2}),
	})

	state, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StopRateCap, state.StopReason)
	assert.Equal(t, pacing.ReasonRunCap, state.CapReason)
	assert.Equal(t, 3, state.Processed)
	assert.Equal(t, 1, state.Skipped)
	applier.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
	led.AssertNotCalled(t, "Record", mock.Anything)
	led.AssertNotCalled(t, "Checkpoint", mock.Anything, mock.Anything)
}

func TestRunWaitsBetweenAttempts(t *testing.T) {
	led := new(mockLedger)
	led.On("HasRecord", mock.Anything).Return(false)
	led.On("Record", mock.Anything).Return(nil)
	led.On("Checkpoint", mock.Anything, mock.Anything).Return(nil)

	applier := new(mockApplier)
	applier.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(applied, nil)

	e, waits := newTestEngine(t, Config{}, Deps{
		Source:  newSource(3),
		Applier: applier,
		Ledger:  led,
		Pacer:   pacing.New(pacing.Config{DelayMin: time.Second, DelayMax: time.Second}),
	})

	_, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, *waits)
}

func TestRunSkipsRecordedPostings(t *testing.T) {
	led := new(mockLedger)
	led.On("HasRecord", "job-0").Return(true)
	led.On("HasRecord", mock.Anything).Return(false)
	led.On("Record", mock.Anything).Return(nil)
	led.On("Checkpoint", mock.Anything, mock.Anything).Return(nil)

	source := newSource(2)
	applier := new(mockApplier)
	applier.On("Run", mock.Anything, source.postings[1], mock.Anything).Return(form.Outcome{
		State: form.StateFailed, Status: form.StatusFailed, Reason: form.ReasonUnresolvableField,
	}, nil)

	e, _ := newTestEngine(t, Config{}, Deps{Source: source, Applier: applier, Ledger: led})

	state, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, state.Processed)
	assert.Equal(t, 1, state.Failed)
	applier.AssertNumberOfCalls(t, "Run", 1)

	record := led.Calls[2].Arguments.Get(0).(ledger.Record)
	assert.Equal(t, "job-1", record.PostingID)
	assert.Equal(t, "failed", record.Status)
	assert.True(t, record.Attempted)
}

func TestStateSuccessRate(t *testing.T) {
	assert.Equal(t, 0.0, State{}.SuccessRate())
	assert.InDelta(t, 75.0, State{Applied: 3, Failed: 1, Skipped: 10}.SuccessRate(), 0.001)

	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s := State{StartedAt: start, FinishedAt: start.Add(90 * time.Second)}
	assert.Equal(t, 90*time.Second, s.Duration())
}
