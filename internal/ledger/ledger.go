// Package ledger is the durable record of application outcomes. A posting id
// gets at most one record for the lifetime of the ledger file.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var (
	// ErrDuplicate reports a second record for a posting id.
	ErrDuplicate = errors.New("posting already recorded")
	// ErrLocked reports that another run holds the ledger.
	ErrLocked = errors.New("ledger is locked by another run")
)

// Fixed width so timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Record is the terminal outcome of one posting.
type Record struct {
	PostingID string    `json:"job_id"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"date"`
	Title     string    `json:"title"`
	Company   string    `json:"company"`
	Location  string    `json:"location"`
	URL       string    `json:"url"`
	// Attempted is set when the platform saw an application, successful or not.
	Attempted bool   `json:"attempted"`
	RunID     string `json:"run_id"`
}

// Session is the persisted copy of a run's counters.
type Session struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Processed  int
	Applied    int
	Failed     int
	Skipped    int
	Today      int
	ThisRun    int
	StopReason string
}

// Ledger buffers records in memory and persists them at checkpoints.
type Ledger struct {
	db     *sql.DB
	lock   *flock.Flock
	path   string
	logger *zap.Logger

	known   map[string]struct{}
	pending []Record
}

// Open locks and opens the ledger at path, creating it when missing, and loads
// the recorded posting ids.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Ledger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock ledger: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	db, err := openDB(ctx, path)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	l := &Ledger{db: db, lock: lock, path: path, logger: logger}
	if err := l.Load(ctx); err != nil {
		_ = l.Close()
		return nil, err
	}
	return l, nil
}

func openDB(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return db, nil
}

// Load reads the recorded posting ids. Records not yet checkpointed are kept.
func (l *Ledger) Load(ctx context.Context) error {
	rows, err := l.db.QueryContext(ctx, `SELECT posting_id FROM records;`)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	defer rows.Close()

	known := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("load ledger: %w", err)
		}
		known[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	for _, r := range l.pending {
		known[r.PostingID] = struct{}{}
	}
	l.known = known

	l.logger.Debug("ledger loaded", zap.String("path", l.path), zap.Int("records", len(known)))
	return nil
}

// HasRecord reports whether the posting already has a terminal record.
func (l *Ledger) HasRecord(postingID string) bool {
	_, ok := l.known[postingID]
	return ok
}

// Len returns the number of known records, checkpointed or not.
func (l *Ledger) Len() int {
	return len(l.known)
}

// Pending returns the number of records waiting for the next checkpoint.
func (l *Ledger) Pending() int {
	return len(l.pending)
}

// Record adds a terminal record. It fails with ErrDuplicate for a known posting.
func (l *Ledger) Record(r Record) error {
	if r.PostingID == "" {
		return errors.New("record without posting id")
	}
	if l.HasRecord(r.PostingID) {
		return fmt.Errorf("%w: %s", ErrDuplicate, r.PostingID)
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	r.Timestamp = r.Timestamp.UTC()
	l.known[r.PostingID] = struct{}{}
	l.pending = append(l.pending, r)
	return nil
}

// Checkpoint writes pending records and the session counters in one transaction.
func (l *Ledger) Checkpoint(ctx context.Context, s Session) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, r := range l.pending {
		if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO records (posting_id, status, reason, timestamp, title, company, location, url, attempted, run_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
			r.PostingID, r.Status, r.Reason, r.Timestamp.Format(timeLayout),
			r.Title, r.Company, r.Location, r.URL, r.Attempted, r.RunID,
		); err != nil {
			return fmt.Errorf("checkpoint record %s: %w", r.PostingID, err)
		}
	}

	if s.RunID != "" {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO sessions (run_id, started_at, finished_at, processed, applied, failed, skipped, today, this_run, stop_reason)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id) DO UPDATE SET
  finished_at = excluded.finished_at,
  processed = excluded.processed,
  applied = excluded.applied,
  failed = excluded.failed,
  skipped = excluded.skipped,
  today = excluded.today,
  this_run = excluded.this_run,
  stop_reason = excluded.stop_reason;`,
			s.RunID, formatTime(s.StartedAt), formatTime(s.FinishedAt),
			s.Processed, s.Applied, s.Failed, s.Skipped, s.Today, s.ThisRun, s.StopReason,
		); err != nil {
			return fmt.Errorf("checkpoint session: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	l.logger.Debug("ledger checkpoint", zap.Int("records", len(l.pending)), zap.String("run_id", s.RunID))
	l.pending = nil
	return nil
}

// AttemptsSince counts attempted records since t, including pending ones.
func (l *Ledger) AttemptsSince(ctx context.Context, t time.Time) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE attempted = 1 AND timestamp >= ?;`,
		t.UTC().Format(timeLayout),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	for _, r := range l.pending {
		if r.Attempted && !r.Timestamp.Before(t) {
			n++
		}
	}
	return n, nil
}

// Purge removes the records of ids so they can be attempted again.
func (l *Ledger) Purge(ctx context.Context, ids ...string) (int, error) {
	removed := 0
	for _, id := range ids {
		res, err := l.db.ExecContext(ctx, `DELETE FROM records WHERE posting_id = ?;`, id)
		if err != nil {
			return removed, fmt.Errorf("purge %s: %w", id, err)
		}
		n, _ := res.RowsAffected()

		kept := l.pending[:0]
		for _, r := range l.pending {
			if r.PostingID == id {
				n = 1
				continue
			}
			kept = append(kept, r)
		}
		l.pending = kept

		if n > 0 {
			removed++
			delete(l.known, id)
		}
	}
	return removed, nil
}

// Records returns every record, pending ones included, oldest first.
func (l *Ledger) Records(ctx context.Context) ([]Record, error) {
	rows, err := l.db.QueryContext(ctx, `
SELECT posting_id, status, reason, timestamp, title, company, location, url, attempted, run_id
FROM records ORDER BY timestamp, posting_id;`)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r  Record
			ts string
		)
		if err := rows.Scan(&r.PostingID, &r.Status, &r.Reason, &ts, &r.Title, &r.Company, &r.Location, &r.URL, &r.Attempted, &r.RunID); err != nil {
			return nil, fmt.Errorf("read records: %w", err)
		}
		r.Timestamp = parseTime(ts)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return append(records, l.pending...), nil
}

// Sessions returns up to limit sessions, newest first.
func (l *Ledger) Sessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.db.QueryContext(ctx, `
SELECT run_id, started_at, finished_at, processed, applied, failed, skipped, today, this_run, stop_reason
FROM sessions ORDER BY started_at DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("read sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			s                 Session
			started, finished string
		)
		if err := rows.Scan(&s.RunID, &started, &finished, &s.Processed, &s.Applied, &s.Failed, &s.Skipped, &s.Today, &s.ThisRun, &s.StopReason); err != nil {
			return nil, fmt.Errorf("read sessions: %w", err)
		}
		s.StartedAt, s.FinishedAt = parseTime(started), parseTime(finished)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Close releases the database and the lock. Pending records are dropped; call
// Checkpoint first.
func (l *Ledger) Close() error {
	if len(l.pending) > 0 {
		l.logger.Warn("closing ledger with pending records", zap.Int("pending", len(l.pending)))
	}
	err := l.db.Close()
	if uerr := l.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
