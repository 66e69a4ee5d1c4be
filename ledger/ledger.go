package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Outcome is the result of a session or flash.
type Outcome string

const (
	OutcomeRunning Outcome = "running"
	OutcomeOK      Outcome = "ok"
	OutcomeFailed  Outcome = "failed"
)

// ErrNoSession is returned for an unknown session ID.
var ErrNoSession = errors.New("ledger: no such session")

// Session is one upgrade run.
type Session struct {
	ID         string
	Firmware   string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    Outcome
	Error      string
}

// Flash is one flash attempt within a session.
type Flash struct {
	SessionID string
	DeviceID  uint32
	BlockType string
	Role      string
	HopCount  int
	StartedAt time.Time
	Duration  time.Duration
	Outcome   Outcome
	Error     string
}

// Recorder receives upgrade history as it happens.
type Recorder interface {
	BeginSession(ctx context.Context, id, firmware string, at time.Time) error
	EndSession(ctx context.Context, id string, at time.Time, err error) error
	RecordFlash(ctx context.Context, f Flash) error
}

// Nop discards everything.
var Nop Recorder = nopRecorder{}

type nopRecorder struct{}

func (nopRecorder) BeginSession(context.Context, string, string, time.Time) error { return nil }
func (nopRecorder) EndSession(context.Context, string, time.Time, error) error    { return nil }
func (nopRecorder) RecordFlash(context.Context, Flash) error                      { return nil }

// BeginSession inserts a running session.
func (s *Store) BeginSession(ctx context.Context, id, firmware string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, firmware, started_at)
		VALUES (?, ?, ?)
	`, id, firmware, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// EndSession marks a session finished, failed if err is non-nil.
func (s *Store) EndSession(ctx context.Context, id string, at time.Time, err error) error {
	outcome, msg := OutcomeOK, sql.NullString{}
	if err != nil {
		outcome, msg = OutcomeFailed, sql.NullString{String: err.Error(), Valid: true}
	}
	res, dbErr := s.db.ExecContext(ctx, `
		UPDATE sessions SET finished_at = ?, outcome = ?, error = ?
		WHERE id = ?
	`, at.UnixMilli(), string(outcome), msg, id)
	if dbErr != nil {
		return fmt.Errorf("failed to update session: %w", dbErr)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNoSession, id)
	}
	return nil
}

// RecordFlash inserts a flash attempt.
func (s *Store) RecordFlash(ctx context.Context, f Flash) error {
	var msg sql.NullString
	if f.Error != "" {
		msg = sql.NullString{String: f.Error, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO flashes
		(session_id, device_id, block_type, role, hop_count, started_at, duration_ms, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		f.SessionID,
		int64(f.DeviceID),
		f.BlockType,
		f.Role,
		f.HopCount,
		f.StartedAt.UnixMilli(),
		f.Duration.Milliseconds(),
		string(f.Outcome),
		msg,
	)
	if err != nil {
		return fmt.Errorf("failed to insert flash: %w", err)
	}
	return nil
}

// Sessions returns the most recent sessions first, at most limit of them
// (all if limit <= 0).
func (s *Store) Sessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, firmware, started_at, finished_at, outcome, error
		FROM sessions
		ORDER BY started_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			sess     Session
			started  int64
			finished sql.NullInt64
			outcome  string
			msg      sql.NullString
		)
		if err := rows.Scan(&sess.ID, &sess.Firmware, &started, &finished, &outcome, &msg); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sess.StartedAt = time.UnixMilli(started)
		if finished.Valid {
			sess.FinishedAt = time.UnixMilli(finished.Int64)
		}
		sess.Outcome = Outcome(outcome)
		sess.Error = msg.String
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Flashes returns the flashes of a session in the order they happened.
func (s *Store) Flashes(ctx context.Context, sessionID string) ([]Flash, error) {
	return s.queryFlashes(ctx, "session_id = ?", sessionID)
}

// DeviceHistory returns every flash of one device, oldest first.
func (s *Store) DeviceHistory(ctx context.Context, deviceID uint32) ([]Flash, error) {
	return s.queryFlashes(ctx, "device_id = ?", int64(deviceID))
}

func (s *Store) queryFlashes(ctx context.Context, where string, arg interface{}) ([]Flash, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, device_id, block_type, role, hop_count, started_at, duration_ms, outcome, error
		FROM flashes
		WHERE `+where+`
		ORDER BY id
	`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query flashes: %w", err)
	}
	defer rows.Close()

	var out []Flash
	for rows.Next() {
		var (
			f        Flash
			id       int64
			started  int64
			duration int64
			outcome  string
			msg      sql.NullString
		)
		if err := rows.Scan(&f.SessionID, &id, &f.BlockType, &f.Role, &f.HopCount, &started, &duration, &outcome, &msg); err != nil {
			return nil, fmt.Errorf("failed to scan flash: %w", err)
		}
		f.DeviceID = uint32(id)
		f.StartedAt = time.UnixMilli(started)
		f.Duration = time.Duration(duration) * time.Millisecond
		f.Outcome = Outcome(outcome)
		f.Error = msg.String
		out = append(out, f)
	}
	return out, rows.Err()
}
