package framestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"lapsecam/internal/frame"
)

// SessionStatus describes the lifecycle state of a recorded print.
type SessionStatus string

const (
	SessionRecording SessionStatus = "recording"
	SessionComplete  SessionStatus = "complete"
	SessionFailed    SessionStatus = "failed"
)

// Session is the history record for one detected print.
type Session struct {
	ID          string
	Status      SessionStatus
	StartedAt   time.Time
	FinishedAt  time.Time
	Frames      frame.Range
	FrameCount  uint64
	VideoPath   string
	Transferred bool
	Failure     string
}

// CreateSession opens a new session row when a print start is confirmed.
func (s *Store) CreateSession(ctx context.Context, firstFrame uint64) (*Session, error) {
	session := &Session{
		ID:        uuid.NewString(),
		Status:    SessionRecording,
		StartedAt: time.Now().UTC(),
		Frames:    frame.NewRange(firstFrame, firstFrame),
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO sessions (id, status, started_at, first_frame, last_frame) VALUES (?, ?, ?, ?, ?)`,
		session.ID,
		string(session.Status),
		session.StartedAt.Format(time.RFC3339Nano),
		session.Frames.First,
		session.Frames.Last,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

// CompleteSession closes a session after its video has been assembled.
func (s *Store) CompleteSession(ctx context.Context, id string, lastFrame uint64, videoPath string) error {
	// SET expressions see the pre-update row, so the count is derived from
	// the bound last frame rather than the last_frame column.
	res, err := s.execWithRetry(
		ctx,
		`UPDATE sessions SET status = ?, finished_at = ?, last_frame = ?,
		    frame_count = ? - first_frame + 1, video_path = ? WHERE id = ?`,
		string(SessionComplete),
		time.Now().UTC().Format(time.RFC3339Nano),
		lastFrame,
		lastFrame,
		videoPath,
		id,
	)
	if err != nil {
		return fmt.Errorf("complete session %s: %w", id, err)
	}
	return requireRow(res, id)
}

// FailSession closes a session that was aborted or whose finalization
// failed. The reason lands in the history row for the CLI to show.
func (s *Store) FailSession(ctx context.Context, id string, lastFrame uint64, reason string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE sessions SET status = ?, finished_at = ?, last_frame = ?,
		    frame_count = ? - first_frame + 1, failure = ? WHERE id = ?`,
		string(SessionFailed),
		time.Now().UTC().Format(time.RFC3339Nano),
		lastFrame,
		lastFrame,
		reason,
		id,
	)
	if err != nil {
		return fmt.Errorf("fail session %s: %w", id, err)
	}
	return requireRow(res, id)
}

// MarkTransferred flags a completed session's video as uploaded.
func (s *Store) MarkTransferred(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, `UPDATE sessions SET transferred = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark transferred %s: %w", id, err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

// GetSession fetches a session by identifier, or nil when absent.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// ActiveSession returns the session still recording, or nil when idle.
func (s *Store) ActiveSession(ctx context.Context) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE status = ? ORDER BY started_at DESC LIMIT 1`,
		string(SessionRecording))
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active session: %w", err)
	}
	return session, nil
}

// ListSessions returns the most recent sessions, newest first. A limit of
// zero returns everything.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

const sessionColumns = `id, status, started_at, finished_at, first_frame, last_frame, frame_count, video_path, transferred, failure`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		session     Session
		status      string
		startedAt   string
		finishedAt  sql.NullString
		firstFrame  uint64
		lastFrame   uint64
		videoPath   sql.NullString
		failure     sql.NullString
		transferred int
	)
	err := row.Scan(
		&session.ID,
		&status,
		&startedAt,
		&finishedAt,
		&firstFrame,
		&lastFrame,
		&session.FrameCount,
		&videoPath,
		&transferred,
		&failure,
	)
	if err != nil {
		return nil, err
	}

	session.Frames = frame.NewRange(firstFrame, lastFrame)
	session.Status = SessionStatus(status)
	if parsed, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
		session.StartedAt = parsed
	}
	if finishedAt.Valid {
		if parsed, err := time.Parse(time.RFC3339Nano, finishedAt.String); err == nil {
			session.FinishedAt = parsed
		}
	}
	session.VideoPath = videoPath.String
	session.Failure = failure.String
	session.Transferred = transferred != 0
	return &session, nil
}
