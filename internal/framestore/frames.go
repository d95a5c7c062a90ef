package framestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"lapsecam/internal/frame"
	"lapsecam/internal/logging"
)

// Retain records a captured frame in the ledger. Re-recording an index
// replaces the previous row, which happens when a capture retries after a
// partial write.
func (s *Store) Retain(ctx context.Context, f frame.Frame) error {
	size := int64(0)
	if info, err := os.Stat(f.Path); err == nil {
		size = info.Size()
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT OR REPLACE INTO frames (frame_index, path, captured_at, size_bytes) VALUES (?, ?, ?, ?)`,
		f.Index,
		f.Path,
		f.CapturedAt.UTC().Format(time.RFC3339Nano),
		size,
	)
	if err != nil {
		return fmt.Errorf("retain frame %d: %w", f.Index, err)
	}
	return nil
}

// Frame returns the ledger entry for an index, or nil when absent.
func (s *Store) Frame(ctx context.Context, index uint64) (*frame.Frame, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT frame_index, path, captured_at FROM frames WHERE frame_index = ?`, index)
	var (
		f          frame.Frame
		capturedAt string
	)
	if err := row.Scan(&f.Index, &f.Path, &capturedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get frame %d: %w", index, err)
	}
	if parsed, err := time.Parse(time.RFC3339Nano, capturedAt); err == nil {
		f.CapturedAt = parsed
	}
	return &f, nil
}

// Frames lists all ledger entries ordered by index.
func (s *Store) Frames(ctx context.Context) ([]frame.Frame, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT frame_index, path, captured_at FROM frames ORDER BY frame_index`)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	defer rows.Close()

	var frames []frame.Frame
	for rows.Next() {
		var (
			f          frame.Frame
			capturedAt string
		)
		if err := rows.Scan(&f.Index, &f.Path, &capturedAt); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		if parsed, err := time.Parse(time.RFC3339Nano, capturedAt); err == nil {
			f.CapturedAt = parsed
		}
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}
	return frames, nil
}

// LatestIndex returns the highest retained frame index. ok is false when
// the ledger is empty.
func (s *Store) LatestIndex(ctx context.Context) (index uint64, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(frame_index), 0), COUNT(1) FROM frames`)
	var count int
	if err := row.Scan(&index, &count); err != nil {
		return 0, false, fmt.Errorf("latest frame index: %w", err)
	}
	return index, count > 0, nil
}

// EnforceRetention deletes frames older than both bounds: an index is
// removed only when it is below boundary (the lookback horizon behind the
// current polling position) and below keepFrom (the earliest frame any
// active recording still needs). File deletion failures are logged and
// skipped; the ledger row is removed only once the file is gone, so a
// failed delete is retried on the next pass.
func (s *Store) EnforceRetention(ctx context.Context, boundary, keepFrom uint64) (int, error) {
	limit := boundary
	if keepFrom < limit {
		limit = keepFrom
	}
	if limit == 0 {
		return 0, nil
	}

	frames, err := s.framesBelow(ctx, limit)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, f := range frames {
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.WarnContext(ctx, "retention delete failed",
				logging.Uint64(logging.FieldFrameIndex, f.Index),
				logging.String("path", f.Path),
				logging.Error(err))
			continue
		}
		if _, err := s.execWithRetry(ctx, `DELETE FROM frames WHERE frame_index = ?`, f.Index); err != nil {
			return deleted, fmt.Errorf("drop frame %d: %w", f.Index, err)
		}
		deleted++
	}
	return deleted, nil
}

func (s *Store) framesBelow(ctx context.Context, limit uint64) ([]frame.Frame, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT frame_index, path FROM frames WHERE frame_index < ? ORDER BY frame_index`, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale frames: %w", err)
	}
	defer rows.Close()

	var frames []frame.Frame
	for rows.Next() {
		var f frame.Frame
		if err := rows.Scan(&f.Index, &f.Path); err != nil {
			return nil, fmt.Errorf("scan stale frame: %w", err)
		}
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

// PurgeAll removes every retained frame and its file. Used after a
// finished video is assembled when stills are not kept.
func (s *Store) PurgeAll(ctx context.Context) (int, error) {
	frames, err := s.Frames(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, f := range frames {
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.WarnContext(ctx, "purge delete failed",
				logging.Uint64(logging.FieldFrameIndex, f.Index),
				logging.String("path", f.Path),
				logging.Error(err))
			continue
		}
		if _, err := s.execWithRetry(ctx, `DELETE FROM frames WHERE frame_index = ?`, f.Index); err != nil {
			return deleted, fmt.Errorf("drop frame %d: %w", f.Index, err)
		}
		deleted++
	}
	return deleted, nil
}
