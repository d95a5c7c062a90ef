package framestore_test

import (
	"context"
	"os"
	"testing"

	"lapsecam/internal/framestore"
	"lapsecam/internal/testsupport"
)

func TestRetainAndList(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for index := uint64(0); index < 4; index++ {
		testsupport.RetainFrame(t, store, cfg, index, 100+int64(index))
	}

	frames, err := store.Frames(ctx)
	if err != nil {
		t.Fatalf("Frames failed: %v", err)
	}
	if len(frames) != 4 {
		t.Fatalf("expected 4 frames, got %d", len(frames))
	}
	for i, f := range frames {
		if f.Index != uint64(i) {
			t.Fatalf("expected ordered indices, got %d at position %d", f.Index, i)
		}
	}

	latest, ok, err := store.LatestIndex(ctx)
	if err != nil {
		t.Fatalf("LatestIndex failed: %v", err)
	}
	if !ok || latest != 3 {
		t.Fatalf("expected latest index 3, got %d (ok=%v)", latest, ok)
	}
}

func TestLatestIndexEmpty(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, ok, err := store.LatestIndex(context.Background())
	if err != nil {
		t.Fatalf("LatestIndex failed: %v", err)
	}
	if ok {
		t.Fatal("expected empty ledger")
	}
}

func TestRetainReplacesIndex(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.RetainFrame(t, store, cfg, 1, 50)
	testsupport.RetainFrame(t, store, cfg, 1, 200)

	frames, err := store.Frames(ctx)
	if err != nil {
		t.Fatalf("Frames failed: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected single frame after replace, got %d", len(frames))
	}
}

func TestEnforceRetentionDeletesBelowBothBounds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	var paths []string
	for index := uint64(0); index < 10; index++ {
		f := testsupport.RetainFrame(t, store, cfg, index, 100)
		paths = append(paths, f.Path)
	}

	// Lookback horizon at 7, but an active recording still needs frame 4.
	deleted, err := store.EnforceRetention(ctx, 7, 4)
	if err != nil {
		t.Fatalf("EnforceRetention failed: %v", err)
	}
	if deleted != 4 {
		t.Fatalf("expected 4 deletions, got %d", deleted)
	}

	for index, path := range paths {
		_, statErr := os.Stat(path)
		if index < 4 && statErr == nil {
			t.Fatalf("frame %d should have been deleted", index)
		}
		if index >= 4 && statErr != nil {
			t.Fatalf("frame %d should survive: %v", index, statErr)
		}
	}

	frames, err := store.Frames(ctx)
	if err != nil {
		t.Fatalf("Frames failed: %v", err)
	}
	if len(frames) != 6 {
		t.Fatalf("expected 6 remaining ledger rows, got %d", len(frames))
	}
}

func TestEnforceRetentionIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for index := uint64(0); index < 6; index++ {
		testsupport.RetainFrame(t, store, cfg, index, 100)
	}

	if _, err := store.EnforceRetention(ctx, 3, 3); err != nil {
		t.Fatalf("EnforceRetention failed: %v", err)
	}
	deleted, err := store.EnforceRetention(ctx, 3, 3)
	if err != nil {
		t.Fatalf("EnforceRetention failed: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("second pass should delete nothing, got %d", deleted)
	}
}

func TestEnforceRetentionSurvivesMissingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	f := testsupport.RetainFrame(t, store, cfg, 0, 100)
	testsupport.RetainFrame(t, store, cfg, 1, 100)
	if err := os.Remove(f.Path); err != nil {
		t.Fatalf("remove still: %v", err)
	}

	deleted, err := store.EnforceRetention(ctx, 2, 2)
	if err != nil {
		t.Fatalf("EnforceRetention failed: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected both rows dropped, got %d", deleted)
	}
}

func TestPurgeAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	var paths []string
	for index := uint64(0); index < 5; index++ {
		f := testsupport.RetainFrame(t, store, cfg, index, 100)
		paths = append(paths, f.Path)
	}

	deleted, err := store.PurgeAll(ctx)
	if err != nil {
		t.Fatalf("PurgeAll failed: %v", err)
	}
	if deleted != 5 {
		t.Fatalf("expected 5 deletions, got %d", deleted)
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			t.Fatalf("still %s should be gone", path)
		}
	}
	if _, ok, err := store.LatestIndex(ctx); err != nil || ok {
		t.Fatalf("ledger should be empty (ok=%v err=%v)", ok, err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	session, err := store.CreateSession(ctx, 12)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected session ID")
	}
	if session.Status != framestore.SessionRecording {
		t.Fatalf("expected recording status, got %s", session.Status)
	}

	active, err := store.ActiveSession(ctx)
	if err != nil {
		t.Fatalf("ActiveSession failed: %v", err)
	}
	if active == nil || active.ID != session.ID {
		t.Fatalf("expected active session %s, got %+v", session.ID, active)
	}

	if err := store.CompleteSession(ctx, session.ID, 40, "/videos/out.mp4"); err != nil {
		t.Fatalf("CompleteSession failed: %v", err)
	}
	if err := store.MarkTransferred(ctx, session.ID); err != nil {
		t.Fatalf("MarkTransferred failed: %v", err)
	}

	loaded, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected session row")
	}
	if loaded.Status != framestore.SessionComplete {
		t.Fatalf("expected complete status, got %s", loaded.Status)
	}
	if loaded.Frames.First != 12 || loaded.Frames.Last != 40 {
		t.Fatalf("unexpected frame range %s", loaded.Frames)
	}
	if loaded.FrameCount != 29 {
		t.Fatalf("expected frame count 29, got %d", loaded.FrameCount)
	}
	if loaded.VideoPath != "/videos/out.mp4" {
		t.Fatalf("unexpected video path %q", loaded.VideoPath)
	}
	if !loaded.Transferred {
		t.Fatal("expected transferred flag")
	}
	if loaded.FinishedAt.IsZero() {
		t.Fatal("expected finished timestamp")
	}

	active, err = store.ActiveSession(ctx)
	if err != nil {
		t.Fatalf("ActiveSession failed: %v", err)
	}
	if active != nil {
		t.Fatalf("expected no active session, got %s", active.ID)
	}
}

func TestFailSessionRecordsReason(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	session, err := store.CreateSession(ctx, 0)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := store.FailSession(ctx, session.ID, 9, "camera unplugged"); err != nil {
		t.Fatalf("FailSession failed: %v", err)
	}

	loaded, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if loaded.Status != framestore.SessionFailed {
		t.Fatalf("expected failed status, got %s", loaded.Status)
	}
	if loaded.Failure != "camera unplugged" {
		t.Fatalf("unexpected failure reason %q", loaded.Failure)
	}
}

func TestListSessionsNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		session, err := store.CreateSession(ctx, uint64(i))
		if err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		if err := store.CompleteSession(ctx, session.ID, uint64(i)+10, ""); err != nil {
			t.Fatalf("CompleteSession failed: %v", err)
		}
	}

	sessions, err := store.ListSessions(ctx, 2)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(sessions))
	}

	all, err := store.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected all 3 sessions, got %d", len(all))
	}
}

func TestUpdateMissingSessionErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := store.CompleteSession(ctx, "no-such-id", 1, ""); err == nil {
		t.Fatal("expected error for unknown session")
	}
	if err := store.MarkTransferred(ctx, "no-such-id"); err == nil {
		t.Fatal("expected error for unknown session")
	}
}
