package main

import (
	"strings"
	"testing"
	"time"

	"lapsecam/internal/ipc"
)

func TestSessionsTable(t *testing.T) {
	rendered := sessionsTable([]ipc.SessionRecord{
		{
			ID:          "0f9d3a7c-1111-2222-3333-444455556666",
			Status:      "complete",
			StartedAt:   time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local),
			FirstFrame:  12,
			LastFrame:   40,
			FrameCount:  29,
			Transferred: true,
			VideoPath:   "/videos/out.mp4",
		},
		{ID: "deadbeef-0000", Status: "failed", Failure: "cancelled"},
	})

	for _, want := range []string{"ID", "Status", "Frames", "0f9d3a7c", "Complete", "12-40", "29", "yes", "/videos/out.mp4", "deadbeef", "cancelled"} {
		if !strings.Contains(rendered, want) {
			t.Fatalf("table missing %q:\n%s", want, rendered)
		}
	}
	if strings.Contains(rendered, "1111") {
		t.Fatalf("expected shortened session id:\n%s", rendered)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0f9d3a7c-1111-2222"); got != "0f9d3a7c" {
		t.Fatalf("unexpected short id %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Fatalf("short ids pass through, got %q", got)
	}
}

func TestTitleCase(t *testing.T) {
	if got := titleCase("recording"); got != "Recording" {
		t.Fatalf("unexpected title case %q", got)
	}
	if got := titleCase("  "); got != "" {
		t.Fatalf("expected empty for blank input, got %q", got)
	}
}

func TestFormatSessionTime(t *testing.T) {
	if got := formatSessionTime(time.Time{}); got != "-" {
		t.Fatalf("expected dash for zero time, got %q", got)
	}
	stamp := time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)
	if got := formatSessionTime(stamp); got != "2026-03-14 09:30" {
		t.Fatalf("unexpected formatted time %q", got)
	}
}

func TestSessionOutcome(t *testing.T) {
	complete := ipc.SessionRecord{Status: "complete", VideoPath: "/videos/out.mp4"}
	if got := sessionOutcome(complete); got != "/videos/out.mp4" {
		t.Fatalf("unexpected outcome %q", got)
	}

	failed := ipc.SessionRecord{Status: "failed", Failure: "cancelled"}
	if got := sessionOutcome(failed); got != "cancelled" {
		t.Fatalf("unexpected outcome %q", got)
	}

	bare := ipc.SessionRecord{Status: "failed"}
	if got := sessionOutcome(bare); got != "failed" {
		t.Fatalf("unexpected outcome %q", got)
	}

	recording := ipc.SessionRecord{Status: "recording"}
	if got := sessionOutcome(recording); got != "in progress" {
		t.Fatalf("unexpected outcome %q", got)
	}
}
