package services

import (
	"context"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = WithSessionID(ctx, "sess-1")
	ctx = WithFrameIndex(ctx, 42)
	ctx = WithPhase(ctx, "recording")

	if id, ok := SessionIDFromContext(ctx); !ok || id != "sess-1" {
		t.Fatalf("session id = (%q, %v)", id, ok)
	}
	if index, ok := FrameIndexFromContext(ctx); !ok || index != 42 {
		t.Fatalf("frame index = (%d, %v)", index, ok)
	}
	if phase, ok := PhaseFromContext(ctx); !ok || phase != "recording" {
		t.Fatalf("phase = (%q, %v)", phase, ok)
	}
}

func TestContextAbsentValues(t *testing.T) {
	ctx := context.Background()
	if _, ok := SessionIDFromContext(ctx); ok {
		t.Fatal("expected no session id")
	}
	if _, ok := FrameIndexFromContext(ctx); ok {
		t.Fatal("expected no frame index")
	}
	if _, ok := PhaseFromContext(ctx); ok {
		t.Fatal("expected no phase")
	}
}
