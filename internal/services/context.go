package services

import "context"

type contextKey string

const (
	sessionIDKey  contextKey = "session_id"
	frameIndexKey contextKey = "frame_index"
	phaseKey      contextKey = "phase"
)

// WithSessionID annotates context with the active session identifier.
func WithSessionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext extracts the session identifier if present.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sessionIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithFrameIndex annotates context with the frame currently being processed.
func WithFrameIndex(ctx context.Context, index uint64) context.Context {
	return context.WithValue(ctx, frameIndexKey, index)
}

// FrameIndexFromContext extracts the frame index if present.
func FrameIndexFromContext(ctx context.Context) (uint64, bool) {
	switch v := ctx.Value(frameIndexKey).(type) {
	case uint64:
		return v, true
	case int:
		if v >= 0 {
			return uint64(v), true
		}
	}
	return 0, false
}

// WithPhase annotates context with the detection phase name (calibrating,
// armed, recording, finalizing).
func WithPhase(ctx context.Context, phase string) context.Context {
	if phase == "" {
		return ctx
	}
	return context.WithValue(ctx, phaseKey, phase)
}

// PhaseFromContext returns the detection phase name if present.
func PhaseFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(phaseKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
