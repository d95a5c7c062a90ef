// Package logging assembles the structured slog loggers used across the
// lapsecam daemon and CLI.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so detection code automatically tags log
// lines with session IDs, frame indices, and phase names. Prefer these
// constructors over hand-rolled slog setup so every component emits log
// lines with the same shape.
package logging
