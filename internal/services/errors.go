package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCapture marks a failed still acquisition. Transient: the poll tick
	// is skipped and capture retried on the next interval.
	ErrCapture = errors.New("capture failed")
	// ErrComparison marks a failed similarity computation. Transient: the
	// vote for that frame stays pending, the window is not crashed.
	ErrComparison = errors.New("comparison failed")
	// ErrCalibration marks a baseline calibration attempt rejected by the
	// mutual consistency check. Expected during startup instability.
	ErrCalibration = errors.New("calibration failed")
	// ErrAssembly marks a failed video assembly. Terminal for the session's
	// output only; the session still resets.
	ErrAssembly = errors.New("assembly failed")
	// ErrTransfer marks a failed video upload. The video is retained in the
	// completed-output folder.
	ErrTransfer = errors.New("transfer failed")
	// ErrConfiguration marks unusable configuration discovered at runtime.
	ErrConfiguration = errors.New("configuration error")
	// ErrCancelled marks operator-initiated shutdown of an in-flight session.
	ErrCancelled = errors.New("cancelled")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided sentinel for later classification.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrCapture
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Transient reports whether an error should be absorbed by the poll loop
// (skip or pending vote) rather than ending the session.
func Transient(err error) bool {
	return errors.Is(err, ErrCapture) || errors.Is(err, ErrComparison) || errors.Is(err, ErrCalibration)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
