package compare

import (
	"context"
	"fmt"

	"lapsecam/internal/frame"
)

// Comparator produces a similarity score for two frames. Scores fall in
// (0, 1] with higher meaning more similar; the detector treats any score
// above the configured threshold as "same scene".
type Comparator interface {
	Compare(ctx context.Context, a, b frame.Frame) (float64, error)
	Name() string
}

// ForName returns the comparator implementation registered under name.
func ForName(name string) (Comparator, error) {
	switch name {
	case "bytesize":
		return ByteSize{}, nil
	case "histogram":
		return Histogram{}, nil
	default:
		return nil, fmt.Errorf("unknown comparator %q", name)
	}
}
