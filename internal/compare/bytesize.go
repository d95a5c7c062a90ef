package compare

import (
	"context"
	"fmt"
	"os"

	"lapsecam/internal/frame"
	"lapsecam/internal/services"
)

// ByteSize scores similarity by comparing encoded file sizes. JPEG size
// tracks scene complexity closely enough for a fixed camera, and it needs
// no decoding, which matters on the small boards this runs on.
type ByteSize struct{}

func (ByteSize) Name() string { return "bytesize" }

func (ByteSize) Compare(_ context.Context, a, b frame.Frame) (float64, error) {
	sizeA, err := fileSize(a.Path)
	if err != nil {
		return 0, err
	}
	sizeB, err := fileSize(b.Path)
	if err != nil {
		return 0, err
	}
	if sizeA == sizeB {
		return 1, nil
	}
	larger, smaller := sizeA, sizeB
	if smaller > larger {
		larger, smaller = smaller, larger
	}
	return float64(smaller) / float64(larger), nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, services.Wrap(services.ErrComparison, "compare", "bytesize", fmt.Sprintf("stat %s", path), err)
	}
	if info.Size() <= 0 {
		return 0, services.Wrap(services.ErrComparison, "compare", "bytesize", fmt.Sprintf("empty frame %s", path), nil)
	}
	return info.Size(), nil
}
