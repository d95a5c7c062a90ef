package frame

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Frame is an immutable record of a single captured still.
type Frame struct {
	Index      uint64
	CapturedAt time.Time
	Path       string
}

// Filename returns the canonical on-disk name for a frame index.
func Filename(index uint64) string {
	return fmt.Sprintf("pic%05d.jpg", index)
}

// PathFor joins the stills directory with the canonical frame filename.
func PathFor(stillsDir string, index uint64) string {
	return filepath.Join(stillsDir, Filename(index))
}

// ParseIndex extracts the frame index from a canonical frame path or
// filename. It reports false for names that do not follow the pic%05d.jpg
// convention.
func ParseIndex(path string) (uint64, bool) {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "pic") || !strings.HasSuffix(name, ".jpg") {
		return 0, false
	}
	digits := strings.TrimSuffix(strings.TrimPrefix(name, "pic"), ".jpg")
	if digits == "" {
		return 0, false
	}
	index, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return index, true
}

// Range describes a closed interval of frame indices. The zero Range is
// empty; populated ranges are built with NewRange so that an interval
// starting at index zero stays distinguishable from "no range".
type Range struct {
	First uint64
	Last  uint64
	set   bool
}

// NewRange builds the closed interval [first, last].
func NewRange(first, last uint64) Range {
	return Range{First: first, Last: last, set: true}
}

// Empty reports whether the range holds no frames.
func (r Range) Empty() bool {
	return !r.set || r.Last < r.First
}

// Count returns the number of frames in the range.
func (r Range) Count() uint64 {
	if r.Empty() {
		return 0
	}
	return r.Last - r.First + 1
}

// Contains reports whether index falls inside the range.
func (r Range) Contains(index uint64) bool {
	return !r.Empty() && index >= r.First && index <= r.Last
}

func (r Range) String() string {
	if r.Empty() {
		return "[]"
	}
	return fmt.Sprintf("[%d, %d]", r.First, r.Last)
}
