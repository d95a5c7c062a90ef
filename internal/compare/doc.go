// Package compare implements the pluggable frame similarity scoring the
// detector consumes. Scores are in (0, 1], higher meaning more similar.
package compare
