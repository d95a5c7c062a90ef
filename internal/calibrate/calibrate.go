// Package calibrate establishes the idle baseline before detection starts.
// Three probe stills are captured in quick succession; when every pairwise
// similarity clears the threshold the scene is considered static and the
// first probe becomes the baseline frame. A busy or flickering scene fails
// the round and calibration retries.
package calibrate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"lapsecam/internal/capture"
	"lapsecam/internal/compare"
	"lapsecam/internal/config"
	"lapsecam/internal/frame"
	"lapsecam/internal/logging"
	"lapsecam/internal/services"
)

const probeCount = 3

// Calibrator runs baseline calibration rounds.
type Calibrator struct {
	source      capture.Source
	comparator  compare.Comparator
	threshold   float64
	probeDelay  time.Duration
	maxAttempts int
	logger      *slog.Logger
}

// New builds a Calibrator from detection configuration.
func New(cfg *config.Config, source capture.Source, comparator compare.Comparator, logger *slog.Logger) *Calibrator {
	return &Calibrator{
		source:      source,
		comparator:  comparator,
		threshold:   cfg.Detection.ThresholdPercentage,
		probeDelay:  time.Duration(cfg.Detection.CalibrationProbeDelay) * time.Second,
		maxAttempts: cfg.Detection.CalibrationMaxAttempts,
		logger:      logging.NewComponentLogger(logger, "calibrate"),
	}
}

// Run calibrates until a stable baseline is captured or the attempt budget
// is exhausted. A budget of zero retries until the context is cancelled.
// The returned frame occupies baseIndex; probe files beyond it are removed.
func (c *Calibrator) Run(ctx context.Context, baseIndex uint64) (frame.Frame, error) {
	attempt := 0
	for {
		attempt++
		baseline, err := c.round(ctx, baseIndex)
		if err == nil {
			c.logger.InfoContext(ctx, "baseline established",
				logging.Uint64(logging.FieldFrameIndex, baseline.Index),
				logging.Int("attempt", attempt))
			return baseline, nil
		}
		if ctx.Err() != nil {
			return frame.Frame{}, services.Wrap(services.ErrCancelled, "calibrate", "run", "calibration cancelled", ctx.Err())
		}

		c.logger.WarnContext(ctx, "calibration round failed",
			logging.Int("attempt", attempt),
			logging.Error(err))

		if c.maxAttempts > 0 && attempt >= c.maxAttempts {
			return frame.Frame{}, services.Wrap(services.ErrCalibration, "calibrate", "run",
				fmt.Sprintf("gave up after %d attempts", attempt), err)
		}

		if err := c.pause(ctx); err != nil {
			return frame.Frame{}, services.Wrap(services.ErrCancelled, "calibrate", "run", "calibration cancelled", err)
		}
	}
}

// round captures one probe set and checks pairwise stability.
func (c *Calibrator) round(ctx context.Context, baseIndex uint64) (frame.Frame, error) {
	probes := make([]frame.Frame, 0, probeCount)
	keep := -1
	defer func() {
		// Only a promoted baseline survives; every other probe is a
		// scratch file, on success and failure alike.
		for i, probe := range probes {
			if i == keep {
				continue
			}
			if err := os.Remove(probe.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				c.logger.WarnContext(ctx, "probe cleanup failed",
					logging.String("path", probe.Path),
					logging.Error(err))
			}
		}
	}()

	for i := 0; i < probeCount; i++ {
		if i > 0 {
			if err := c.pause(ctx); err != nil {
				return frame.Frame{}, err
			}
		}
		probe, err := c.source.Capture(ctx, baseIndex+uint64(i))
		if err != nil {
			return frame.Frame{}, err
		}
		probes = append(probes, probe)
	}

	for i := 0; i < probeCount; i++ {
		for j := i + 1; j < probeCount; j++ {
			score, err := c.comparator.Compare(ctx, probes[i], probes[j])
			if err != nil {
				return frame.Frame{}, err
			}
			if score < c.threshold {
				return frame.Frame{}, services.Wrap(services.ErrCalibration, "calibrate", "round",
					fmt.Sprintf("probes %d/%d scored %.4f below threshold %.4f", i, j, score, c.threshold), nil)
			}
		}
	}

	keep = 0
	return probes[0], nil
}

func (c *Calibrator) pause(ctx context.Context) error {
	if c.probeDelay <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(c.probeDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
