package detect

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"lapsecam/internal/compare"
	"lapsecam/internal/config"
	"lapsecam/internal/fileutil"
	"lapsecam/internal/frame"
	"lapsecam/internal/framestore"
	"lapsecam/internal/hysteresis"
	"lapsecam/internal/logging"
	"lapsecam/internal/services"
)

// State is the detection lifecycle phase.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateRecording
	StateFinalizing
	StateAborting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateRecording:
		return "recording"
	case StateFinalizing:
		return "finalizing"
	case StateAborting:
		return "aborting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Action tells the session controller what to do after a frame.
type Action int

const (
	ActionNone Action = iota
	ActionStartRecording
	ActionFinalize
	ActionAbort
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionStartRecording:
		return "start_recording"
	case ActionFinalize:
		return "finalize"
	case ActionAbort:
		return "abort"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Machine is the per-session detection state machine. It owns the
// hysteresis windows and drives frame retention; it performs no capture or
// assembly itself.
type Machine struct {
	comparator compare.Comparator
	store      *framestore.Store
	logger     *slog.Logger

	threshold     float64
	startCapacity int
	stopCapacity  int
	finalCount    int
	lookback      uint64
	gracePeriod   time.Duration

	now func() time.Time

	state          State
	baseline       frame.Frame
	startWindow    *hysteresis.Tracker
	stopWindow     *hysteresis.Tracker
	recordingStart uint64
	recordingFrom  time.Time
	finalRange     frame.Range
}

// New builds a Machine in the idle state.
func New(cfg *config.Config, comparator compare.Comparator, store *framestore.Store, logger *slog.Logger) *Machine {
	det := cfg.Detection
	return &Machine{
		comparator:    comparator,
		store:         store,
		logger:        logging.NewComponentLogger(logger, "detect"),
		threshold:     det.ThresholdPercentage,
		startCapacity: det.StartWindowFrames,
		stopCapacity:  det.StopWindowFrames,
		finalCount:    det.FinalConfirmationFrames,
		lookback:      uint64(det.RetentionLookback),
		gracePeriod:   time.Duration(det.BeginTimelapseDelay) * time.Second,
		now:           time.Now,
		state:         StateIdle,
		startWindow:   hysteresis.New(det.StartWindowFrames, hysteresis.RequireAll()),
		stopWindow:    hysteresis.New(det.StopWindowFrames, hysteresis.RequireAll()),
	}
}

// State returns the current lifecycle phase.
func (m *Machine) State() State { return m.state }

// RecordingStart returns the first frame index of the active recording.
func (m *Machine) RecordingStart() uint64 { return m.recordingStart }

// FinalRange returns the closed frame range recorded at finalization.
func (m *Machine) FinalRange() frame.Range { return m.finalRange }

// Arm snapshots the baseline outside the numbered frame sequence and moves
// to the armed state. The snapshot keeps the reference image safe from
// retention sweeps over the pic%05d namespace.
func (m *Machine) Arm(ctx context.Context, baseline frame.Frame) error {
	snapshot := filepath.Join(filepath.Dir(baseline.Path), "baseline.jpg")
	if err := fileutil.CopyFile(baseline.Path, snapshot); err != nil {
		return services.Wrap(services.ErrCalibration, "detect", "arm", "snapshot baseline", err)
	}
	m.baseline = frame.Frame{Index: baseline.Index, CapturedAt: baseline.CapturedAt, Path: snapshot}
	m.state = StateArmed
	m.startWindow.Reset()
	m.stopWindow.Reset()
	m.recordingStart = 0
	m.finalRange = frame.Range{}
	m.logger.InfoContext(ctx, "armed",
		logging.Uint64("baseline_index", baseline.Index))
	return nil
}

// Abort marks the session cancelled. No assembly of a partial recording is
// attempted afterwards.
func (m *Machine) Abort() {
	m.state = StateAborting
}

// Reset returns the machine to idle after finalization or abort. A fresh
// baseline calibration is required before the next session arms.
func (m *Machine) Reset() {
	m.state = StateIdle
	m.baseline = frame.Frame{}
	m.startWindow.Reset()
	m.stopWindow.Reset()
	m.recordingStart = 0
	m.finalRange = frame.Range{}
}

// OnFrame classifies a freshly captured frame and returns the action the
// controller should take. Comparison failures are absorbed as pending
// votes; only store failures propagate.
func (m *Machine) OnFrame(ctx context.Context, f frame.Frame) (Action, error) {
	switch m.state {
	case StateArmed:
		return m.onArmedFrame(ctx, f)
	case StateRecording:
		return m.onRecordingFrame(ctx, f)
	case StateAborting:
		return ActionAbort, nil
	default:
		return ActionNone, nil
	}
}

func (m *Machine) onArmedFrame(ctx context.Context, f frame.Frame) (Action, error) {
	score, err := m.comparator.Compare(ctx, f, m.baseline)
	if err != nil {
		m.logger.WarnContext(ctx, "baseline comparison failed, vote stays pending",
			logging.Uint64(logging.FieldFrameIndex, f.Index),
			logging.Error(err))
		return ActionNone, m.armedRetention(ctx, f.Index)
	}

	dissimilar := score < m.threshold
	decision := m.startWindow.Push(dissimilar)
	m.logger.DebugContext(ctx, "start vote",
		logging.Uint64(logging.FieldFrameIndex, f.Index),
		logging.Float64("score", score),
		logging.Bool("dissimilar", dissimilar),
		logging.String("decision", decision.String()))

	if decision == hysteresis.Confirmed {
		start := uint64(0)
		if f.Index > uint64(m.startCapacity) {
			start = f.Index - uint64(m.startCapacity)
		}
		m.state = StateRecording
		m.recordingStart = start
		m.recordingFrom = m.now()
		m.stopWindow.Reset()
		m.logger.InfoContext(ctx, "print start confirmed",
			logging.Uint64(logging.FieldFrameIndex, f.Index),
			logging.Uint64("recording_start", start))
		return ActionStartRecording, nil
	}

	return ActionNone, m.armedRetention(ctx, f.Index)
}

func (m *Machine) armedRetention(ctx context.Context, current uint64) error {
	if current <= m.lookback {
		return nil
	}
	boundary := current - m.lookback
	if _, err := m.store.EnforceRetention(ctx, boundary, boundary); err != nil {
		return fmt.Errorf("enforce retention: %w", err)
	}
	return nil
}

func (m *Machine) onRecordingFrame(ctx context.Context, f frame.Frame) (Action, error) {
	// Grace period: the print just started. No completion votes, no
	// deletions, let the bed and camera settle.
	if m.now().Sub(m.recordingFrom) < m.gracePeriod {
		return ActionNone, nil
	}

	reference, err := m.lagReference(ctx, f.Index)
	if err != nil {
		return ActionNone, err
	}
	if reference == nil {
		return ActionNone, nil
	}

	score, err := m.comparator.Compare(ctx, f, *reference)
	if err != nil {
		m.logger.WarnContext(ctx, "lag comparison failed, vote stays pending",
			logging.Uint64(logging.FieldFrameIndex, f.Index),
			logging.Error(err))
		return ActionNone, nil
	}

	similar := score >= m.threshold
	decision := m.stopWindow.Push(similar)
	m.logger.DebugContext(ctx, "stop vote",
		logging.Uint64(logging.FieldFrameIndex, f.Index),
		logging.Float64("score", score),
		logging.Bool("similar", similar),
		logging.String("decision", decision.String()))

	if decision != hysteresis.Confirmed {
		return ActionNone, nil
	}

	// Second stage: the sliding window can be fooled by a slow layer, so
	// corroborate against each of the trailing frames individually.
	if !m.finalConfirmation(ctx, f) {
		return ActionNone, nil
	}

	m.state = StateFinalizing
	m.finalRange = frame.NewRange(m.recordingStart, f.Index)
	m.logger.InfoContext(ctx, "print completion confirmed",
		logging.Uint64(logging.FieldFrameIndex, f.Index),
		logging.String("range", m.finalRange.String()))
	return ActionFinalize, nil
}

// lagReference resolves the comparison target during recording: the frame
// stopCapacity indices behind the current one, clamped to the recording
// start. The finished object, not the empty bed, is the steady state to
// match against.
func (m *Machine) lagReference(ctx context.Context, current uint64) (*frame.Frame, error) {
	lag := uint64(m.stopCapacity)
	if current < lag {
		return nil, nil
	}
	index := current - lag
	if index < m.recordingStart {
		index = m.recordingStart
	}
	reference, err := m.store.Frame(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("lag reference %d: %w", index, err)
	}
	return reference, nil
}

// finalConfirmation compares the current frame against each of the last
// finalCount frames individually. All comparisons must clear the
// threshold; the fan-out runs in parallel but the all-must-agree decision
// is order independent.
func (m *Machine) finalConfirmation(ctx context.Context, f frame.Frame) bool {
	targets := make([]frame.Frame, 0, m.finalCount)
	for i := 1; i <= m.finalCount; i++ {
		if f.Index < uint64(i) {
			return false
		}
		index := f.Index - uint64(i)
		if index < m.recordingStart {
			return false
		}
		target, err := m.store.Frame(ctx, index)
		if err != nil || target == nil {
			m.logger.WarnContext(ctx, "final confirmation target missing",
				logging.Uint64(logging.FieldFrameIndex, index),
				logging.Error(err))
			return false
		}
		targets = append(targets, *target)
	}

	votes := make([]bool, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(slot int, target frame.Frame) {
			defer wg.Done()
			score, err := m.comparator.Compare(ctx, f, target)
			if err != nil {
				m.logger.WarnContext(ctx, "final confirmation comparison failed",
					logging.Uint64(logging.FieldFrameIndex, target.Index),
					logging.Error(err))
				return
			}
			votes[slot] = score >= m.threshold
		}(i, target)
	}
	wg.Wait()

	for _, vote := range votes {
		if !vote {
			return false
		}
	}
	return true
}
