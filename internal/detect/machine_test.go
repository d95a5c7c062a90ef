package detect

import (
	"context"
	"os"
	"testing"
	"time"

	"lapsecam/internal/config"
	"lapsecam/internal/frame"
	"lapsecam/internal/framestore"
	"lapsecam/internal/services"
	"lapsecam/internal/testsupport"
)

type funcComparator struct {
	fn func(a, b frame.Frame) (float64, error)
}

func (funcComparator) Name() string { return "scripted" }

func (c funcComparator) Compare(_ context.Context, a, b frame.Frame) (float64, error) {
	return c.fn(a, b)
}

func similarAlways(frame.Frame, frame.Frame) (float64, error) { return 0.99, nil }

type harness struct {
	cfg     *config.Config
	store   *framestore.Store
	machine *Machine
}

func newHarness(t *testing.T, fn func(a, b frame.Frame) (float64, error)) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Detection.BeginTimelapseDelay = 0
	store := testsupport.MustOpenStore(t, cfg)
	machine := New(cfg, funcComparator{fn: fn}, store, nil)
	return &harness{cfg: cfg, store: store, machine: machine}
}

// arm retains a baseline still at index 0 and arms the machine against it.
func (h *harness) arm(t *testing.T) {
	t.Helper()
	baseline := testsupport.RetainFrame(t, h.store, h.cfg, 0, 100)
	if err := h.machine.Arm(context.Background(), baseline); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}
}

// feed retains a frame and runs it through the machine.
func (h *harness) feed(t *testing.T, index uint64) Action {
	t.Helper()
	f := testsupport.RetainFrame(t, h.store, h.cfg, index, 100)
	action, err := h.machine.OnFrame(context.Background(), f)
	if err != nil {
		t.Fatalf("OnFrame(%d) failed: %v", index, err)
	}
	return action
}

func TestIdleFramesAreIgnored(t *testing.T) {
	h := newHarness(t, similarAlways)
	if action := h.feed(t, 1); action != ActionNone {
		t.Fatalf("expected no action in idle, got %s", action)
	}
	if h.machine.State() != StateIdle {
		t.Fatalf("expected idle, got %s", h.machine.State())
	}
}

func TestArmSnapshotsBaseline(t *testing.T) {
	h := newHarness(t, similarAlways)
	h.arm(t)

	if h.machine.State() != StateArmed {
		t.Fatalf("expected armed, got %s", h.machine.State())
	}
	if _, err := os.Stat(h.machine.baseline.Path); err != nil {
		t.Fatalf("baseline snapshot missing: %v", err)
	}
	if h.machine.baseline.Path == frame.PathFor(h.cfg.Paths.StillsDir, 0) {
		t.Fatal("baseline should live outside the numbered sequence")
	}
}

func TestStartConfirmationSetsRecordingStart(t *testing.T) {
	// Frames 1-4 match the baseline; 5 onward differ. With a start window
	// of 3 the transition lands on frame 7 and backdates the recording to
	// capture the lead-in.
	dissimilarFrom := uint64(5)
	h := newHarness(t, func(a, b frame.Frame) (float64, error) {
		if a.Index >= dissimilarFrom {
			return 0.50, nil
		}
		return 0.99, nil
	})
	h.cfg.Detection.StartWindowFrames = 3
	h.machine = New(h.cfg, h.machine.comparator, h.store, nil)
	h.arm(t)

	for index := uint64(1); index <= 6; index++ {
		if action := h.feed(t, index); action != ActionNone {
			t.Fatalf("unexpected action %s at frame %d", action, index)
		}
	}
	if action := h.feed(t, 7); action != ActionStartRecording {
		t.Fatal("expected start_recording on third consecutive dissimilar frame")
	}
	if h.machine.State() != StateRecording {
		t.Fatalf("expected recording, got %s", h.machine.State())
	}
	if h.machine.RecordingStart() != 4 {
		t.Fatalf("expected recording start 4, got %d", h.machine.RecordingStart())
	}
}

func TestStartRequiresContiguousRun(t *testing.T) {
	// A single similar frame inside the run breaks confirmation.
	scores := map[uint64]float64{1: 0.5, 2: 0.5, 3: 0.99, 4: 0.5, 5: 0.5, 6: 0.5}
	h := newHarness(t, func(a, b frame.Frame) (float64, error) {
		if score, ok := scores[a.Index]; ok {
			return score, nil
		}
		return 0.99, nil
	})
	h.cfg.Detection.StartWindowFrames = 3
	h.machine = New(h.cfg, h.machine.comparator, h.store, nil)
	h.arm(t)

	for index := uint64(1); index <= 5; index++ {
		if action := h.feed(t, index); action != ActionStartRecording {
			continue
		}
		t.Fatalf("confirmed too early at frame %d", index)
	}
	if action := h.feed(t, 6); action != ActionStartRecording {
		t.Fatal("expected confirmation once a contiguous run reappears")
	}
}

func TestRecordingStartClampedAtZero(t *testing.T) {
	h := newHarness(t, func(a, b frame.Frame) (float64, error) { return 0.50, nil })
	h.cfg.Detection.StartWindowFrames = 3
	h.machine = New(h.cfg, h.machine.comparator, h.store, nil)
	h.arm(t)

	h.feed(t, 1)
	h.feed(t, 2)
	if action := h.feed(t, 3); action != ActionStartRecording {
		t.Fatal("expected start_recording")
	}
	if h.machine.RecordingStart() != 0 {
		t.Fatalf("expected clamped start 0, got %d", h.machine.RecordingStart())
	}
}

func TestArmedRetentionSweepsOldFrames(t *testing.T) {
	h := newHarness(t, similarAlways)
	h.cfg.Detection.RetentionLookback = 5
	h.machine = New(h.cfg, h.machine.comparator, h.store, nil)
	h.arm(t)

	for index := uint64(1); index <= 12; index++ {
		h.feed(t, index)
	}

	frames, err := h.store.Frames(context.Background())
	if err != nil {
		t.Fatalf("Frames failed: %v", err)
	}
	for _, f := range frames {
		if f.Index < 7 {
			t.Fatalf("frame %d should have been swept", f.Index)
		}
	}
	if len(frames) != 6 {
		t.Fatalf("expected frames 7-12 to survive, got %d frames", len(frames))
	}

	// The baseline snapshot is outside the sweep's namespace.
	if _, err := os.Stat(h.machine.baseline.Path); err != nil {
		t.Fatalf("baseline snapshot swept: %v", err)
	}
}

func TestComparisonFailureLeavesVotePending(t *testing.T) {
	h := newHarness(t, func(a, b frame.Frame) (float64, error) {
		return 0, services.Wrap(services.ErrComparison, "compare", "test", "boom", nil)
	})
	h.arm(t)

	for index := uint64(1); index <= 6; index++ {
		if action := h.feed(t, index); action != ActionNone {
			t.Fatalf("unexpected action %s", action)
		}
	}
	if h.machine.State() != StateArmed {
		t.Fatalf("expected armed after failed comparisons, got %s", h.machine.State())
	}
	if h.machine.startWindow.Len() != 0 {
		t.Fatalf("expected no votes recorded, got %d", h.machine.startWindow.Len())
	}
}

func TestGracePeriodIsolation(t *testing.T) {
	h := newHarness(t, similarAlways)
	h.cfg.Detection.BeginTimelapseDelay = 300
	h.machine = New(h.cfg, h.machine.comparator, h.store, nil)

	now := time.Now()
	h.machine.now = func() time.Time { return now }
	h.machine.state = StateRecording
	h.machine.recordingStart = 0
	h.machine.recordingFrom = now

	for index := uint64(1); index <= 10; index++ {
		if action := h.feed(t, index); action != ActionNone {
			t.Fatalf("unexpected action %s during grace period", action)
		}
	}
	if h.machine.stopWindow.Len() != 0 {
		t.Fatalf("grace period must not record stop votes, got %d", h.machine.stopWindow.Len())
	}

	// No frames are deleted during the grace period either.
	frames, err := h.store.Frames(context.Background())
	if err != nil {
		t.Fatalf("Frames failed: %v", err)
	}
	if len(frames) != 10 {
		t.Fatalf("expected all 10 frames retained, got %d", len(frames))
	}
}

func TestStopConfirmationFinalizes(t *testing.T) {
	h := newHarness(t, similarAlways)
	h.machine.state = StateRecording
	h.machine.recordingStart = 2
	h.machine.recordingFrom = time.Now().Add(-time.Hour)

	for index := uint64(2); index <= 9; index++ {
		testsupport.RetainFrame(t, h.store, h.cfg, index, 100)
	}

	var finalized bool
	for index := uint64(10); index <= 20; index++ {
		action := h.feed(t, index)
		if action == ActionFinalize {
			finalized = true
			if got := h.machine.FinalRange(); got.First != 2 || got.Last != index {
				t.Fatalf("unexpected final range %s at frame %d", got, index)
			}
			break
		}
	}
	if !finalized {
		t.Fatal("expected finalize after sustained similarity")
	}
	if h.machine.State() != StateFinalizing {
		t.Fatalf("expected finalizing, got %s", h.machine.State())
	}
}

func TestFinalConfirmationVetoKeepsRecording(t *testing.T) {
	// One dissent among the five trailing comparisons blocks finalization
	// even though the sliding window confirmed.
	veto := uint64(19)
	h := newHarness(t, func(a, b frame.Frame) (float64, error) {
		if b.Index == veto {
			return 0.50, nil
		}
		return 0.99, nil
	})
	h.machine.state = StateRecording
	h.machine.recordingStart = 0
	h.machine.recordingFrom = time.Now().Add(-time.Hour)

	for index := uint64(10); index <= 19; index++ {
		testsupport.RetainFrame(t, h.store, h.cfg, index, 100)
	}
	// Pre-fill the stop window so the next similar vote confirms it.
	for i := 0; i < h.machine.stopWindow.Capacity()-1; i++ {
		h.machine.stopWindow.Push(true)
	}

	if action := h.feed(t, 20); action != ActionNone {
		t.Fatalf("expected veto to hold, got %s", action)
	}
	if h.machine.State() != StateRecording {
		t.Fatalf("expected recording, got %s", h.machine.State())
	}
}

func TestAbort(t *testing.T) {
	h := newHarness(t, similarAlways)
	h.arm(t)
	h.machine.Abort()

	if action := h.feed(t, 1); action != ActionAbort {
		t.Fatal("expected abort action")
	}
}

func TestResetReturnsToIdle(t *testing.T) {
	h := newHarness(t, similarAlways)
	h.arm(t)
	h.machine.state = StateFinalizing
	h.machine.recordingStart = 4
	h.machine.finalRange = frame.NewRange(4, 30)

	h.machine.Reset()
	if h.machine.State() != StateIdle {
		t.Fatalf("expected idle, got %s", h.machine.State())
	}
	if h.machine.RecordingStart() != 0 {
		t.Fatal("expected recording start cleared")
	}
	if h.machine.FinalRange().Count() != 0 {
		t.Fatal("expected final range cleared")
	}
}
