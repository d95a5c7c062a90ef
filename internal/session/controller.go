// Package session drives the fixed-interval poll loop: capture a frame,
// feed it to the detection machine, and act on the returned action. All
// detection logic lives in the machine; all external effects (assembly,
// transfer, notifications) are dispatched from here.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"lapsecam/internal/assemble"
	"lapsecam/internal/calibrate"
	"lapsecam/internal/capture"
	"lapsecam/internal/compare"
	"lapsecam/internal/config"
	"lapsecam/internal/detect"
	"lapsecam/internal/frame"
	"lapsecam/internal/framestore"
	"lapsecam/internal/logging"
	"lapsecam/internal/notifications"
	"lapsecam/internal/services"
	"lapsecam/internal/transfer"
)

// Assembler is the video encoding collaborator.
type Assembler interface {
	Assemble(ctx context.Context, rng frame.Range, sessionID string) (string, error)
}

// Uploader is the remote transfer collaborator.
type Uploader interface {
	Enabled() bool
	Send(ctx context.Context, videoPath string) error
}

// Calibrator establishes the session baseline.
type Calibrator interface {
	Run(ctx context.Context, baseIndex uint64) (frame.Frame, error)
}

// Status is a point-in-time snapshot of the controller for the IPC layer.
type Status struct {
	State      string    `json:"state"`
	SessionID  string    `json:"session_id,omitempty"`
	FrameIndex uint64    `json:"frame_index"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	LastVideo  string    `json:"last_video,omitempty"`
}

// Controller owns one detection session at a time. Sessions run strictly
// sequentially; finalization blocks the loop until assembly and transfer
// complete.
type Controller struct {
	cfg        *config.Config
	store      *framestore.Store
	source     capture.Source
	calibrator Calibrator
	machine    *detect.Machine
	assembler  Assembler
	uploader   Uploader
	notifier   notifications.Service
	logger     *slog.Logger

	delay time.Duration

	// The run loop owns the machine; its state is mirrored here so Status
	// can be served from any goroutine without touching the machine.
	mu        sync.RWMutex
	state     detect.State
	sessionID string
	frameIdx  uint64
	startedAt time.Time
	lastVideo string
}

// New wires a Controller from configuration and the shared store.
func New(cfg *config.Config, store *framestore.Store, logger *slog.Logger) (*Controller, error) {
	comparator, err := compare.ForName(cfg.Detection.Comparator)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "session", "new", "select comparator", err)
	}

	source := capture.NewCommandSource(cfg)
	return &Controller{
		cfg:        cfg,
		store:      store,
		source:     source,
		calibrator: calibrate.New(cfg, source, comparator, logger),
		machine:    detect.New(cfg, comparator, store, logger),
		assembler:  assemble.New(cfg, logger),
		uploader:   transfer.New(cfg, logger),
		notifier:   notifications.NewService(cfg),
		logger:     logging.NewComponentLogger(logger, "session"),
		delay:      time.Duration(cfg.Detection.TimelapseDelay) * time.Second,
	}, nil
}

// Status reports the controller's current state.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		State:      c.state.String(),
		SessionID:  c.sessionID,
		FrameIndex: c.frameIdx,
		StartedAt:  c.startedAt,
		LastVideo:  c.lastVideo,
	}
}

// Run executes detection sessions back to back until the context is
// cancelled. Each session is calibrate, poll, finalize, reset.
func (c *Controller) Run(ctx context.Context) error {
	for {
		if err := c.runSession(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, services.ErrCancelled) {
				c.logger.InfoContext(ctx, "session loop stopped")
				return nil
			}
			return err
		}
	}
}

func (c *Controller) runSession(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// A fresh session starts from a clean slate: stale stills from the
	// previous session are gone and numbering restarts at zero.
	if _, err := c.store.PurgeAll(ctx); err != nil {
		return err
	}
	c.machine.Reset()
	c.setState(detect.StateIdle)
	c.setSession("", time.Time{})

	baseline, err := c.calibrator.Run(ctx, 0)
	if err != nil {
		return err
	}
	if err := c.store.Retain(ctx, baseline); err != nil {
		return err
	}
	if err := c.machine.Arm(ctx, baseline); err != nil {
		return err
	}
	c.setState(detect.StateArmed)

	var session *framestore.Session
	next := baseline.Index + 1

	for {
		// Cancellation is observed here, never mid-comparison.
		select {
		case <-ctx.Done():
			c.setState(detect.StateAborting)
			c.abortSession(session, next)
			return ctx.Err()
		case <-time.After(c.delay):
		}

		captured, err := c.source.Capture(ctx, next)
		if err != nil {
			// Transient: skip this tick and retry the same index.
			c.logger.WarnContext(ctx, "capture failed, skipping tick",
				logging.Uint64(logging.FieldFrameIndex, next),
				logging.Error(err))
			continue
		}
		if err := c.store.Retain(ctx, captured); err != nil {
			return c.failMidTick(ctx, session, next, err)
		}
		c.setFrame(next)

		action, err := c.machine.OnFrame(ctx, captured)
		if err != nil {
			return c.failMidTick(ctx, session, next, err)
		}
		c.setState(c.machine.State())

		switch action {
		case detect.ActionStartRecording:
			session, err = c.store.CreateSession(ctx, c.machine.RecordingStart())
			if err != nil {
				return c.failMidTick(ctx, session, next, err)
			}
			c.setSession(session.ID, session.StartedAt)
			c.logger.InfoContext(ctx, "recording started",
				logging.String(logging.FieldSessionID, session.ID),
				logging.Uint64("recording_start", c.machine.RecordingStart()))
			if err := c.notifier.NotifyPrintStarted(ctx, c.machine.RecordingStart()); err != nil {
				c.logger.WarnContext(ctx, "notification failed", logging.Error(err))
			}

		case detect.ActionFinalize:
			c.finalize(ctx, session)
			return nil

		case detect.ActionAbort:
			c.setState(detect.StateAborting)
			c.abortSession(session, next)
			return services.Wrap(services.ErrCancelled, "session", "run", "session aborted", nil)
		}

		next++
	}
}

// finalize blocks until assembly and transfer complete. Assembly and
// transfer failures are logged and notified but never stop the loop from
// returning to a fresh session.
func (c *Controller) finalize(ctx context.Context, session *framestore.Session) {
	rng := c.machine.FinalRange()
	sessionID := ""
	startedAt := time.Now()
	if session != nil {
		sessionID = session.ID
		startedAt = session.StartedAt
	}

	log := c.logger.With(logging.String(logging.FieldSessionID, sessionID))
	log.InfoContext(ctx, "finalizing session", logging.String("range", rng.String()))

	videoPath, err := c.assembler.Assemble(ctx, rng, sessionID)
	if err != nil {
		log.ErrorContext(ctx, "assembly failed", logging.Error(err))
		if session != nil {
			if dbErr := c.store.FailSession(ctx, session.ID, rng.Last, err.Error()); dbErr != nil {
				log.ErrorContext(ctx, "record session failure", logging.Error(dbErr))
			}
		}
		if notifyErr := c.notifier.NotifyError(ctx, err, "assembly"); notifyErr != nil {
			log.WarnContext(ctx, "notification failed", logging.Error(notifyErr))
		}
		return
	}

	if session != nil {
		if err := c.store.CompleteSession(ctx, session.ID, rng.Last, videoPath); err != nil {
			log.ErrorContext(ctx, "record session completion", logging.Error(err))
		}
	}
	c.setVideo(videoPath)

	if c.uploader.Enabled() {
		if err := c.uploader.Send(ctx, videoPath); err != nil {
			log.ErrorContext(ctx, "transfer failed, video retained locally",
				logging.String("video", videoPath),
				logging.Error(err))
			if notifyErr := c.notifier.NotifyTransferFailed(ctx, videoPath, err); notifyErr != nil {
				log.WarnContext(ctx, "notification failed", logging.Error(notifyErr))
			}
		} else if session != nil {
			if err := c.store.MarkTransferred(ctx, session.ID); err != nil {
				log.ErrorContext(ctx, "record transfer", logging.Error(err))
			}
		}
	}

	if err := c.notifier.NotifyTimelapseReady(ctx, videoPath, rng, time.Since(startedAt)); err != nil {
		log.WarnContext(ctx, "notification failed", logging.Error(err))
	}

	if !c.cfg.Assembly.KeepStillsAfter {
		if _, err := c.store.PurgeAll(ctx); err != nil {
			log.WarnContext(ctx, "purge stills", logging.Error(err))
		}
	}

	log.InfoContext(ctx, "session complete", logging.String("video", videoPath))
}

// failMidTick handles an error that surfaced from a store call or the
// machine partway through a tick. Cancellation can arrive this way when
// the context dies between the loop's select and the tick's queries; it
// gets the same bookkeeping as the ctx.Done branch so the session row is
// never left open.
func (c *Controller) failMidTick(ctx context.Context, session *framestore.Session, lastFrame uint64, err error) error {
	if ctx.Err() != nil {
		c.setState(detect.StateAborting)
		c.abortSession(session, lastFrame)
		return ctx.Err()
	}
	return err
}

// abortSession closes the history row for a cancelled recording. No
// partial assembly is attempted.
func (c *Controller) abortSession(session *framestore.Session, lastFrame uint64) {
	if session == nil {
		return
	}
	// The loop context is already cancelled; use a short independent one
	// for the final bookkeeping write.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.store.FailSession(ctx, session.ID, lastFrame, "cancelled"); err != nil {
		c.logger.Error("record session abort", logging.Error(err))
	}
	c.logger.Info("recording cancelled, no partial assembly attempted",
		logging.String(logging.FieldSessionID, session.ID))
}

func (c *Controller) setState(state detect.State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func (c *Controller) setSession(id string, startedAt time.Time) {
	c.mu.Lock()
	c.sessionID = id
	c.startedAt = startedAt
	c.mu.Unlock()
}

func (c *Controller) setFrame(index uint64) {
	c.mu.Lock()
	c.frameIdx = index
	c.mu.Unlock()
}

func (c *Controller) setVideo(path string) {
	c.mu.Lock()
	c.lastVideo = path
	c.mu.Unlock()
}
