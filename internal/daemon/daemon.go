package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"lapsecam/internal/config"
	"lapsecam/internal/deps"
	"lapsecam/internal/framestore"
	"lapsecam/internal/logging"
	"lapsecam/internal/notifications"
	"lapsecam/internal/preflight"
	"lapsecam/internal/session"
)

// Daemon coordinates the detection loop and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *framestore.Store
	controller *session.Controller
	monitor    *cameraMonitor
	logPath    string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Controller   session.Status
	StoreDBPath  string
	LockFilePath string
	PID          int
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *framestore.Store, logger *slog.Logger, controller *session.Controller) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || controller == nil {
		return nil, errors.New("daemon requires config, store, logger, and session controller")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "lapsecamd.lock")
	d := &Daemon{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		controller: controller,
		logPath:    filepath.Join(cfg.Paths.LogDir, "lapsecam.log"),
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}
	d.monitor = newCameraMonitor(cfg, logger, d.onCameraRemoved)
	return d, nil
}

// Start acquires the daemon lock and launches the session loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another lapsecam daemon instance is already running")
	}

	checks := preflight.RunAll(ctx, d.cfg)
	for _, check := range checks {
		if !check.Passed {
			d.logger.Warn("preflight check failed",
				logging.String("check", check.Name),
				logging.String("detail", check.Detail))
		}
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.controller.Run(d.ctx); err != nil {
			d.logger.Error("session loop terminated", logging.Error(err))
		}
	}()

	if err := d.monitor.Start(d.ctx); err != nil {
		d.logger.Warn("camera monitor unavailable", logging.Error(err))
	}

	d.running.Store(true)
	d.logger.Info("lapsecam daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop cancels the session loop and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.monitor.Stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("lapsecam daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// ListSessions returns recorded session history, newest first.
func (d *Daemon) ListSessions(ctx context.Context, limit int) ([]*framestore.Session, error) {
	if d.store == nil {
		return nil, errors.New("frame store unavailable")
	}
	return d.store.ListSessions(ctx, limit)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		Controller:   d.controller.Status(),
		StoreDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		PID:          os.Getpid(),
		Dependencies: preflight.CheckSystemDeps(ctx, d.cfg),
	}
}

// onCameraRemoved reacts to hotplug removal of the configured camera.
// Capture failures already skip ticks, so the loop survives; this just
// surfaces the condition loudly.
func (d *Daemon) onCameraRemoved(ctx context.Context, device string) {
	d.logger.Warn("configured camera removed, captures will fail until it returns",
		logging.String("device", device))
	notifier := notifications.NewService(d.cfg)
	err := fmt.Errorf("camera %s removed", device)
	if notifyErr := notifier.NotifyError(ctx, err, "camera monitor"); notifyErr != nil {
		d.logger.Warn("notification failed", logging.Error(notifyErr))
	}
}
