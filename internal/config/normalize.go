package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCamera()
	c.normalizeDetection()
	c.normalizeAssembly()
	c.normalizeTransfer()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StillsDir, err = expandPath(c.Paths.StillsDir); err != nil {
		return fmt.Errorf("paths.stills_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.SocketPath = strings.TrimSpace(c.Paths.SocketPath)
	if c.Paths.SocketPath != "" {
		if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
			return fmt.Errorf("paths.socket_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeCamera() {
	c.Camera.Device = strings.TrimSpace(c.Camera.Device)
	if c.Camera.Device == "" {
		c.Camera.Device = defaultCameraDevice
	}
	c.Camera.CaptureCommand = strings.TrimSpace(c.Camera.CaptureCommand)
	if c.Camera.CaptureCommand == "" {
		c.Camera.CaptureCommand = defaultCaptureCommand
	}
	if c.Camera.CaptureTimeout <= 0 {
		c.Camera.CaptureTimeout = defaultCaptureTimeout
	}
}

func (c *Config) normalizeDetection() {
	if c.Detection.FinalConfirmationFrames <= 0 {
		c.Detection.FinalConfirmationFrames = defaultFinalConfirmationFrames
	}
	if c.Detection.CalibrationProbeDelay < 0 {
		c.Detection.CalibrationProbeDelay = defaultCalibrationProbeDelay
	}
	if c.Detection.CalibrationMaxAttempts < 0 {
		c.Detection.CalibrationMaxAttempts = 0
	}
	c.Detection.Comparator = strings.ToLower(strings.TrimSpace(c.Detection.Comparator))
	if c.Detection.Comparator == "" {
		c.Detection.Comparator = defaultComparator
	}
}

func (c *Config) normalizeAssembly() {
	if c.Assembly.Framerate <= 0 {
		c.Assembly.Framerate = defaultFramerate
	}
	if c.Assembly.EncodeTimeout <= 0 {
		c.Assembly.EncodeTimeout = defaultEncodeTimeout
	}
	if c.Assembly.CRF <= 0 {
		c.Assembly.CRF = defaultCRF
	}
}

func (c *Config) normalizeTransfer() {
	c.Transfer.Host = strings.TrimSpace(c.Transfer.Host)
	c.Transfer.Username = strings.TrimSpace(c.Transfer.Username)
	c.Transfer.RemoteDir = strings.TrimSpace(c.Transfer.RemoteDir)
	if c.Transfer.Password == "" {
		if value, ok := os.LookupEnv("LAPSECAM_FTP_PASSWORD"); ok {
			c.Transfer.Password = value
		}
	}
	if c.Transfer.Timeout <= 0 {
		c.Transfer.Timeout = defaultTransferTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
