package config

import (
	"errors"
	"fmt"
)

var knownComparators = map[string]struct{}{
	"bytesize":  {},
	"histogram": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateCamera(); err != nil {
		return err
	}
	if err := c.validateAssembly(); err != nil {
		return err
	}
	if err := c.validateTransfer(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDetection() error {
	d := c.Detection
	if d.ThresholdPercentage <= 0 || d.ThresholdPercentage > 1 {
		return errors.New("detection.threshold_percentage must be in (0, 1]")
	}
	if err := ensurePositiveMap(map[string]int{
		"detection.timelapse_delay":           d.TimelapseDelay,
		"detection.retention_lookback":        d.RetentionLookback,
		"detection.start_window_frames":       d.StartWindowFrames,
		"detection.stop_window_frames":        d.StopWindowFrames,
		"detection.final_confirmation_frames": d.FinalConfirmationFrames,
	}); err != nil {
		return err
	}
	if d.BeginTimelapseDelay < 0 {
		return errors.New("detection.begin_timelapse_delay must be >= 0")
	}
	if _, ok := knownComparators[d.Comparator]; !ok {
		return fmt.Errorf("detection.comparator: unknown comparator %q", d.Comparator)
	}
	return nil
}

func (c *Config) validateCamera() error {
	if c.Camera.CaptureCommand == "" {
		return errors.New("camera.capture_command must be set")
	}
	if c.Camera.CaptureTimeout <= 0 {
		return errors.New("camera.capture_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateAssembly() error {
	return ensurePositiveMap(map[string]int{
		"assembly.framerate":      c.Assembly.Framerate,
		"assembly.encode_timeout": c.Assembly.EncodeTimeout,
		"assembly.crf":            c.Assembly.CRF,
	})
}

func (c *Config) validateTransfer() error {
	if !c.Transfer.Enabled {
		return nil
	}
	if c.Transfer.Host == "" {
		return errors.New("transfer.host must be set when transfer.enabled is true")
	}
	if c.Transfer.Username == "" {
		return errors.New("transfer.username must be set when transfer.enabled is true")
	}
	if c.Transfer.Timeout <= 0 {
		return errors.New("transfer.timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
