package config

const (
	defaultStillsDir               = "~/.local/share/lapsecam/stills"
	defaultOutputDir               = "~/.local/share/lapsecam/videos"
	defaultLogDir                  = "~/.local/share/lapsecam/logs"
	defaultCameraDevice            = "/dev/video0"
	defaultCaptureCommand          = "libcamera-still"
	defaultCaptureTimeout          = 30
	defaultThresholdPercentage     = 0.96
	defaultTimelapseDelay          = 10
	defaultBeginTimelapseDelay     = 300
	defaultRetentionLookback       = 5
	defaultStartWindowFrames       = 3
	defaultStopWindowFrames        = 5
	defaultFinalConfirmationFrames = 5
	defaultCalibrationProbeDelay   = 1
	defaultComparator              = "bytesize"
	defaultFramerate               = 24
	defaultEncodeTimeout           = 600
	defaultCRF                     = 23
	defaultTransferTimeout         = 120
	defaultNotifyRequestTimeout    = 10
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StillsDir: defaultStillsDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Camera: Camera{
			Device:         defaultCameraDevice,
			CaptureCommand: defaultCaptureCommand,
			CaptureTimeout: defaultCaptureTimeout,
		},
		Detection: Detection{
			ThresholdPercentage:     defaultThresholdPercentage,
			TimelapseDelay:          defaultTimelapseDelay,
			BeginTimelapseDelay:     defaultBeginTimelapseDelay,
			RetentionLookback:       defaultRetentionLookback,
			StartWindowFrames:       defaultStartWindowFrames,
			StopWindowFrames:        defaultStopWindowFrames,
			FinalConfirmationFrames: defaultFinalConfirmationFrames,
			CalibrationProbeDelay:   defaultCalibrationProbeDelay,
			Comparator:              defaultComparator,
		},
		Assembly: Assembly{
			Framerate:     defaultFramerate,
			EncodeTimeout: defaultEncodeTimeout,
			CRF:           defaultCRF,
		},
		Transfer: Transfer{
			Timeout: defaultTransferTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			PrintStarted:   true,
			TimelapseReady: true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
