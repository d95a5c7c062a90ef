package deps

import "lapsecam/internal/config"

// Default returns the external binaries a configured daemon needs.
func Default(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "Capture command",
			Command:     cfg.Camera.CaptureCommand,
			Description: "Used to acquire stills from the camera",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Used to assemble stills into timelapse videos",
		},
	}
}
