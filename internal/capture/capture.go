package capture

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"lapsecam/internal/config"
	"lapsecam/internal/frame"
	"lapsecam/internal/services"
)

// Source produces numbered stills in the configured stills directory.
type Source interface {
	// Capture takes a single still for the given frame index and returns
	// the resulting frame record. The file exists and is non-empty on
	// success.
	Capture(ctx context.Context, index uint64) (frame.Frame, error)
}

// CommandSource captures stills by running an external camera command.
// The configured argument list may reference {device} and {output}; when
// no {output} placeholder is present the output path is appended as
// "-o <path>".
type CommandSource struct {
	binary    string
	args      []string
	device    string
	stillsDir string
	timeout   time.Duration
}

// NewCommandSource builds a CommandSource from camera configuration.
func NewCommandSource(cfg *config.Config) *CommandSource {
	return &CommandSource{
		binary:    cfg.Camera.CaptureCommand,
		args:      append([]string(nil), cfg.Camera.CaptureArgs...),
		device:    cfg.Camera.Device,
		stillsDir: cfg.Paths.StillsDir,
		timeout:   time.Duration(cfg.Camera.CaptureTimeout) * time.Second,
	}
}

// Capture runs the camera command and verifies the still landed on disk.
func (s *CommandSource) Capture(ctx context.Context, index uint64) (frame.Frame, error) {
	path := frame.PathFor(s.stillsDir, index)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, s.binary, s.buildArgs(path)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return frame.Frame{}, services.Wrap(services.ErrCapture, "capture", "still", fmt.Sprintf("run %s", s.binary), err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return frame.Frame{}, services.Wrap(services.ErrCapture, "capture", "still", fmt.Sprintf("missing output %s", path), err)
	}
	if info.Size() == 0 {
		return frame.Frame{}, services.Wrap(services.ErrCapture, "capture", "still", fmt.Sprintf("empty output %s", path), nil)
	}

	return frame.Frame{Index: index, CapturedAt: time.Now().UTC(), Path: path}, nil
}

func (s *CommandSource) buildArgs(outputPath string) []string {
	args := make([]string, 0, len(s.args)+2)
	sawOutput := false
	for _, arg := range s.args {
		replaced := strings.ReplaceAll(arg, "{device}", s.device)
		if strings.Contains(replaced, "{output}") {
			replaced = strings.ReplaceAll(replaced, "{output}", outputPath)
			sawOutput = true
		}
		args = append(args, replaced)
	}
	if !sawOutput {
		args = append(args, "-o", outputPath)
	}
	return args
}
