package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// CameraProbe reports the current camera detection snapshot.
type CameraProbe struct {
	Detected bool
	Device   string
	Name     string
}

// ProbeCamera attempts to detect and identify the configured camera via
// v4l2-ctl. When the tool is unavailable the probe falls back to a bare
// device-node existence check.
func ProbeCamera(device string) CameraProbe {
	device = strings.TrimSpace(device)
	if device == "" {
		device = "/dev/video0"
	}
	if _, err := exec.LookPath("v4l2-ctl"); err != nil {
		if _, statErr := os.Stat(device); statErr == nil {
			return CameraProbe{Detected: true, Device: device, Name: "Unknown"}
		}
		return CameraProbe{Device: device}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "v4l2-ctl", "--device", device, "--info")
	output, err := cmd.Output()
	if err != nil {
		return CameraProbe{Device: device}
	}
	return CameraProbe{
		Detected: true,
		Device:   device,
		Name:     parseCardName(string(output)),
	}
}

func parseCardName(output string) string {
	for _, line := range strings.Split(output, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		if strings.TrimSpace(key) == "Card type" {
			if name := strings.TrimSpace(value); name != "" {
				return name
			}
		}
	}
	return "Unknown"
}

// CameraDetail renders a display-friendly summary for status UIs.
func (p CameraProbe) CameraDetail() string {
	if !p.Detected {
		return "No camera detected"
	}
	return fmt.Sprintf("Camera '%s' on %s", p.Name, p.Device)
}
