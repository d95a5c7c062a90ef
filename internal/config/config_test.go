package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.toml")
	cfg, path, exists, err := Load(missing)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if path != missing {
		t.Fatalf("expected resolved path %q, got %q", missing, path)
	}
	if cfg.Detection.ThresholdPercentage != defaultThresholdPercentage {
		t.Fatalf("expected default threshold, got %v", cfg.Detection.ThresholdPercentage)
	}
}

func TestLoadParsesAndExpands(t *testing.T) {
	dir := t.TempDir()
	contents := `
[paths]
stills_dir = "` + filepath.Join(dir, "stills") + `"
output_dir = "` + filepath.Join(dir, "videos") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[detection]
threshold_percentage = 0.9
timelapse_delay = 2
start_window_frames = 4
comparator = "Histogram"
`
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Detection.ThresholdPercentage != 0.9 {
		t.Fatalf("threshold not applied: %v", cfg.Detection.ThresholdPercentage)
	}
	if cfg.Detection.StartWindowFrames != 4 {
		t.Fatalf("start window not applied: %d", cfg.Detection.StartWindowFrames)
	}
	if cfg.Detection.Comparator != "histogram" {
		t.Fatalf("comparator not normalized: %q", cfg.Detection.Comparator)
	}
	if !filepath.IsAbs(cfg.Paths.StillsDir) {
		t.Fatalf("stills dir not absolute: %q", cfg.Paths.StillsDir)
	}
	// Untouched sections keep their defaults.
	if cfg.Assembly.Framerate != defaultFramerate {
		t.Fatalf("framerate default lost: %d", cfg.Assembly.Framerate)
	}
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	cfg := Default()
	cfg.Detection.ThresholdPercentage = 1.5
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "threshold_percentage") {
		t.Fatalf("expected threshold error, got %v", err)
	}
}

func TestValidateRejectsUnknownComparator(t *testing.T) {
	cfg := Default()
	cfg.Detection.Comparator = "ssim"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "comparator") {
		t.Fatalf("expected comparator error, got %v", err)
	}
}

func TestValidateTransferRequiresHost(t *testing.T) {
	cfg := Default()
	cfg.Transfer.Enabled = true
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "transfer.host") {
		t.Fatalf("expected transfer host error, got %v", err)
	}
}

func TestTransferPasswordFromEnv(t *testing.T) {
	t.Setenv("LAPSECAM_FTP_PASSWORD", "hunter2")
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if cfg.Transfer.Password != "hunter2" {
		t.Fatalf("expected password from env, got %q", cfg.Transfer.Password)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "threshold_percentage") {
		t.Fatal("sample config missing detection section")
	}

	// The sample must itself be loadable.
	if _, _, _, err := Load(path); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
}

func TestSocketPathOrDefault(t *testing.T) {
	cfg := Default()
	cfg.Paths.LogDir = "/tmp/lapsecam-logs"
	cfg.Paths.SocketPath = ""
	if got := cfg.SocketPathOrDefault(); got != "/tmp/lapsecam-logs/lapsecamd.sock" {
		t.Fatalf("unexpected default socket path: %q", got)
	}
	cfg.Paths.SocketPath = "/run/lapsecam.sock"
	if got := cfg.SocketPathOrDefault(); got != "/run/lapsecam.sock" {
		t.Fatalf("unexpected socket path: %q", got)
	}
}
