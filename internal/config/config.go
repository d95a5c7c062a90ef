package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and socket configuration.
type Paths struct {
	StillsDir  string `toml:"stills_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
	SocketPath string `toml:"socket_path"`
}

// Camera contains still-capture configuration.
type Camera struct {
	Device         string   `toml:"device"`
	CaptureCommand string   `toml:"capture_command"`
	CaptureArgs    []string `toml:"capture_args"`
	CaptureTimeout int      `toml:"capture_timeout"`
}

// Detection contains the activity-detection tuning knobs.
type Detection struct {
	// ThresholdPercentage is the similarity score above which two frames
	// are considered the same scene. Range (0, 1].
	ThresholdPercentage float64 `toml:"threshold_percentage"`
	// TimelapseDelay is the poll interval between stills, in seconds.
	TimelapseDelay int `toml:"timelapse_delay"`
	// BeginTimelapseDelay is the grace period after a print is detected
	// during which no completion checks run, in seconds.
	BeginTimelapseDelay int `toml:"begin_timelapse_delay"`
	// RetentionLookback bounds how many idle frames are kept on disk
	// behind the current polling position.
	RetentionLookback int `toml:"retention_lookback"`
	// StartWindowFrames is the number of consecutive dissimilar frames
	// required to confirm that a print has started.
	StartWindowFrames int `toml:"start_window_frames"`
	// StopWindowFrames is the number of consecutive stable frames required
	// before the completion fan-out check runs.
	StopWindowFrames int `toml:"stop_window_frames"`
	// FinalConfirmationFrames is how many trailing frames the current
	// frame is compared against individually before finalizing.
	FinalConfirmationFrames int `toml:"final_confirmation_frames"`
	// CalibrationMaxAttempts bounds baseline calibration retries.
	// Zero retries forever.
	CalibrationMaxAttempts int `toml:"calibration_max_attempts"`
	// CalibrationProbeDelay is the pause between the three calibration
	// probe captures, in seconds.
	CalibrationProbeDelay int `toml:"calibration_probe_delay"`
	// Comparator selects the similarity implementation: "bytesize" or
	// "histogram".
	Comparator string `toml:"comparator"`
}

// Assembly contains video assembly configuration.
type Assembly struct {
	Framerate       int  `toml:"framerate"`
	EncodeTimeout   int  `toml:"encode_timeout"`
	CRF             int  `toml:"crf"`
	KeepStillsAfter bool `toml:"keep_stills_after"`
}

// Transfer contains FTP upload configuration for finished videos.
type Transfer struct {
	Enabled   bool   `toml:"enabled"`
	Host      string `toml:"host"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	RemoteDir string `toml:"remote_dir"`
	Timeout   int    `toml:"timeout"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	PrintStarted   bool   `toml:"print_started"`
	TimelapseReady bool   `toml:"timelapse_ready"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for lapsecam.
//
// Configuration sections by subsystem:
//   - Paths: stills folder, video output folder, logs, IPC socket
//   - Camera: still-capture command and device
//   - Detection: thresholds, hysteresis window sizes, retention
//   - Assembly: ffmpeg encode settings
//   - Transfer: FTP upload of finished videos
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Camera        Camera        `toml:"camera"`
	Detection     Detection     `toml:"detection"`
	Assembly      Assembly      `toml:"assembly"`
	Transfer      Transfer      `toml:"transfer"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/lapsecam/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lapsecam.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StillsDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for video assembly.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// SocketPathOrDefault returns the configured IPC socket path, falling back
// to a socket next to the logs.
func (c *Config) SocketPathOrDefault() string {
	if strings.TrimSpace(c.Paths.SocketPath) != "" {
		return c.Paths.SocketPath
	}
	return filepath.Join(c.Paths.LogDir, "lapsecamd.sock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
