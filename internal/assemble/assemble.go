// Package assemble turns a closed frame range into a timelapse video by
// invoking ffmpeg over the numbered stills.
package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"lapsecam/internal/config"
	"lapsecam/internal/frame"
	"lapsecam/internal/logging"
	"lapsecam/internal/services"
)

// Assembler encodes frame ranges into mp4 files in the output directory.
type Assembler struct {
	binary    string
	stillsDir string
	outputDir string
	framerate int
	crf       int
	timeout   time.Duration
	logger    *slog.Logger
}

// New builds an Assembler from assembly configuration.
func New(cfg *config.Config, logger *slog.Logger) *Assembler {
	return &Assembler{
		binary:    cfg.FFmpegBinary(),
		stillsDir: cfg.Paths.StillsDir,
		outputDir: cfg.Paths.OutputDir,
		framerate: cfg.Assembly.Framerate,
		crf:       cfg.Assembly.CRF,
		timeout:   time.Duration(cfg.Assembly.EncodeTimeout) * time.Second,
		logger:    logging.NewComponentLogger(logger, "assemble"),
	}
}

// Assemble encodes the given range and returns the path of the finished
// video. The output name carries the session identity so reruns never
// clobber an earlier video.
func (a *Assembler) Assemble(ctx context.Context, rng frame.Range, sessionID string) (string, error) {
	if rng.Count() == 0 {
		return "", services.Wrap(services.ErrAssembly, "assemble", "encode", fmt.Sprintf("empty frame range %s", rng), nil)
	}

	outputPath := filepath.Join(a.outputDir, outputName(sessionID))
	if err := os.MkdirAll(a.outputDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrAssembly, "assemble", "encode", "create output directory", err)
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	args := a.buildArgs(rng, outputPath)
	a.logger.InfoContext(ctx, "encoding timelapse",
		logging.String(logging.FieldSessionID, sessionID),
		logging.String("range", rng.String()),
		logging.String("output", outputPath))

	cmd := exec.CommandContext(ctx, a.binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, tail(detail, 500))
		}
		return "", services.Wrap(services.ErrAssembly, "assemble", "encode", fmt.Sprintf("run %s", a.binary), err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return "", services.Wrap(services.ErrAssembly, "assemble", "encode", fmt.Sprintf("missing output %s", outputPath), err)
	}
	if info.Size() == 0 {
		return "", services.Wrap(services.ErrAssembly, "assemble", "encode", fmt.Sprintf("empty output %s", outputPath), nil)
	}

	return outputPath, nil
}

func (a *Assembler) buildArgs(rng frame.Range, outputPath string) []string {
	pattern := filepath.Join(a.stillsDir, "pic%05d.jpg")
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-framerate", strconv.Itoa(a.framerate),
		"-start_number", strconv.FormatUint(rng.First, 10),
		"-i", pattern,
		"-frames:v", strconv.FormatUint(rng.Count(), 10),
		"-c:v", "libx264",
		"-crf", strconv.Itoa(a.crf),
		"-pix_fmt", "yuv420p",
		outputPath,
	}
}

func outputName(sessionID string) string {
	stamp := time.Now().UTC().Format("20060102-150405")
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	if short == "" {
		return fmt.Sprintf("timelapse-%s.mp4", stamp)
	}
	return fmt.Sprintf("timelapse-%s-%s.mp4", stamp, short)
}

func tail(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[len(s)-limit:]
}
