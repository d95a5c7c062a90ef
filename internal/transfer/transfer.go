// Package transfer uploads finished timelapse videos to a remote FTP
// drop. Upload failures never discard the video; it stays in the output
// directory for manual retrieval.
package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"lapsecam/internal/config"
	"lapsecam/internal/logging"
	"lapsecam/internal/services"
)

// Uploader sends videos over FTP.
type Uploader struct {
	enabled   bool
	host      string
	username  string
	password  string
	remoteDir string
	timeout   time.Duration
	logger    *slog.Logger
}

// New builds an Uploader from transfer configuration.
func New(cfg *config.Config, logger *slog.Logger) *Uploader {
	return &Uploader{
		enabled:   cfg.Transfer.Enabled,
		host:      cfg.Transfer.Host,
		username:  cfg.Transfer.Username,
		password:  cfg.Transfer.Password,
		remoteDir: cfg.Transfer.RemoteDir,
		timeout:   time.Duration(cfg.Transfer.Timeout) * time.Second,
		logger:    logging.NewComponentLogger(logger, "transfer"),
	}
}

// Enabled reports whether uploads are configured.
func (u *Uploader) Enabled() bool { return u.enabled }

// Send uploads the video at videoPath to the configured remote directory.
func (u *Uploader) Send(ctx context.Context, videoPath string) error {
	file, err := os.Open(videoPath)
	if err != nil {
		return services.Wrap(services.ErrTransfer, "transfer", "send", fmt.Sprintf("open %s", videoPath), err)
	}
	defer file.Close()

	conn, err := ftp.Dial(u.addr(),
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(u.timeout),
	)
	if err != nil {
		return services.Wrap(services.ErrTransfer, "transfer", "send", fmt.Sprintf("dial %s", u.addr()), err)
	}
	defer func() { _ = conn.Quit() }()

	if err := conn.Login(u.username, u.password); err != nil {
		return services.Wrap(services.ErrTransfer, "transfer", "send", "login", err)
	}

	if u.remoteDir != "" {
		if err := conn.ChangeDir(u.remoteDir); err != nil {
			// Try to create the directory tree before giving up.
			if mkErr := u.makeRemoteDir(conn); mkErr != nil {
				return services.Wrap(services.ErrTransfer, "transfer", "send",
					fmt.Sprintf("change to %s", u.remoteDir), err)
			}
			if err := conn.ChangeDir(u.remoteDir); err != nil {
				return services.Wrap(services.ErrTransfer, "transfer", "send",
					fmt.Sprintf("change to %s", u.remoteDir), err)
			}
		}
	}

	name := filepath.Base(videoPath)
	if err := conn.Stor(name, file); err != nil {
		return services.Wrap(services.ErrTransfer, "transfer", "send", fmt.Sprintf("store %s", name), err)
	}

	u.logger.InfoContext(ctx, "video uploaded",
		logging.String("video", name),
		logging.String("host", u.host),
		logging.String("remote_dir", u.remoteDir))
	return nil
}

func (u *Uploader) makeRemoteDir(conn *ftp.ServerConn) error {
	segments := strings.Split(path.Clean(u.remoteDir), "/")
	current := ""
	for _, segment := range segments {
		if segment == "" {
			current = "/"
			continue
		}
		current = path.Join(current, segment)
		// MakeDir errors on existing directories; the final ChangeDir is
		// the authoritative check.
		_ = conn.MakeDir(current)
	}
	return nil
}

func (u *Uploader) addr() string {
	if _, _, err := net.SplitHostPort(u.host); err == nil {
		return u.host
	}
	return net.JoinHostPort(u.host, "21")
}
