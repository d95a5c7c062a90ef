package transfer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"lapsecam/internal/services"
	"lapsecam/internal/testsupport"
)

func TestEnabledReflectsConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if New(cfg, nil).Enabled() {
		t.Fatal("transfer should default to disabled")
	}

	cfg.Transfer.Enabled = true
	if !New(cfg, nil).Enabled() {
		t.Fatal("expected enabled uploader")
	}
}

func TestAddrAppendsDefaultPort(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transfer.Host = "ftp.example.com"
	if got := New(cfg, nil).addr(); got != "ftp.example.com:21" {
		t.Fatalf("expected default port, got %s", got)
	}

	cfg.Transfer.Host = "ftp.example.com:2121"
	if got := New(cfg, nil).addr(); got != "ftp.example.com:2121" {
		t.Fatalf("expected explicit port preserved, got %s", got)
	}
}

func TestSendMissingVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	uploader := New(cfg, nil)

	err := uploader.Send(context.Background(), filepath.Join(t.TempDir(), "gone.mp4"))
	if !errors.Is(err, services.ErrTransfer) {
		t.Fatalf("expected ErrTransfer, got %v", err)
	}
}

func TestSendDialFailureKeepsVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transfer.Host = "127.0.0.1:1"
	cfg.Transfer.Timeout = 1
	uploader := New(cfg, nil)

	video := filepath.Join(t.TempDir(), "timelapse.mp4")
	if err := os.WriteFile(video, []byte("mp4"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	err := uploader.Send(context.Background(), video)
	if !errors.Is(err, services.ErrTransfer) {
		t.Fatalf("expected ErrTransfer, got %v", err)
	}
	// The local copy survives the failed upload.
	if _, statErr := os.Stat(video); statErr != nil {
		t.Fatalf("video should be retained locally: %v", statErr)
	}
}
