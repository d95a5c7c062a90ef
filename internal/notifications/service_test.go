package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lapsecam/internal/config"
	"lapsecam/internal/frame"
	"lapsecam/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyPrintStarted(context.Background(), 5); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		publish        func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "print started",
			publish: func(svc notifications.Service) error {
				return svc.NotifyPrintStarted(context.Background(), 12)
			},
			expectTitle:   "Lapsecam - Print Started",
			expectMessage: "Print activity detected, recording from frame 12",
			expectTags:    "lapsecam,print,started",
		},
		{
			name: "timelapse ready",
			publish: func(svc notifications.Service) error {
				return svc.NotifyTimelapseReady(context.Background(), "/videos/timelapse.mp4",
					frame.NewRange(10, 109), 25*time.Minute)
			},
			expectTitle:    "Lapsecam - Timelapse Ready",
			expectMessage:  "Timelapse assembled from 100 frames over 25m0s\nFile: /videos/timelapse.mp4",
			expectTags:     "lapsecam,timelapse,ready",
			expectPriority: "high",
		},
		{
			name: "transfer failed",
			publish: func(svc notifications.Service) error {
				return svc.NotifyTransferFailed(context.Background(), "/videos/timelapse.mp4",
					errors.New("connection refused"))
			},
			expectTitle:    "Lapsecam - Upload Failed",
			expectMessage:  "Upload failed, video kept locally: /videos/timelapse.mp4\nconnection refused",
			expectTags:     "lapsecam,transfer,failed",
			expectPriority: "high",
		},
		{
			name: "error",
			publish: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("sensor offline"), "capture")
			},
			expectTitle:    "Lapsecam - Error",
			expectMessage:  "Error with capture: sensor offline",
			expectTags:     "lapsecam,error,alert",
			expectPriority: "high",
		},
		{
			name: "test notification",
			publish: func(svc notifications.Service) error {
				return svc.TestNotification(context.Background())
			},
			expectTitle:    "Lapsecam - Test",
			expectMessage:  "Notification system test",
			expectTags:     "lapsecam,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := tc.publish(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonorsEventToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for disabled event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.PrintStarted = false
	cfg.Notifications.TimelapseReady = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	if err := svc.NotifyPrintStarted(ctx, 1); err != nil {
		t.Fatalf("disabled event returned error: %v", err)
	}
	if err := svc.NotifyTimelapseReady(ctx, "x.mp4", frame.NewRange(0, 1), time.Minute); err != nil {
		t.Fatalf("disabled event returned error: %v", err)
	}
	if err := svc.NotifyTransferFailed(ctx, "x.mp4", errors.New("boom")); err != nil {
		t.Fatalf("disabled event returned error: %v", err)
	}
	if err := svc.NotifyError(ctx, errors.New("boom"), "test"); err != nil {
		t.Fatalf("disabled event returned error: %v", err)
	}
}

func TestNtfyServiceSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
