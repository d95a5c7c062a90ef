package daemonctl

import (
	"context"
	"path/filepath"
	"testing"

	"lapsecam/internal/ipc"
	"lapsecam/internal/testsupport"
)

func TestBuildDependencySummary(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		summary := BuildDependencySummary(nil)
		if summary.Severity != "info" {
			t.Fatalf("unexpected severity %q", summary.Severity)
		}
	})

	t.Run("all available", func(t *testing.T) {
		summary := BuildDependencySummary([]ipc.DependencyStatus{
			{Name: "a", Available: true},
			{Name: "b", Available: true},
		})
		if summary.Severity != "ok" || summary.Available != 2 {
			t.Fatalf("unexpected summary %+v", summary)
		}
		if summary.Detail != "2/2 available" {
			t.Fatalf("unexpected detail %q", summary.Detail)
		}
	})

	t.Run("missing required", func(t *testing.T) {
		summary := BuildDependencySummary([]ipc.DependencyStatus{
			{Name: "a", Available: true},
			{Name: "b"},
		})
		if summary.Severity != "error" || summary.MissingRequired != 1 {
			t.Fatalf("unexpected summary %+v", summary)
		}
	})

	t.Run("missing optional only", func(t *testing.T) {
		summary := BuildDependencySummary([]ipc.DependencyStatus{
			{Name: "a", Available: true},
			{Name: "b", Optional: true},
		})
		if summary.Severity != "warn" || summary.MissingOptional != 1 {
			t.Fatalf("unexpected summary %+v", summary)
		}
	})
}

func TestBuildSystemChecksOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lines := BuildSystemChecks(cfg, false, "")
	if len(lines) == 0 {
		t.Fatal("expected status lines")
	}
	if lines[0].Label != "Lapsecam" || lines[0].Severity != "warn" {
		t.Fatalf("unexpected first line %+v", lines[0])
	}
}

func TestBuildPathChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	lines := BuildPathChecks(cfg)
	if len(lines) != 3 {
		t.Fatalf("expected 3 path checks, got %d", len(lines))
	}
	for _, line := range lines {
		if line.Severity != "ok" {
			t.Fatalf("expected ok path check, got %+v", line)
		}
	}
}

func TestBuildStatusSnapshotOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	socket := filepath.Join(cfg.Paths.LogDir, "nonexistent.sock")

	snapshot, err := BuildStatusSnapshot(context.Background(), socket, cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if snapshot.Daemon.Running {
		t.Fatal("expected offline daemon status")
	}
	if len(snapshot.Daemon.Dependencies) == 0 {
		t.Fatal("expected dependency fallback for offline daemon")
	}
	if len(snapshot.PathChecks) != 3 {
		t.Fatalf("expected 3 path checks, got %d", len(snapshot.PathChecks))
	}
}

func TestLaunchRejectsEmptyExecutable(t *testing.T) {
	if err := Launch("", LaunchOptions{}); err == nil {
		t.Fatal("expected error for empty executable path")
	}
}
