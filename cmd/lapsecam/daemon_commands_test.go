package main

import "testing"

func TestLaunchOptionsCarryConfigFlag(t *testing.T) {
	configFlag := " /etc/lapsecam/config.toml "
	ctx := newCommandContext(nil, &configFlag)
	if opts := launchOptions(ctx); opts.ConfigPath != "/etc/lapsecam/config.toml" {
		t.Fatalf("unexpected config path %q", opts.ConfigPath)
	}

	ctx = newCommandContext(nil, nil)
	if opts := launchOptions(ctx); opts.ConfigPath != "" {
		t.Fatalf("expected empty config path, got %q", opts.ConfigPath)
	}
}
