// Package daemon coordinates the long-running lapsecam process and system
// integration points.
//
// It wires configuration, the frame store, the session controller, and the
// camera hotplug monitor into a single lifecycle with flock-based locking to
// prevent multiple instances. The daemon exposes session history helpers,
// emits dependency health summaries, and surfaces camera removal through
// notifications.
//
// Keep orchestration logic here: detection, assembly, and transfer live in
// their respective packages while the daemon focuses on startup, shutdown,
// and high level coordination.
package daemon
