// Package services holds the cross-cutting error taxonomy and context
// annotation helpers shared by the capture, detection, and assembly layers.
//
// Every failure in the daemon is tagged with one of the exported sentinel
// errors so the session controller can decide between skipping a tick,
// leaving a vote pending, or logging and resetting the session.
package services
