// Package notifications delivers session milestones via ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set.
// Individual event classes (print started, timelapse ready, errors) can be
// toggled off in configuration without touching the callers.
//
// Extend this package if you need alternative transports; the session
// controller depends only on the Service interface.
package notifications
