// Package config loads, normalizes, and validates the TOML configuration
// shared by the lapsecam daemon and CLI.
//
// All path fields are tilde-expanded and absolute after Load. Validation is
// strict: an unusable detection threshold or window size fails startup
// rather than producing a daemon that can never confirm a print.
package config
