// Package framestore persists the frame ledger and session history in
// SQLite. The ledger tracks which stills exist on disk so retention can be
// enforced across daemon restarts; session rows record each detected print
// and the video it produced.
package framestore
