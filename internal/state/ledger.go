// Package state persists the set of already-handled signal ids so repeated
// runs do not re-alert for the same email. Two backends exist: a flat JSON
// file for single-host deployments and Redis for anything that may run
// concurrently across processes.
package state

import "context"

// Ledger is the dedup set consulted before dispatch and updated only after a
// confirmed successful send.
type Ledger interface {
	// IsHandled reports whether the id was recorded by a previous run.
	IsHandled(ctx context.Context, id string) (bool, error)
	// MarkHandled records the ids. Adding an already-present id is a no-op
	// for the set; an empty slice does nothing at all.
	MarkHandled(ctx context.Context, ids []string) error
}
