// Package dispatch implements the CallbackDispatcher (spec §2 component 6,
// §4.5/§4.6/§7): fan-out of pre-commit / pre-completion / post-commit /
// post-completion across registered synchronizations with the required
// error-isolation semantics.
//
// All four phases iterate in plain registration order with a for loop, not
// errgroup — order is part of the contract (spec §4.5's "registration
// order is preserved"), so concurrent fan-out would be a correctness bug
// here even though the teacher reaches for errgroup/TaskRunner elsewhere
// for its own (order-insensitive) replication fan-out.
package dispatch

import (
	"context"
	log "log/slog"

	"github.com/groundworklabs/txcore"
)

// BeforeCommit fires BeforeCommit on every synchronization in registration
// order. The first error aborts the loop and is returned: per spec §7,
// an exception from a before-commit hook diverts commit to the
// rollback-on-commit-failure path.
func BeforeCommit(ctx context.Context, syncs []txcore.SynchronizationContract, readOnly bool) error {
	for _, s := range syncs {
		if err := s.BeforeCommit(ctx, readOnly); err != nil {
			return err
		}
	}
	return nil
}

// BeforeCompletion fires BeforeCompletion on every synchronization in
// registration order. Per spec §4.5/§4.6, exceptions here are logged, not
// propagated, and never prevent the next synchronization's callback from
// running.
func BeforeCompletion(ctx context.Context, syncs []txcore.SynchronizationContract) {
	for _, s := range syncs {
		if err := s.BeforeCompletion(ctx); err != nil {
			log.Warn("beforeCompletion callback failed", "error", err)
		}
	}
}

// AfterCommit fires AfterCommit on every synchronization in registration
// order, running all of them even if one fails, then returns the first
// error encountered (spec §4.5 step 7 — "exceptions propagate to caller
// but the transaction is still considered committed").
func AfterCommit(ctx context.Context, syncs []txcore.SynchronizationContract) error {
	var first error
	for _, s := range syncs {
		if err := s.AfterCommit(ctx); err != nil {
			if first == nil {
				first = err
			} else {
				log.Error("afterCommit callback failed (additional error, first one wins)", "error", err)
			}
		}
	}
	return first
}

// AfterCompletion fires AfterCompletion on every synchronization in
// registration order. Exceptions are caught per-synchronization and
// logged; they never prevent the next callback from running (spec
// §4.5/§4.6/§7 — post-completion hook exceptions never propagate).
func AfterCompletion(ctx context.Context, syncs []txcore.SynchronizationContract, status txcore.CompletionStatus) {
	for _, s := range syncs {
		if err := s.AfterCompletion(ctx, status); err != nil {
			log.Warn("afterCompletion callback failed", "error", err, "status", status.String())
		}
	}
}

// Flush fires Flush on every synchronization in registration order,
// aborting and returning the first error (spec §9 — six-operation
// contract; flush propagates pending changes and a failure there should be
// visible to the caller, unlike the completion callbacks).
func Flush(ctx context.Context, syncs []txcore.SynchronizationContract) error {
	for _, s := range syncs {
		if err := s.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}
