package engine

import (
	"context"

	"github.com/groundworklabs/txcore"
	"github.com/groundworklabs/txcore/dispatch"
)

// Rollback implements spec §4.6 for a caller-initiated rollback — the
// "unexpected" flag is always false here; it is only ever true when Commit
// diverts here after detecting a global rollback-only marker (spec §4.5
// step 2).
func (e *Engine) Rollback(ctx context.Context, status *txcore.TransactionStatus) error {
	return e.rollback(ctx, status, false)
}

// rollback is the shared implementation behind Rollback and Commit's
// diversion paths.
func (e *Engine) rollback(ctx context.Context, status *txcore.TransactionStatus, unexpected bool) error {
	if status.Completed {
		return txcore.NewError(txcore.IllegalTransactionState, status, "rollback called on an already-completed transaction")
	}

	syncs := synchronizationsFor(ctx)
	dispatch.BeforeCompletion(ctx, syncs)

	var err error
	switch {
	case status.HasSavepoint():
		err = status.RollbackToHeldSavepoint(ctx)

	case status.NewTransaction:
		if rerr := e.rm.Rollback(ctx, status.Transaction); rerr != nil {
			err = txcore.NewError(txcore.TransactionSystem, status, "resource manager rollback failed: %v", rerr)
		}

	default:
		// Participating in an outer transaction: this call cannot itself
		// roll back the physical transaction. It can only mark it
		// rollback-only and leave the final decision to the outer
		// originator (spec §4.6 step 4).
		if status.LocalRollbackOnly || e.config.GlobalRollbackOnParticipationFailure {
			if serr := e.rm.SetRollbackOnly(ctx, status.Transaction); serr != nil {
				err = txcore.NewError(txcore.TransactionSystem, status, "mark participation rollback-only failed: %v", serr)
			}
		}
		// Spec §9 Open Question (b): a participant never raises
		// UnexpectedRollback itself; only the outermost boundary does,
		// unless failEarlyOnGlobalRollbackOnly opts every level in.
		if !e.config.FailEarlyOnGlobalRollbackOnly {
			unexpected = false
		}
	}

	if err != nil {
		dispatch.AfterCompletion(ctx, syncs, txcore.CompletionUnknown)
		e.cleanup(ctx, status)
		return err
	}

	dispatch.AfterCompletion(ctx, syncs, txcore.CompletionRolledBack)
	e.cleanup(ctx, status)

	if unexpected {
		return txcore.NewError(txcore.UnexpectedRollback, status, "transaction was rolled back due to a global rollback-only marker")
	}
	return nil
}
