package engine

import (
	"context"
	log "log/slog"

	"github.com/groundworklabs/txcore"
	"github.com/groundworklabs/txcore/dispatch"
)

// Commit implements spec §4.5.
func (e *Engine) Commit(ctx context.Context, status *txcore.TransactionStatus) error {
	if status.Completed {
		return txcore.NewError(txcore.IllegalTransactionState, status, "commit called on an already-completed transaction")
	}

	if status.LocalRollbackOnly {
		return e.rollback(ctx, status, false)
	}

	if status.IsGlobalRollbackOnlyFunc(ctx) && !e.rm.CommitOnGlobalRollbackOnly() {
		return e.rollback(ctx, status, true)
	}

	err := e.runCommitPath(ctx, status)
	e.cleanup(ctx, status)
	return err
}

// runCommitPath is spec §4.5 step 3 onward, isolated so Commit can always
// run cleanup afterward regardless of outcome (step 8).
func (e *Engine) runCommitPath(ctx context.Context, status *txcore.TransactionStatus) error {
	syncs := synchronizationsFor(ctx)

	if err := e.rm.PrepareForCommit(ctx, status.Transaction); err != nil {
		// spec §4.5 step 3: a prepare failure aborts commit before any
		// synchronization runs, diverted the same way a beforeCommit
		// failure is (step 6) — beforeCompletion has not fired yet either.
		dispatch.BeforeCompletion(ctx, syncs)
		return e.rollbackOnCommitFailure(ctx, status, txcore.NewError(txcore.TransactionSystem, status, "prepare for commit failed: %v", err))
	}

	if err := dispatch.BeforeCommit(ctx, syncs, status.ReadOnly); err != nil {
		// spec §7: pre-completion hook exceptions abort commit and divert to
		// rollback-on-commit-failure; beforeCompletion has not fired yet, so
		// fire it reactively before unwinding (step 6).
		dispatch.BeforeCompletion(ctx, syncs)
		return e.rollbackOnCommitFailure(ctx, status, err)
	}

	dispatch.BeforeCompletion(ctx, syncs)

	var unexpectedRollback bool
	var err error
	switch {
	case status.HasSavepoint():
		unexpectedRollback = status.IsGlobalRollbackOnlyFunc(ctx)
		err = status.ReleaseHeldSavepoint(ctx)
	case status.NewTransaction:
		unexpectedRollback = status.IsGlobalRollbackOnlyFunc(ctx)
		err = e.rm.Commit(ctx, status.Transaction)
		if err != nil {
			err = txcore.NewError(txcore.TransactionSystem, status, "resource manager commit failed: %v", err)
		}
	case e.config.FailEarlyOnGlobalRollbackOnly:
		unexpectedRollback = status.IsGlobalRollbackOnlyFunc(ctx)
	}

	if err != nil {
		return e.rollbackOnCommitFailure(ctx, status, err)
	}

	if unexpectedRollback {
		dispatch.AfterCompletion(ctx, syncs, txcore.CompletionRolledBack)
		return txcore.NewError(txcore.UnexpectedRollback, status, "transaction was globally marked rollback-only")
	}

	// Step 7: afterCommit errors propagate, but the transaction remains
	// considered committed — afterCompletion(COMMITTED) still fires.
	afterCommitErr := dispatch.AfterCommit(ctx, syncs)
	dispatch.AfterCompletion(ctx, syncs, txcore.CompletionCommitted)
	return afterCommitErr
}

// rollbackOnCommitFailure implements spec §4.5 step 5 / §7's "physical
// commit failure" policy.
func (e *Engine) rollbackOnCommitFailure(ctx context.Context, status *txcore.TransactionStatus, cause error) error {
	syncs := synchronizationsFor(ctx)

	if !e.config.RollbackOnCommitFailure {
		dispatch.AfterCompletion(ctx, syncs, txcore.CompletionUnknown)
		return cause
	}

	if err := e.doRollback(ctx, status); err != nil {
		log.Error("rollback after commit failure itself failed", "commitError", cause, "rollbackError", err)
		dispatch.AfterCompletion(ctx, syncs, txcore.CompletionUnknown)
		return cause
	}

	dispatch.AfterCompletion(ctx, syncs, txcore.CompletionRolledBack)
	return cause
}

// doRollback performs the physical rollback only (savepoint or resource
// manager), without the beforeCompletion/afterCompletion dispatch — used by
// callers that manage the dispatch themselves around a commit diversion.
func (e *Engine) doRollback(ctx context.Context, status *txcore.TransactionStatus) error {
	switch {
	case status.HasSavepoint():
		return status.RollbackToHeldSavepoint(ctx)
	case status.NewTransaction:
		if err := e.rm.Rollback(ctx, status.Transaction); err != nil {
			return txcore.NewError(txcore.TransactionSystem, status, "resource manager rollback failed: %v", err)
		}
		return nil
	default:
		if status.LocalRollbackOnly || e.config.GlobalRollbackOnParticipationFailure {
			if err := e.rm.SetRollbackOnly(ctx, status.Transaction); err != nil {
				return txcore.NewError(txcore.TransactionSystem, status, "mark participation rollback-only failed: %v", err)
			}
		}
		return nil
	}
}
