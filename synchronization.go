package txcore

import "context"

// SynchronizationContract is the callback interface arbitrary participants
// (connection pools, ORMs, message broker sessions) implement to be
// notified of suspension, resumption, and the commit/completion phases
// (spec §2 component 2, §9). A participant provides no-op defaults for the
// operations it does not care about by embedding NoOpSynchronization.
type SynchronizationContract interface {
	// Suspend is invoked when the owning transaction is displaced by a
	// REQUIRES_NEW/NOT_SUPPORTED transaction.
	Suspend(ctx context.Context) error
	// Resume is invoked when the displaced transaction is reinstated.
	Resume(ctx context.Context) error
	// Flush is invoked by TransactionStatus.Flush to propagate pending
	// changes without completing the transaction.
	Flush(ctx context.Context) error
	// BeforeCommit is invoked before the physical commit; readOnly mirrors
	// the transaction's read-only flag.
	BeforeCommit(ctx context.Context, readOnly bool) error
	// BeforeCompletion is invoked before commit or rollback concludes,
	// whichever path is taken.
	BeforeCompletion(ctx context.Context) error
	// AfterCommit is invoked after a successful physical commit.
	AfterCommit(ctx context.Context) error
	// AfterCompletion is invoked once the transaction has fully completed,
	// reporting the final outcome.
	AfterCompletion(ctx context.Context, status CompletionStatus) error
}

// NoOpSynchronization implements SynchronizationContract with no-ops for
// every operation; embed it and override only what you need (spec §9 —
// "a participant provides no-op defaults for the ones it does not care
// about").
type NoOpSynchronization struct{}

func (NoOpSynchronization) Suspend(ctx context.Context) error { return nil }
func (NoOpSynchronization) Resume(ctx context.Context) error  { return nil }
func (NoOpSynchronization) Flush(ctx context.Context) error   { return nil }
func (NoOpSynchronization) BeforeCommit(ctx context.Context, readOnly bool) error {
	return nil
}
func (NoOpSynchronization) BeforeCompletion(ctx context.Context) error { return nil }
func (NoOpSynchronization) AfterCommit(ctx context.Context) error      { return nil }
func (NoOpSynchronization) AfterCompletion(ctx context.Context, status CompletionStatus) error {
	return nil
}
