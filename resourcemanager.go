package txcore

import "context"

// ResourceManagerContract is everything the engine requires of a concrete
// resource manager (spec §2 component 4). Concrete implementations
// (relational drivers, distributed coordinators, message broker sessions)
// are out of scope for this module and live in resourcemanager/* as
// reference/test doubles; following the teacher's preference for a record
// of methods over a deep type hierarchy (spec §9 — "a record of function
// pointers / method table, not a deep hierarchy"), a minimal
// implementation can embed DefaultResourceManager and override only the
// operations it needs.
type ResourceManagerContract interface {
	// AcquireTransactionObject returns an opaque transaction object. It may
	// or may not represent an already-active transaction; IsExistingTransaction
	// distinguishes the two.
	AcquireTransactionObject(ctx context.Context, def TransactionDefinition) (any, error)
	// IsExistingTransaction reports whether tx represents an already-active
	// physical transaction.
	IsExistingTransaction(ctx context.Context, tx any) bool

	// Begin starts a new physical transaction on tx (or a nested one, when
	// tx already represents an active transaction and UseSavepointForNested
	// is false).
	Begin(ctx context.Context, tx any, def TransactionDefinition) error
	// PrepareForCommit gives the resource manager a chance to flush
	// outstanding work and validate tx is actually committable before any
	// synchronization's beforeCommit runs; a non-nil error aborts the
	// commit the same way a beforeCommit failure does.
	PrepareForCommit(ctx context.Context, tx any) error
	// Suspend detaches tx from the calling flow and returns an opaque
	// resumption handle.
	Suspend(ctx context.Context, tx any) (any, error)
	// Resume reattaches a transaction previously detached by Suspend.
	Resume(ctx context.Context, tx any, suspendedResource any) error
	// Commit finalizes tx.
	Commit(ctx context.Context, tx any) error
	// Rollback aborts tx.
	Rollback(ctx context.Context, tx any) error
	// SetRollbackOnly marks tx globally rollback-only.
	SetRollbackOnly(ctx context.Context, tx any) error
	// IsGlobalRollbackOnly reports whether any participant has marked tx
	// globally rollback-only.
	IsGlobalRollbackOnly(ctx context.Context, tx any) bool
	// Cleanup releases any engine-owned resources associated with tx after
	// completion; it is invoked regardless of commit/rollback outcome.
	Cleanup(ctx context.Context, tx any)

	// Savepoint operations; may return NestedTransactionNotSupported.
	CreateSavepoint(ctx context.Context, tx any) (any, error)
	RollbackToSavepoint(ctx context.Context, tx any, sp any) error
	ReleaseSavepoint(ctx context.Context, tx any, sp any) error

	// UseSavepointForNested reports whether NESTED propagation should be
	// realized via a savepoint on the existing transaction (true) or via a
	// genuinely new physical nested transaction (false).
	UseSavepointForNested() bool
	// CommitOnGlobalRollbackOnly reports whether a commit should proceed to
	// the resource manager even when the transaction is globally
	// rollback-only, letting the resource manager itself raise the error.
	CommitOnGlobalRollbackOnly() bool
}

// DefaultResourceManager implements ResourceManagerContract with behavior
// appropriate for a resource manager that supports neither suspension nor
// nesting; embed it in a concrete resource manager and override only the
// handful of methods relevant to that resource (mirrors the teacher's
// dummy-embedding pattern used throughout common/ and cassandra/ mocks).
type DefaultResourceManager struct{}

func (DefaultResourceManager) AcquireTransactionObject(ctx context.Context, def TransactionDefinition) (any, error) {
	return nil, nil
}
func (DefaultResourceManager) IsExistingTransaction(ctx context.Context, tx any) bool { return false }
func (DefaultResourceManager) Begin(ctx context.Context, tx any, def TransactionDefinition) error {
	return nil
}
func (DefaultResourceManager) PrepareForCommit(ctx context.Context, tx any) error { return nil }
func (DefaultResourceManager) Suspend(ctx context.Context, tx any) (any, error) {
	return nil, newError(TransactionSuspensionNotSupported, tx, "suspend is not supported by this resource manager")
}
func (DefaultResourceManager) Resume(ctx context.Context, tx any, suspendedResource any) error {
	return newError(TransactionSuspensionNotSupported, tx, "resume is not supported by this resource manager")
}
func (DefaultResourceManager) Commit(ctx context.Context, tx any) error   { return nil }
func (DefaultResourceManager) Rollback(ctx context.Context, tx any) error { return nil }
func (DefaultResourceManager) SetRollbackOnly(ctx context.Context, tx any) error {
	return nil
}
func (DefaultResourceManager) IsGlobalRollbackOnly(ctx context.Context, tx any) bool { return false }
func (DefaultResourceManager) Cleanup(ctx context.Context, tx any)                   {}
func (DefaultResourceManager) CreateSavepoint(ctx context.Context, tx any) (any, error) {
	return nil, newError(NestedTransactionNotSupported, tx, "savepoints are not supported by this resource manager")
}
func (DefaultResourceManager) RollbackToSavepoint(ctx context.Context, tx any, sp any) error {
	return newError(NestedTransactionNotSupported, tx, "savepoints are not supported by this resource manager")
}
func (DefaultResourceManager) ReleaseSavepoint(ctx context.Context, tx any, sp any) error {
	return newError(NestedTransactionNotSupported, tx, "savepoints are not supported by this resource manager")
}
func (DefaultResourceManager) UseSavepointForNested() bool      { return false }
func (DefaultResourceManager) CommitOnGlobalRollbackOnly() bool { return false }
