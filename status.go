package txcore

import "context"

// RegistrySnapshot captures the BindingRegistry's scalar ambient attributes
// (spec §3) at a point in time; used both live (registry package) and
// frozen inside a SuspendedResourcesHolder.
type RegistrySnapshot struct {
	CurrentName             string
	CurrentReadOnly         bool
	CurrentIsolation        Isolation
	ActualTransactionActive bool
}

// SuspendedResourcesHolder is the snapshot captured by suspend() and
// consumed exactly once by the matching resume() (spec §3/§4.2). It is a
// plain record, never shared across flows.
type SuspendedResourcesHolder struct {
	// Transaction is the resource-manager transaction object that was
	// displaced (the tx argument suspend() was called with), kept so the
	// matching resume() can hand the resource manager back the object it
	// actually suspended rather than whatever transaction object happens to
	// be current at the point resume() runs — those can differ, e.g. a
	// REQUIRES_NEW scope's own newly-begun transaction.
	Transaction any
	// ResourceSuspension is the resource manager's opaque handle returned by
	// Suspend(tx), or nil if there was no physical transaction to suspend.
	ResourceSuspension any
	// Synchronizations is the displaced flow's synchronization list, in its
	// original registration order.
	Synchronizations []SynchronizationContract
	// Attributes is the displaced flow's scalar ambient state.
	Attributes RegistrySnapshot
}

// TransactionStatus is the handle returned to callers by GetTransaction and
// consumed by Commit/Rollback (spec §3).
//
// Savepoint and flush operations are wired via function-valued fields set by
// the engine at construction time rather than by holding a reference to the
// engine, registry or a concrete ResourceManagerContract — the same
// technique the teacher uses in common/twophasecommittransaction.go's
// btreeBackend struct to stay decoupled from a generic backend without
// creating an import cycle back into the orchestration layer.
type TransactionStatus struct {
	// Transaction is the resource-manager-supplied transaction object, or
	// nil for an "empty" status (no physical transaction participates).
	Transaction any
	// NewTransaction is true when this call caused a physical begin.
	NewTransaction bool
	// NewSynchronization is true when this call initialized the
	// BindingRegistry's synchronization list.
	NewSynchronization bool
	// ReadOnly mirrors the requesting TransactionDefinition.
	ReadOnly bool
	// Debug is a diagnostic flag surfaced for logging call sites.
	Debug bool
	// SuspendedResources holds the enclosing transaction this one displaced,
	// or nil if none was displaced.
	SuspendedResources *SuspendedResourcesHolder
	// Savepoint is the opaque token created for a NESTED/savepoint-mode
	// transaction, or nil.
	Savepoint any
	// LocalRollbackOnly is set by the caller via SetRollbackOnly.
	LocalRollbackOnly bool
	// Completed is set by the engine once Commit or Rollback has returned.
	Completed bool

	createSavepointFn      func(ctx context.Context) (any, error)
	rollbackToSavepointFn  func(ctx context.Context, sp any) error
	releaseSavepointFn     func(ctx context.Context, sp any) error
	isGlobalRollbackOnlyFn func(ctx context.Context) bool
	flushFn                func(ctx context.Context) error
}

// NewTransactionStatus constructs a TransactionStatus with its public
// fields set; the engine must call one or more of the Wire* methods
// afterward to attach savepoint/rollback-only/flush behavior. Exported so
// the engine package (which owns the ResourceManagerContract and therefore
// the closures) can build statuses without txcore importing engine.
func NewTransactionStatus(tx any, newTransaction, newSynchronization, readOnly bool) *TransactionStatus {
	return &TransactionStatus{
		Transaction:        tx,
		NewTransaction:     newTransaction,
		NewSynchronization: newSynchronization,
		ReadOnly:           readOnly,
	}
}

// WireSavepoints attaches the resource-manager-backed savepoint operations.
func (s *TransactionStatus) WireSavepoints(
	create func(ctx context.Context) (any, error),
	rollbackTo func(ctx context.Context, sp any) error,
	release func(ctx context.Context, sp any) error,
) {
	s.createSavepointFn = create
	s.rollbackToSavepointFn = rollbackTo
	s.releaseSavepointFn = release
}

// WireGlobalRollbackOnly attaches the resource-manager-backed global
// rollback-only query.
func (s *TransactionStatus) WireGlobalRollbackOnly(isGlobalRollbackOnly func(ctx context.Context) bool) {
	s.isGlobalRollbackOnlyFn = isGlobalRollbackOnly
}

// WireFlush attaches the synchronization-backed flush operation.
func (s *TransactionStatus) WireFlush(flush func(ctx context.Context) error) {
	s.flushFn = flush
}

// IsGlobalRollbackOnlyFunc reports whether this status has a wired global
// rollback-only query, and evaluates it — used by the engine's commit path,
// which needs this value independent of LocalRollbackOnly (unlike
// IsRollbackOnly, which ORs the two).
func (s *TransactionStatus) IsGlobalRollbackOnlyFunc(ctx context.Context) bool {
	if s.isGlobalRollbackOnlyFn == nil {
		return false
	}
	return s.isGlobalRollbackOnlyFn(ctx)
}

// SetRollbackOnly marks the status as local-rollback-only (spec §3/§6).
func (s *TransactionStatus) SetRollbackOnly() {
	s.LocalRollbackOnly = true
}

// IsRollbackOnly reports whether the transaction is marked rollback-only,
// locally (by the caller) or globally (by any participant on the underlying
// transaction, per the resource manager's own bookkeeping).
func (s *TransactionStatus) IsRollbackOnly(ctx context.Context) bool {
	if s.LocalRollbackOnly {
		return true
	}
	if s.isGlobalRollbackOnlyFn != nil {
		return s.isGlobalRollbackOnlyFn(ctx)
	}
	return false
}

// HasSavepoint reports whether this status currently holds a savepoint
// token (spec §4.4).
func (s *TransactionStatus) HasSavepoint() bool {
	return s.Savepoint != nil
}

// Flush propagates pending changes to the resource manager without
// completing the transaction, invoking flush() on every registered
// synchronization (spec §4.4/§9 "six operations").
func (s *TransactionStatus) Flush(ctx context.Context) error {
	if s.flushFn == nil {
		return nil
	}
	return s.flushFn(ctx)
}

// CreateSavepoint creates (but does not hold) a new savepoint (spec §4.4).
func (s *TransactionStatus) CreateSavepoint(ctx context.Context) (any, error) {
	if s.createSavepointFn == nil {
		return nil, newError(NestedTransactionNotSupported, s, "savepoints are not supported by this resource manager")
	}
	return s.createSavepointFn(ctx)
}

// RollbackToSavepoint rolls back to sp (spec §4.4).
func (s *TransactionStatus) RollbackToSavepoint(ctx context.Context, sp any) error {
	if s.rollbackToSavepointFn == nil {
		return newError(NestedTransactionNotSupported, s, "savepoints are not supported by this resource manager")
	}
	return s.rollbackToSavepointFn(ctx, sp)
}

// ReleaseSavepoint releases sp (spec §4.4).
func (s *TransactionStatus) ReleaseSavepoint(ctx context.Context, sp any) error {
	if s.releaseSavepointFn == nil {
		return newError(NestedTransactionNotSupported, s, "savepoints are not supported by this resource manager")
	}
	return s.releaseSavepointFn(ctx, sp)
}

// CreateAndHoldSavepoint creates a savepoint and records its token on the status.
func (s *TransactionStatus) CreateAndHoldSavepoint(ctx context.Context) error {
	sp, err := s.CreateSavepoint(ctx)
	if err != nil {
		return err
	}
	s.Savepoint = sp
	return nil
}

// RollbackToHeldSavepoint requires a held savepoint, rolls back to it, then
// releases it, then clears the held token (spec §4.4).
func (s *TransactionStatus) RollbackToHeldSavepoint(ctx context.Context) error {
	if !s.HasSavepoint() {
		return newError(TransactionUsage, s, "no savepoint is held by this transaction status")
	}
	sp := s.Savepoint
	if err := s.RollbackToSavepoint(ctx, sp); err != nil {
		return err
	}
	if err := s.ReleaseSavepoint(ctx, sp); err != nil {
		return err
	}
	s.Savepoint = nil
	return nil
}

// ReleaseHeldSavepoint requires a held savepoint, releases it, then clears
// the held token (spec §4.4).
func (s *TransactionStatus) ReleaseHeldSavepoint(ctx context.Context) error {
	if !s.HasSavepoint() {
		return newError(TransactionUsage, s, "no savepoint is held by this transaction status")
	}
	sp := s.Savepoint
	if err := s.ReleaseSavepoint(ctx, sp); err != nil {
		return err
	}
	s.Savepoint = nil
	return nil
}
