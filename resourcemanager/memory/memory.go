// Package memory provides a reference ResourceManagerContract backed by an
// in-process slice of committed records, grounded on the teacher's
// in_memory/transaction_manager.go: CRUD is relayed directly to an
// in-memory structure with no external dependency, useful for tests and as
// the simplest possible adapter to read while learning the engine's
// contract.
package memory

import (
	"context"
	"sync"

	"github.com/groundworklabs/txcore"
	"github.com/groundworklabs/txcore/registry"
)

// Record is a single opaque key/value entry managed by Manager.
type Record struct {
	Key   string
	Value any
}

// txState is the opaque object handed to the engine as TransactionStatus.Transaction.
type txState struct {
	id           int
	active       bool
	readOnly     bool
	rollbackOnly bool
	staged       []Record
	savepoints   [][]Record
}

// Manager is an in-process resource manager over a committed record slice.
// It supports savepoints (a stack of staged-record snapshots) and suspension
// (Suspend/Resume unbind and rebind the object), but not native nesting;
// NESTED propagation is realized entirely via savepoints
// (UseSavepointForNested returns true).
type Manager struct {
	txcore.DefaultResourceManager

	mu        sync.Mutex
	committed []Record
	nextID    int
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{}
}

// Committed returns a snapshot of the committed records, for assertions in tests.
func (m *Manager) Committed() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.committed))
	copy(out, m.committed)
	return out
}

// Stage appends a record to tx's staged (uncommitted) set. Resource-access
// code (not the engine) calls this once it has obtained tx from the
// registry via TransactionStatus.Transaction or a bound resource.
func Stage(tx any, rec Record) {
	t, ok := tx.(*txState)
	if !ok || t == nil {
		return
	}
	t.staged = append(t.staged, rec)
}

// AcquireTransactionObject looks up a txState already bound to this flow's
// registry under this Manager's identity, the same rendezvous a real
// resource manager uses (e.g. a DataSource-keyed ConnectionHolder) to
// recognize that the calling flow already participates in a transaction.
// Absent a bound object, a fresh inactive one is created and bound.
func (m *Manager) AcquireTransactionObject(ctx context.Context, def txcore.TransactionDefinition) (any, error) {
	reg, ok := registry.FromContext(ctx)
	if !ok {
		return &txState{readOnly: def.ReadOnly}, nil
	}
	if existing, found := reg.GetResource(m); found {
		return existing, nil
	}
	t := &txState{readOnly: def.ReadOnly}
	reg.BindResource(m, t)
	return t, nil
}

func (m *Manager) IsExistingTransaction(ctx context.Context, tx any) bool {
	t, ok := tx.(*txState)
	return ok && t.active
}

func (m *Manager) Begin(ctx context.Context, tx any, def txcore.TransactionDefinition) error {
	t := tx.(*txState)
	m.mu.Lock()
	m.nextID++
	t.id = m.nextID
	m.mu.Unlock()
	t.active = true
	t.readOnly = def.ReadOnly
	return nil
}

func (m *Manager) Commit(ctx context.Context, tx any) error {
	t := tx.(*txState)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = append(m.committed, t.staged...)
	t.staged = nil
	t.active = false
	return nil
}

func (m *Manager) Rollback(ctx context.Context, tx any) error {
	t := tx.(*txState)
	t.staged = nil
	t.active = false
	return nil
}

// Suspend unbinds tx from the flow's registry (so a displacing
// REQUIRES_NEW/NOT_SUPPORTED scope acquires a genuinely fresh object
// instead of rediscovering this one through AcquireTransactionObject) and
// marks it inactive, handing it back as its own resumption handle.
func (m *Manager) Suspend(ctx context.Context, tx any) (any, error) {
	t := tx.(*txState)
	if reg, ok := registry.FromContext(ctx); ok {
		reg.UnbindResource(m)
	}
	t.active = false
	return t, nil
}

// Resume rebinds the suspended object into the (now-restored) flow
// registry and reactivates it.
func (m *Manager) Resume(ctx context.Context, tx any, suspendedResource any) error {
	t, ok := suspendedResource.(*txState)
	if !ok {
		return txcore.NewError(txcore.TransactionUsage, tx, "resume called with an unrecognized suspension handle")
	}
	if reg, ok := registry.FromContext(ctx); ok {
		reg.BindResource(m, t)
	}
	t.active = true
	return nil
}

func (m *Manager) SetRollbackOnly(ctx context.Context, tx any) error {
	tx.(*txState).rollbackOnly = true
	return nil
}

func (m *Manager) IsGlobalRollbackOnly(ctx context.Context, tx any) bool {
	t, ok := tx.(*txState)
	return ok && t.rollbackOnly
}

// Cleanup unbinds tx from the flow's registry; it is only invoked by the
// engine for transactions it began (TransactionStatus.NewTransaction), so
// this always corresponds to the outermost scope that created the binding.
func (m *Manager) Cleanup(ctx context.Context, tx any) {
	if reg, ok := registry.FromContext(ctx); ok {
		reg.UnbindResource(m)
	}
}

func (m *Manager) CreateSavepoint(ctx context.Context, tx any) (any, error) {
	t := tx.(*txState)
	snapshot := make([]Record, len(t.staged))
	copy(snapshot, t.staged)
	t.savepoints = append(t.savepoints, snapshot)
	return len(t.savepoints) - 1, nil
}

func (m *Manager) RollbackToSavepoint(ctx context.Context, tx any, sp any) error {
	t := tx.(*txState)
	idx, ok := sp.(int)
	if !ok || idx < 0 || idx >= len(t.savepoints) {
		return txcore.NewError(txcore.TransactionUsage, tx, "unknown savepoint token %v", sp)
	}
	t.staged = append([]Record(nil), t.savepoints[idx]...)
	return nil
}

func (m *Manager) ReleaseSavepoint(ctx context.Context, tx any, sp any) error {
	t := tx.(*txState)
	idx, ok := sp.(int)
	if !ok || idx < 0 || idx >= len(t.savepoints) {
		return txcore.NewError(txcore.TransactionUsage, tx, "unknown savepoint token %v", sp)
	}
	t.savepoints = t.savepoints[:idx]
	return nil
}

func (m *Manager) UseSavepointForNested() bool      { return true }
func (m *Manager) CommitOnGlobalRollbackOnly() bool { return false }
