// Package engine implements the PropagationEngine (spec §2 component 5):
// the orchestration core that turns a TransactionDefinition into a
// TransactionStatus by consulting a ResourceManagerContract and mutating a
// registry.Registry, and later drives that status through commit or
// rollback.
//
// The struct shape and the function-table style of ResourceManagerContract
// follow common/twophasecommittransaction.go's Transaction type: a plain
// struct holding collaborators plus a small int/bool state machine, no
// inheritance hierarchy.
package engine

import (
	"context"
	log "log/slog"

	"github.com/groundworklabs/txcore"
	"github.com/groundworklabs/txcore/dispatch"
	"github.com/groundworklabs/txcore/registry"
)

// Engine is the PropagationEngine bound to a single ResourceManagerContract
// and ManagerConfig. A single Engine instance is shared across flows; all
// per-flow state lives in the registry.Registry carried on each call's
// context (spec §5 — configuration is the only shared mutable state).
type Engine struct {
	rm     txcore.ResourceManagerContract
	config txcore.ManagerConfig
}

// New returns an Engine bound to rm and config.
func New(rm txcore.ResourceManagerContract, config txcore.ManagerConfig) *Engine {
	return &Engine{rm: rm, config: config}
}

// Config returns the engine's configuration.
func (e *Engine) Config() txcore.ManagerConfig {
	return e.config
}

// GetTransaction implements spec §4.1. ctx must carry (or will lazily
// acquire, via registry.Ensure) the caller's BindingRegistry; the returned
// context must be used for any subsequent call relating to the returned
// status.
func (e *Engine) GetTransaction(ctx context.Context, def txcore.TransactionDefinition) (*txcore.TransactionStatus, context.Context, error) {
	if err := def.ValidateTimeout(); err != nil {
		return nil, ctx, err
	}

	reg, ctx := registry.Ensure(ctx)

	tx, err := e.rm.AcquireTransactionObject(ctx, def)
	if err != nil {
		return nil, ctx, txcore.NewError(txcore.TransactionSystem, def, "acquire transaction object: %v", err)
	}

	var status *txcore.TransactionStatus
	if e.rm.IsExistingTransaction(ctx, tx) {
		status, err = e.joinExisting(ctx, reg, tx, def)
	} else {
		status, err = e.beginFresh(ctx, reg, tx, def)
	}
	if err != nil {
		return nil, ctx, err
	}

	e.initSynchronizationIfNeeded(reg, status, def)
	return status, ctx, nil
}

// joinExisting implements the existing-transaction decision table (spec
// §4.1 step 3).
func (e *Engine) joinExisting(ctx context.Context, reg *registry.Registry, tx any, def txcore.TransactionDefinition) (*txcore.TransactionStatus, error) {
	switch def.Propagation {
	case txcore.PropagationNever:
		return nil, txcore.NewError(txcore.IllegalTransactionState, def, "existing transaction found for propagation NEVER")

	case txcore.PropagationNotSupported:
		holder, err := e.suspend(ctx, reg, tx)
		if err != nil {
			return nil, err
		}
		s := e.newStatus(nil, false, true, def.ReadOnly)
		s.SuspendedResources = holder
		return s, nil

	case txcore.PropagationRequiresNew:
		holder, err := e.suspend(ctx, reg, tx)
		if err != nil {
			return nil, err
		}
		newTx, err := e.rm.AcquireTransactionObject(ctx, def)
		if err == nil {
			err = e.rm.Begin(ctx, newTx, def)
		}
		if err != nil {
			if rerr := e.resume(ctx, reg, holder); rerr != nil {
				log.Warn("resume after failed REQUIRES_NEW begin failed", "error", rerr)
			}
			return nil, txcore.NewError(txcore.TransactionSystem, def, "begin REQUIRES_NEW transaction: %v", err)
		}
		s := e.newStatus(newTx, true, true, def.ReadOnly)
		s.SuspendedResources = holder
		return s, nil

	case txcore.PropagationNested:
		return e.beginNested(ctx, reg, tx, def)

	case txcore.PropagationRequired, txcore.PropagationSupports, txcore.PropagationMandatory:
		if e.config.ValidateExistingTransaction {
			if def.Isolation != txcore.IsolationDefault && def.Isolation != reg.CurrentIsolation() {
				return nil, txcore.NewError(txcore.IllegalTransactionState, def,
					"existing transaction's isolation %v does not match requested %v", reg.CurrentIsolation(), def.Isolation)
			}
			if !def.ReadOnly && reg.CurrentReadOnly() {
				return nil, txcore.NewError(txcore.IllegalTransactionState, def,
					"participation requested read-write but existing transaction is read-only")
			}
		}
		return e.newStatus(tx, false, false, def.ReadOnly), nil

	default:
		return nil, txcore.NewError(txcore.IllegalTransactionState, def, "unknown propagation %v", def.Propagation)
	}
}

// beginFresh implements the no-existing-transaction decision table (spec
// §4.1 step 4).
func (e *Engine) beginFresh(ctx context.Context, reg *registry.Registry, tx any, def txcore.TransactionDefinition) (*txcore.TransactionStatus, error) {
	switch def.Propagation {
	case txcore.PropagationMandatory:
		return nil, txcore.NewError(txcore.IllegalTransactionState, def, "no existing transaction for propagation MANDATORY")

	case txcore.PropagationRequired, txcore.PropagationRequiresNew, txcore.PropagationNested:
		if err := e.rm.Begin(ctx, tx, def); err != nil {
			return nil, txcore.NewError(txcore.TransactionSystem, def, "begin transaction: %v", err)
		}
		return e.newStatus(tx, true, true, def.ReadOnly), nil

	case txcore.PropagationSupports, txcore.PropagationNotSupported, txcore.PropagationNever:
		if def.Isolation != txcore.IsolationDefault {
			log.Warn("non-default isolation requested without a transaction; ignoring", "isolation", def.Isolation, "propagation", def.Propagation)
		}
		// newSynchronization starts as a candidate; initSynchronizationIfNeeded
		// applies the configured TransactionSynchronization policy, which may
		// turn it back off (spec §6 transactionSynchronization flag).
		return e.newStatus(nil, false, true, def.ReadOnly), nil

	default:
		return nil, txcore.NewError(txcore.IllegalTransactionState, def, "unknown propagation %v", def.Propagation)
	}
}

// initSynchronizationIfNeeded implements spec §4.1 step 5.
func (e *Engine) initSynchronizationIfNeeded(reg *registry.Registry, status *txcore.TransactionStatus, def txcore.TransactionDefinition) {
	if !status.NewSynchronization {
		return
	}
	switch e.config.TransactionSynchronization {
	case txcore.SynchronizationNever:
		status.NewSynchronization = false
		return
	case txcore.SynchronizationOnActualTransaction:
		if status.Transaction == nil {
			status.NewSynchronization = false
			return
		}
	}
	reg.InitSynchronization()
	isolation := def.Isolation
	reg.SetAmbient(def.Name, def.ReadOnly, isolation, status.Transaction != nil)
}

// newStatus builds a TransactionStatus wired with this engine's savepoint
// and rollback-only accessors (see status.go's function-valued-field
// decoupling note).
func (e *Engine) newStatus(tx any, newTransaction, newSynchronization, readOnly bool) *txcore.TransactionStatus {
	s := txcore.NewTransactionStatus(tx, newTransaction, newSynchronization, readOnly)
	e.wireStatus(s, tx)
	return s
}

func (e *Engine) wireStatus(s *txcore.TransactionStatus, tx any) {
	s.WireSavepoints(
		func(ctx context.Context) (any, error) { return e.rm.CreateSavepoint(ctx, tx) },
		func(ctx context.Context, sp any) error { return e.rm.RollbackToSavepoint(ctx, tx, sp) },
		func(ctx context.Context, sp any) error { return e.rm.ReleaseSavepoint(ctx, tx, sp) },
	)
	s.WireGlobalRollbackOnly(func(ctx context.Context) bool { return e.rm.IsGlobalRollbackOnly(ctx, tx) })
	s.WireFlush(func(ctx context.Context) error { return dispatch.Flush(ctx, synchronizationsFor(ctx)) })
}

// synchronizationsFor returns the synchronizations registered against ctx's
// registry, or nil if ctx carries none.
func synchronizationsFor(ctx context.Context) []txcore.SynchronizationContract {
	reg, ok := registry.FromContext(ctx)
	if !ok {
		return nil
	}
	return reg.Synchronizations()
}
