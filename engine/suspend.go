package engine

import (
	"context"
	log "log/slog"

	"github.com/groundworklabs/txcore"
	"github.com/groundworklabs/txcore/registry"
)

// suspend implements spec §4.2's suspend(tx?), combining the registry's
// synchronization suspension with the resource manager's physical suspend.
// Returns nil if neither a transaction nor active synchronization existed.
func (e *Engine) suspend(ctx context.Context, reg *registry.Registry, tx any) (*txcore.SuspendedResourcesHolder, error) {
	var syncs []txcore.SynchronizationContract
	var err error
	if reg.SynchronizationActive() {
		syncs, err = reg.SuspendSynchronizations(ctx)
		if err != nil {
			return nil, txcore.NewError(txcore.TransactionSystem, tx, "suspend synchronizations: %v", err)
		}
	}

	var resourceSuspension any
	if tx != nil {
		resourceSuspension, err = e.rm.Suspend(ctx, tx)
		if err != nil {
			// step 5: synchronizations already suspended must be resumed
			// before re-raising.
			if len(syncs) > 0 {
				if rerr := reg.ResumeSynchronizations(ctx, syncs); rerr != nil {
					log.Warn("resume-on-unwind after failed resource suspend failed", "error", rerr)
				}
			}
			if txcore.IsCode(err, txcore.TransactionSuspensionNotSupported) {
				return nil, err
			}
			return nil, txcore.NewError(txcore.TransactionSystem, tx, "suspend resource transaction: %v", err)
		}
	}

	snapshot := reg.Snapshot()
	reg.ClearAmbient()

	if resourceSuspension == nil && len(syncs) == 0 {
		return nil, nil
	}

	return &txcore.SuspendedResourcesHolder{
		Transaction:        tx,
		ResourceSuspension: resourceSuspension,
		Synchronizations:   syncs,
		Attributes:         snapshot,
	}, nil
}

// resume implements spec §4.2's resume(tx?, holder): resource-level resume
// first, then restore scalar attributes, then re-initialize synchronization.
// The transaction object handed back to the resource manager is always the
// one recorded on holder at suspend time (holder.Transaction), never
// whatever transaction happens to be current when resume() runs — those
// differ for a REQUIRES_NEW scope, whose own status.Transaction is the
// inner transaction it began, not the outer one being resumed.
func (e *Engine) resume(ctx context.Context, reg *registry.Registry, holder *txcore.SuspendedResourcesHolder) error {
	if holder == nil {
		return nil
	}
	if holder.Transaction != nil && holder.ResourceSuspension != nil {
		if err := e.rm.Resume(ctx, holder.Transaction, holder.ResourceSuspension); err != nil {
			return txcore.NewError(txcore.TransactionSystem, holder.Transaction, "resume resource transaction: %v", err)
		}
	}
	reg.Restore(holder.Attributes)
	if holder.Synchronizations != nil {
		// non-nil (possibly empty) means synchronization was active at suspend time
		reg.InitSynchronization()
	}
	if len(holder.Synchronizations) > 0 {
		if err := reg.ResumeSynchronizations(ctx, holder.Synchronizations); err != nil {
			return txcore.NewError(txcore.TransactionSystem, holder.Transaction, "resume synchronizations: %v", err)
		}
	}
	return nil
}
