package engine

import (
	"context"
	log "log/slog"

	"github.com/groundworklabs/txcore"
	"github.com/groundworklabs/txcore/registry"
)

// cleanup implements spec §4.7: always run, regardless of commit/rollback
// outcome, and never lets a teardown failure overwrite the originating
// error (the caller already has its own error to return).
func (e *Engine) cleanup(ctx context.Context, status *txcore.TransactionStatus) {
	status.Completed = true

	if status.NewSynchronization {
		if reg, ok := registry.FromContext(ctx); ok {
			reg.ClearSynchronization()
			reg.ClearAmbient()
		}
	}

	if status.NewTransaction {
		e.rm.Cleanup(ctx, status.Transaction)
	}

	if status.SuspendedResources != nil {
		reg, ok := registry.FromContext(ctx)
		if !ok {
			log.Warn("cannot resume suspended resources: no registry bound to context")
			return
		}
		if err := e.resume(ctx, reg, status.SuspendedResources); err != nil {
			log.Error("resuming displaced transaction failed", "error", err)
		}
		status.SuspendedResources = nil
	}
}
