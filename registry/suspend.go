package registry

import (
	"context"
	log "log/slog"

	"github.com/groundworklabs/txcore"
)

// SuspendSynchronizations implements spec §4.2 step 1: invoke Suspend() on
// every registered synchronization in insertion order, collect them into a
// list, then clear the registry's synchronization list. The returned slice
// is what a caller re-registers via ResumeSynchronizations.
func (r *Registry) SuspendSynchronizations(ctx context.Context) ([]txcore.SynchronizationContract, error) {
	syncs := r.Synchronizations()
	for i, s := range syncs {
		if err := s.Suspend(ctx); err != nil {
			// Best-effort unwind: resume what we already suspended, in
			// original order, before reporting the failure (mirrors spec
			// §4.2 step 5's re-registration requirement for the resource
			// manager leg; here applied symmetrically to synchronizations).
			for j := 0; j < i; j++ {
				if rerr := syncs[j].Resume(ctx); rerr != nil {
					log.Warn("synchronization resume-on-unwind failed", "error", rerr)
				}
			}
			return nil, err
		}
	}
	r.ClearSynchronization()
	return syncs, nil
}

// ResumeSynchronizations implements the synchronization leg of spec §4.2's
// resume: re-initialize synchronization, invoke Resume() on each held
// synchronization in its original order, re-registering each. An empty
// syncs leaves the registry unchanged.
func (r *Registry) ResumeSynchronizations(ctx context.Context, syncs []txcore.SynchronizationContract) error {
	if len(syncs) == 0 {
		return nil
	}
	r.InitSynchronization()
	for _, s := range syncs {
		if err := s.Resume(ctx); err != nil {
			return err
		}
		r.RegisterSynchronization(s)
	}
	return nil
}
