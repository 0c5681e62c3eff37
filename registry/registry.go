// Package registry implements the BindingRegistry (spec §2 component 1,
// §3): the per-flow store holding resource bindings, registered
// synchronizations, and ambient transaction attributes. It is the
// rendezvous point between the PropagationEngine and resource managers.
package registry

import (
	"sync"

	"github.com/groundworklabs/txcore"
)

// Registry is the per-flow BindingRegistry. It must never be shared across
// concurrent flows (spec §5); Inherit provides the one sanctioned way to
// hand a snapshot to a child flow.
type Registry struct {
	mu sync.Mutex

	resources map[any]any
	syncs     []txcore.SynchronizationContract

	currentName             string
	currentReadOnly         bool
	currentIsolation        txcore.Isolation
	actualTransactionActive bool
	synchronizationActive   bool
}

// New returns an empty Registry. Most callers should use Ensure instead, so
// that the registry is threaded through a context.Context (see context.go).
func New() *Registry {
	return &Registry{
		resources:        make(map[any]any),
		currentIsolation: txcore.IsolationDefault,
	}
}

// BindResource associates holder with key. Keys are unique; binding an
// already-bound key replaces its holder, the same as the teacher's
// cache-layer Set semantics.
func (r *Registry) BindResource(key, holder any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resources == nil {
		r.resources = make(map[any]any)
	}
	r.resources[key] = holder
}

// UnbindResource removes key's binding, if any.
func (r *Registry) UnbindResource(key any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.resources, key)
}

// GetResource returns key's bound holder, if any.
func (r *Registry) GetResource(key any) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.resources[key]
	return v, ok
}

// HasResource reports whether key is bound.
func (r *Registry) HasResource(key any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.resources[key]
	return ok
}

// RegisterSynchronization appends s to the ordered synchronization list.
// Insertion order defines callback invocation order (spec §3).
func (r *Registry) RegisterSynchronization(s txcore.SynchronizationContract) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncs = append(r.syncs, s)
	r.synchronizationActive = true
}

// Synchronizations returns an unmodifiable snapshot of the registered
// synchronizations, in registration order (spec §6 external interface).
func (r *Registry) Synchronizations() []txcore.SynchronizationContract {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]txcore.SynchronizationContract, len(r.syncs))
	copy(out, r.syncs)
	return out
}

// ClearSynchronization empties the synchronization list and marks
// synchronization inactive.
func (r *Registry) ClearSynchronization() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncs = nil
	r.synchronizationActive = false
}

// SynchronizationActive reports whether InitSynchronization or
// RegisterSynchronization has run and ClearSynchronization has not yet
// undone it.
func (r *Registry) SynchronizationActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.synchronizationActive
}

// InitSynchronization marks synchronization active without registering any
// participant yet; the engine calls this for a new transaction even before
// resource managers have had a chance to register themselves (spec §4.1
// step 5).
func (r *Registry) InitSynchronization() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.synchronizationActive = true
}

// SetAmbient sets the scalar ambient attributes (spec §4.1 step 5).
func (r *Registry) SetAmbient(name string, readOnly bool, isolation txcore.Isolation, actualTransactionActive bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentName = name
	r.currentReadOnly = readOnly
	r.currentIsolation = isolation
	r.actualTransactionActive = actualTransactionActive
}

// ClearAmbient resets the scalar ambient attributes to their zero state
// (spec §4.7 step 2).
func (r *Registry) ClearAmbient() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentName = ""
	r.currentReadOnly = false
	r.currentIsolation = txcore.IsolationDefault
	r.actualTransactionActive = false
}

// CurrentName returns the ambient transaction name, for diagnostics.
func (r *Registry) CurrentName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentName
}

// CurrentReadOnly returns the ambient read-only flag.
func (r *Registry) CurrentReadOnly() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentReadOnly
}

// CurrentIsolation returns the ambient isolation level.
func (r *Registry) CurrentIsolation() txcore.Isolation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentIsolation
}

// ActualTransactionActive reports whether a physical resource-manager
// transaction is active for the current flow.
func (r *Registry) ActualTransactionActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.actualTransactionActive
}

// Snapshot returns the current scalar ambient attributes as a
// txcore.RegistrySnapshot, suitable for embedding in a SuspendedResourcesHolder.
func (r *Registry) Snapshot() txcore.RegistrySnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return txcore.RegistrySnapshot{
		CurrentName:             r.currentName,
		CurrentReadOnly:         r.currentReadOnly,
		CurrentIsolation:        r.currentIsolation,
		ActualTransactionActive: r.actualTransactionActive,
	}
}

// Restore reinstates scalar ambient attributes previously captured by Snapshot.
func (r *Registry) Restore(snap txcore.RegistrySnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentName = snap.CurrentName
	r.currentReadOnly = snap.CurrentReadOnly
	r.currentIsolation = snap.CurrentIsolation
	r.actualTransactionActive = snap.ActualTransactionActive
}

// snapshotCopy returns a new Registry with an independent copy of r's
// resources, synchronizations and scalar attributes — the mechanism behind
// Inherit's "inherited" per-flow mode (spec §5).
func (r *Registry) snapshotCopy() *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	resources := make(map[any]any, len(r.resources))
	for k, v := range r.resources {
		resources[k] = v
	}
	syncs := make([]txcore.SynchronizationContract, len(r.syncs))
	copy(syncs, r.syncs)
	return &Registry{
		resources:               resources,
		syncs:                   syncs,
		currentName:             r.currentName,
		currentReadOnly:         r.currentReadOnly,
		currentIsolation:        r.currentIsolation,
		actualTransactionActive: r.actualTransactionActive,
		synchronizationActive:   r.synchronizationActive,
	}
}
