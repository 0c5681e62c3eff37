package registry

import (
	"context"
	"testing"

	"github.com/groundworklabs/txcore"
)

func Test_BindResource_GetResource_RoundTrip(t *testing.T) {
	r := New()
	key := &struct{}{}
	r.BindResource(key, "holder")

	got, ok := r.GetResource(key)
	if !ok || got != "holder" {
		t.Fatalf("GetResource = %v, %v; want %q, true", got, ok, "holder")
	}
	if !r.HasResource(key) {
		t.Fatalf("expected HasResource true")
	}

	r.UnbindResource(key)
	if r.HasResource(key) {
		t.Fatalf("expected HasResource false after unbind")
	}
}

func Test_BindResource_ReplacesExistingHolder(t *testing.T) {
	r := New()
	key := &struct{}{}
	r.BindResource(key, "first")
	r.BindResource(key, "second")

	got, _ := r.GetResource(key)
	if got != "second" {
		t.Fatalf("GetResource = %v, want %q", got, "second")
	}
}

type stubSync struct {
	txcore.NoOpSynchronization
	name string
	log  *[]string
}

func (s *stubSync) Suspend(ctx context.Context) error {
	*s.log = append(*s.log, s.name+":suspend")
	return nil
}
func (s *stubSync) Resume(ctx context.Context) error {
	*s.log = append(*s.log, s.name+":resume")
	return nil
}

func Test_RegisterSynchronization_OrderPreserved(t *testing.T) {
	r := New()
	var log []string
	r.RegisterSynchronization(&stubSync{name: "A", log: &log})
	r.RegisterSynchronization(&stubSync{name: "B", log: &log})

	syncs := r.Synchronizations()
	if len(syncs) != 2 {
		t.Fatalf("len(Synchronizations()) = %d, want 2", len(syncs))
	}
	if syncs[0].(*stubSync).name != "A" || syncs[1].(*stubSync).name != "B" {
		t.Fatalf("Synchronizations() order = [%s %s], want [A B]", syncs[0].(*stubSync).name, syncs[1].(*stubSync).name)
	}
	if !r.SynchronizationActive() {
		t.Fatalf("expected SynchronizationActive true")
	}

	r.ClearSynchronization()
	if r.SynchronizationActive() {
		t.Fatalf("expected SynchronizationActive false after clear")
	}
	if len(r.Synchronizations()) != 0 {
		t.Fatalf("expected Synchronizations empty after clear")
	}
}

func Test_SuspendResumeSynchronizations_PreservesOrder(t *testing.T) {
	r := New()
	var log []string
	r.RegisterSynchronization(&stubSync{name: "A", log: &log})
	r.RegisterSynchronization(&stubSync{name: "B", log: &log})

	suspended, err := r.SuspendSynchronizations(context.Background())
	if err != nil {
		t.Fatalf("SuspendSynchronizations: %v", err)
	}
	if r.SynchronizationActive() {
		t.Fatalf("expected SynchronizationActive false after suspend")
	}
	if got := []string{log[0], log[1]}; got[0] != "A:suspend" || got[1] != "B:suspend" {
		t.Fatalf("suspend order = %v", got)
	}

	log = nil
	if err := r.ResumeSynchronizations(context.Background(), suspended); err != nil {
		t.Fatalf("ResumeSynchronizations: %v", err)
	}
	if !r.SynchronizationActive() {
		t.Fatalf("expected SynchronizationActive true after resume")
	}
	if got := []string{log[0], log[1]}; got[0] != "A:resume" || got[1] != "B:resume" {
		t.Fatalf("resume order = %v", got)
	}
	if len(r.Synchronizations()) != 2 {
		t.Fatalf("expected 2 re-registered synchronizations, got %d", len(r.Synchronizations()))
	}
}

type failSuspendSync struct {
	txcore.NoOpSynchronization
	name    string
	log     *[]string
	failing bool
}

func (s *failSuspendSync) Suspend(ctx context.Context) error {
	if s.failing {
		return txcore.NewError(txcore.TransactionSystem, nil, "suspend failed")
	}
	*s.log = append(*s.log, s.name+":suspend")
	return nil
}
func (s *failSuspendSync) Resume(ctx context.Context) error {
	*s.log = append(*s.log, s.name+":resume")
	return nil
}

func Test_SuspendSynchronizations_UnwindsOnFailure(t *testing.T) {
	r := New()
	var log []string
	r.RegisterSynchronization(&failSuspendSync{name: "A", log: &log})
	r.RegisterSynchronization(&failSuspendSync{name: "B", log: &log, failing: true})

	_, err := r.SuspendSynchronizations(context.Background())
	if err == nil {
		t.Fatalf("expected error from SuspendSynchronizations")
	}
	want := []string{"A:suspend", "A:resume"}
	if len(log) != len(want) || log[0] != want[0] || log[1] != want[1] {
		t.Fatalf("unwind log = %v, want %v", log, want)
	}
	if !r.SynchronizationActive() {
		t.Fatalf("expected synchronizations still registered after failed suspend")
	}
}

func Test_SetAmbient_ClearAmbient(t *testing.T) {
	r := New()
	r.SetAmbient("tx1", true, txcore.Isolation(2), true)

	if r.CurrentName() != "tx1" || !r.CurrentReadOnly() || r.CurrentIsolation() != txcore.Isolation(2) || !r.ActualTransactionActive() {
		t.Fatalf("ambient attributes not set as expected")
	}

	r.ClearAmbient()
	if r.CurrentName() != "" || r.CurrentReadOnly() || r.CurrentIsolation() != txcore.IsolationDefault || r.ActualTransactionActive() {
		t.Fatalf("ambient attributes not cleared")
	}
}

func Test_Snapshot_Restore_RoundTrip(t *testing.T) {
	r := New()
	r.SetAmbient("outer", false, txcore.Isolation(1), true)
	snap := r.Snapshot()

	r.SetAmbient("inner", true, txcore.Isolation(2), true)
	r.Restore(snap)

	if r.CurrentName() != "outer" || r.CurrentReadOnly() || r.CurrentIsolation() != txcore.Isolation(1) {
		t.Fatalf("Restore did not reinstate snapshot")
	}
}

func Test_Inherit_CopiesIndependently(t *testing.T) {
	ctx := context.Background()
	parent, ctx := Ensure(ctx)
	parent.BindResource("k", "v")
	parent.SetAmbient("flow", false, txcore.IsolationDefault, true)

	childCtx := Inherit(ctx)
	child, ok := FromContext(childCtx)
	if !ok {
		t.Fatalf("expected child registry bound to context")
	}
	if child == parent {
		t.Fatalf("expected Inherit to produce a distinct Registry")
	}
	if got, ok := child.GetResource("k"); !ok || got != "v" {
		t.Fatalf("expected child to inherit parent's resource binding")
	}

	child.BindResource("k", "child-v")
	if got, _ := parent.GetResource("k"); got != "v" {
		t.Fatalf("mutating child registry leaked into parent")
	}
}

func Test_Ensure_ReusesExistingRegistry(t *testing.T) {
	ctx := context.Background()
	r1, ctx := Ensure(ctx)
	r2, _ := Ensure(ctx)
	if r1 != r2 {
		t.Fatalf("expected Ensure to return the same Registry for an already-bound context")
	}
}

func Test_Inherit_WithoutBoundRegistry_ReturnsCtxUnchanged(t *testing.T) {
	ctx := context.Background()
	out := Inherit(ctx)
	if _, ok := FromContext(out); ok {
		t.Fatalf("expected no registry bound when parent context carried none")
	}
}
