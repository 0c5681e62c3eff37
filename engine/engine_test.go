package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/groundworklabs/txcore"
	"github.com/groundworklabs/txcore/registry"
	"github.com/groundworklabs/txcore/resourcemanager/memory"
)

// recordingSync records invocation order across all its callback methods,
// appending into a shared slice so tests can assert exact ordering.
type recordingSync struct {
	txcore.NoOpSynchronization
	name string
	log  *[]string
}

func (s *recordingSync) Suspend(ctx context.Context) error {
	*s.log = append(*s.log, s.name+":suspend")
	return nil
}
func (s *recordingSync) Resume(ctx context.Context) error {
	*s.log = append(*s.log, s.name+":resume")
	return nil
}
func (s *recordingSync) BeforeCommit(ctx context.Context, readOnly bool) error {
	*s.log = append(*s.log, s.name+":beforeCommit")
	return nil
}
func (s *recordingSync) BeforeCompletion(ctx context.Context) error {
	*s.log = append(*s.log, s.name+":beforeCompletion")
	return nil
}
func (s *recordingSync) AfterCommit(ctx context.Context) error {
	*s.log = append(*s.log, s.name+":afterCommit")
	return nil
}
func (s *recordingSync) AfterCompletion(ctx context.Context, status txcore.CompletionStatus) error {
	*s.log = append(*s.log, s.name+":afterCompletion("+status.String()+")")
	return nil
}

func newEngine() (*Engine, *memory.Manager) {
	rm := memory.New()
	return New(rm, txcore.DefaultManagerConfig()), rm
}

// Scenario 1: REQUIRED on top of none.
func TestGetTransaction_RequiredOnNone_CommitsCleanly(t *testing.T) {
	e, _ := newEngine()
	ctx := context.Background()

	status, ctx, err := e.GetTransaction(ctx, txcore.DefaultTransactionDefinition())
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if !status.NewTransaction || !status.NewSynchronization {
		t.Fatalf("expected newTransaction and newSynchronization, got %+v", status)
	}
	reg, _ := registry.FromContext(ctx)
	if !reg.ActualTransactionActive() {
		t.Fatalf("expected actualTransactionActive true")
	}

	var log []string
	reg.RegisterSynchronization(&recordingSync{name: "A", log: &log})

	if err := e.Commit(ctx, status); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !status.Completed {
		t.Fatalf("expected status.Completed true after commit")
	}

	want := []string{"A:beforeCommit", "A:beforeCompletion", "A:afterCommit", "A:afterCompletion(COMMITTED)"}
	if !equalStrings(log, want) {
		t.Fatalf("callback order = %v, want %v", log, want)
	}
	if reg.SynchronizationActive() {
		t.Fatalf("expected registry synchronization cleared after commit")
	}
}

// Scenario 2: REQUIRES_NEW displaces the outer transaction.
func TestGetTransaction_RequiresNew_DisplacesOuter(t *testing.T) {
	e, _ := newEngine()
	ctx := context.Background()

	outer, ctx, err := e.GetTransaction(ctx, txcore.DefaultTransactionDefinition())
	if err != nil {
		t.Fatalf("outer GetTransaction: %v", err)
	}
	reg, _ := registry.FromContext(ctx)
	var log []string
	reg.RegisterSynchronization(&recordingSync{name: "A", log: &log})

	inner, ctx, err := e.GetTransaction(ctx, txcore.TransactionDefinition{Propagation: txcore.PropagationRequiresNew, Isolation: txcore.IsolationDefault, TimeoutSeconds: -1})
	if err != nil {
		t.Fatalf("inner GetTransaction: %v", err)
	}
	if !inner.NewTransaction {
		t.Fatalf("expected inner.NewTransaction")
	}
	if len(log) != 1 || log[0] != "A:suspend" {
		t.Fatalf("expected A suspended, got %v", log)
	}

	reg, _ = registry.FromContext(ctx)
	reg.RegisterSynchronization(&recordingSync{name: "B", log: &log})

	if err := e.Commit(ctx, inner); err != nil {
		t.Fatalf("inner Commit: %v", err)
	}

	want := []string{
		"A:suspend",
		"B:beforeCommit", "B:beforeCompletion", "B:afterCommit", "B:afterCompletion(COMMITTED)",
		"A:resume",
	}
	if !equalStrings(log, want) {
		t.Fatalf("callback order = %v, want %v", log, want)
	}

	log = nil
	if err := e.Commit(ctx, outer); err != nil {
		t.Fatalf("outer Commit: %v", err)
	}
	wantOuter := []string{"A:beforeCommit", "A:beforeCompletion", "A:afterCommit", "A:afterCompletion(COMMITTED)"}
	if !equalStrings(log, wantOuter) {
		t.Fatalf("outer callback order = %v, want %v", log, wantOuter)
	}
}

// Scenario 3: NESTED with savepoint.
func TestGetTransaction_Nested_UsesSavepointAndRollsBack(t *testing.T) {
	rm := memory.New()
	cfg := txcore.DefaultManagerConfig()
	cfg.NestedTransactionAllowed = true
	e := New(rm, cfg)
	ctx := context.Background()

	outer, ctx, err := e.GetTransaction(ctx, txcore.DefaultTransactionDefinition())
	if err != nil {
		t.Fatalf("outer GetTransaction: %v", err)
	}

	inner, ctx, err := e.GetTransaction(ctx, txcore.TransactionDefinition{Propagation: txcore.PropagationNested, Isolation: txcore.IsolationDefault, TimeoutSeconds: -1})
	if err != nil {
		t.Fatalf("nested GetTransaction: %v", err)
	}
	if inner.NewTransaction {
		t.Fatalf("expected nested status to not be a new transaction")
	}
	if !inner.HasSavepoint() {
		t.Fatalf("expected nested status to hold a savepoint")
	}

	inner.SetRollbackOnly()
	if err := e.Commit(ctx, inner); err != nil {
		t.Fatalf("commit-diverted-to-rollback on nested: %v", err)
	}
	if !inner.Completed {
		t.Fatalf("expected nested status completed")
	}

	if err := e.Commit(ctx, outer); err != nil {
		t.Fatalf("outer Commit after nested rollback: %v", err)
	}
}

// Scenario 4: global rollback-only diversion.
func TestCommit_GlobalRollbackOnly_DivertsAndRaisesUnexpectedRollback(t *testing.T) {
	e, rm := newEngine()
	ctx := context.Background()

	status, ctx, err := e.GetTransaction(ctx, txcore.DefaultTransactionDefinition())
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	reg, _ := registry.FromContext(ctx)
	var log []string
	reg.RegisterSynchronization(&recordingSync{name: "A", log: &log})

	if err := rm.SetRollbackOnly(ctx, status.Transaction); err != nil {
		t.Fatalf("SetRollbackOnly: %v", err)
	}

	err = e.Commit(ctx, status)
	if !txcore.IsCode(err, txcore.UnexpectedRollback) {
		t.Fatalf("expected UnexpectedRollback, got %v", err)
	}

	want := []string{"A:beforeCompletion", "A:afterCompletion(ROLLED_BACK)"}
	if !equalStrings(log, want) {
		t.Fatalf("callback order = %v, want %v", log, want)
	}
}

// Scenario 5: participation isolation mismatch.
func TestGetTransaction_ParticipationIsolationMismatch_Fails(t *testing.T) {
	rm := memory.New()
	cfg := txcore.DefaultManagerConfig()
	cfg.ValidateExistingTransaction = true
	e := New(rm, cfg)
	ctx := context.Background()

	_, ctx, err := e.GetTransaction(ctx, txcore.TransactionDefinition{
		Propagation:    txcore.PropagationRequired,
		Isolation:      1,
		TimeoutSeconds: -1,
	})
	if err != nil {
		t.Fatalf("outer GetTransaction: %v", err)
	}

	_, _, err = e.GetTransaction(ctx, txcore.TransactionDefinition{
		Propagation:    txcore.PropagationRequired,
		Isolation:      2,
		TimeoutSeconds: -1,
	})
	if !txcore.IsCode(err, txcore.IllegalTransactionState) {
		t.Fatalf("expected IllegalTransactionState, got %v", err)
	}
}

// Scenario 6: MANDATORY without context.
func TestGetTransaction_MandatoryWithoutContext_Fails(t *testing.T) {
	e, _ := newEngine()
	ctx := context.Background()

	_, _, err := e.GetTransaction(ctx, txcore.TransactionDefinition{Propagation: txcore.PropagationMandatory, Isolation: txcore.IsolationDefault, TimeoutSeconds: -1})
	if !txcore.IsCode(err, txcore.IllegalTransactionState) {
		t.Fatalf("expected IllegalTransactionState, got %v", err)
	}
}

func TestGetTransaction_InvalidTimeout_Fails(t *testing.T) {
	e, _ := newEngine()
	_, _, err := e.GetTransaction(context.Background(), txcore.TransactionDefinition{TimeoutSeconds: -2})
	if !txcore.IsCode(err, txcore.InvalidTimeout) {
		t.Fatalf("expected InvalidTimeout, got %v", err)
	}
}

func TestCommit_SetRollbackOnlyThenCommit_BehavesAsRollback(t *testing.T) {
	e, _ := newEngine()
	ctx := context.Background()

	status, ctx, err := e.GetTransaction(ctx, txcore.DefaultTransactionDefinition())
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	reg, _ := registry.FromContext(ctx)
	var log []string
	reg.RegisterSynchronization(&recordingSync{name: "A", log: &log})

	status.SetRollbackOnly()
	if err := e.Commit(ctx, status); err != nil {
		t.Fatalf("Commit after SetRollbackOnly: %v", err)
	}

	want := []string{"A:beforeCompletion", "A:afterCompletion(ROLLED_BACK)"}
	if !equalStrings(log, want) {
		t.Fatalf("callback order = %v, want %v", log, want)
	}
}

// failingPrepareManager wraps memory.Manager but refuses every prepare,
// exercising spec §4.5 step 3's prepareForCommit hook.
type failingPrepareManager struct {
	*memory.Manager
}

func (f *failingPrepareManager) PrepareForCommit(ctx context.Context, tx any) error {
	return errors.New("resource manager not ready to commit")
}

func TestCommit_PrepareForCommitFails_AbortsBeforeBeforeCommit(t *testing.T) {
	rm := &failingPrepareManager{memory.New()}
	e := New(rm, txcore.DefaultManagerConfig())
	ctx := context.Background()

	status, ctx, err := e.GetTransaction(ctx, txcore.DefaultTransactionDefinition())
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	reg, _ := registry.FromContext(ctx)
	var log []string
	reg.RegisterSynchronization(&recordingSync{name: "A", log: &log})

	err = e.Commit(ctx, status)
	if !txcore.IsCode(err, txcore.TransactionSystem) {
		t.Fatalf("expected TransactionSystem, got %v", err)
	}

	// beforeCommit never ran; beforeCompletion fired reactively before the
	// abort, and RollbackOnCommitFailure defaults to false so no physical
	// rollback is attempted — afterCompletion reports UNKNOWN.
	want := []string{"A:beforeCompletion", "A:afterCompletion(UNKNOWN)"}
	if !equalStrings(log, want) {
		t.Fatalf("callback order = %v, want %v", log, want)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
