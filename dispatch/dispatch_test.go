package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/groundworklabs/txcore"
)

type recordingSync struct {
	txcore.NoOpSynchronization
	name     string
	log      *[]string
	failAt   string
	failWith error
}

func (s *recordingSync) call(phase string) error {
	*s.log = append(*s.log, s.name+":"+phase)
	if s.failAt == phase {
		return s.failWith
	}
	return nil
}

func (s *recordingSync) BeforeCommit(ctx context.Context, readOnly bool) error {
	return s.call("beforeCommit")
}
func (s *recordingSync) BeforeCompletion(ctx context.Context) error { return s.call("beforeCompletion") }
func (s *recordingSync) AfterCommit(ctx context.Context) error      { return s.call("afterCommit") }
func (s *recordingSync) AfterCompletion(ctx context.Context, status txcore.CompletionStatus) error {
	return s.call("afterCompletion")
}
func (s *recordingSync) Flush(ctx context.Context) error { return s.call("flush") }

func Test_BeforeCommit_RunsInOrder(t *testing.T) {
	var log []string
	syncs := []txcore.SynchronizationContract{
		&recordingSync{name: "A", log: &log},
		&recordingSync{name: "B", log: &log},
	}
	if err := BeforeCommit(context.Background(), syncs, false); err != nil {
		t.Fatalf("BeforeCommit: %v", err)
	}
	want := []string{"A:beforeCommit", "B:beforeCommit"}
	assertEqual(t, log, want)
}

func Test_BeforeCommit_AbortsOnFirstError(t *testing.T) {
	var log []string
	failure := errors.New("boom")
	syncs := []txcore.SynchronizationContract{
		&recordingSync{name: "A", log: &log, failAt: "beforeCommit", failWith: failure},
		&recordingSync{name: "B", log: &log},
	}
	err := BeforeCommit(context.Background(), syncs, false)
	if !errors.Is(err, failure) {
		t.Fatalf("BeforeCommit error = %v, want %v", err, failure)
	}
	want := []string{"A:beforeCommit"}
	assertEqual(t, log, want)
}

func Test_BeforeCompletion_NeverAborts(t *testing.T) {
	var log []string
	syncs := []txcore.SynchronizationContract{
		&recordingSync{name: "A", log: &log, failAt: "beforeCompletion", failWith: errors.New("boom")},
		&recordingSync{name: "B", log: &log},
	}
	BeforeCompletion(context.Background(), syncs)
	want := []string{"A:beforeCompletion", "B:beforeCompletion"}
	assertEqual(t, log, want)
}

func Test_AfterCommit_RunsAllAndReturnsFirstError(t *testing.T) {
	var log []string
	firstErr := errors.New("first")
	syncs := []txcore.SynchronizationContract{
		&recordingSync{name: "A", log: &log, failAt: "afterCommit", failWith: firstErr},
		&recordingSync{name: "B", log: &log, failAt: "afterCommit", failWith: errors.New("second")},
		&recordingSync{name: "C", log: &log},
	}
	err := AfterCommit(context.Background(), syncs)
	if !errors.Is(err, firstErr) {
		t.Fatalf("AfterCommit error = %v, want %v", err, firstErr)
	}
	want := []string{"A:afterCommit", "B:afterCommit", "C:afterCommit"}
	assertEqual(t, log, want)
}

func Test_AfterCompletion_NeverAborts(t *testing.T) {
	var log []string
	syncs := []txcore.SynchronizationContract{
		&recordingSync{name: "A", log: &log, failAt: "afterCompletion", failWith: errors.New("boom")},
		&recordingSync{name: "B", log: &log},
	}
	AfterCompletion(context.Background(), syncs, txcore.CompletionCommitted)
	want := []string{"A:afterCompletion", "B:afterCompletion"}
	assertEqual(t, log, want)
}

func Test_Flush_AbortsOnFirstError(t *testing.T) {
	var log []string
	failure := errors.New("boom")
	syncs := []txcore.SynchronizationContract{
		&recordingSync{name: "A", log: &log, failAt: "flush", failWith: failure},
		&recordingSync{name: "B", log: &log},
	}
	err := Flush(context.Background(), syncs)
	if !errors.Is(err, failure) {
		t.Fatalf("Flush error = %v, want %v", err, failure)
	}
	want := []string{"A:flush"}
	assertEqual(t, log, want)
}

func assertEqual(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("log = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("log = %v, want %v", got, want)
		}
	}
}
