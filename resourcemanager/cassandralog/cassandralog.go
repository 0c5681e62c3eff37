// Package cassandralog provides a ResourceManagerContract backed by an
// append-only transaction log table in Cassandra, grounded on
// cassandra/transactionlog.go's Add/Remove pattern (github.com/gocql/gocql):
// begin writes a log row, and commit and rollback both delete that row; no
// separate "committed" row is written. The actual
// guarded resource (whatever the caller's data access code touches) is out
// of scope; this package only proves liveness of the transaction itself,
// the way the teacher's transaction log proves liveness of in-flight
// two-phase commits for crash recovery.
package cassandralog

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/sethvargo/go-retry"

	"github.com/groundworklabs/txcore"
	"github.com/groundworklabs/txcore/registry"
)

// LoggingConsistency mirrors the teacher's transactionLoggingConsistency:
// log rows only assist cleanup of abandoned transactions, so the weakest
// usable consistency is appropriate.
const LoggingConsistency = gocql.LocalOne

// Config configures the Cassandra connection and keyspace housing the log table.
type Config struct {
	ClusterHosts      []string
	Keyspace          string
	ConnectionTimeout time.Duration
}

// Manager is a ResourceManagerContract whose physical transaction is a row
// in Keyspace.t_log.
type Manager struct {
	txcore.DefaultResourceManager

	session  *gocql.Session
	keyspace string
}

// New opens a Cassandra session per cfg.
func New(cfg Config) (*Manager, error) {
	cluster := gocql.NewCluster(cfg.ClusterHosts...)
	cluster.Keyspace = cfg.Keyspace
	if cfg.ConnectionTimeout > 0 {
		cluster.ConnectTimeout = cfg.ConnectionTimeout
	}
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("open cassandra session: %w", err)
	}
	return &Manager{session: session, keyspace: cfg.Keyspace}, nil
}

type logEntry struct {
	id           gocql.UUID
	active       bool
	rollbackOnly bool
}

// AcquireTransactionObject rendezvouses with a logEntry already bound to
// this flow's registry under this Manager's identity, so a second call
// within the same flow (e.g. REQUIRED joining) observes the same entry
// rather than a fresh, inactive one. See memory.Manager for the same
// pattern applied to a simpler backend.
func (m *Manager) AcquireTransactionObject(ctx context.Context, def txcore.TransactionDefinition) (any, error) {
	reg, ok := registry.FromContext(ctx)
	if !ok {
		return &logEntry{id: gocql.TimeUUID()}, nil
	}
	if existing, found := reg.GetResource(m); found {
		return existing, nil
	}
	e := &logEntry{id: gocql.TimeUUID()}
	reg.BindResource(m, e)
	return e, nil
}

func (m *Manager) IsExistingTransaction(ctx context.Context, tx any) bool {
	e, ok := tx.(*logEntry)
	return ok && e.active
}

// Begin retries a transient log-row write failure (e.g. a momentarily
// unreachable coordinator) with the shared Fibonacci backoff.
func (m *Manager) Begin(ctx context.Context, tx any, def txcore.TransactionDefinition) error {
	e := tx.(*logEntry)
	stmt := fmt.Sprintf("INSERT INTO %s.t_log (id, c_f, c_f_p) VALUES (?, ?, ?);", m.keyspace)
	err := txcore.Retry(ctx, func(ctx context.Context) error {
		qry := m.session.Query(stmt, e.id, 0, []byte(def.Name)).WithContext(ctx).Consistency(LoggingConsistency)
		if err := qry.Exec(); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	}, nil)
	if err != nil {
		return fmt.Errorf("write begin log row: %w", err)
	}
	e.active = true
	return nil
}

func (m *Manager) Commit(ctx context.Context, tx any) error {
	e := tx.(*logEntry)
	stmt := fmt.Sprintf("DELETE FROM %s.t_log WHERE id = ?;", m.keyspace)
	qry := m.session.Query(stmt, e.id).WithContext(ctx).Consistency(LoggingConsistency)
	if err := qry.Exec(); err != nil {
		return fmt.Errorf("remove log row on commit: %w", err)
	}
	e.active = false
	return nil
}

func (m *Manager) Rollback(ctx context.Context, tx any) error {
	return m.Commit(ctx, tx)
}

func (m *Manager) SetRollbackOnly(ctx context.Context, tx any) error {
	tx.(*logEntry).rollbackOnly = true
	return nil
}

func (m *Manager) IsGlobalRollbackOnly(ctx context.Context, tx any) bool {
	e, ok := tx.(*logEntry)
	return ok && e.rollbackOnly
}

func (m *Manager) Cleanup(ctx context.Context, tx any) {
	if reg, ok := registry.FromContext(ctx); ok {
		reg.UnbindResource(m)
	}
}

func (m *Manager) UseSavepointForNested() bool      { return false }
func (m *Manager) CommitOnGlobalRollbackOnly() bool { return false }
