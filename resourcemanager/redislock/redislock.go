// Package redislock provides a ResourceManagerContract backed by a
// distributed lock held in Redis, grounded on cache/redis.go's
// *redis.Client wiring (github.com/redis/go-redis/v9). "Begin" acquires a
// SET NX lock on a key derived from the transaction's name; "suspend"
// releases the lock so another flow could observe the resource as free
// without losing the association (the lock value is the suspension
// token); "resume" re-acquires it.
//
// This resource manager does not support savepoints or native nesting.
// UseSavepointForNested reports false, so when nesting is enabled the engine
// calls Begin again on the lock this flow already holds; that SET NX keeps
// failing until AcquireTimeout elapses, and the engine reports the failure
// as NestedTransactionNotSupported.
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/groundworklabs/txcore"
	"github.com/groundworklabs/txcore/registry"
)

// Options configures the Manager's Redis connection and lock behavior.
type Options struct {
	Address  string
	Password string
	DB       int
	// LockTTL bounds how long a held lock survives without renewal.
	LockTTL time.Duration
	// AcquireTimeout bounds how long Begin retries against lock contention
	// before giving up.
	AcquireTimeout time.Duration
}

// DefaultOptions mirrors the teacher's cache.DefaultOptions defaults.
func DefaultOptions() Options {
	return Options{
		Address:        "localhost:6379",
		DB:             0,
		AcquireTimeout: 5 * time.Second,
		LockTTL:        30 * time.Second,
	}
}

// Manager is a ResourceManagerContract whose physical transaction is a
// named distributed lock.
type Manager struct {
	txcore.DefaultResourceManager

	client *redis.Client
	opts   Options
}

// New connects to Redis per opts and returns a Manager.
func New(opts Options) *Manager {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &Manager{client: client, opts: opts}
}

type lockHandle struct {
	key          string
	token        string
	active       bool
	rollbackOnly bool
}

func lockKey(name string) string {
	if name == "" {
		name = "default"
	}
	return fmt.Sprintf("txcore:lock:%s", name)
}

// AcquireTransactionObject rendezvouses with a lockHandle already bound to
// this flow's registry under this Manager's identity, so a second call
// within the same flow (e.g. REQUIRED joining) observes the same handle
// rather than a fresh, inactive one. See memory.Manager for the same
// pattern applied to a simpler backend.
func (m *Manager) AcquireTransactionObject(ctx context.Context, def txcore.TransactionDefinition) (any, error) {
	reg, ok := registry.FromContext(ctx)
	if !ok {
		return &lockHandle{key: lockKey(def.Name)}, nil
	}
	if existing, found := reg.GetResource(m); found {
		return existing, nil
	}
	h := &lockHandle{key: lockKey(def.Name)}
	reg.BindResource(m, h)
	return h, nil
}

func (m *Manager) IsExistingTransaction(ctx context.Context, tx any) bool {
	h, ok := tx.(*lockHandle)
	return ok && h.active
}

// Begin retries SETNX against contention, backing off with jittered sleeps
// until AcquireTimeout elapses.
func (m *Manager) Begin(ctx context.Context, tx any, def txcore.TransactionDefinition) error {
	h := tx.(*lockHandle)
	token := txcore.NewUUID().String()
	start := time.Now()
	for {
		ok, err := m.client.SetNX(ctx, h.key, token, m.opts.LockTTL).Result()
		if err != nil {
			return fmt.Errorf("acquire redis lock %s: %w", h.key, err)
		}
		if ok {
			break
		}
		if err := txcore.TimedOut(ctx, "acquire redis lock "+h.key, start, m.opts.AcquireTimeout); err != nil {
			return fmt.Errorf("redis lock %s still held: %w", h.key, err)
		}
		txcore.RandomSleep(ctx)
	}
	h.token = token
	h.active = true
	return nil
}

// Suspend releases the lock with an unconditional DEL (the stored value is
// not compared against h.token first) and returns the token, which Resume
// writes back as the lock value when it re-acquires the key.
func (m *Manager) Suspend(ctx context.Context, tx any) (any, error) {
	h := tx.(*lockHandle)
	if err := m.client.Del(ctx, h.key).Err(); err != nil {
		return nil, fmt.Errorf("release redis lock %s for suspend: %w", h.key, err)
	}
	if reg, ok := registry.FromContext(ctx); ok {
		reg.UnbindResource(m)
	}
	h.active = false
	return h.token, nil
}

func (m *Manager) Resume(ctx context.Context, tx any, suspendedResource any) error {
	h := tx.(*lockHandle)
	token, _ := suspendedResource.(string)
	ok, err := m.client.SetNX(ctx, h.key, token, m.opts.LockTTL).Result()
	if err != nil {
		return fmt.Errorf("reacquire redis lock %s on resume: %w", h.key, err)
	}
	if !ok {
		return fmt.Errorf("redis lock %s was taken by another flow during suspension", h.key)
	}
	h.token = token
	h.active = true
	if reg, ok := registry.FromContext(ctx); ok {
		reg.BindResource(m, h)
	}
	return nil
}

func (m *Manager) Commit(ctx context.Context, tx any) error {
	h := tx.(*lockHandle)
	if err := m.client.Del(ctx, h.key).Err(); err != nil {
		return fmt.Errorf("release redis lock %s on commit: %w", h.key, err)
	}
	h.active = false
	return nil
}

func (m *Manager) Rollback(ctx context.Context, tx any) error {
	return m.Commit(ctx, tx)
}

func (m *Manager) SetRollbackOnly(ctx context.Context, tx any) error {
	tx.(*lockHandle).rollbackOnly = true
	return nil
}

func (m *Manager) IsGlobalRollbackOnly(ctx context.Context, tx any) bool {
	h, ok := tx.(*lockHandle)
	return ok && h.rollbackOnly
}

func (m *Manager) Cleanup(ctx context.Context, tx any) {
	if reg, ok := registry.FromContext(ctx); ok {
		reg.UnbindResource(m)
	}
}

func (m *Manager) UseSavepointForNested() bool      { return false }
func (m *Manager) CommitOnGlobalRollbackOnly() bool { return false }
