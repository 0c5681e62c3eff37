package txcore

import (
	"encoding/json"
	"log/slog"
)

// TransactionSynchronization controls when the BindingRegistry initializes
// its synchronization list (spec §6).
type TransactionSynchronization int

const (
	// SynchronizationAlways initializes synchronization for every
	// transaction, including "empty" ones (no actual resource transaction).
	SynchronizationAlways TransactionSynchronization = iota
	// SynchronizationOnActualTransaction initializes synchronization only
	// when a real resource-manager transaction is active.
	SynchronizationOnActualTransaction
	// SynchronizationNever disables synchronization entirely.
	SynchronizationNever
)

// ManagerConfig holds the PropagationEngine's configuration flags (spec §6).
// It must be set before first use and is read-only thereafter (spec §5's
// shared-resource policy) — the engine does not mutate it.
type ManagerConfig struct {
	NestedTransactionAllowed            bool
	ValidateExistingTransaction         bool
	GlobalRollbackOnParticipationFailure bool
	FailEarlyOnGlobalRollbackOnly       bool
	RollbackOnCommitFailure             bool
	TransactionSynchronization          TransactionSynchronization
	DefaultTimeoutSeconds               int

	// logger is transient: it is never marshaled and is reinitialized to the
	// package default on load, per spec §6's serialization requirement.
	logger *slog.Logger
}

// DefaultManagerConfig returns the documented defaults from spec §6.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		NestedTransactionAllowed:              false,
		ValidateExistingTransaction:           false,
		GlobalRollbackOnParticipationFailure:  true,
		FailEarlyOnGlobalRollbackOnly:         false,
		RollbackOnCommitFailure:               false,
		TransactionSynchronization:            SynchronizationAlways,
		DefaultTimeoutSeconds:                 -1,
		logger:                                slog.Default(),
	}
}

// Logger returns the configuration's logger, defaulting to slog.Default()
// if one was never assigned (e.g. after a JSON round trip).
func (c *ManagerConfig) Logger() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// SetLogger overrides the logger used for diagnostic messages.
func (c *ManagerConfig) SetLogger(l *slog.Logger) {
	c.logger = l
}

// configWire is the JSON-serializable projection of ManagerConfig; the
// logger field is intentionally excluded.
type configWire struct {
	NestedTransactionAllowed              bool                       `json:"nestedTransactionAllowed"`
	ValidateExistingTransaction           bool                       `json:"validateExistingTransaction"`
	GlobalRollbackOnParticipationFailure  bool                       `json:"globalRollbackOnParticipationFailure"`
	FailEarlyOnGlobalRollbackOnly         bool                       `json:"failEarlyOnGlobalRollbackOnly"`
	RollbackOnCommitFailure               bool                       `json:"rollbackOnCommitFailure"`
	TransactionSynchronization            TransactionSynchronization `json:"transactionSynchronization"`
	DefaultTimeoutSeconds                 int                        `json:"defaultTimeoutSeconds"`
}

// MarshalJSON serializes the configuration's durable fields; the logger is
// dropped, matching spec §6 ("transient logger/diagnostic fields
// re-initialized on load").
func (c ManagerConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(configWire{
		NestedTransactionAllowed:             c.NestedTransactionAllowed,
		ValidateExistingTransaction:          c.ValidateExistingTransaction,
		GlobalRollbackOnParticipationFailure: c.GlobalRollbackOnParticipationFailure,
		FailEarlyOnGlobalRollbackOnly:        c.FailEarlyOnGlobalRollbackOnly,
		RollbackOnCommitFailure:              c.RollbackOnCommitFailure,
		TransactionSynchronization:           c.TransactionSynchronization,
		DefaultTimeoutSeconds:                c.DefaultTimeoutSeconds,
	})
}

// UnmarshalJSON restores the durable fields and reinitializes the
// transient logger to the package default.
func (c *ManagerConfig) UnmarshalJSON(data []byte) error {
	var w configWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.NestedTransactionAllowed = w.NestedTransactionAllowed
	c.ValidateExistingTransaction = w.ValidateExistingTransaction
	c.GlobalRollbackOnParticipationFailure = w.GlobalRollbackOnParticipationFailure
	c.FailEarlyOnGlobalRollbackOnly = w.FailEarlyOnGlobalRollbackOnly
	c.RollbackOnCommitFailure = w.RollbackOnCommitFailure
	c.TransactionSynchronization = w.TransactionSynchronization
	c.DefaultTimeoutSeconds = w.DefaultTimeoutSeconds
	c.logger = slog.Default()
	return nil
}
