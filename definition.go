package txcore

import "fmt"

// Propagation enumerates the caller-requested propagation modes (spec §3).
type Propagation int

const (
	// PropagationRequired joins an existing transaction or begins a new one.
	PropagationRequired Propagation = iota
	// PropagationSupports joins an existing transaction, or runs without one.
	PropagationSupports
	// PropagationMandatory requires an existing transaction; fails otherwise.
	PropagationMandatory
	// PropagationRequiresNew suspends any existing transaction and begins a fresh one.
	PropagationRequiresNew
	// PropagationNotSupported suspends any existing transaction and runs without one.
	PropagationNotSupported
	// PropagationNever forbids an existing transaction; fails if one is active.
	PropagationNever
	// PropagationNested runs within a nested transaction (savepoint or native) if one exists, else begins a new one.
	PropagationNested
)

func (p Propagation) String() string {
	switch p {
	case PropagationRequired:
		return "REQUIRED"
	case PropagationSupports:
		return "SUPPORTS"
	case PropagationMandatory:
		return "MANDATORY"
	case PropagationRequiresNew:
		return "REQUIRES_NEW"
	case PropagationNotSupported:
		return "NOT_SUPPORTED"
	case PropagationNever:
		return "NEVER"
	case PropagationNested:
		return "NESTED"
	default:
		return fmt.Sprintf("Propagation(%d)", int(p))
	}
}

// Isolation is the requested isolation level. IsolationDefault is the
// sentinel meaning "let the resource manager decide", following the
// teacher's preference for sentinel ints (phaseDone == -1) over a separate
// "has value" bool.
type Isolation int

// IsolationDefault means no isolation override was requested.
const IsolationDefault Isolation = -1

// TransactionDefinition is the immutable input to PropagationEngine.GetTransaction.
type TransactionDefinition struct {
	Propagation     Propagation
	Isolation       Isolation
	TimeoutSeconds  int
	ReadOnly        bool
	Name            string
}

// DefaultTransactionDefinition returns a PropagationRequired, default-isolation,
// read-write, no-timeout-override definition — the engine's zero-value behavior.
func DefaultTransactionDefinition() TransactionDefinition {
	return TransactionDefinition{
		Propagation:    PropagationRequired,
		Isolation:      IsolationDefault,
		TimeoutSeconds: -1,
	}
}

// ValidateTimeout enforces spec §4.1 step 1.
func (d TransactionDefinition) ValidateTimeout() error {
	if d.TimeoutSeconds < -1 {
		return newError(InvalidTimeout, d, "invalid timeout: %d", d.TimeoutSeconds)
	}
	return nil
}
