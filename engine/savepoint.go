package engine

import (
	"context"

	"github.com/groundworklabs/txcore"
	"github.com/groundworklabs/txcore/registry"
)

// beginNested implements spec §4.3's two NESTED realizations, chosen by
// the resource manager's UseSavepointForNested policy predicate.
func (e *Engine) beginNested(ctx context.Context, reg *registry.Registry, tx any, def txcore.TransactionDefinition) (*txcore.TransactionStatus, error) {
	if !e.config.NestedTransactionAllowed {
		return nil, txcore.NewError(txcore.NestedTransactionNotSupported, def, "nested transactions are disabled by configuration")
	}

	if e.rm.UseSavepointForNested() {
		// Savepoint mode: the outer transaction continues regardless;
		// synchronization is not re-initialized (spec §4.3).
		s := e.newStatus(tx, false, false, def.ReadOnly)
		if err := s.CreateAndHoldSavepoint(ctx); err != nil {
			return nil, err
		}
		return s, nil
	}

	// Native-nested mode: a genuinely new physical nested transaction.
	if err := e.rm.Begin(ctx, tx, def); err != nil {
		return nil, txcore.NewError(txcore.NestedTransactionNotSupported, def, "begin native nested transaction: %v", err)
	}
	return e.newStatus(tx, true, true, def.ReadOnly), nil
}
