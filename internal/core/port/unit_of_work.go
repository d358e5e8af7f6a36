package port

import "context"

// TxStores groups the repositories bound to a single transaction.
type TxStores struct {
	Principals PrincipalStore
	Roles      RoleRepository
}

// UnitOfWork runs fn inside a transaction. The transaction commits when fn returns nil
// and rolls back on error, panic, or context cancellation.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, stores TxStores) error) error
}
