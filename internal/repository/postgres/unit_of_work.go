package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/port"
)

// UnitOfWork implements port.UnitOfWork on a pgx transaction.
type UnitOfWork struct {
	db     txBeginner
	users  *UserRepository
	roles  *RoleRepository
	logger *zap.Logger
}

// NewUnitOfWork binds the repositories to transactions started from db.
func NewUnitOfWork(db txBeginner, users *UserRepository, roles *RoleRepository, logger *zap.Logger) *UnitOfWork {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnitOfWork{db: db, users: users, roles: roles, logger: logger}
}

// WithinTx runs fn in a transaction. It commits when fn succeeds and rolls back when
// fn fails, panics, or ctx is cancelled before commit. Panics are re-raised after rollback.
func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, stores port.TxStores) error) (err error) {
	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		// Rollback must run even when ctx is already cancelled.
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			u.logger.Warn("rollback tx", zap.Error(rbErr))
		}
		if p := recover(); p != nil {
			panic(p)
		}
	}()

	stores := port.TxStores{
		Principals: u.users.WithTx(tx),
		Roles:      u.roles.WithTx(tx),
	}

	if err := fn(ctx, stores); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("tx aborted: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", mapWriteError(err))
	}
	committed = true

	return nil
}

var _ port.UnitOfWork = (*UnitOfWork)(nil)
