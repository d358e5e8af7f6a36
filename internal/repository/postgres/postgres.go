package postgres

import (
	"context"
	"errors"
	"strings"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/repository"
)

const (
	usersTable     = "visitapp.users"
	rolesTable     = "visitapp.roles"
	userRolesTable = "visitapp.user_roles"
)

// pgExecutor is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txBeginner starts transactions; *pgxpool.Pool and pgxmock pools satisfy it.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

func newBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// constraintFields maps unique constraints to the field they protect.
var constraintFields = map[string]string{
	"users_email_lower_key": "email",
	"users_phone_key":       "phone",
	"user_roles_pkey":       "role",
}

// mapWriteError converts unique violations into repository.ConstraintError.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return err
	}

	field, ok := constraintFields[pgErr.ConstraintName]
	if !ok {
		switch {
		case strings.Contains(pgErr.ConstraintName, "email"):
			field = "email"
		case strings.Contains(pgErr.ConstraintName, "phone"):
			field = "phone"
		}
	}

	return &repository.ConstraintError{
		Constraint: pgErr.ConstraintName,
		Field:      field,
		Err:        err,
	}
}
