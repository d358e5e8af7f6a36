package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/domain"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/port"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/repository"
)

var userColumns = []string{
	"id",
	"full_name",
	"email",
	"phone",
	"password_hash",
	"is_verified",
	"church_id",
	"created_at",
	"updated_at",
}

// UserRepository implements port.PrincipalStore using PostgreSQL.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: newBuilder(),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new user row and returns it with the generated id and timestamp.
func (r *UserRepository) Create(ctx context.Context, principal domain.Principal) (domain.Principal, error) {
	createdAt := principal.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	stmt, args, err := r.builder.Insert(usersTable).
		Columns(
			"full_name",
			"email",
			"phone",
			"password_hash",
			"is_verified",
			"church_id",
			"created_at",
		).
		Values(
			principal.FullName,
			principal.Email,
			principal.Phone,
			principal.PasswordHash,
			principal.IsVerified,
			principal.ChurchID,
			createdAt,
		).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return domain.Principal{}, fmt.Errorf("build insert user sql: %w", err)
	}

	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&principal.ID, &principal.CreatedAt); err != nil {
		return domain.Principal{}, fmt.Errorf("insert user: %w", mapWriteError(err))
	}

	return principal, nil
}

// FindByEmail looks a user up by canonical email. The lower() predicate matches the unique index.
func (r *UserRepository) FindByEmail(ctx context.Context, canonicalEmail string) (*domain.Principal, error) {
	return r.findOne(ctx, squirrel.Expr("lower(email) = ?", canonicalEmail))
}

// FindByID looks a user up by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.Principal, error) {
	return r.findOne(ctx, squirrel.Eq{"id": id})
}

// ExistsByEmail reports whether any user owns the canonical email.
func (r *UserRepository) ExistsByEmail(ctx context.Context, canonicalEmail string) (bool, error) {
	return r.exists(ctx, squirrel.Expr("lower(email) = ?", canonicalEmail))
}

// ExistsByPhone reports whether any user owns phone.
func (r *UserRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, squirrel.Eq{"phone": phone})
}

// UpdatePasswordHash stores a re-encoded hash and stamps updated_at.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	stmt, args, err := r.builder.Update(usersTable).
		Set("password_hash", hash).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password hash sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, pred squirrel.Sqlizer) (*domain.Principal, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From(usersTable).
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	var (
		principal domain.Principal
		churchID  sql.NullInt64
		updatedAt *time.Time
	)

	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&principal.ID,
		&principal.FullName,
		&principal.Email,
		&principal.Phone,
		&principal.PasswordHash,
		&principal.IsVerified,
		&churchID,
		&principal.CreatedAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if churchID.Valid {
		id := churchID.Int64
		principal.ChurchID = &id
	}
	principal.UpdatedAt = updatedAt

	return &principal, nil
}

func (r *UserRepository) exists(ctx context.Context, pred squirrel.Sqlizer) (bool, error) {
	inner := r.builder.Select("1").From(usersTable).Where(pred)
	stmt, args, err := r.builder.
		Select().
		Column(squirrel.Expr("EXISTS(?)", inner)).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists user sql: %w", err)
	}

	var exists bool
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("query user exists: %w", err)
	}
	return exists, nil
}

var _ port.PrincipalStore = (*UserRepository)(nil)
