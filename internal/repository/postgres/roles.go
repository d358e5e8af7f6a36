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

// RoleRepository implements role lookups and assignments.
type RoleRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRoleRepository constructs a PostgreSQL-backed role repository.
func NewRoleRepository(exec pgExecutor) *RoleRepository {
	return &RoleRepository{
		exec:    exec,
		builder: newBuilder(),
	}
}

// WithTx returns a repository configured to execute within the provided transaction.
func (r *RoleRepository) WithTx(tx pgx.Tx) *RoleRepository {
	if tx == nil {
		return r
	}
	return &RoleRepository{
		exec:    tx,
		builder: r.builder,
	}
}

// GetByName fetches a role by its unique name.
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	stmt, args, err := r.builder.Select("id", "name", "description", "is_active").
		From(rolesTable).
		Where(squirrel.Eq{"name": name}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select role sql: %w", err)
	}

	var (
		role        domain.Role
		description sql.NullString
	)
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&role.ID, &role.Name, &description, &role.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan role: %w", err)
	}
	if description.Valid {
		role.Description = &description.String
	}

	return &role, nil
}

// ListActiveByUser returns the user's active roles, earliest assignment first and
// role id as the tie-break, so the effective role is deterministic.
func (r *RoleRepository) ListActiveByUser(ctx context.Context, userID int64) ([]domain.Role, error) {
	stmt, args, err := r.builder.Select("r.id", "r.name", "r.description", "r.is_active").
		From(userRolesTable + " ur").
		Join(rolesTable + " r ON r.id = ur.role_id").
		Where(squirrel.Eq{"ur.user_id": userID}).
		Where("ur.is_active AND ur.revoked_at IS NULL AND r.is_active").
		OrderBy("ur.assigned_at ASC", "ur.role_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list user roles sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query user roles: %w", err)
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var (
			role        domain.Role
			description sql.NullString
		)
		if err := rows.Scan(&role.ID, &role.Name, &description, &role.IsActive); err != nil {
			return nil, fmt.Errorf("scan user role: %w", err)
		}
		if description.Valid {
			d := description.String
			role.Description = &d
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user roles: %w", err)
	}

	return roles, nil
}

// Assign grants a role. Re-assigning a revoked role reactivates it.
func (r *RoleRepository) Assign(ctx context.Context, assignment domain.UserRole) error {
	assignedAt := assignment.AssignedAt
	if assignedAt.IsZero() {
		assignedAt = time.Now().UTC()
	}

	stmt, args, err := r.builder.Insert(userRolesTable).
		Columns("user_id", "role_id", "assigned_at", "is_active").
		Values(assignment.UserID, assignment.RoleID, assignedAt, true).
		Suffix("ON CONFLICT (user_id, role_id) DO UPDATE SET is_active = TRUE, revoked_at = NULL, assigned_at = EXCLUDED.assigned_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build assign role sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("assign role: %w", mapWriteError(err))
	}

	return nil
}

var _ port.RoleRepository = (*RoleRepository)(nil)
