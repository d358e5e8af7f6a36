package port

import (
	"context"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/domain"
)

// RoleRepository reads roles and role assignments.
type RoleRepository interface {
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	// ListActiveByUser returns active roles ordered by assignment time, then role id.
	ListActiveByUser(ctx context.Context, userID int64) ([]domain.Role, error)
	Assign(ctx context.Context, assignment domain.UserRole) error
}
