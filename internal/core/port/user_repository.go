package port

import (
	"context"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/domain"
)

// PrincipalStore exposes the user operations the auth core needs.
// Lookups return repository.ErrNotFound when no row matches.
type PrincipalStore interface {
	FindByEmail(ctx context.Context, canonicalEmail string) (*domain.Principal, error)
	FindByID(ctx context.Context, id int64) (*domain.Principal, error)
	ExistsByEmail(ctx context.Context, canonicalEmail string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	Create(ctx context.Context, principal domain.Principal) (domain.Principal, error)
	// UpdatePasswordHash replaces the stored hash; repository.ErrNotFound when id is unknown.
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}
