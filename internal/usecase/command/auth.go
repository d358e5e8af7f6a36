package command

import (
	"context"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/domain"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/usecase"
)

// LoginCommand authenticates a principal by email and password.
type LoginCommand struct {
	Email    string
	Password string
}

func (LoginCommand) CommandName() string { return "auth.login" }

// RegisterCommand creates a principal.
type RegisterCommand struct {
	FullName string
	Email    string
	Phone    string
	Password string
	ChurchID *int64
}

func (RegisterCommand) CommandName() string { return "auth.register" }

// CurrentPrincipalQuery loads the principal behind an authenticated request.
type CurrentPrincipalQuery struct {
	PrincipalID int64
}

func (CurrentPrincipalQuery) CommandName() string { return "auth.current_principal" }

// Authenticator is the subset of the auth orchestrator the handlers need.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (domain.AuthResult, error)
	Register(ctx context.Context, in usecase.RegisterInput) (domain.AuthResult, error)
	GetCurrentPrincipal(ctx context.Context, id int64) (domain.PrincipalView, error)
}

// RegisterAuthHandlers wires the auth commands onto d.
func RegisterAuthHandlers(d *Dispatcher, auth Authenticator) error {
	if err := Register(d, func(ctx context.Context, cmd LoginCommand) (domain.AuthResult, error) {
		return auth.Login(ctx, cmd.Email, cmd.Password)
	}); err != nil {
		return err
	}

	if err := Register(d, func(ctx context.Context, cmd RegisterCommand) (domain.AuthResult, error) {
		return auth.Register(ctx, usecase.RegisterInput{
			FullName: cmd.FullName,
			Email:    cmd.Email,
			Phone:    cmd.Phone,
			Password: cmd.Password,
			ChurchID: cmd.ChurchID,
		})
	}); err != nil {
		return err
	}

	return Register(d, func(ctx context.Context, q CurrentPrincipalQuery) (domain.PrincipalView, error) {
		return auth.GetCurrentPrincipal(ctx, q.PrincipalID)
	})
}
