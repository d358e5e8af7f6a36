//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/domain"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/port"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/infra/database"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/infra/security"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/repository"
	repo "github.com/Will-Gue/APLICACIONVISITAS/internal/repository/postgres"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/usecase"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("visitapp"),
		tcpostgres.WithUsername("visitapp"),
		tcpostgres.WithPassword("visitapp"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2*time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migrator := database.NewMigrator(pool, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = migrator.Close() })
	require.NoError(t, migrator.Up(ctx))

	version, err := migrator.Version(ctx)
	require.NoError(t, err)
	require.Positive(t, version)

	return pool
}

func newAuthService(t *testing.T, repos *repo.Repositories) *usecase.AuthService {
	t.Helper()
	hasher, err := security.NewArgon2Hasher(security.Argon2Config{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)
	tokens, err := security.NewTokenService(security.TokenConfig{Secret: "integration-secret-0123456789abcdef"})
	require.NoError(t, err)

	svc, err := usecase.NewAuthService(usecase.AuthDependencies{
		Principals: repos.Users,
		Roles:      repos.Roles,
		UnitOfWork: repos.UnitOfWork,
		Hasher:     hasher,
		Policy:     security.NewPasswordPolicy(nil),
		Tokens:     tokens,
		Logger:     zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	return svc
}

func TestPostgresIntegration(t *testing.T) {
	pool := startPostgres(t)
	repos := repo.NewRepositories(pool, zaptest.NewLogger(t))
	svc := newAuthService(t, repos)
	ctx := context.Background()

	t.Run("register then login", func(t *testing.T) {
		registered, err := svc.Register(ctx, usecase.RegisterInput{FullName: "Ana Gomez", Email: "ANA@x.com", Phone: "555-1", Password: "Passw0rd!"})
		require.NoError(t, err)

		roles, err := repos.Roles.ListActiveByUser(ctx, registered.Principal.ID)
		require.NoError(t, err)
		require.Len(t, roles, 1)
		assert.Equal(t, "user", roles[0].Name)

		result, err := svc.Login(ctx, "ana@x.com", "Passw0rd!")
		require.NoError(t, err)
		assert.Equal(t, "user", result.Principal.Role)
		assert.True(t, svc.ValidateToken(ctx, result.Token))
	})

	t.Run("case insensitive email uniqueness", func(t *testing.T) {
		_, err := repos.Users.Create(ctx, domain.Principal{FullName: "Dup", Email: "Ana@X.com", Phone: "555-2", PasswordHash: "x"})
		require.Error(t, err)
		var constraint *repository.ConstraintError
		require.True(t, errors.As(err, &constraint))
		assert.Equal(t, "email", constraint.Field)
	})

	t.Run("rollback leaves no principal", func(t *testing.T) {
		err := repos.UnitOfWork.WithinTx(ctx, func(ctx context.Context, stores port.TxStores) error {
			if _, err := stores.Principals.Create(ctx, domain.Principal{FullName: "Tmp", Email: "tmp@x.com", Phone: "555-3", PasswordHash: "x"}); err != nil {
				return err
			}
			return errors.New("abort")
		})
		require.Error(t, err)

		exists, err := repos.Users.ExistsByEmail(ctx, "tmp@x.com")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("concurrent duplicate registrations", func(t *testing.T) {
		const attempts = 4
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			conflicts int
		)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.Register(ctx, usecase.RegisterInput{FullName: "Race", Email: "race@x.com", Phone: "555-9", Password: "Passw0rd!"})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case errors.Is(err, usecase.ErrConflict):
					conflicts++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, attempts-1, conflicts)
	})
}
