package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/domain"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/port"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/infra/logger"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/repository"
)

const tracerName = "github.com/Will-Gue/APLICACIONVISITAS/internal/usecase"

// Outcome labels reported to AuthMetrics.
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeInvalidInput       = "invalid_input"
	OutcomeConflict           = "conflict"
	OutcomeError              = "error"
)

// RegisterInput carries the fields required to create a principal.
type RegisterInput struct {
	FullName string
	Email    string
	Phone    string
	Password string
	ChurchID *int64
}

// AuthDependencies groups the collaborators of AuthService.
type AuthDependencies struct {
	Principals port.PrincipalStore
	Roles      port.RoleRepository
	UnitOfWork port.UnitOfWork
	Hasher     port.PasswordHasher
	Policy     port.PasswordPolicy
	Tokens     port.TokenService
	Publisher  port.EventPublisher
	Metrics    port.AuthMetrics
	Logger     *zap.Logger
	Now        func() time.Time
}

// AuthService coordinates the login, registration and token validation workflows.
type AuthService struct {
	principals port.PrincipalStore
	roles      port.RoleRepository
	uow        port.UnitOfWork
	hasher     port.PasswordHasher
	policy     port.PasswordPolicy
	tokens     port.TokenService
	publisher  port.EventPublisher
	metrics    port.AuthMetrics
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewAuthService constructs an AuthService instance. Publisher and Metrics are optional.
func NewAuthService(deps AuthDependencies) (*AuthService, error) {
	switch {
	case deps.Principals == nil:
		return nil, fmt.Errorf("principal store is required")
	case deps.Roles == nil:
		return nil, fmt.Errorf("role repository is required")
	case deps.UnitOfWork == nil:
		return nil, fmt.Errorf("unit of work is required")
	case deps.Hasher == nil:
		return nil, fmt.Errorf("password hasher is required")
	case deps.Policy == nil:
		return nil, fmt.Errorf("password policy is required")
	case deps.Tokens == nil:
		return nil, fmt.Errorf("token service is required")
	}

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &AuthService{
		principals: deps.Principals,
		roles:      deps.Roles,
		uow:        deps.UnitOfWork,
		hasher:     deps.Hasher,
		policy:     deps.Policy,
		tokens:     deps.Tokens,
		publisher:  deps.Publisher,
		metrics:    deps.Metrics,
		logger:     log,
		tracer:     otel.Tracer(tracerName),
		now:        now,
	}, nil
}

// Login verifies credentials and issues an access token.
// Unknown email and wrong password yield the same Unauthorized error.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.AuthResult, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	log := s.log(ctx)
	canonical := domain.CanonicalEmail(email)
	if canonical == "" || password == "" {
		s.recordLogin(OutcomeInvalidInput)
		return domain.AuthResult{}, s.fail(span, invalidArgument("email and password are required"))
	}

	principal, err := s.principals.FindByEmail(ctx, canonical)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.loginFailed(ctx, canonical, "unknown_email")
			return domain.AuthResult{}, s.fail(span, unauthorized())
		}
		log.Error("lookup principal for login", zap.Error(err))
		s.recordLogin(OutcomeError)
		return domain.AuthResult{}, s.fail(span, internal(fmt.Errorf("lookup principal: %w", err)))
	}

	if !s.hasher.Verify(password, principal.PasswordHash) {
		s.loginFailed(ctx, canonical, "invalid_password")
		return domain.AuthResult{}, s.fail(span, unauthorized())
	}
	if s.hasher.NeedsRehash(principal.PasswordHash) {
		s.upgradeHash(ctx, principal.ID, password)
	}

	role, err := s.resolveRole(ctx, s.roles, principal.ID)
	if err != nil {
		log.Error("resolve role for login", zap.Int64("user_id", principal.ID), zap.Error(err))
		s.recordLogin(OutcomeError)
		return domain.AuthResult{}, s.fail(span, internal(err))
	}

	token, expiresAt, err := s.tokens.Issue(*principal, role)
	if err != nil {
		log.Error("issue token for login", zap.Int64("user_id", principal.ID), zap.Error(err))
		s.recordLogin(OutcomeError)
		return domain.AuthResult{}, s.fail(span, internal(fmt.Errorf("issue token: %w", err)))
	}

	span.SetAttributes(attribute.Int64("user.id", principal.ID), attribute.String("user.role", role))
	s.recordLogin(OutcomeSuccess)
	log.Info("login succeeded", zap.Int64("user_id", principal.ID))

	return domain.AuthResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Message:   MsgLoginSuccessful,
		Principal: principal.View(role),
	}, nil
}

// Register creates a principal with the default role and issues its first token.
// Principal creation, role assignment and token issuance commit together or not at all.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.AuthResult, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Register")
	defer span.End()

	log := s.log(ctx)
	fullName := strings.TrimSpace(in.FullName)
	canonical := domain.CanonicalEmail(in.Email)
	phone := strings.TrimSpace(in.Phone)

	switch {
	case fullName == "":
		s.recordRegistration(OutcomeInvalidInput)
		return domain.AuthResult{}, s.fail(span, invalidArgument("full name is required"))
	case canonical == "" || !strings.Contains(canonical, "@"):
		s.recordRegistration(OutcomeInvalidInput)
		return domain.AuthResult{}, s.fail(span, invalidArgument("a valid email is required"))
	case phone == "":
		s.recordRegistration(OutcomeInvalidInput)
		return domain.AuthResult{}, s.fail(span, invalidArgument("phone is required"))
	}

	if !s.policy.IsValidPassword(in.Password) {
		s.recordRegistration(OutcomeInvalidInput)
		return domain.AuthResult{}, s.fail(span, invalidArgument(MsgPasswordRequirement))
	}

	exists, err := s.principals.ExistsByEmail(ctx, canonical)
	if err != nil {
		return domain.AuthResult{}, s.registerInternal(ctx, span, fmt.Errorf("check email: %w", err))
	}
	if exists {
		s.recordRegistration(OutcomeConflict)
		return domain.AuthResult{}, s.fail(span, conflict(MsgEmailRegistered))
	}

	exists, err = s.principals.ExistsByPhone(ctx, phone)
	if err != nil {
		return domain.AuthResult{}, s.registerInternal(ctx, span, fmt.Errorf("check phone: %w", err))
	}
	if exists {
		s.recordRegistration(OutcomeConflict)
		return domain.AuthResult{}, s.fail(span, conflict(MsgPhoneRegistered))
	}

	// Hashing is CPU bound, so it runs before the transaction holds a connection.
	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return domain.AuthResult{}, s.registerInternal(ctx, span, fmt.Errorf("hash password: %w", err))
	}

	var (
		created   domain.Principal
		token     string
		expiresAt time.Time
	)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, stores port.TxStores) error {
		now := s.now().UTC()
		var err error
		created, err = stores.Principals.Create(ctx, domain.Principal{
			FullName:     fullName,
			Email:        canonical,
			Phone:        phone,
			PasswordHash: passwordHash,
			IsVerified:   false,
			ChurchID:     in.ChurchID,
			CreatedAt:    now,
		})
		if err != nil {
			return fmt.Errorf("create principal: %w", err)
		}

		if err := s.assignDefaultRole(ctx, stores.Roles, created.ID, now); err != nil {
			return err
		}

		token, expiresAt, err = s.tokens.Issue(created, domain.DefaultRoleName)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		return nil
	})
	if err != nil {
		var constraint *repository.ConstraintError
		switch {
		case errors.As(err, &constraint) && constraint.Field == "phone":
			s.recordRegistration(OutcomeConflict)
			return domain.AuthResult{}, s.fail(span, conflict(MsgPhoneRegistered))
		case errors.Is(err, repository.ErrDuplicate):
			s.recordRegistration(OutcomeConflict)
			return domain.AuthResult{}, s.fail(span, conflict(MsgEmailRegistered))
		}
		return domain.AuthResult{}, s.registerInternal(ctx, span, err)
	}

	span.SetAttributes(attribute.Int64("user.id", created.ID))
	s.recordRegistration(OutcomeSuccess)
	log.Info("principal registered",
		zap.Int64("user_id", created.ID),
		zap.String("email", logger.MaskEmail(canonical)),
	)

	s.publishRegistered(ctx, created)

	return domain.AuthResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Message:   MsgRegisterSuccessful,
		Principal: created.View(domain.DefaultRoleName),
	}, nil
}

// ValidateToken reports whether token is valid and its subject still exists.
func (s *AuthService) ValidateToken(ctx context.Context, token string) bool {
	ctx, span := s.tracer.Start(ctx, "AuthService.ValidateToken")
	defer span.End()

	subjectID, ok := s.tokens.SubjectID(token)
	if !ok {
		span.SetStatus(codes.Error, "invalid token")
		return false
	}

	if _, err := s.principals.FindByID(ctx, subjectID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log(ctx).Error("lookup principal for token validation", zap.Int64("user_id", subjectID), zap.Error(err))
		}
		span.SetStatus(codes.Error, "subject not resolvable")
		return false
	}

	return true
}

// GetCurrentPrincipal returns the public projection of the principal with id.
func (s *AuthService) GetCurrentPrincipal(ctx context.Context, id int64) (domain.PrincipalView, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.GetCurrentPrincipal")
	defer span.End()

	principal, err := s.principals.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.PrincipalView{}, s.fail(span, notFound(MsgPrincipalNotFound))
		}
		s.log(ctx).Error("lookup current principal", zap.Int64("user_id", id), zap.Error(err))
		return domain.PrincipalView{}, s.fail(span, internal(fmt.Errorf("lookup principal: %w", err)))
	}

	role, err := s.resolveRole(ctx, s.roles, principal.ID)
	if err != nil {
		s.log(ctx).Error("resolve role for current principal", zap.Int64("user_id", id), zap.Error(err))
		return domain.PrincipalView{}, s.fail(span, internal(err))
	}

	return principal.View(role), nil
}

func (s *AuthService) resolveRole(ctx context.Context, roles port.RoleRepository, userID int64) (string, error) {
	active, err := roles.ListActiveByUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("list roles: %w", err)
	}
	return domain.EffectiveRole(active), nil
}

func (s *AuthService) assignDefaultRole(ctx context.Context, roles port.RoleRepository, userID int64, at time.Time) error {
	role, err := roles.GetByName(ctx, domain.DefaultRoleName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Effective role still falls back to the default name.
			s.log(ctx).Warn("default role missing; registering without assignment", zap.Int64("user_id", userID))
			return nil
		}
		return fmt.Errorf("lookup default role: %w", err)
	}

	if err := roles.Assign(ctx, domain.UserRole{
		UserID:     userID,
		RoleID:     role.ID,
		AssignedAt: at,
		IsActive:   true,
	}); err != nil {
		return fmt.Errorf("assign default role: %w", err)
	}
	return nil
}

// upgradeHash re-encodes a verified password with the current parameters.
// Failures are logged and never fail the login.
func (s *AuthService) upgradeHash(ctx context.Context, userID int64, password string) {
	log := s.log(ctx).With(zap.Int64("user_id", userID))

	hash, err := s.hasher.Hash(password)
	if err != nil {
		log.Warn("rehash password", zap.Error(err))
		return
	}
	if err := s.principals.UpdatePasswordHash(ctx, userID, hash); err != nil {
		log.Warn("store upgraded password hash", zap.Error(err))
		return
	}
	log.Info("password hash upgraded")
}

func (s *AuthService) loginFailed(ctx context.Context, canonicalEmail, reason string) {
	s.recordLogin(OutcomeInvalidCredentials)
	s.log(ctx).Warn("login failed",
		zap.String("email", logger.MaskEmail(canonicalEmail)),
		zap.String("reason", reason),
	)

	if s.publisher == nil {
		return
	}

	event := domain.LoginFailedEvent{
		EventID:     uuid.NewString(),
		Email:       logger.MaskEmail(canonicalEmail),
		Reason:      reason,
		AttemptedAt: s.now().UTC(),
	}
	if ip := ClientIP(ctx); ip != "" {
		event.IPAddress = &ip
	}
	if err := s.publisher.PublishLoginFailed(ctx, event); err != nil {
		s.log(ctx).Warn("publish login failed event", zap.Error(err))
	}
}

func (s *AuthService) publishRegistered(ctx context.Context, principal domain.Principal) {
	if s.publisher == nil {
		return
	}

	event := domain.PrincipalRegisteredEvent{
		EventID:      uuid.NewString(),
		UserID:       principal.ID,
		FullName:     principal.FullName,
		Email:        principal.Email,
		Role:         domain.DefaultRoleName,
		ChurchID:     principal.ChurchID,
		RegisteredAt: principal.CreatedAt,
	}
	if err := s.publisher.PublishPrincipalRegistered(ctx, event); err != nil {
		s.log(ctx).Warn("publish principal registered event", zap.Int64("user_id", principal.ID), zap.Error(err))
	}
}

func (s *AuthService) registerInternal(ctx context.Context, span trace.Span, cause error) error {
	s.log(ctx).Error("registration failed", zap.Error(cause))
	s.recordRegistration(OutcomeError)
	return s.fail(span, internal(cause))
}

func (s *AuthService) fail(span trace.Span, err *AuthError) error {
	if err.cause != nil {
		span.RecordError(err.cause)
	}
	span.SetStatus(codes.Error, err.Message)
	return err
}

func (s *AuthService) log(ctx context.Context) *zap.Logger {
	if id := logger.RequestID(ctx); id != "" {
		return s.logger.With(zap.String("request_id", id))
	}
	return s.logger
}

func (s *AuthService) recordLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginAttempt(outcome)
	}
}

func (s *AuthService) recordRegistration(outcome string) {
	if s.metrics != nil {
		s.metrics.Registration(outcome)
	}
}

type clientIPKey struct{}

// WithClientIP stores the caller's address for audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIP returns the address stored by WithClientIP.
func ClientIP(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}
