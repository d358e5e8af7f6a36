package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/domain"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/infra/security"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/transport/http/middleware"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/usecase"
)

const msgInvalidPayload = "invalid request payload"

// AuthService is the orchestrator surface used by the v1 handlers.
type AuthService interface {
	Login(ctx context.Context, email, password string) (domain.AuthResult, error)
	Register(ctx context.Context, in usecase.RegisterInput) (domain.AuthResult, error)
	ValidateToken(ctx context.Context, token string) bool
	GetCurrentPrincipal(ctx context.Context, id int64) (domain.PrincipalView, error)
}

// PasswordAdvisor scores candidate passwords for UX feedback.
type PasswordAdvisor interface {
	Feedback(password string, userInputs ...string) (security.StrengthFeedback, error)
}

// AuthHandler exposes the /api/v1/auth endpoints.
type AuthHandler struct {
	auth    AuthService
	advisor PasswordAdvisor
}

func NewAuthHandler(auth AuthService, advisor PasswordAdvisor) *AuthHandler {
	return &AuthHandler{auth: auth, advisor: advisor}
}

// AuthRouteOptions carries the middleware chains applied ahead of specific routes.
type AuthRouteOptions struct {
	Login            []gin.HandlerFunc
	Register         []gin.HandlerFunc
	PasswordStrength []gin.HandlerFunc
	RequireAuth      gin.HandlerFunc
}

// RegisterRoutes binds the v1 auth routes onto r.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, opts AuthRouteOptions) {
	r.POST("/login", chain(opts.Login, h.login)...)
	r.POST("/register", chain(opts.Register, h.register)...)
	r.POST("/validate", h.validate)
	r.GET("/me", chain(guard(opts.RequireAuth), h.me)...)
	if h.advisor != nil {
		r.POST("/password/strength", chain(opts.PasswordStrength, h.passwordStrength)...)
	}
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, msgInvalidPayload))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, newAuthResponse(result))
}

func (h *AuthHandler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, msgInvalidPayload))
		return
	}

	result, err := h.auth.Register(c.Request.Context(), usecase.RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		ChurchID: req.ChurchID,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newAuthResponse(result))
}

// validate never fails on a bad token; it answers {valid:false} instead.
func (h *AuthHandler) validate(c *gin.Context) {
	var req ValidateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, msgInvalidPayload))
		return
	}

	c.JSON(http.StatusOK, ValidateTokenResponse{Valid: h.auth.ValidateToken(c.Request.Context(), req.Token)})
}

func (h *AuthHandler) me(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, usecase.MsgInvalidCredentials))
		return
	}

	view, err := h.auth.GetCurrentPrincipal(c.Request.Context(), userID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(view))
}

func (h *AuthHandler) passwordStrength(c *gin.Context) {
	var req PasswordStrengthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, msgInvalidPayload))
		return
	}

	feedback, err := h.advisor.Feedback(req.Password, req.UserInputs...)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, err.Error()))
		return
	}
	c.JSON(http.StatusOK, PasswordStrengthResponse{
		Score:          int(feedback.Strength),
		Strength:       feedback.Strength.String(),
		MeetsPolicy:    feedback.Valid,
		Entropy:        feedback.Entropy,
		CrackTime:      feedback.CrackTime,
		EstimatorScore: feedback.EstimatorScore,
	})
}

func chain(mw []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(mw)+1)
	for _, m := range mw {
		if m != nil {
			out = append(out, m)
		}
	}
	return append(out, handler)
}

func guard(mw gin.HandlerFunc) []gin.HandlerFunc {
	if mw == nil {
		return nil
	}
	return []gin.HandlerFunc{mw}
}
