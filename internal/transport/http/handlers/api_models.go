package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/domain"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/transport/http/middleware"
)

// ErrorResponse is the error body of every v1 endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse builds an ErrorResponse carrying the request trace id.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: middleware.GetTraceID(c),
	}
}

// Auth payloads keep the camelCase field names existing Visitapp clients send and read.

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	ChurchID *int64 `json:"churchId,omitempty"`
}

type UserResponse struct {
	ID         int64     `json:"id"`
	FullName   string    `json:"fullName"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
	Role       string    `json:"role"`
	ChurchID   *int64    `json:"churchId"`
}

type AuthResponse struct {
	Token     string       `json:"token"`
	User      UserResponse `json:"user"`
	Message   string       `json:"message"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

type ValidateTokenRequest struct {
	Token string `json:"token"`
}

type ValidateTokenResponse struct {
	Valid bool `json:"valid"`
}

type PasswordStrengthRequest struct {
	Password   string   `json:"password"`
	UserInputs []string `json:"userInputs,omitempty"`
}

type PasswordStrengthResponse struct {
	Score          int     `json:"score"`
	Strength       string  `json:"strength"`
	MeetsPolicy    bool    `json:"meetsPolicy"`
	Entropy        float64 `json:"entropy"`
	CrackTime      string  `json:"crackTime"`
	EstimatorScore int     `json:"estimatorScore"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func newUserResponse(view domain.PrincipalView) UserResponse {
	return UserResponse{
		ID:         view.ID,
		FullName:   view.FullName,
		Email:      view.Email,
		Phone:      view.Phone,
		IsVerified: view.IsVerified,
		CreatedAt:  view.CreatedAt.UTC(),
		Role:       view.Role,
		ChurchID:   view.ChurchID,
	}
}

func newAuthResponse(result domain.AuthResult) AuthResponse {
	return AuthResponse{
		Token:     result.Token,
		User:      newUserResponse(result.Principal),
		Message:   result.Message,
		ExpiresAt: result.ExpiresAt.UTC(),
	}
}
