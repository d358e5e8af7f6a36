package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/domain"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/transport/http/middleware"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/usecase"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/usecase/command"
)

const problemTypeBlank = "about:blank"

// CommandAuthHandler serves /api/v2/auth by dispatching typed commands.
// Errors are rendered as RFC 9457 problem details.
type CommandAuthHandler struct {
	dispatcher *command.Dispatcher
}

func NewCommandAuthHandler(dispatcher *command.Dispatcher) *CommandAuthHandler {
	return &CommandAuthHandler{dispatcher: dispatcher}
}

// RegisterRoutes binds the v2 auth routes onto r.
func (h *CommandAuthHandler) RegisterRoutes(r *gin.RouterGroup, opts AuthRouteOptions) {
	r.POST("/login", chain(opts.Login, h.login)...)
	r.POST("/register", chain(opts.Register, h.register)...)
	r.GET("/me", chain(guard(opts.RequireAuth), h.me)...)
}

func (h *CommandAuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.problem(c, http.StatusBadRequest, "Invalid Request", msgInvalidPayload)
		return
	}

	result, err := command.Send[command.LoginCommand, domain.AuthResult](c.Request.Context(), h.dispatcher, command.LoginCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, newAuthResponse(result))
}

func (h *CommandAuthHandler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.problem(c, http.StatusBadRequest, "Invalid Request", msgInvalidPayload)
		return
	}

	result, err := command.Send[command.RegisterCommand, domain.AuthResult](c.Request.Context(), h.dispatcher, command.RegisterCommand{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		ChurchID: req.ChurchID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, newAuthResponse(result))
}

func (h *CommandAuthHandler) me(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		h.problem(c, http.StatusUnauthorized, "Authentication Failed", usecase.MsgInvalidCredentials)
		return
	}

	view, err := command.Send[command.CurrentPrincipalQuery, domain.PrincipalView](c.Request.Context(), h.dispatcher, command.CurrentPrincipalQuery{
		PrincipalID: userID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(view))
}

func (h *CommandAuthHandler) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	var authErr *usecase.AuthError
	if !errors.As(err, &authErr) {
		h.problem(c, http.StatusInternalServerError, "Internal Server Error", usecase.MsgInternal)
		return
	}

	status := StatusForAuthError(err)
	detail := authErr.Error()
	if status == http.StatusInternalServerError {
		detail = usecase.MsgInternal
	}
	h.problem(c, status, problemTitle(status), detail)
}

func (h *CommandAuthHandler) problem(c *gin.Context, status int, title, detail string) {
	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(status, middleware.ProblemDetails{
		Type:     problemTypeBlank,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request.URL.Path,
		TraceID:  middleware.GetTraceID(c),
	})
}

func problemTitle(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "Authentication Failed"
	case http.StatusBadRequest:
		return "Invalid Request"
	case http.StatusConflict:
		return "Conflict"
	case http.StatusNotFound:
		return "Not Found"
	default:
		return "Internal Server Error"
	}
}
