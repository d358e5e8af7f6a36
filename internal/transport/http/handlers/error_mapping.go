package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
// An empty Message reuses the error's own text.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

var authErrorCases = []ErrorCase{
	{Err: usecase.ErrUnauthorized, Status: http.StatusUnauthorized},
	{Err: usecase.ErrInvalidArgument, Status: http.StatusBadRequest},
	{Err: usecase.ErrConflict, Status: http.StatusConflict},
	{Err: usecase.ErrNotFound, Status: http.StatusNotFound},
	{Err: usecase.ErrInternal, Status: http.StatusInternalServerError, Message: usecase.MsgInternal},
}

// RespondWithMappedError resolves the provided error against known cases or falls back to a generic response.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil || !errors.Is(err, cs.Err) {
			continue
		}
		message := cs.Message
		if message == "" {
			message = err.Error()
		}
		c.JSON(cs.Status, NewErrorResponse(c, message))
		return
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

// StatusForAuthError returns the HTTP status for an orchestrator error.
func StatusForAuthError(err error) int {
	for _, cs := range authErrorCases {
		if errors.Is(err, cs.Err) {
			return cs.Status
		}
	}
	return http.StatusInternalServerError
}

func respondAuthError(c *gin.Context, err error) {
	_ = c.Error(err)
	RespondWithMappedError(c, err, authErrorCases, http.StatusInternalServerError, usecase.MsgInternal)
}
