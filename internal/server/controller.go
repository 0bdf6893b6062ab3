package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/chat-client/internal/chatview"
	"github.com/nguyentranbao-ct/chat-client/internal/models"
	"github.com/nguyentranbao-ct/chat-client/internal/repo/chatapi"
	pkgmdw "github.com/nguyentranbao-ct/chat-client/internal/server/middleware"
	"github.com/nguyentranbao-ct/chat-client/internal/usecase"
)

type Controller interface {
	Health(c echo.Context) error
}

type controller struct{}

func NewHandler() Controller {
	return &controller{}
}

func (h *controller) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "chat-client",
	})
}

// classifyError maps domain and upstream errors to bridge responses.
func classifyError(err error) *pkgmdw.ResponseError {
	var apiErr *chatapi.APIError
	switch {
	case errors.Is(err, chatview.ErrEmptyContent):
		return pkgmdw.NewResponseError(http.StatusBadRequest, "empty_content", err)
	case errors.Is(err, usecase.ErrInvalidRecipient):
		return pkgmdw.NewResponseError(http.StatusBadRequest, "invalid_recipient", err)
	case errors.Is(err, chatview.ErrNoActiveChat):
		return pkgmdw.NewResponseError(http.StatusConflict, "no_active_chat", err)
	case errors.Is(err, chatview.ErrMessageNotFound):
		return pkgmdw.NewResponseError(http.StatusNotFound, "message_not_found", err)
	case errors.Is(err, chatview.ErrClosed):
		return pkgmdw.NewResponseError(http.StatusServiceUnavailable, "view_closed", err)
	case errors.Is(err, models.ErrUnauthorized):
		return pkgmdw.NewResponseError(http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, models.ErrNotFound):
		return pkgmdw.NewResponseError(http.StatusNotFound, "not_found", err)
	case errors.As(err, &apiErr):
		status := apiErr.StatusCode
		if status >= http.StatusInternalServerError || status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		return pkgmdw.NewResponseError(status, "upstream_error", err)
	}
	return nil
}
