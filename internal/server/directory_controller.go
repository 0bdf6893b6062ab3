package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/chat-client/internal/models"
	pkgmdw "github.com/nguyentranbao-ct/chat-client/internal/server/middleware"
	"github.com/nguyentranbao-ct/chat-client/internal/usecase"
)

type DirectoryController interface {
	ListChats(c echo.Context, _ struct{}) ([]models.Chat, error)
	CreateChat(c echo.Context, req models.CreateChatRequest) (*pkgmdw.Response, error)
	SearchUsers(c echo.Context, req SearchUsersRequest) ([]models.User, error)
}

type SearchUsersRequest struct {
	Query string `query:"q"`
}

type directoryController struct {
	directory usecase.DirectoryUsecase
}

func NewDirectoryController(directory usecase.DirectoryUsecase) DirectoryController {
	return &directoryController{directory: directory}
}

func (dc *directoryController) ListChats(c echo.Context, _ struct{}) ([]models.Chat, error) {
	return dc.directory.ListChats(c.Request().Context())
}

func (dc *directoryController) CreateChat(c echo.Context, req models.CreateChatRequest) (*pkgmdw.Response, error) {
	chat, err := dc.directory.CreateChat(c.Request().Context(), req.RecipientID)
	if err != nil {
		return nil, err
	}
	return &pkgmdw.Response{Status: http.StatusCreated, Success: true, Data: chat}, nil
}

func (dc *directoryController) SearchUsers(c echo.Context, req SearchUsersRequest) ([]models.User, error) {
	return dc.directory.SearchUsers(c.Request().Context(), req.Query)
}
