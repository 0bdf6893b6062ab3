package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/chat-client/internal/models"
	pkgmdw "github.com/nguyentranbao-ct/chat-client/internal/server/middleware"
	"github.com/nguyentranbao-ct/chat-client/internal/usecase"
)

type AuthController interface {
	Login(c echo.Context, req models.LoginRequest) (*models.User, error)
	Register(c echo.Context, req models.RegisterRequest) (*pkgmdw.Response, error)
	Logout(c echo.Context, _ struct{}) error
	GetProfile(c echo.Context, _ struct{}) (models.User, error)
	DeleteProfile(c echo.Context, _ struct{}) error
}

type authController struct {
	authUsecase usecase.AuthUsecase
}

func NewAuthController(authUsecase usecase.AuthUsecase) AuthController {
	return &authController{
		authUsecase: authUsecase,
	}
}

func (ac *authController) Login(c echo.Context, req models.LoginRequest) (*models.User, error) {
	return ac.authUsecase.Login(c.Request().Context(), req)
}

func (ac *authController) Register(c echo.Context, req models.RegisterRequest) (*pkgmdw.Response, error) {
	if err := ac.authUsecase.Register(c.Request().Context(), req); err != nil {
		return nil, err
	}
	return &pkgmdw.Response{Status: http.StatusCreated, Success: true}, nil
}

func (ac *authController) Logout(c echo.Context, _ struct{}) error {
	return ac.authUsecase.Logout(c.Request().Context())
}

func (ac *authController) GetProfile(c echo.Context, _ struct{}) (models.User, error) {
	user, ok := ac.authUsecase.CurrentUser()
	if !ok {
		return models.User{}, models.ErrUnauthorized
	}
	return user, nil
}

func (ac *authController) DeleteProfile(c echo.Context, _ struct{}) error {
	return ac.authUsecase.DeleteAccount(c.Request().Context())
}
