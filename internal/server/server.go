package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nguyentranbao-ct/chat-client/internal/config"
	pkgmdw "github.com/nguyentranbao-ct/chat-client/internal/server/middleware"
	"github.com/nguyentranbao-ct/chat-client/internal/usecase"
)

type Params struct {
	fx.In

	Log       *zap.SugaredLogger
	Auth      usecase.AuthUsecase
	Health    Controller
	AuthCtrl  AuthController
	Directory DirectoryController
	View      ViewController
}

// NewRouter builds the bridge's echo instance with every route registered.
func NewRouter(p Params) *echo.Echo {
	log := p.Log.Named("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = pkgmdw.NewValidator()
	e.HTTPErrorHandler = pkgmdw.ErrorHandler(log, classifyError)

	logConfig := pkgmdw.LogRequestConfig{
		Logger: log,
		Enabled: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path != "/health" && path != "/metrics"
		},
		RequestBody: func(c echo.Context) bool {
			return !strings.HasPrefix(c.Path(), "/api/v1/auth")
		},
		KeyAndValues: func(c echo.Context) []any {
			if id := pkgmdw.GetUserID(c); id != 0 {
				return []any{"user_id", id}
			}
			return nil
		},
	}

	e.Use(pkgmdw.Metrics())
	e.Use(pkgmdw.RequestID())
	e.Use(pkgmdw.LogRequest(logConfig))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Errorw("PANIC RECOVER", "error", err, "stack", string(stack), "request_id", pkgmdw.GetRequestID(c))
			return err
		},
	}))

	e.GET("/health", p.Health.Health)

	api := e.Group("/api/v1")

	auth := api.Group("/auth")
	auth.POST("/login", pkgmdw.Handle(p.AuthCtrl.Login))
	auth.POST("/register", pkgmdw.Handle(p.AuthCtrl.Register))
	auth.POST("/logout", pkgmdw.HandleNoContent(p.AuthCtrl.Logout))

	signedIn := api.Group("", pkgmdw.RequireSession(func(context.Context) (int64, bool) {
		user, ok := p.Auth.CurrentUser()
		return user.ID, ok
	}))

	signedIn.GET("/profile", pkgmdw.Handle(p.AuthCtrl.GetProfile))
	signedIn.DELETE("/profile", pkgmdw.HandleNoContent(p.AuthCtrl.DeleteProfile))

	signedIn.GET("/chats", pkgmdw.Handle(p.Directory.ListChats))
	signedIn.POST("/chats", pkgmdw.Handle(p.Directory.CreateChat))
	signedIn.GET("/users", pkgmdw.Handle(p.Directory.SearchUsers))

	view := signedIn.Group("/view")
	view.GET("", pkgmdw.Handle(p.View.Get))
	view.POST("", pkgmdw.Handle(p.View.Activate))
	view.DELETE("", pkgmdw.HandleNoContent(p.View.Deactivate))
	view.POST("/scroll", pkgmdw.Handle(p.View.Scroll))
	view.POST("/messages", pkgmdw.Handle(p.View.Send))
	view.PUT("/messages/:id", pkgmdw.HandleNoContent(p.View.Edit))
	view.DELETE("/messages/:id", pkgmdw.HandleNoContent(p.View.Delete))

	return e
}

func StartServer(
	lc fx.Lifecycle,
	sd fx.Shutdowner,
	conf *config.Config,
	log *zap.SugaredLogger,
	e *echo.Echo,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Infow("starting HTTP server", "addr", conf.Server.Addr())
				if err := e.Start(conf.Server.Addr()); !errors.Is(err, http.ErrServerClosed) {
					log.Errorw("HTTP server stopped", "error", err)
					_ = sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}
