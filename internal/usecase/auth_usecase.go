package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/nguyentranbao-ct/chat-client/internal/models"
	"github.com/nguyentranbao-ct/chat-client/internal/repo/chatapi"
	"github.com/nguyentranbao-ct/chat-client/internal/session"
	"github.com/nguyentranbao-ct/chat-client/internal/usercache"
	"go.uber.org/zap"
)

type AuthUsecase interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.User, error)
	Register(ctx context.Context, req models.RegisterRequest) error
	// Restore signs the stored session back in. A session that cannot be
	// confirmed by the server is dropped.
	Restore(ctx context.Context) (*models.User, error)
	Logout(ctx context.Context) error
	DeleteAccount(ctx context.Context) error
	CurrentUser() (models.User, bool)
}

type authUsecase struct {
	api      chatapi.Client
	tokens   session.Store
	users    usercache.Cache
	view     ViewSession
	validate *validator.Validate
	log      *zap.SugaredLogger

	mu      sync.RWMutex
	current *models.User
}

func NewAuthUsecase(
	api chatapi.Client,
	tokens session.Store,
	users usercache.Cache,
	view ViewSession,
	log *zap.SugaredLogger,
) AuthUsecase {
	return &authUsecase{
		api:      api,
		tokens:   tokens,
		users:    users,
		view:     view,
		validate: validator.New(),
		log:      log,
	}
}

func (uc *authUsecase) Login(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := uc.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid login request: %w", err)
	}

	resp, err := uc.api.Login(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := uc.tokens.Save(ctx, resp.AccessToken); err != nil {
		return nil, fmt.Errorf("save session token: %w", err)
	}

	user := resp.User
	if user.ID == 0 {
		// older servers only return the token
		profile, err := uc.api.GetProfile(ctx)
		if err != nil {
			return nil, fmt.Errorf("load profile: %w", err)
		}
		user = *profile
	}
	if err := uc.signIn(ctx, user); err != nil {
		return nil, err
	}
	uc.log.Infow("Logged in", "user_id", user.ID, "username", user.Username)
	return &user, nil
}

func (uc *authUsecase) Register(ctx context.Context, req models.RegisterRequest) error {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := uc.validate.Struct(req); err != nil {
		return fmt.Errorf("invalid register request: %w", err)
	}
	if err := uc.api.Register(ctx, req); err != nil {
		return err
	}
	uc.log.Infow("Registered user", "username", req.Username)
	return nil
}

func (uc *authUsecase) Restore(ctx context.Context) (*models.User, error) {
	token, err := uc.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, models.ErrUnauthorized
	}

	profile, err := uc.api.GetProfile(ctx)
	if err != nil {
		uc.log.Warnw("Failed to restore session", "error", err)
		if clearErr := uc.tokens.Clear(ctx); clearErr != nil {
			uc.log.Warnw("Failed to clear session token", "error", clearErr)
		}
		return nil, fmt.Errorf("restore session: %w", errors.Join(models.ErrUnauthorized, err))
	}
	if err := uc.signIn(ctx, *profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (uc *authUsecase) Logout(ctx context.Context) error {
	if err := uc.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("clear session token: %w", err)
	}
	uc.mu.Lock()
	uc.current = nil
	uc.mu.Unlock()

	if err := uc.view.Deactivate(ctx); err != nil {
		return err
	}
	return uc.view.SetCurrentUser(ctx, 0)
}

func (uc *authUsecase) DeleteAccount(ctx context.Context) error {
	if err := uc.api.DeleteProfile(ctx); err != nil {
		return err
	}
	uc.log.Infow("Deleted account")
	return uc.Logout(ctx)
}

func (uc *authUsecase) CurrentUser() (models.User, bool) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	if uc.current == nil {
		return models.User{}, false
	}
	return *uc.current, true
}

func (uc *authUsecase) signIn(ctx context.Context, user models.User) error {
	uc.users.UpsertMany(user)
	uc.mu.Lock()
	uc.current = &user
	uc.mu.Unlock()
	return uc.view.SetCurrentUser(ctx, user.ID)
}
