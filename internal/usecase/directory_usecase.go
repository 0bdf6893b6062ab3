package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/nguyentranbao-ct/chat-client/internal/models"
	"github.com/nguyentranbao-ct/chat-client/internal/repo/chatapi"
	"github.com/nguyentranbao-ct/chat-client/internal/usercache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DirectoryUsecase backs the chat sidebar: the chat list, starting chats
// and finding users. Every user it sees goes into the user cache.
type DirectoryUsecase interface {
	Bootstrap(ctx context.Context) (*Bootstrap, error)
	ListChats(ctx context.Context) ([]models.Chat, error)
	CreateChat(ctx context.Context, recipientID int64) (*models.Chat, error)
	SearchUsers(ctx context.Context, query string) ([]models.User, error)
	LoadUser(ctx context.Context, id int64) (*models.User, error)
}

type Bootstrap struct {
	User  models.User   `json:"user"`
	Chats []models.Chat `json:"chats"`
}

type directoryUsecase struct {
	api   chatapi.Client
	auth  AuthUsecase
	users usercache.Cache
	log   *zap.SugaredLogger
}

func NewDirectoryUsecase(api chatapi.Client, auth AuthUsecase, users usercache.Cache, log *zap.SugaredLogger) DirectoryUsecase {
	uc := &directoryUsecase{
		api:   api,
		auth:  auth,
		users: users,
		log:   log,
	}
	users.SetLoader(uc)
	return uc
}

// Bootstrap restores the session and loads the chat list concurrently.
func (uc *directoryUsecase) Bootstrap(ctx context.Context) (*Bootstrap, error) {
	var out Bootstrap
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		user, err := uc.auth.Restore(gctx)
		if err != nil {
			return err
		}
		out.User = *user
		return nil
	})
	g.Go(func() error {
		chats, err := uc.ListChats(gctx)
		if err != nil {
			return err
		}
		out.Chats = chats
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (uc *directoryUsecase) ListChats(ctx context.Context) ([]models.Chat, error) {
	chats, err := uc.api.ListChats(ctx)
	if err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []models.Chat{}
	}
	uc.remember(chats...)
	return chats, nil
}

func (uc *directoryUsecase) CreateChat(ctx context.Context, recipientID int64) (*models.Chat, error) {
	if recipientID <= 0 {
		return nil, fmt.Errorf("%w: id %d", ErrInvalidRecipient, recipientID)
	}
	if me, ok := uc.auth.CurrentUser(); ok && me.ID == recipientID {
		return nil, fmt.Errorf("%w: cannot start a chat with yourself", ErrInvalidRecipient)
	}

	chat, err := uc.api.CreateChat(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if len(chat.Participants) > 0 {
		uc.remember(*chat)
		return chat, nil
	}

	// the create response only carries the id; the listing has the rest
	chats, err := uc.ListChats(ctx)
	if err != nil {
		return nil, err
	}
	for i := range chats {
		if chats[i].ID == chat.ID {
			return &chats[i], nil
		}
	}
	if u, ok := uc.users.Lookup(recipientID); ok {
		chat.Participants = []models.User{u}
		chat.Name = u.Username
	}
	return chat, nil
}

func (uc *directoryUsecase) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.User{}, nil
	}
	users, err := uc.api.SearchUsers(ctx, query)
	if err != nil {
		return nil, err
	}
	uc.users.UpsertMany(users...)
	return users, nil
}

// LoadUser refreshes the chat list to find a user the cache has not seen.
func (uc *directoryUsecase) LoadUser(ctx context.Context, id int64) (*models.User, error) {
	if _, err := uc.ListChats(ctx); err != nil {
		return nil, err
	}
	if u, ok := uc.users.Lookup(id); ok {
		return &u, nil
	}
	return nil, nil
}

func (uc *directoryUsecase) remember(chats ...models.Chat) {
	var users []models.User
	for _, c := range chats {
		users = append(users, c.Participants...)
	}
	if n := uc.users.UpsertMany(users...); n > 0 {
		uc.log.Debugw("Cached users from chats", "changed", n)
	}
}
