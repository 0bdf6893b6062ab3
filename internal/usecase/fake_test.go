package usecase

import (
	"context"
	"sync"

	"github.com/nguyentranbao-ct/chat-client/internal/models"
	"github.com/nguyentranbao-ct/chat-client/internal/repo/chatapi"
)

// fakeAPI implements chatapi.Client with canned answers.
type fakeAPI struct {
	chatapi.MessageTransport

	mu          sync.Mutex
	loginResp   *models.LoginResponse
	loginErr    error
	profile     *models.User
	profileErr  error
	chats       []models.Chat
	chatsErr    error
	created     *models.Chat
	users       []models.User
	deleted     bool
	listCalls   int
	searchCalls int
}

func (f *fakeAPI) Login(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
	return f.loginResp, f.loginErr
}

func (f *fakeAPI) Register(context.Context, models.RegisterRequest) error {
	return nil
}

func (f *fakeAPI) GetProfile(context.Context) (*models.User, error) {
	return f.profile, f.profileErr
}

func (f *fakeAPI) DeleteProfile(context.Context) error {
	f.mu.Lock()
	f.deleted = true
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) ListChats(context.Context) ([]models.Chat, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	return f.chats, f.chatsErr
}

func (f *fakeAPI) CreateChat(context.Context, int64) (*models.Chat, error) {
	c := *f.created
	return &c, nil
}

func (f *fakeAPI) SearchUsers(context.Context, string) ([]models.User, error) {
	f.mu.Lock()
	f.searchCalls++
	f.mu.Unlock()
	return f.users, nil
}

type fakeViewSession struct {
	mu          sync.Mutex
	userID      int64
	deactivated bool
}

func (f *fakeViewSession) SetCurrentUser(_ context.Context, id int64) error {
	f.mu.Lock()
	f.userID = id
	f.mu.Unlock()
	return nil
}

func (f *fakeViewSession) Deactivate(context.Context) error {
	f.mu.Lock()
	f.deactivated = true
	f.mu.Unlock()
	return nil
}
