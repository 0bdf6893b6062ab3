package server

import (
	"context"
	"sync"

	"github.com/nguyentranbao-ct/chat-client/internal/chatview"
	"github.com/nguyentranbao-ct/chat-client/internal/models"
	"github.com/nguyentranbao-ct/chat-client/internal/usecase"
)

type fakeAuth struct {
	mu       sync.Mutex
	user     *models.User
	loginErr error
	loggedIn []string
}

func (f *fakeAuth) Login(_ context.Context, req models.LoginRequest) (*models.User, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedIn = append(f.loggedIn, req.Email)
	f.user = &models.User{ID: 1, Username: "alice", Email: req.Email}
	return f.user, nil
}

func (f *fakeAuth) Register(context.Context, models.RegisterRequest) error { return nil }

func (f *fakeAuth) Restore(context.Context) (*models.User, error) { return nil, models.ErrUnauthorized }

func (f *fakeAuth) Logout(context.Context) error {
	f.mu.Lock()
	f.user = nil
	f.mu.Unlock()
	return nil
}

func (f *fakeAuth) DeleteAccount(ctx context.Context) error { return f.Logout(ctx) }

func (f *fakeAuth) CurrentUser() (models.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.user == nil {
		return models.User{}, false
	}
	return *f.user, true
}

type fakeDirectory struct {
	usecase.DirectoryUsecase

	chats []models.Chat
	query string
	err   error
}

func (f *fakeDirectory) ListChats(context.Context) ([]models.Chat, error) {
	return f.chats, f.err
}

func (f *fakeDirectory) CreateChat(_ context.Context, recipientID int64) (*models.Chat, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Chat{ID: 9, Participants: []models.User{{ID: recipientID}}}, nil
}

func (f *fakeDirectory) SearchUsers(_ context.Context, query string) ([]models.User, error) {
	f.query = query
	return []models.User{{ID: 2, Username: "bob"}}, f.err
}

// fakeView records calls and serves a fixed snapshot.
type fakeView struct {
	mu        sync.Mutex
	activated []int64
	snap      chatview.Snapshot
	sent      []string
	edits     map[int64]string
	deleted   []int64
	page      chatview.PageResult
	restore   int
	err       error
}

func (f *fakeView) Activate(_ context.Context, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activated = append(f.activated, chatID)
	return f.err
}

func (f *fakeView) Deactivate(context.Context) error { return f.err }

func (f *fakeView) Snapshot(context.Context) (chatview.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := f.snap
	snap.Messages = append([]chatview.MessageView(nil), f.snap.Messages...)
	return snap, f.err
}

func (f *fakeView) OnScroll(_ context.Context, distance int, vp chatview.Viewport) (chatview.PageResult, error) {
	if distance > 50 {
		return chatview.PageResult{}, nil
	}
	anchor := vp.CaptureAnchor()
	vp.RestoreAnchor(anchor, f.restore)
	res := f.page
	res.Anchor = anchor
	return res, f.err
}

func (f *fakeView) Send(_ context.Context, content string) (*models.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, content)
	return &models.Message{ID: 100, AuthorID: 1, Content: content}, nil
}

func (f *fakeView) Edit(_ context.Context, id int64, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.edits == nil {
		f.edits = map[int64]string{}
	}
	f.edits[id] = content
	return f.err
}

func (f *fakeView) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.err
}
