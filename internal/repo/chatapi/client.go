package chatapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/nguyentranbao-ct/chat-client/internal/config"
	"github.com/nguyentranbao-ct/chat-client/internal/models"
	"github.com/nguyentranbao-ct/chat-client/internal/session"
	"github.com/nguyentranbao-ct/chat-client/pkg/util"
	"go.uber.org/zap"
)

// MessageTransport is the subset of the API the chat view depends on.
type MessageTransport interface {
	FetchRecent(ctx context.Context, chatID int64, limit int) ([]models.Message, error)
	FetchNewer(ctx context.Context, chatID, afterID int64) ([]models.Message, error)
	FetchOlder(ctx context.Context, chatID, beforeID int64, limit int) ([]models.Message, error)
	SendMessage(ctx context.Context, chatID int64, content string) (*models.Message, error)
	// EditMessage returns nil when the server only acknowledges the update.
	EditMessage(ctx context.Context, messageID int64, content string) (*models.Message, error)
	DeleteMessage(ctx context.Context, messageID int64) error
}

type Client interface {
	MessageTransport

	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) error
	GetProfile(ctx context.Context) (*models.User, error)
	DeleteProfile(ctx context.Context) error

	ListChats(ctx context.Context) ([]models.Chat, error)
	CreateChat(ctx context.Context, recipientID int64) (*models.Chat, error)
	SearchUsers(ctx context.Context, query string) ([]models.User, error)
}

type client struct {
	http   *resty.Client
	tokens session.Store
	log    *zap.SugaredLogger
}

func NewClient(conf *config.Config, tokens session.Store, log *zap.SugaredLogger) Client {
	cfg := conf.ChatAPI
	return &client{
		http:   util.NewRestyClient(strings.TrimRight(cfg.BaseURL, "/"), cfg.Timeout, cfg.RetryCount),
		tokens: tokens,
		log:    log,
	}
}

func (c *client) request(ctx context.Context) (*resty.Request, error) {
	req := c.http.R().SetContext(ctx).SetError(&errorBody{})
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session token: %w", err)
	}
	if token != "" {
		req.SetAuthToken(token)
	}
	return req, nil
}

// check turns a completed round trip into an error. Unauthorized responses
// drop the stored token so the next start requires a new login.
func (c *client) check(ctx context.Context, op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !resp.IsError() {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode()}
	if body, ok := resp.Error().(*errorBody); ok {
		apiErr.Message = body.text()
	}
	if apiErr.StatusCode == http.StatusUnauthorized {
		if clearErr := c.tokens.Clear(ctx); clearErr != nil {
			c.log.Warnw("Failed to clear session token", "error", clearErr)
		}
	}
	return fmt.Errorf("%s: %w", op, apiErr)
}

func (c *client) Login(ctx context.Context, in models.LoginRequest) (*models.LoginResponse, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var out models.LoginResponse
	resp, err := req.SetBody(in).SetResult(&out).Post("/auth/login")
	if err := c.check(ctx, "login", resp, err); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, errors.New("login: empty access token")
	}
	return &out, nil
}

func (c *client) Register(ctx context.Context, in models.RegisterRequest) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	resp, err := req.SetBody(in).Post("/auth/register")
	return c.check(ctx, "register", resp, err)
}

func (c *client) GetProfile(ctx context.Context) (*models.User, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var out models.User
	resp, err := req.SetResult(&out).Get("/profile")
	if err := c.check(ctx, "get profile", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) DeleteProfile(ctx context.Context) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	resp, err := req.Delete("/profile")
	return c.check(ctx, "delete profile", resp, err)
}

func (c *client) ListChats(ctx context.Context) ([]models.Chat, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Chat
	resp, err := req.SetResult(&out).Get("/chats")
	if err := c.check(ctx, "list chats", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) CreateChat(ctx context.Context, recipientID int64) (*models.Chat, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var out models.Chat
	resp, err := req.
		SetBody(models.CreateChatRequest{RecipientID: recipientID}).
		SetResult(&out).
		Post("/chats")
	if err := c.check(ctx, "create chat", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.User{}, nil
	}
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.User
	resp, err := req.SetQueryParam("q", query).SetResult(&out).Get("/users")
	if err := c.check(ctx, "search users", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) fetchMessages(ctx context.Context, op string, chatID int64, params map[string]string) ([]models.Message, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Message
	resp, err := req.
		SetPathParam("chatID", strconv.FormatInt(chatID, 10)).
		SetQueryParams(params).
		SetResult(&out).
		Get("/chats/{chatID}/messages")
	if err := c.check(ctx, op, resp, err); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].ChatID == 0 {
			out[i].ChatID = chatID
		}
	}
	return out, nil
}

func (c *client) FetchRecent(ctx context.Context, chatID int64, limit int) ([]models.Message, error) {
	return c.fetchMessages(ctx, "fetch recent messages", chatID, map[string]string{
		"limit": strconv.Itoa(limit),
	})
}

func (c *client) FetchNewer(ctx context.Context, chatID, afterID int64) ([]models.Message, error) {
	return c.fetchMessages(ctx, "fetch newer messages", chatID, map[string]string{
		"after_id": strconv.FormatInt(afterID, 10),
	})
}

func (c *client) FetchOlder(ctx context.Context, chatID, beforeID int64, limit int) ([]models.Message, error) {
	return c.fetchMessages(ctx, "fetch older messages", chatID, map[string]string{
		"before_id": strconv.FormatInt(beforeID, 10),
		"limit":     strconv.Itoa(limit),
	})
}

func (c *client) SendMessage(ctx context.Context, chatID int64, content string) (*models.Message, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var out models.Message
	resp, err := req.
		SetPathParam("chatID", strconv.FormatInt(chatID, 10)).
		SetBody(models.SendMessageRequest{Content: content}).
		SetResult(&out).
		Post("/chats/{chatID}/messages")
	if err := c.check(ctx, "send message", resp, err); err != nil {
		return nil, err
	}
	if out.ID <= 0 {
		return nil, errors.New("send message: response has no message id")
	}
	if out.ChatID == 0 {
		out.ChatID = chatID
	}
	return &out, nil
}

func (c *client) EditMessage(ctx context.Context, messageID int64, content string) (*models.Message, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var out models.Message
	resp, err := req.
		SetPathParam("messageID", strconv.FormatInt(messageID, 10)).
		SetBody(models.SendMessageRequest{Content: content}).
		SetResult(&out).
		Put("/messages/{messageID}")
	if err := c.check(ctx, "edit message", resp, err); err != nil {
		return nil, err
	}
	if out.ID != messageID {
		return nil, nil
	}
	return &out, nil
}

func (c *client) DeleteMessage(ctx context.Context, messageID int64) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	resp, err := req.
		SetPathParam("messageID", strconv.FormatInt(messageID, 10)).
		Delete("/messages/{messageID}")
	return c.check(ctx, "delete message", resp, err)
}
