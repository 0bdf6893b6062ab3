package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/chat-client/internal/chatview"
	"github.com/nguyentranbao-ct/chat-client/internal/models"
	pkgmdw "github.com/nguyentranbao-ct/chat-client/internal/server/middleware"
	"github.com/nguyentranbao-ct/chat-client/internal/usercache"
)

// ChatView is the part of *chatview.View the bridge drives.
type ChatView interface {
	Activate(ctx context.Context, chatID int64) error
	Deactivate(ctx context.Context) error
	Snapshot(ctx context.Context) (chatview.Snapshot, error)
	OnScroll(ctx context.Context, distanceFromTop int, vp chatview.Viewport) (chatview.PageResult, error)
	Send(ctx context.Context, content string) (*models.Message, error)
	Edit(ctx context.Context, messageID int64, content string) error
	Delete(ctx context.Context, messageID int64) error
}

type NoticeSource interface {
	Drain() []chatview.Notice
	Peek() []chatview.Notice
}

type ViewController interface {
	Activate(c echo.Context, req ActivateRequest) (*ViewState, error)
	Deactivate(c echo.Context, _ struct{}) error
	Get(c echo.Context, req GetViewRequest) (*ViewState, error)
	Scroll(c echo.Context, req ScrollRequest) (*ScrollResponse, error)
	Send(c echo.Context, req SendRequest) (*pkgmdw.Response, error)
	Edit(c echo.Context, req EditRequest) error
	Delete(c echo.Context, req DeleteRequest) error
}

// GetViewRequest lets a poller read the snapshot without consuming the
// pending notices.
type GetViewRequest struct {
	KeepNotices bool `header:"X-Keep-Notices"`
}

type ActivateRequest struct {
	ChatID int64 `json:"chat_id" validate:"gt=0"`
}

type ScrollRequest struct {
	DistanceFromTop int `json:"distance_from_top" validate:"gte=0"`
	chatview.Anchor
}

type ScrollResponse struct {
	chatview.PageResult
	// Prepended is the count handed to the viewport together with the
	// anchor to restore.
	Prepended int `json:"prepended"`
}

type SendRequest struct {
	Content string `json:"content" validate:"notblank"`
}

type EditRequest struct {
	ID      int64  `param:"id" validate:"gt=0"`
	Content string `json:"content" validate:"notblank"`
}

type DeleteRequest struct {
	ID int64 `param:"id" validate:"gt=0"`
}

type ViewState struct {
	chatview.Snapshot
	Notices []chatview.Notice `json:"notices"`
}

type viewController struct {
	view    ChatView
	notices NoticeSource
	users   usercache.Cache
}

func NewViewController(view ChatView, notices NoticeSource, users usercache.Cache) ViewController {
	return &viewController{view: view, notices: notices, users: users}
}

func (vc *viewController) Activate(c echo.Context, req ActivateRequest) (*ViewState, error) {
	ctx := c.Request().Context()
	if err := vc.view.Activate(ctx, req.ChatID); err != nil {
		return nil, err
	}
	return vc.state(ctx, false)
}

func (vc *viewController) Deactivate(c echo.Context, _ struct{}) error {
	return vc.view.Deactivate(c.Request().Context())
}

func (vc *viewController) Get(c echo.Context, req GetViewRequest) (*ViewState, error) {
	return vc.state(c.Request().Context(), req.KeepNotices)
}

func (vc *viewController) Scroll(c echo.Context, req ScrollRequest) (*ScrollResponse, error) {
	vp := &requestViewport{anchor: req.Anchor}
	res, err := vc.view.OnScroll(c.Request().Context(), req.DistanceFromTop, vp)
	if err != nil {
		return nil, err
	}
	return &ScrollResponse{PageResult: res, Prepended: vp.prepended}, nil
}

func (vc *viewController) Send(c echo.Context, req SendRequest) (*pkgmdw.Response, error) {
	msg, err := vc.view.Send(c.Request().Context(), req.Content)
	if err != nil {
		return nil, err
	}
	return &pkgmdw.Response{Status: http.StatusCreated, Success: true, Data: msg}, nil
}

func (vc *viewController) Edit(c echo.Context, req EditRequest) error {
	return vc.view.Edit(c.Request().Context(), req.ID, req.Content)
}

func (vc *viewController) Delete(c echo.Context, req DeleteRequest) error {
	return vc.view.Delete(c.Request().Context(), req.ID)
}

func (vc *viewController) state(ctx context.Context, keepNotices bool) (*ViewState, error) {
	snap, err := vc.view.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for i := range snap.Messages {
		// unknown authors are loaded once, a failed load leaves the name empty
		if u, ok, _ := vc.users.Resolve(ctx, snap.Messages[i].AuthorID); ok {
			snap.Messages[i].AuthorName = u.Username
		}
	}
	var notices []chatview.Notice
	if keepNotices {
		notices = vc.notices.Peek()
	} else {
		notices = vc.notices.Drain()
	}
	if notices == nil {
		notices = []chatview.Notice{}
	}
	return &ViewState{Snapshot: snap, Notices: notices}, nil
}

// requestViewport replays the anchor the front end sent with the scroll
// request and records what the view asks it to restore.
type requestViewport struct {
	anchor    chatview.Anchor
	prepended int
}

func (vp *requestViewport) CaptureAnchor() chatview.Anchor {
	return vp.anchor
}

func (vp *requestViewport) RestoreAnchor(anchor chatview.Anchor, prepended int) {
	vp.anchor = anchor
	vp.prepended = prepended
}
