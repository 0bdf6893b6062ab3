package chatview

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nguyentranbao-ct/chat-client/internal/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var errNetwork = errors.New("network down")

type reply struct {
	msgs []models.Message
	msg  *models.Message
	err  error
}

// call is one transport request held until the test answers it.
type call struct {
	op      string
	chatID  int64
	id      int64
	limit   int
	content string
	reply   chan reply
}

func (c *call) respond(r reply) {
	c.reply <- r
}

// fakeTransport hands every request to the test through calls, or to auto
// when it is set.
type fakeTransport struct {
	calls chan *call
	auto  func(c *call) reply
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{calls: make(chan *call)}
}

func (f *fakeTransport) roundTrip(ctx context.Context, c *call) reply {
	if f.auto != nil {
		return f.auto(c)
	}
	c.reply = make(chan reply, 1)
	select {
	case f.calls <- c:
	case <-ctx.Done():
		return reply{err: ctx.Err()}
	}
	select {
	case r := <-c.reply:
		return r
	case <-ctx.Done():
		return reply{err: ctx.Err()}
	}
}

func (f *fakeTransport) FetchRecent(ctx context.Context, chatID int64, limit int) ([]models.Message, error) {
	r := f.roundTrip(ctx, &call{op: "recent", chatID: chatID, limit: limit})
	return r.msgs, r.err
}

func (f *fakeTransport) FetchNewer(ctx context.Context, chatID, afterID int64) ([]models.Message, error) {
	r := f.roundTrip(ctx, &call{op: "newer", chatID: chatID, id: afterID})
	return r.msgs, r.err
}

func (f *fakeTransport) FetchOlder(ctx context.Context, chatID, beforeID int64, limit int) ([]models.Message, error) {
	r := f.roundTrip(ctx, &call{op: "older", chatID: chatID, id: beforeID, limit: limit})
	return r.msgs, r.err
}

func (f *fakeTransport) SendMessage(ctx context.Context, chatID int64, content string) (*models.Message, error) {
	r := f.roundTrip(ctx, &call{op: "send", chatID: chatID, content: content})
	return r.msg, r.err
}

func (f *fakeTransport) EditMessage(ctx context.Context, messageID int64, content string) (*models.Message, error) {
	r := f.roundTrip(ctx, &call{op: "edit", id: messageID, content: content})
	return r.msg, r.err
}

func (f *fakeTransport) DeleteMessage(ctx context.Context, messageID int64) error {
	r := f.roundTrip(ctx, &call{op: "delete", id: messageID})
	return r.err
}

func (f *fakeTransport) next(t *testing.T, op string) *call {
	t.Helper()
	select {
	case c := <-f.calls:
		require.Equal(t, op, c.op, "unexpected transport call")
		return c
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s call", op)
		return nil
	}
}

func (f *fakeTransport) expectIdle(t *testing.T) {
	t.Helper()
	select {
	case c := <-f.calls:
		t.Fatalf("unexpected %s call", c.op)
	case <-time.After(50 * time.Millisecond):
	}
}

type testView struct {
	*View
	ft      *fakeTransport
	notices *NoticeBuffer
	logs    *observer.ObservedLogs
}

func testOptions() Options {
	return Options{
		PageSize:          50,
		PollInterval:      time.Hour,
		ScrollThreshold:   50,
		RollbackOnFailure: true,
	}
}

func newTestView(t *testing.T, opts Options) *testView {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core).Sugar()

	ft := newFakeTransport()
	notices := NewNoticeBuffer(16, log)
	v, err := New(ft, notices, nil, opts, log)
	require.NoError(t, err)
	v.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, v.Stop(ctx))
	})
	return &testView{View: v, ft: ft, notices: notices, logs: logs}
}

// open activates chatID and answers its initial load with msgs.
func (tv *testView) open(t *testing.T, chatID int64, msgs []models.Message) {
	t.Helper()
	require.NoError(t, tv.Activate(t.Context(), chatID))
	tv.ft.next(t, "recent").respond(reply{msgs: msgs})
	tv.waitLive(t, chatID)
}

func (tv *testView) waitLive(t *testing.T, chatID int64) {
	t.Helper()
	require.Eventually(t, func() bool {
		s := tv.snapshot(t)
		return s.ChatID == chatID && s.Phase == PhaseLive
	}, 2*time.Second, 5*time.Millisecond)
}

func (tv *testView) snapshot(t *testing.T) Snapshot {
	t.Helper()
	s, err := tv.Snapshot(context.Background())
	require.NoError(t, err)
	return s
}

func (tv *testView) ids(t *testing.T) []int64 {
	t.Helper()
	var out []int64
	for _, m := range tv.snapshot(t).Messages {
		out = append(out, m.ID)
	}
	return out
}

// pollNow starts one poll of the active conversation, as a tick would.
func (tv *testView) pollNow(t *testing.T) {
	t.Helper()
	var (
		chatID int64
		gen    uint64
	)
	require.NoError(t, tv.do(t.Context(), func() {
		if tv.conv != nil {
			chatID, gen = tv.conv.chatID, tv.conv.gen
			tv.spawn(func() { tv.poll(chatID, gen) })
		}
	}))
	require.NotZero(t, chatID, "no active chat")
}

// async runs fn in the background and returns a channel with its error.
func async(fn func() error) <-chan error {
	ch := make(chan error, 1)
	go func() { ch <- fn() }()
	return ch
}

func wait(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for operation")
		return nil
	}
}

type recordingViewport struct {
	capture   Anchor
	restored  Anchor
	prepended int
	calls     int
}

func (r *recordingViewport) CaptureAnchor() Anchor {
	return r.capture
}

func (r *recordingViewport) RestoreAnchor(a Anchor, prepended int) {
	r.restored = a
	r.prepended = prepended
	r.calls++
}
