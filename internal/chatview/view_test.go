package chatview

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nguyentranbao-ct/chat-client/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(newFakeTransport(), nil, nil, Options{PageSize: 0, PollInterval: time.Second}, zap.NewNop().Sugar())
	assert.Error(t, err)
	_, err = New(newFakeTransport(), nil, nil, Options{PageSize: 10}, zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestActivateResetsState(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, idRange(1, 50))

	s := tv.snapshot(t)
	assert.Len(t, s.Messages, 50)
	assert.Equal(t, int64(50), s.LastSeenID)
	assert.True(t, s.HasMoreHistory)

	require.NoError(t, tv.Activate(t.Context(), 2))
	c := tv.ft.next(t, "recent")
	assert.Equal(t, int64(2), c.chatID)
	assert.Equal(t, 50, c.limit)

	// before the load resolves the new chat is empty with a fresh cursor
	s = tv.snapshot(t)
	assert.True(t, s.Active)
	assert.Equal(t, int64(2), s.ChatID)
	assert.Equal(t, PhaseLoading, s.Phase)
	assert.Empty(t, s.Messages)
	assert.Equal(t, int64(0), s.LastSeenID)
	assert.True(t, s.HasMoreHistory)
	assert.False(t, s.FetchingHistory)

	c.respond(reply{msgs: msgs(7)})
	tv.waitLive(t, 2)
	s = tv.snapshot(t)
	assert.Equal(t, []int64{7}, tv.ids(t))
	assert.False(t, s.HasMoreHistory, "short first page means no more history")
}

func TestActivateSameChatIsNoop(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, msgs(1, 2))

	require.NoError(t, tv.Activate(t.Context(), 1))
	tv.ft.expectIdle(t)
	assert.Equal(t, []int64{1, 2}, tv.ids(t))
}

func TestActivateRequiresChatID(t *testing.T) {
	tv := newTestView(t, testOptions())
	assert.ErrorIs(t, tv.Activate(t.Context(), 0), ErrNoActiveChat)
	assert.False(t, tv.snapshot(t).Active)
}

func TestDeactivate(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, msgs(1))

	require.NoError(t, tv.Deactivate(t.Context()))
	s := tv.snapshot(t)
	assert.False(t, s.Active)
	assert.Empty(t, s.Messages)
}

func TestStaleInitialLoadIgnored(t *testing.T) {
	tv := newTestView(t, testOptions())

	require.NoError(t, tv.Activate(t.Context(), 1))
	first := tv.ft.next(t, "recent")
	require.NoError(t, tv.Activate(t.Context(), 2))
	second := tv.ft.next(t, "recent")

	first.respond(reply{msgs: msgs(5, 6)})
	require.Eventually(t, func() bool {
		return tv.logs.FilterMessage("Discarded stale initial load").Len() == 1
	}, 2*time.Second, 5*time.Millisecond)

	s := tv.snapshot(t)
	assert.Equal(t, int64(2), s.ChatID)
	assert.Empty(t, s.Messages)
	assert.Equal(t, PhaseLoading, s.Phase)

	second.respond(reply{})
	tv.waitLive(t, 2)
	assert.Empty(t, tv.ids(t))
	assert.Equal(t, int64(0), tv.snapshot(t).LastSeenID)
}

func TestStalePollIgnored(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, msgs(1))

	tv.pollNow(t)
	poll := tv.ft.next(t, "newer")

	require.NoError(t, tv.Activate(t.Context(), 2))
	tv.ft.next(t, "recent").respond(reply{msgs: msgs(10)})
	tv.waitLive(t, 2)

	poll.respond(reply{msgs: msgs(2, 3)})
	require.Eventually(t, func() bool {
		return tv.logs.FilterMessage("Discarded stale poll").Len() == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{10}, tv.ids(t))
	assert.Equal(t, int64(10), tv.snapshot(t).LastSeenID)
}

func TestPollMergesAndAdvances(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, msgs(1, 2))

	tv.pollNow(t)
	c := tv.ft.next(t, "newer")
	assert.Equal(t, int64(2), c.id)
	c.respond(reply{msgs: msgs(2, 3, 4)})

	require.Eventually(t, func() bool {
		return len(tv.ids(t)) == 4
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{1, 2, 3, 4}, tv.ids(t))
	assert.Equal(t, int64(4), tv.snapshot(t).LastSeenID)
}

func TestPollFailureIsSilent(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, msgs(1, 2))

	tv.pollNow(t)
	tv.ft.next(t, "newer").respond(reply{err: errNetwork})

	tv.pollNow(t)
	c := tv.ft.next(t, "newer")
	assert.Equal(t, int64(2), c.id, "failed poll leaves the cursor alone")
	c.respond(reply{})

	assert.Empty(t, tv.notices.Drain())
	assert.Equal(t, []int64{1, 2}, tv.ids(t))
}

func TestFailedLoadDegradesThenPollRecovers(t *testing.T) {
	tv := newTestView(t, testOptions())

	require.NoError(t, tv.Activate(t.Context(), 1))
	tv.ft.next(t, "recent").respond(reply{err: errNetwork})
	tv.waitLive(t, 1)

	s := tv.snapshot(t)
	assert.True(t, s.LoadFailed)
	assert.Empty(t, s.Messages)
	assert.Empty(t, tv.notices.Drain())
	assert.Equal(t, 1, tv.logs.FilterMessage("Failed to load messages").Len())

	// with nothing seen yet a poll asks for the recent page
	tv.pollNow(t)
	tv.ft.next(t, "recent").respond(reply{msgs: msgs(1, 2)})
	require.Eventually(t, func() bool {
		return !tv.snapshot(t).LoadFailed
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{1, 2}, tv.ids(t))
	assert.Equal(t, int64(2), tv.snapshot(t).LastSeenID)
}

func TestSendThenPollNoDuplicate(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, msgs(100))

	tv.pollNow(t)
	poll := tv.ft.next(t, "newer")
	assert.Equal(t, int64(100), poll.id)

	var sent *models.Message
	done := async(func() error {
		var err error
		sent, err = tv.Send(context.Background(), "  hello ")
		return err
	})
	send := tv.ft.next(t, "send")
	assert.Equal(t, "hello", send.content)
	assert.Equal(t, int64(1), send.chatID)
	send.respond(reply{msg: &models.Message{ID: 101, AuthorID: 1, Content: "hello"}})
	require.NoError(t, wait(t, done))
	assert.Equal(t, int64(101), sent.ID)
	assert.Equal(t, []int64{100, 101}, tv.ids(t))
	assert.Equal(t, int64(101), tv.snapshot(t).LastSeenID)

	// the poll issued before the send resolves with the sent message too
	poll.respond(reply{msgs: []models.Message{{ID: 101, Content: "hello"}, {ID: 102, Content: "x"}}})
	require.Eventually(t, func() bool {
		return len(tv.ids(t)) == 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{100, 101, 102}, tv.ids(t))
}

func TestSendValidation(t *testing.T) {
	tv := newTestView(t, testOptions())

	_, err := tv.Send(t.Context(), "   ")
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = tv.Send(t.Context(), "hi")
	assert.ErrorIs(t, err, ErrNoActiveChat)
	tv.ft.expectIdle(t)
}

func TestSendFailureNotifies(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, msgs(1))

	done := async(func() error {
		_, err := tv.Send(context.Background(), "hi")
		return err
	})
	tv.ft.next(t, "send").respond(reply{err: errNetwork})
	assert.ErrorIs(t, wait(t, done), errNetwork)

	assert.Equal(t, []int64{1}, tv.ids(t), "no placeholder on failure")
	notices := tv.notices.Drain()
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeSend, notices[0].Kind)
	assert.Equal(t, int64(1), notices[0].ChatID)
}

func TestSendResultAfterSwitchIsDropped(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, msgs(1))

	done := async(func() error {
		_, err := tv.Send(context.Background(), "hi")
		return err
	})
	send := tv.ft.next(t, "send")

	require.NoError(t, tv.Activate(t.Context(), 2))
	tv.ft.next(t, "recent").respond(reply{})
	tv.waitLive(t, 2)

	send.respond(reply{msg: &models.Message{ID: 9, Content: "hi"}})
	require.NoError(t, wait(t, done))
	assert.Empty(t, tv.ids(t))
}

func TestLoadOlderPrependsAndRestoresAnchor(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, idRange(51, 100))

	vp := &recordingViewport{capture: Anchor{MessageID: 60, Offset: 12}}
	var res PageResult
	done := async(func() error {
		var err error
		res, err = tv.LoadOlder(context.Background(), vp)
		return err
	})
	c := tv.ft.next(t, "older")
	assert.Equal(t, int64(51), c.id)
	assert.Equal(t, 50, c.limit)
	assert.True(t, tv.snapshot(t).FetchingHistory)

	c.respond(reply{msgs: idRange(31, 50)})
	require.NoError(t, wait(t, done))

	assert.True(t, res.Fetched)
	assert.Equal(t, 20, res.Added)
	assert.False(t, res.HasMoreHistory)
	assert.Equal(t, Anchor{MessageID: 60, Offset: 12}, res.Anchor)
	assert.Equal(t, 1, vp.calls)
	assert.Equal(t, 20, vp.prepended)
	assert.Equal(t, Anchor{MessageID: 60, Offset: 12}, vp.restored)

	ids := tv.ids(t)
	assert.Len(t, ids, 70)
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i])
	}
	s := tv.snapshot(t)
	assert.False(t, s.FetchingHistory)
	assert.False(t, s.HasMoreHistory)
	assert.Equal(t, int64(100), s.LastSeenID)
}

func TestLoadOlderDefaultAnchorIsOldest(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, idRange(51, 100))

	var res PageResult
	done := async(func() error {
		var err error
		res, err = tv.LoadOlder(context.Background(), nil)
		return err
	})
	tv.ft.next(t, "older").respond(reply{msgs: idRange(1, 50)})
	require.NoError(t, wait(t, done))

	assert.Equal(t, Anchor{MessageID: 51}, res.Anchor)
	assert.True(t, res.HasMoreHistory, "full page keeps history open")
}

func TestLoadOlderGuards(t *testing.T) {
	tv := newTestView(t, testOptions())

	res, err := tv.LoadOlder(t.Context(), nil)
	require.NoError(t, err)
	assert.False(t, res.Fetched, "no active chat")

	// an empty chat has no boundary to page before
	require.NoError(t, tv.Activate(t.Context(), 1))
	tv.ft.next(t, "recent").respond(reply{msgs: nil})
	tv.waitLive(t, 1)
	require.NoError(t, tv.do(t.Context(), func() { tv.conv.cursor.HasMoreHistory = true }))
	res, err = tv.LoadOlder(t.Context(), nil)
	require.NoError(t, err)
	assert.False(t, res.Fetched)
	tv.ft.expectIdle(t)
}

func TestLoadOlderSingleFlight(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, idRange(51, 100))

	done := async(func() error {
		_, err := tv.LoadOlder(context.Background(), nil)
		return err
	})
	c := tv.ft.next(t, "older")

	res, err := tv.LoadOlder(t.Context(), nil)
	require.NoError(t, err)
	assert.False(t, res.Fetched, "second fetch while one is in flight")

	c.respond(reply{msgs: idRange(1, 50)})
	require.NoError(t, wait(t, done))
}

func TestPaginationTerminatesOnDuplicatePage(t *testing.T) {
	opts := testOptions()
	opts.PageSize = 3
	tv := newTestView(t, opts)
	tv.open(t, 1, msgs(4, 5, 6))
	require.True(t, tv.snapshot(t).HasMoreHistory)

	load := func(respond []models.Message) PageResult {
		var res PageResult
		done := async(func() error {
			var err error
			res, err = tv.LoadOlder(context.Background(), nil)
			return err
		})
		tv.ft.next(t, "older").respond(reply{msgs: respond})
		require.NoError(t, wait(t, done))
		return res
	}

	res := load(msgs(1, 2, 3))
	assert.Equal(t, 3, res.Added)
	assert.True(t, res.HasMoreHistory)

	// a full page that is entirely already present ends the history
	res = load(msgs(1, 2, 3))
	assert.Equal(t, 0, res.Added)
	assert.False(t, res.HasMoreHistory)

	res, err := tv.LoadOlder(t.Context(), nil)
	require.NoError(t, err)
	assert.False(t, res.Fetched)
	tv.ft.expectIdle(t)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, tv.ids(t))
}

func TestLoadOlderFailureAllowsRetry(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, idRange(1, 50))

	done := async(func() error {
		_, err := tv.LoadOlder(context.Background(), nil)
		return err
	})
	tv.ft.next(t, "older").respond(reply{err: errNetwork})
	assert.ErrorIs(t, wait(t, done), errNetwork)

	s := tv.snapshot(t)
	assert.True(t, s.HasMoreHistory)
	assert.False(t, s.FetchingHistory)
	notices := tv.notices.Drain()
	require.Len(t, notices, 1)
	assert.Equal(t, NoticePagination, notices[0].Kind)

	done = async(func() error {
		_, err := tv.LoadOlder(context.Background(), nil)
		return err
	})
	tv.ft.next(t, "older").respond(reply{})
	require.NoError(t, wait(t, done))
	assert.False(t, tv.snapshot(t).HasMoreHistory)
}

func TestOnScrollThreshold(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, idRange(51, 100))

	res, err := tv.OnScroll(t.Context(), 51, nil)
	require.NoError(t, err)
	assert.False(t, res.Fetched)
	tv.ft.expectIdle(t)

	done := async(func() error {
		_, err := tv.OnScroll(context.Background(), 10, nil)
		return err
	})
	tv.ft.next(t, "older").respond(reply{msgs: idRange(40, 50)})
	require.NoError(t, wait(t, done))
	assert.Len(t, tv.ids(t), 61)
}

func TestPollAndPaginationCommute(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, idRange(11, 60))

	done := async(func() error {
		_, err := tv.LoadOlder(context.Background(), nil)
		return err
	})
	older := tv.ft.next(t, "older")

	tv.pollNow(t)
	newer := tv.ft.next(t, "newer")
	newer.respond(reply{msgs: idRange(60, 62)})
	require.Eventually(t, func() bool {
		return tv.snapshot(t).LastSeenID == 62
	}, 2*time.Second, 5*time.Millisecond)

	older.respond(reply{msgs: idRange(1, 10)})
	require.NoError(t, wait(t, done))

	ids := tv.ids(t)
	require.Len(t, ids, 62)
	for i, id := range ids {
		assert.Equal(t, int64(i+1), id)
	}
}

func TestCursorNeverMovesBack(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, msgs(1, 2, 3))

	done := async(func() error { return tv.Delete(context.Background(), 3) })
	tv.ft.next(t, "delete").respond(reply{})
	require.NoError(t, wait(t, done))

	assert.Equal(t, []int64{1, 2}, tv.ids(t))
	assert.Equal(t, int64(3), tv.snapshot(t).LastSeenID)

	tv.pollNow(t)
	c := tv.ft.next(t, "newer")
	assert.Equal(t, int64(3), c.id)
	c.respond(reply{})
}

func contentOf(t *testing.T, tv *testView, id int64) string {
	t.Helper()
	for _, m := range tv.snapshot(t).Messages {
		if m.ID == id {
			return m.Content
		}
	}
	t.Fatalf("message %d not in view", id)
	return ""
}

func TestEditOptimisticThenReconcile(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, msgs(1, 2))

	done := async(func() error { return tv.Edit(context.Background(), 2, " new ") })
	c := tv.ft.next(t, "edit")
	assert.Equal(t, "new", c.content)
	assert.Equal(t, "new", contentOf(t, tv, 2), "applied before the server answers")

	c.respond(reply{msg: &models.Message{ID: 2, Content: "new (server)"}})
	require.NoError(t, wait(t, done))
	assert.Equal(t, "new (server)", contentOf(t, tv, 2))
}

func TestEditFailureRollsBack(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, msgs(1, 2))

	done := async(func() error { return tv.Edit(context.Background(), 2, "new") })
	tv.ft.next(t, "edit").respond(reply{err: errNetwork})
	assert.ErrorIs(t, wait(t, done), errNetwork)

	assert.Equal(t, "m", contentOf(t, tv, 2))
	notices := tv.notices.Drain()
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeEdit, notices[0].Kind)
}

func TestEditFailureWithoutRollback(t *testing.T) {
	opts := testOptions()
	opts.RollbackOnFailure = false
	tv := newTestView(t, opts)
	tv.open(t, 1, msgs(1, 2))

	done := async(func() error { return tv.Edit(context.Background(), 2, "new") })
	tv.ft.next(t, "edit").respond(reply{err: errNetwork})
	assert.ErrorIs(t, wait(t, done), errNetwork)

	assert.Equal(t, "new", contentOf(t, tv, 2))
	assert.Len(t, tv.notices.Drain(), 1)
}

func TestEditRollbackKeepsLaterEdit(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, msgs(1))

	first := async(func() error { return tv.Edit(context.Background(), 1, "first") })
	c1 := tv.ft.next(t, "edit")
	second := async(func() error { return tv.Edit(context.Background(), 1, "second") })
	c2 := tv.ft.next(t, "edit")

	c1.respond(reply{err: errNetwork})
	assert.Error(t, wait(t, first))
	assert.Equal(t, "second", contentOf(t, tv, 1))

	c2.respond(reply{})
	require.NoError(t, wait(t, second))
	assert.Equal(t, "second", contentOf(t, tv, 1))
}

func TestEditValidation(t *testing.T) {
	tv := newTestView(t, testOptions())

	assert.ErrorIs(t, tv.Edit(t.Context(), 1, "x"), ErrNoActiveChat)

	tv.open(t, 1, msgs(1))
	assert.ErrorIs(t, tv.Edit(t.Context(), 1, "  "), ErrEmptyContent)
	assert.ErrorIs(t, tv.Edit(t.Context(), 99, "x"), ErrMessageNotFound)
	tv.ft.expectIdle(t)
}

func TestDeleteOptimistic(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, msgs(1, 2, 3))

	done := async(func() error { return tv.Delete(context.Background(), 2) })
	c := tv.ft.next(t, "delete")
	assert.Equal(t, int64(2), c.id)
	assert.Equal(t, []int64{1, 3}, tv.ids(t))

	c.respond(reply{})
	require.NoError(t, wait(t, done))
	assert.Equal(t, []int64{1, 3}, tv.ids(t))
}

func TestDeleteFailureRollsBack(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, msgs(1, 2, 3))

	done := async(func() error { return tv.Delete(context.Background(), 2) })
	tv.ft.next(t, "delete").respond(reply{err: errNetwork})
	assert.ErrorIs(t, wait(t, done), errNetwork)

	assert.Equal(t, []int64{1, 2, 3}, tv.ids(t))
	notices := tv.notices.Drain()
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeDelete, notices[0].Kind)
}

func TestDeleteFailureWithoutRollback(t *testing.T) {
	opts := testOptions()
	opts.RollbackOnFailure = false
	tv := newTestView(t, opts)
	tv.open(t, 1, msgs(1, 2, 3))

	done := async(func() error { return tv.Delete(context.Background(), 2) })
	tv.ft.next(t, "delete").respond(reply{err: errNetwork})
	assert.ErrorIs(t, wait(t, done), errNetwork)
	assert.Equal(t, []int64{1, 3}, tv.ids(t))
}

func TestDeleteValidation(t *testing.T) {
	tv := newTestView(t, testOptions())
	assert.ErrorIs(t, tv.Delete(t.Context(), 1), ErrNoActiveChat)

	tv.open(t, 1, msgs(1))
	assert.ErrorIs(t, tv.Delete(t.Context(), 5), ErrMessageNotFound)
	tv.ft.expectIdle(t)
}

func TestSnapshotOwnFlag(t *testing.T) {
	tv := newTestView(t, testOptions())
	require.NoError(t, tv.SetCurrentUser(t.Context(), 1))
	tv.open(t, 1, []models.Message{{ID: 1, AuthorID: 1}, {ID: 2, AuthorID: 2}})

	s := tv.snapshot(t)
	require.Len(t, s.Messages, 2)
	assert.True(t, s.Messages[0].Own)
	assert.False(t, s.Messages[1].Own)
}

func TestPollingTicker(t *testing.T) {
	opts := testOptions()
	opts.PollInterval = 10 * time.Millisecond
	tv := newTestView(t, opts)

	var polls atomic.Int32
	tv.ft.auto = func(c *call) reply {
		switch c.op {
		case "recent":
			return reply{msgs: msgs(1)}
		case "newer":
			polls.Add(1)
			if c.id < 5 {
				return reply{msgs: msgs(c.id + 1)}
			}
		}
		return reply{}
	}

	require.NoError(t, tv.Activate(t.Context(), 1))
	require.Eventually(t, func() bool {
		return tv.snapshot(t).LastSeenID == 5
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, tv.ids(t))

	require.NoError(t, tv.Deactivate(t.Context()))
	time.Sleep(30 * time.Millisecond)
	settled := polls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, polls.Load(), "polling stops on teardown")
}

func TestSubscribe(t *testing.T) {
	tv := newTestView(t, testOptions())
	events, cancel, err := tv.Subscribe(8)
	require.NoError(t, err)

	tv.open(t, 1, msgs(1))
	tv.pollNow(t)
	tv.ft.next(t, "newer").respond(reply{msgs: msgs(2)})

	next := func() Event {
		select {
		case e := <-events:
			return e
		case <-time.After(2 * time.Second):
			t.Fatal("no event")
			return Event{}
		}
	}
	assert.Equal(t, EventReset, next().Kind)
	loaded := next()
	assert.Equal(t, EventLoaded, loaded.Kind)
	assert.Equal(t, []int64{1}, models.MessageIDs(loaded.Messages))
	appended := next()
	assert.Equal(t, EventAppended, appended.Kind)
	assert.Equal(t, []int64{2}, models.MessageIDs(appended.Messages))

	cancel()
	_, ok := <-events
	assert.False(t, ok)
}

func TestStoppedViewRejectsCalls(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, msgs(1))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, tv.Stop(ctx))

	assert.ErrorIs(t, tv.Activate(t.Context(), 2), ErrClosed)
	_, err := tv.Snapshot(t.Context())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestActivateRacingStop(t *testing.T) {
	for i := 0; i < 100; i++ {
		ft := newFakeTransport()
		ft.auto = func(*call) reply { return reply{} }
		v, err := New(ft, nil, nil, testOptions(), zap.NewNop().Sugar())
		require.NoError(t, err)
		v.Start()

		activated := async(func() error { return v.Activate(context.Background(), int64(i+1)) })
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		require.NoError(t, v.Stop(ctx))
		cancel()

		err = wait(t, activated)
		if err != nil {
			assert.ErrorIs(t, err, ErrClosed)
		}
	}
}

func TestMutationEvents(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, msgs(1, 2, 3))
	events, cancel, err := tv.Subscribe(8)
	require.NoError(t, err)
	defer cancel()

	next := func() Event {
		select {
		case e := <-events:
			return e
		case <-time.After(2 * time.Second):
			t.Fatal("no event")
			return Event{}
		}
	}

	done := async(func() error { return tv.Edit(context.Background(), 2, "draft") })
	tv.ft.next(t, "edit").respond(reply{msg: &models.Message{ID: 2, Content: "draft (server)"}})
	require.NoError(t, wait(t, done))
	optimistic, reconciled := next(), next()
	assert.Equal(t, EventEdited, optimistic.Kind)
	assert.Equal(t, "draft", optimistic.Messages[0].Content)
	assert.Equal(t, EventEdited, reconciled.Kind)
	assert.Equal(t, "draft (server)", reconciled.Messages[0].Content)

	done = async(func() error { return tv.Delete(context.Background(), 2) })
	tv.ft.next(t, "delete").respond(reply{err: errNetwork})
	assert.ErrorIs(t, wait(t, done), errNetwork)
	assert.Equal(t, EventDeleted, next().Kind)
	restored := next()
	assert.Equal(t, EventRestored, restored.Kind)
	assert.Equal(t, []int64{2}, models.MessageIDs(restored.Messages))
	assert.Equal(t, []int64{1, 2, 3}, tv.ids(t))
}

func TestEditReplyDoesNotOverrideLaterEdit(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, msgs(1))

	first := async(func() error { return tv.Edit(context.Background(), 1, "first") })
	c1 := tv.ft.next(t, "edit")
	second := async(func() error { return tv.Edit(context.Background(), 1, "second") })
	c2 := tv.ft.next(t, "edit")

	c1.respond(reply{msg: &models.Message{ID: 1, Content: "first!"}})
	require.NoError(t, wait(t, first))
	assert.Equal(t, "second", contentOf(t, tv, 1))

	c2.respond(reply{})
	require.NoError(t, wait(t, second))
}

func TestLoadOlderAdvancesCursorPastNewerIDs(t *testing.T) {
	tv := newTestView(t, testOptions())
	tv.open(t, 1, idRange(51, 100))

	done := async(func() error {
		_, err := tv.LoadOlder(context.Background(), nil)
		return err
	})
	// a server that ignores before_id answers with the newest page
	page := append(idRange(40, 50), idRange(101, 105)...)
	tv.ft.next(t, "older").respond(reply{msgs: page})
	require.NoError(t, wait(t, done))

	s := tv.snapshot(t)
	assert.Equal(t, int64(105), s.LastSeenID)
	assert.Equal(t, int64(105), s.Messages[len(s.Messages)-1].ID)
}
