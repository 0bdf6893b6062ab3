package chatview

import (
	"context"
	"time"

	"github.com/nguyentranbao-ct/chat-client/internal/models"
)

// runConversation performs the initial load and then polls for newer
// messages at a fixed rate until pollCtx is cancelled. A slow poll does not
// delay the next tick.
func (v *View) runConversation(pollCtx context.Context, chatID int64, gen uint64) {
	v.initialLoad(chatID, gen)

	ticker := time.NewTicker(v.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-pollCtx.Done():
			return
		case <-ticker.C:
			v.spawn(func() { v.poll(chatID, gen) })
		}
	}
}

func (v *View) initialLoad(chatID int64, gen uint64) {
	msgs, err := v.transport.FetchRecent(v.ctx, chatID, v.opts.PageSize)

	_ = v.do(v.ctx, func() {
		c, ok := v.current(gen)
		if !ok {
			v.log.Debugw("Discarded stale initial load", "chat_id", chatID)
			return
		}
		c.phase = PhaseLive
		if err != nil {
			// degraded: stay empty and let polling fill in
			c.loadFailed = true
			v.log.Errorw("Failed to load messages", "chat_id", chatID, "error", err)
			return
		}

		c.store.ReplaceAll(msgs)
		c.cursor.Advance(c.store.MaxID())
		if len(msgs) < v.opts.PageSize {
			c.cursor.HasMoreHistory = false
		}
		loaded := c.store.Messages()
		v.emit(Event{Kind: EventLoaded, ChatID: chatID, Messages: loaded})
		v.archive(loaded)
		v.log.Debugw("Loaded messages", "chat_id", chatID, "count", len(loaded), "last_seen_id", c.cursor.LastSeenID)
	})
}

// poll fetches messages newer than the cursor. Failures are silent.
func (v *View) poll(chatID int64, gen uint64) {
	var lastSeen int64
	var active bool
	if err := v.do(v.ctx, func() {
		if c, ok := v.current(gen); ok {
			lastSeen = c.cursor.LastSeenID
			active = true
		}
	}); err != nil || !active {
		return
	}

	var (
		msgs []models.Message
		err  error
	)
	if lastSeen == 0 {
		msgs, err = v.transport.FetchRecent(v.ctx, chatID, v.opts.PageSize)
	} else {
		msgs, err = v.transport.FetchNewer(v.ctx, chatID, lastSeen)
	}
	if err != nil {
		v.log.Debugw("Poll failed", "chat_id", chatID, "after_id", lastSeen, "error", err)
		return
	}
	if len(msgs) == 0 {
		return
	}

	_ = v.do(v.ctx, func() {
		c, ok := v.current(gen)
		if !ok {
			v.log.Debugw("Discarded stale poll", "chat_id", chatID, "count", len(msgs))
			return
		}
		v.mergeNewer(c, msgs)
		c.loadFailed = false
	})
}

// mergeNewer runs on the loop.
func (v *View) mergeNewer(c *conversation, msgs []models.Message) {
	added := c.store.MergeNewer(msgs)
	c.cursor.Advance(c.store.MaxID())
	if len(added) == 0 {
		return
	}
	v.emit(Event{Kind: EventAppended, ChatID: c.chatID, Messages: added})
	v.archive(added)
}
