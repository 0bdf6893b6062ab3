package chatview

import (
	"context"

	"github.com/nguyentranbao-ct/chat-client/internal/models"
)

// Anchor identifies the reading position: the first visible message and
// its offset from the top of the viewport.
type Anchor struct {
	MessageID int64 `json:"anchor_id"`
	Offset    int   `json:"anchor_offset"`
}

// Viewport is the rendering side of history loading. CaptureAnchor is
// called when the fetch starts and RestoreAnchor in the same loop turn that
// prepends the page, so no other store change can land in between.
// Both are called on the event loop and must not block.
type Viewport interface {
	CaptureAnchor() Anchor
	RestoreAnchor(anchor Anchor, prepended int)
}

type PageResult struct {
	// Fetched is false when a guard prevented the request.
	Fetched        bool   `json:"fetched"`
	Added          int    `json:"added"`
	Anchor         Anchor `json:"anchor"`
	HasMoreHistory bool   `json:"has_more_history"`
}

// OnScroll loads older history when the viewport is within the scroll
// threshold of the top.
func (v *View) OnScroll(ctx context.Context, distanceFromTop int, vp Viewport) (PageResult, error) {
	if distanceFromTop > v.opts.ScrollThreshold {
		return PageResult{}, nil
	}
	return v.LoadOlder(ctx, vp)
}

// LoadOlder fetches the page before the oldest loaded message. It does
// nothing unless a chat is active, it has messages, more history may exist
// and no other history fetch is running.
func (v *View) LoadOlder(ctx context.Context, vp Viewport) (PageResult, error) {
	var (
		chatID   int64
		gen      uint64
		boundary int64
		anchor   Anchor
		started  bool
	)
	err := v.do(ctx, func() {
		c := v.conv
		if c == nil || c.cursor.FetchingHistory || !c.cursor.HasMoreHistory {
			return
		}
		oldest, ok := c.store.Oldest()
		if !ok {
			return
		}
		c.cursor.FetchingHistory = true
		chatID, gen, boundary = c.chatID, c.gen, oldest.ID
		anchor = Anchor{MessageID: oldest.ID}
		if vp != nil {
			if a := vp.CaptureAnchor(); a.MessageID != 0 {
				anchor = a
			}
		}
		started = true
	})
	if err != nil || !started {
		return PageResult{}, err
	}

	msgs, fetchErr := v.transport.FetchOlder(ctx, chatID, boundary, v.opts.PageSize)

	result := PageResult{Fetched: true, Anchor: anchor}
	stale := false
	err = v.do(context.WithoutCancel(ctx), func() {
		c, ok := v.current(gen)
		if !ok {
			stale = true
			return
		}
		c.cursor.FetchingHistory = false
		result.HasMoreHistory = c.cursor.HasMoreHistory
		if fetchErr != nil {
			return
		}

		added := v.prependOlder(c, msgs)
		result.Added = len(added)
		result.HasMoreHistory = c.cursor.HasMoreHistory
		if vp != nil {
			vp.RestoreAnchor(anchor, len(added))
		}
	})
	if err != nil || stale {
		return result, err
	}
	if fetchErr != nil {
		v.log.Warnw("Failed to load older messages", "chat_id", chatID, "before_id", boundary, "error", fetchErr)
		v.notify(NoticePagination, chatID, fetchErr)
		return result, fetchErr
	}
	return result, nil
}

// prependOlder runs on the loop. A short page, or a page made only of
// messages already present, ends the history.
func (v *View) prependOlder(c *conversation, msgs []models.Message) []models.Message {
	if len(msgs) < v.opts.PageSize {
		c.cursor.HasMoreHistory = false
	}
	added := c.store.PrependOlder(msgs)
	c.cursor.Advance(c.store.MaxID())
	if len(added) == 0 && len(msgs) > 0 {
		c.cursor.HasMoreHistory = false
	}
	if len(added) > 0 {
		v.emit(Event{Kind: EventPrepended, ChatID: c.chatID, Messages: added})
		v.archive(added)
	}
	v.log.Debugw("Loaded older messages", "chat_id", c.chatID, "fetched", len(msgs), "added", len(added), "has_more", c.cursor.HasMoreHistory)
	return added
}
