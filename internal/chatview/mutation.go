package chatview

import (
	"context"
	"strings"

	"github.com/nguyentranbao-ct/chat-client/internal/models"
)

// Send posts content to the active chat. Nothing is inserted until the
// server returns the created message, since its id is needed to
// deduplicate against polling.
func (v *View) Send(ctx context.Context, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	chatID, gen, err := v.active(ctx)
	if err != nil {
		return nil, err
	}

	msg, err := v.transport.SendMessage(ctx, chatID, content)
	if err != nil {
		v.log.Warnw("Failed to send message", "chat_id", chatID, "error", err)
		v.notify(NoticeSend, chatID, err)
		return nil, err
	}

	err = v.do(context.WithoutCancel(ctx), func() {
		c, ok := v.current(gen)
		if !ok {
			v.log.Debugw("Sent message after chat switch", "chat_id", chatID, "message_id", msg.ID)
			return
		}
		v.mergeNewer(c, []models.Message{*msg})
	})
	return msg, err
}

// Edit applies the new content locally right away and then updates it on
// the server. With rollback enabled a failed update restores the previous
// content unless the message changed again in the meantime.
func (v *View) Edit(ctx context.Context, messageID int64, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyContent
	}

	var (
		chatID   int64
		gen      uint64
		previous string
		found    bool
	)
	err := v.do(ctx, func() {
		c := v.conv
		if c == nil {
			return
		}
		chatID, gen = c.chatID, c.gen
		m, ok := c.store.Get(messageID)
		if !ok {
			v.log.Debugw("Edit of unknown message", "chat_id", chatID, "message_id", messageID)
			return
		}
		found = true
		previous = m.Content
		c.store.ApplyEdit(messageID, content)
		m.Content = content
		v.emit(Event{Kind: EventEdited, ChatID: chatID, Messages: []models.Message{m}})
	})
	switch {
	case err != nil:
		return err
	case chatID == 0:
		return ErrNoActiveChat
	case !found:
		return ErrMessageNotFound
	}

	updated, err := v.transport.EditMessage(ctx, messageID, content)
	if err != nil {
		v.log.Warnw("Failed to edit message", "chat_id", chatID, "message_id", messageID, "error", err)
		v.notify(NoticeEdit, chatID, err)
		if v.opts.RollbackOnFailure {
			v.rollbackEdit(ctx, gen, messageID, content, previous)
		}
		return err
	}

	_ = v.do(context.WithoutCancel(ctx), func() {
		c, ok := v.current(gen)
		if !ok {
			return
		}
		m, ok := c.store.Get(messageID)
		if !ok {
			return
		}
		// server content wins unless a later local edit replaced ours
		if updated != nil && updated.Content != content && m.Content == content {
			c.store.ApplyEdit(messageID, updated.Content)
			m.Content = updated.Content
			v.emit(Event{Kind: EventEdited, ChatID: c.chatID, Messages: []models.Message{m}})
		}
		v.archive([]models.Message{m})
	})
	return nil
}

func (v *View) rollbackEdit(ctx context.Context, gen uint64, messageID int64, optimistic, previous string) {
	_ = v.do(context.WithoutCancel(ctx), func() {
		c, ok := v.current(gen)
		if !ok {
			return
		}
		m, ok := c.store.Get(messageID)
		if !ok || m.Content != optimistic {
			return
		}
		c.store.ApplyEdit(messageID, previous)
		m.Content = previous
		v.emit(Event{Kind: EventEdited, ChatID: c.chatID, Messages: []models.Message{m}})
	})
}

// Delete removes the message locally right away and then on the server.
// With rollback enabled a failed delete puts the message back in place.
func (v *View) Delete(ctx context.Context, messageID int64) error {
	var (
		chatID  int64
		gen     uint64
		removed models.Message
		found   bool
	)
	err := v.do(ctx, func() {
		c := v.conv
		if c == nil {
			return
		}
		chatID, gen = c.chatID, c.gen
		removed, found = c.store.ApplyDelete(messageID)
		if found {
			v.emit(Event{Kind: EventDeleted, ChatID: chatID, Messages: []models.Message{removed}})
		}
	})
	switch {
	case err != nil:
		return err
	case chatID == 0:
		return ErrNoActiveChat
	case !found:
		return ErrMessageNotFound
	}

	if err := v.transport.DeleteMessage(ctx, messageID); err != nil {
		v.log.Warnw("Failed to delete message", "chat_id", chatID, "message_id", messageID, "error", err)
		v.notify(NoticeDelete, chatID, err)
		if v.opts.RollbackOnFailure {
			_ = v.do(context.WithoutCancel(ctx), func() {
				c, ok := v.current(gen)
				if ok && c.store.Restore(removed) {
					v.emit(Event{Kind: EventRestored, ChatID: c.chatID, Messages: []models.Message{removed}})
				}
			})
		}
		return err
	}

	_ = v.do(context.WithoutCancel(ctx), func() { v.forget(messageID) })
	return nil
}

// active returns the chat and generation of the current conversation.
func (v *View) active(ctx context.Context) (int64, uint64, error) {
	var (
		chatID int64
		gen    uint64
	)
	err := v.do(ctx, func() {
		if v.conv != nil {
			chatID, gen = v.conv.chatID, v.conv.gen
		}
	})
	if err != nil {
		return 0, 0, err
	}
	if chatID == 0 {
		return 0, 0, ErrNoActiveChat
	}
	return chatID, gen, nil
}
