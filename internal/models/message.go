package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Message is a single chat message as served by the chat API.
// ID is assigned by the server and is the only ordering and identity key.
type Message struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id,omitempty"`
	AuthorID  int64     `json:"author_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// wireMessage accepts every shape the server has used for a message.
type wireMessage struct {
	ID       int64 `json:"id"`
	ChatID   int64 `json:"chat_id"`
	AuthorID int64 `json:"author_id"`
	Author   *struct {
		ID int64 `json:"id"`
	} `json:"author"`
	Content   *string `json:"content"`
	Message   *string `json:"message"`
	Text      *string `json:"text"`
	Timestamp string  `json:"timestamp"`
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	ts, err := ParseTimestamp(w.Timestamp)
	if err != nil {
		return fmt.Errorf("message %d: %w", w.ID, err)
	}

	authorID := w.AuthorID
	if authorID == 0 && w.Author != nil {
		authorID = w.Author.ID
	}

	*m = Message{
		ID:        w.ID,
		ChatID:    w.ChatID,
		AuthorID:  authorID,
		Content:   firstNonNil(w.Content, w.Message, w.Text),
		Timestamp: ts,
	}
	return nil
}

func firstNonNil(values ...*string) string {
	for _, v := range values {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"Mon, 02 Jan 2006 15:04:05 GMT",
}

// ParseTimestamp parses the server's timestamp formats. Naive timestamps
// are taken as UTC. An empty string yields the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// MessageIDs returns the ids of msgs in order.
func MessageIDs(msgs []Message) []int64 {
	ids := make([]int64, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	return ids
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}
