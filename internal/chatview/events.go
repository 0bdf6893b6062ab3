package chatview

import "github.com/nguyentranbao-ct/chat-client/internal/models"

type EventKind string

const (
	EventReset     EventKind = "reset"
	EventLoaded    EventKind = "loaded"
	EventAppended  EventKind = "appended"
	EventPrepended EventKind = "prepended"
	EventEdited    EventKind = "edited"
	EventDeleted   EventKind = "deleted"
	// EventRestored puts back a message whose delete failed. It may land
	// anywhere in the list.
	EventRestored EventKind = "restored"
)

// Event describes one change applied to the active conversation.
type Event struct {
	Kind     EventKind
	ChatID   int64
	Messages []models.Message
}

// Subscribe returns a channel of view changes. Events are dropped for a
// subscriber whose buffer is full. The channel is closed by cancel or when
// the view stops.
func (v *View) Subscribe(buffer int) (<-chan Event, func(), error) {
	ch := make(chan Event, buffer)
	var id int
	err := v.do(v.ctx, func() {
		id = v.nextSubID
		v.nextSubID++
		v.subscribers[id] = ch
	})
	if err != nil {
		return nil, nil, err
	}
	cancel := func() {
		_ = v.do(v.ctx, func() {
			if _, ok := v.subscribers[id]; ok {
				delete(v.subscribers, id)
				close(ch)
			}
		})
	}
	return ch, cancel, nil
}

func (v *View) emit(e Event) {
	for _, ch := range v.subscribers {
		select {
		case ch <- e:
		default:
			v.log.Debugw("Dropped view event", "kind", e.Kind, "chat_id", e.ChatID)
		}
	}
}
