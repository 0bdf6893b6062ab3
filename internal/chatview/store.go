package chatview

import (
	"slices"

	"github.com/nguyentranbao-ct/chat-client/internal/models"
)

// Store is the ordered message list of one conversation. Messages are kept
// sorted ascending by id with no duplicates after every operation.
// Store is not safe for concurrent use; the view mutates it from its loop.
type Store struct {
	msgs []models.Message
	ids  map[int64]struct{}
}

func NewStore() *Store {
	return &Store{ids: make(map[int64]struct{})}
}

// ReplaceAll discards the current contents. Duplicate ids in msgs keep the
// first occurrence.
func (s *Store) ReplaceAll(msgs []models.Message) {
	s.msgs = make([]models.Message, 0, len(msgs))
	s.ids = make(map[int64]struct{}, len(msgs))
	for _, m := range msgs {
		if _, ok := s.ids[m.ID]; ok {
			continue
		}
		s.ids[m.ID] = struct{}{}
		s.msgs = append(s.msgs, m)
	}
	slices.SortStableFunc(s.msgs, byID)
}

// MergeNewer adds messages whose id is not present and returns them in the
// order they were added. New messages normally land at the tail; one that
// sorts before the current tail is inserted at its id position.
func (s *Store) MergeNewer(msgs []models.Message) []models.Message {
	var added []models.Message
	for _, m := range msgs {
		if _, ok := s.ids[m.ID]; ok {
			continue
		}
		s.ids[m.ID] = struct{}{}
		if n := len(s.msgs); n == 0 || s.msgs[n-1].ID < m.ID {
			s.msgs = append(s.msgs, m)
		} else {
			s.insert(m)
		}
		added = append(added, m)
	}
	return added
}

// PrependOlder drops ids already present and places the rest in front.
func (s *Store) PrependOlder(msgs []models.Message) []models.Message {
	fresh := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := s.ids[m.ID]; ok {
			continue
		}
		s.ids[m.ID] = struct{}{}
		fresh = append(fresh, m)
	}
	if len(fresh) == 0 {
		return nil
	}

	sorted := slices.IsSortedFunc(fresh, byID)
	if sorted && (len(s.msgs) == 0 || fresh[len(fresh)-1].ID < s.msgs[0].ID) {
		s.msgs = append(slices.Clone(fresh), s.msgs...)
		return fresh
	}
	// overlapping page: fall back to ordered insertion
	for _, m := range fresh {
		s.insert(m)
	}
	return fresh
}

// ApplyEdit replaces the content of message id in place.
func (s *Store) ApplyEdit(id int64, content string) bool {
	i, ok := s.index(id)
	if !ok {
		return false
	}
	s.msgs[i].Content = content
	return true
}

// ApplyDelete removes message id and returns it.
func (s *Store) ApplyDelete(id int64) (models.Message, bool) {
	i, ok := s.index(id)
	if !ok {
		return models.Message{}, false
	}
	m := s.msgs[i]
	s.msgs = slices.Delete(s.msgs, i, i+1)
	delete(s.ids, id)
	return m, true
}

// Restore puts back a message removed earlier. It is a no-op when the id is
// present again.
func (s *Store) Restore(m models.Message) bool {
	if _, ok := s.ids[m.ID]; ok {
		return false
	}
	s.ids[m.ID] = struct{}{}
	s.insert(m)
	return true
}

func (s *Store) Get(id int64) (models.Message, bool) {
	i, ok := s.index(id)
	if !ok {
		return models.Message{}, false
	}
	return s.msgs[i], true
}

func (s *Store) Len() int {
	return len(s.msgs)
}

// Oldest returns the first message, which bounds the next history page.
func (s *Store) Oldest() (models.Message, bool) {
	if len(s.msgs) == 0 {
		return models.Message{}, false
	}
	return s.msgs[0], true
}

// MaxID returns the highest id present, or 0 when empty.
func (s *Store) MaxID() int64 {
	if len(s.msgs) == 0 {
		return 0
	}
	return s.msgs[len(s.msgs)-1].ID
}

// Messages returns a copy of the ordered list.
func (s *Store) Messages() []models.Message {
	return slices.Clone(s.msgs)
}

func (s *Store) index(id int64) (int, bool) {
	if _, ok := s.ids[id]; !ok {
		return 0, false
	}
	return slices.BinarySearchFunc(s.msgs, id, func(m models.Message, id int64) int {
		switch {
		case m.ID < id:
			return -1
		case m.ID > id:
			return 1
		}
		return 0
	})
}

func (s *Store) insert(m models.Message) {
	i, _ := slices.BinarySearchFunc(s.msgs, m, byID)
	s.msgs = slices.Insert(s.msgs, i, m)
}

func byID(a, b models.Message) int {
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

// Cursor is the per-conversation paging state.
type Cursor struct {
	LastSeenID      int64
	HasMoreHistory  bool
	FetchingHistory bool
}

func NewCursor() Cursor {
	return Cursor{HasMoreHistory: true}
}

// Advance moves LastSeenID forward; it never moves back.
func (c *Cursor) Advance(id int64) {
	if id > c.LastSeenID {
		c.LastSeenID = id
	}
}
