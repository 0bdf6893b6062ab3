package chatview

import (
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/nguyentranbao-ct/chat-client/pkg/util"
)

type NoticeKind string

const (
	NoticePagination NoticeKind = "pagination"
	NoticeSend       NoticeKind = "send"
	NoticeEdit       NoticeKind = "edit"
	NoticeDelete     NoticeKind = "delete"
)

// Notice is a user-visible failure report.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	ChatID  int64      `json:"chat_id"`
	Message string     `json:"message"`
	Time    time.Time  `json:"time"`
}

type Notifier interface {
	Notify(n Notice)
}

// NoticeBuffer keeps the most recent notices until they are drained.
type NoticeBuffer struct {
	log   *zap.SugaredLogger
	size  int
	total *prometheus.CounterVec

	mu      sync.Mutex
	pending []Notice
}

func NewNoticeBuffer(size int, log *zap.SugaredLogger) *NoticeBuffer {
	if size <= 0 {
		size = 1
	}
	total, err := util.GetCounterVec("chat_client_notices_total", "kind")
	if err != nil {
		log.Warnw("Notice counter disabled", "error", err)
	}
	return &NoticeBuffer{log: log, size: size, total: total}
}

func (b *NoticeBuffer) Notify(n Notice) {
	if n.Time.IsZero() {
		n.Time = time.Now()
	}
	b.log.Warnw("User notice", "kind", n.Kind, "chat_id", n.ChatID, "message", n.Message)
	if b.total != nil {
		b.total.WithLabelValues(string(n.Kind)).Inc()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == b.size {
		b.pending = b.pending[1:]
	}
	b.pending = append(b.pending, n)
}

// Drain returns pending notices oldest first and empties the buffer.
func (b *NoticeBuffer) Drain() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending
	b.pending = nil
	return out
}

// Peek returns a copy of the pending notices without removing them.
func (b *NoticeBuffer) Peek() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.pending)
}
