package chatview

import (
	"context"
	"time"

	"github.com/nguyentranbao-ct/chat-client/internal/models"
	"github.com/nguyentranbao-ct/chat-client/internal/repo/chatapi"
	"github.com/nguyentranbao-ct/chat-client/pkg/util"
	"github.com/prometheus/client_golang/prometheus"
)

// instrumentedTransport records the latency of every transport call.
type instrumentedTransport struct {
	next     chatapi.MessageTransport
	duration *prometheus.HistogramVec
}

func instrument(next chatapi.MessageTransport) (chatapi.MessageTransport, error) {
	hist, err := util.GetHistogramVec("chat_client_transport_duration_seconds", "op", "status")
	if err != nil {
		return nil, err
	}
	return &instrumentedTransport{next: next, duration: hist}, nil
}

func (t *instrumentedTransport) observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	t.duration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}

func (t *instrumentedTransport) FetchRecent(ctx context.Context, chatID int64, limit int) (_ []models.Message, err error) {
	defer func(start time.Time) { t.observe("fetch_recent", start, err) }(time.Now())
	return t.next.FetchRecent(ctx, chatID, limit)
}

func (t *instrumentedTransport) FetchNewer(ctx context.Context, chatID, afterID int64) (_ []models.Message, err error) {
	defer func(start time.Time) { t.observe("fetch_newer", start, err) }(time.Now())
	return t.next.FetchNewer(ctx, chatID, afterID)
}

func (t *instrumentedTransport) FetchOlder(ctx context.Context, chatID, beforeID int64, limit int) (_ []models.Message, err error) {
	defer func(start time.Time) { t.observe("fetch_older", start, err) }(time.Now())
	return t.next.FetchOlder(ctx, chatID, beforeID, limit)
}

func (t *instrumentedTransport) SendMessage(ctx context.Context, chatID int64, content string) (_ *models.Message, err error) {
	defer func(start time.Time) { t.observe("send", start, err) }(time.Now())
	return t.next.SendMessage(ctx, chatID, content)
}

func (t *instrumentedTransport) EditMessage(ctx context.Context, messageID int64, content string) (_ *models.Message, err error) {
	defer func(start time.Time) { t.observe("edit", start, err) }(time.Now())
	return t.next.EditMessage(ctx, messageID, content)
}

func (t *instrumentedTransport) DeleteMessage(ctx context.Context, messageID int64) (err error) {
	defer func(start time.Time) { t.observe("delete", start, err) }(time.Now())
	return t.next.DeleteMessage(ctx, messageID)
}
