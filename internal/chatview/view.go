package chatview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nguyentranbao-ct/chat-client/internal/config"
	"github.com/nguyentranbao-ct/chat-client/internal/models"
	"github.com/nguyentranbao-ct/chat-client/internal/repo/chatapi"
	"go.uber.org/zap"
)

var (
	ErrNoActiveChat    = errors.New("no active chat")
	ErrEmptyContent    = errors.New("message content is empty")
	ErrMessageNotFound = errors.New("message not found in view")
	ErrClosed          = errors.New("chat view is closed")
)

type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseLive    Phase = "live"
)

type Options struct {
	PageSize          int
	PollInterval      time.Duration
	ScrollThreshold   int
	RollbackOnFailure bool
}

func OptionsFromConfig(cfg config.SyncConfig) Options {
	return Options{
		PageSize:          cfg.PageSize,
		PollInterval:      cfg.PollInterval,
		ScrollThreshold:   cfg.ScrollThreshold,
		RollbackOnFailure: cfg.RollbackOnFailure,
	}
}

// Archiver receives messages merged into the view and ids removed from it.
// Calls are made off the event loop and their errors only get logged.
type Archiver interface {
	Archive(ctx context.Context, msgs []models.Message) error
	Forget(ctx context.Context, messageID int64) error
}

// conversation is the state bound to one activation of a chat. It is only
// touched from the event loop.
type conversation struct {
	chatID     int64
	gen        uint64
	store      *Store
	cursor     Cursor
	phase      Phase
	loadFailed bool
	stopPoll   context.CancelFunc
}

// View is the chat view for the currently selected conversation. All state
// changes run on a single event loop goroutine; network calls run outside
// it and post their results back.
type View struct {
	transport chatapi.MessageTransport
	notifier  Notifier
	archiver  Archiver
	log       *zap.SugaredLogger
	opts      Options

	events chan func()
	quit   chan struct{}
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once

	// loop owned
	conv          *conversation
	gen           uint64
	currentUserID int64
	subscribers   map[int]chan Event
	nextSubID     int
}

func New(transport chatapi.MessageTransport, notifier Notifier, archiver Archiver, opts Options, log *zap.SugaredLogger) (*View, error) {
	if opts.PageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", opts.PageSize)
	}
	if opts.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", opts.PollInterval)
	}
	t, err := instrument(transport)
	if err != nil {
		return nil, fmt.Errorf("register transport metrics: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &View{
		transport:   t,
		notifier:    notifier,
		archiver:    archiver,
		log:         log,
		opts:        opts,
		events:      make(chan func()),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
		subscribers: make(map[int]chan Event),
	}, nil
}

func (v *View) Start() {
	v.startOnce.Do(func() {
		go v.run()
	})
}

// Stop tears down the active conversation, ends the loop and waits for
// background fetches to return.
func (v *View) Stop(ctx context.Context) error {
	var err error
	v.stopOnce.Do(func() {
		v.Start()
		_ = v.do(ctx, v.teardown)
		v.cancel()
		close(v.quit)
		<-v.done

		waited := make(chan struct{})
		go func() {
			v.wg.Wait()
			close(waited)
		}()
		select {
		case <-waited:
		case <-ctx.Done():
			err = ctx.Err()
		}
	})
	return err
}

func (v *View) run() {
	defer close(v.done)
	for {
		select {
		case fn := <-v.events:
			fn()
		case <-v.quit:
			for _, ch := range v.subscribers {
				close(ch)
			}
			v.subscribers = nil
			return
		}
	}
}

// do runs fn on the event loop and waits for it to finish.
func (v *View) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case v.events <- func() { fn(); close(finished) }:
	case <-v.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// spawn runs fn in a tracked background goroutine. It is called on the
// event loop, or from a goroutine spawn already tracks, so that Stop only
// waits once the loop has exited and no new work can be added.
func (v *View) spawn(fn func()) {
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		fn()
	}()
}

// current returns the active conversation if it is still generation gen.
func (v *View) current(gen uint64) (*conversation, bool) {
	if v.conv == nil || v.conv.gen != gen {
		return nil, false
	}
	return v.conv, true
}

// SetCurrentUser sets the user whose messages are flagged as own.
func (v *View) SetCurrentUser(ctx context.Context, userID int64) error {
	return v.do(ctx, func() { v.currentUserID = userID })
}

// Activate switches the view to chatID. The previous conversation is torn
// down and the new one starts empty with a fresh cursor before its initial
// load is issued. Activating the chat that is already active does nothing.
func (v *View) Activate(ctx context.Context, chatID int64) error {
	if chatID <= 0 {
		return ErrNoActiveChat
	}

	return v.do(ctx, func() {
		if v.conv != nil && v.conv.chatID == chatID {
			return
		}
		v.teardown()

		v.gen++
		gen := v.gen
		var pollCtx context.Context
		pollCtx, v.conv = v.newConversation(chatID, gen)
		v.emit(Event{Kind: EventReset, ChatID: chatID})
		v.log.Infow("Activated chat", "chat_id", chatID)
		v.spawn(func() { v.runConversation(pollCtx, chatID, gen) })
	})
}

func (v *View) newConversation(chatID int64, gen uint64) (context.Context, *conversation) {
	pollCtx, stop := context.WithCancel(v.ctx)
	return pollCtx, &conversation{
		chatID:   chatID,
		gen:      gen,
		store:    NewStore(),
		cursor:   NewCursor(),
		phase:    PhaseLoading,
		stopPoll: stop,
	}
}

// Deactivate tears down the active conversation, if any.
func (v *View) Deactivate(ctx context.Context) error {
	return v.do(ctx, v.teardown)
}

// teardown runs on the loop. In-flight calls of the old conversation are
// not aborted; their results fail the generation check.
func (v *View) teardown() {
	if v.conv == nil {
		return
	}
	v.conv.stopPoll()
	v.log.Infow("Deactivated chat", "chat_id", v.conv.chatID)
	v.conv = nil
}

type MessageView struct {
	ID         int64     `json:"id"`
	AuthorID   int64     `json:"author_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Own        bool      `json:"own"`
}

type Snapshot struct {
	Active          bool          `json:"active"`
	ChatID          int64         `json:"chat_id,omitempty"`
	Phase           Phase         `json:"phase,omitempty"`
	LoadFailed      bool          `json:"load_failed"`
	LastSeenID      int64         `json:"last_seen_id"`
	HasMoreHistory  bool          `json:"has_more_history"`
	FetchingHistory bool          `json:"fetching_history"`
	Messages        []MessageView `json:"messages"`
}

func (v *View) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := v.do(ctx, func() {
		snap = Snapshot{Messages: []MessageView{}}
		c := v.conv
		if c == nil {
			return
		}
		snap.Active = true
		snap.ChatID = c.chatID
		snap.Phase = c.phase
		snap.LoadFailed = c.loadFailed
		snap.LastSeenID = c.cursor.LastSeenID
		snap.HasMoreHistory = c.cursor.HasMoreHistory
		snap.FetchingHistory = c.cursor.FetchingHistory
		for _, m := range c.store.Messages() {
			snap.Messages = append(snap.Messages, MessageView{
				ID:        m.ID,
				AuthorID:  m.AuthorID,
				Content:   m.Content,
				Timestamp: m.Timestamp,
				Own:       v.currentUserID != 0 && m.AuthorID == v.currentUserID,
			})
		}
	})
	return snap, err
}

// archive hands msgs to the archiver without holding up the loop.
func (v *View) archive(msgs []models.Message) {
	if v.archiver == nil || len(msgs) == 0 {
		return
	}
	v.spawn(func() {
		if err := v.archiver.Archive(v.ctx, msgs); err != nil {
			v.log.Warnw("Failed to archive messages", "count", len(msgs), "error", err)
		}
	})
}

func (v *View) forget(messageID int64) {
	if v.archiver == nil {
		return
	}
	v.spawn(func() {
		if err := v.archiver.Forget(v.ctx, messageID); err != nil {
			v.log.Warnw("Failed to forget archived message", "message_id", messageID, "error", err)
		}
	})
}

func (v *View) notify(kind NoticeKind, chatID int64, err error) {
	if v.notifier == nil {
		return
	}
	v.notifier.Notify(Notice{Kind: kind, ChatID: chatID, Message: err.Error(), Time: time.Now()})
}
