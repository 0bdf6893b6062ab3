package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nguyentranbao-ct/chat-client/internal/chatview"
	"github.com/nguyentranbao-ct/chat-client/internal/config"
	"github.com/nguyentranbao-ct/chat-client/internal/models"
	"github.com/nguyentranbao-ct/chat-client/internal/repo/chatapi"
	"github.com/nguyentranbao-ct/chat-client/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/chat-client/internal/server"
	"github.com/nguyentranbao-ct/chat-client/internal/session"
	"github.com/nguyentranbao-ct/chat-client/internal/usecase"
	"github.com/nguyentranbao-ct/chat-client/internal/usercache"
)

// Invoke builds the application from the environment and runs funcs once
// every dependency is wired.
func Invoke(funcs ...any) *fx.App {
	conf := config.MustLoad()
	log, err := NewLogger(conf.Log)
	if err != nil {
		panic(err)
	}
	log.Named("app").Debugw("config loaded", "config", conf.Redacted())
	return fx.New(
		Options(conf, log),
		fx.Invoke(funcs...),
	)
}

// Options is the full dependency graph for conf.
func Options(conf *config.Config, log *zap.SugaredLogger) fx.Option {
	return fx.Options(
		fx.WithLogger(func() fxevent.Logger {
			l := &fxevent.ZapLogger{
				Logger: log.Named("fx").Desugar(),
			}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		fx.Supply(conf, log),
		fx.Provide(
			newTokenStore,
			newChatAPIClient,
			newNoticeBuffer,
			newArchive,
			newChatView,

			usercache.New,

			usecase.NewAuthUsecase,
			usecase.NewDirectoryUsecase,

			server.NewHandler,
			server.NewAuthController,
			server.NewDirectoryController,
			server.NewViewController,
			server.NewRouter,

			func(v *chatview.View) usecase.ViewSession { return v },
			func(v *chatview.View) server.ChatView { return v },
			func(b *chatview.NoticeBuffer) server.NoticeSource { return b },
		),
		fx.Invoke(restoreSession),
	)
}

// restoreSession signs the stored session back in and warms the user cache
// from the chat list. Running signed out is not an error.
func restoreSession(lc fx.Lifecycle, directory usecase.DirectoryUsecase, log *zap.SugaredLogger) {
	log = log.Named("session")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			boot, err := directory.Bootstrap(ctx)
			switch {
			case errors.Is(err, models.ErrUnauthorized):
				log.Infow("No stored session, sign in to continue")
			case err != nil:
				log.Warnw("Failed to restore session", "error", err)
			default:
				log.Infow("Restored session", "user_id", boot.User.ID, "chats", len(boot.Chats))
			}
			return nil
		},
	})
}

func newChatAPIClient(conf *config.Config, tokens session.Store, log *zap.SugaredLogger) chatapi.Client {
	return chatapi.NewClient(conf, tokens, log.Named("chatapi"))
}

func newNoticeBuffer(conf *config.Config, log *zap.SugaredLogger) *chatview.NoticeBuffer {
	return chatview.NewNoticeBuffer(conf.Sync.NoticeBuffer, log.Named("notice"))
}

func newChatView(
	lc fx.Lifecycle,
	conf *config.Config,
	api chatapi.Client,
	notices *chatview.NoticeBuffer,
	archive mongodb.MessageArchive,
	log *zap.SugaredLogger,
) (*chatview.View, error) {
	view, err := chatview.New(api, notices, archive, chatview.OptionsFromConfig(conf.Sync), log.Named("chatview"))
	if err != nil {
		return nil, fmt.Errorf("init chat view: %w", err)
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			view.Start()
			return nil
		},
		OnStop: view.Stop,
	})
	return view, nil
}
