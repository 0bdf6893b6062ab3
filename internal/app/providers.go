package app

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nguyentranbao-ct/chat-client/internal/config"
	"github.com/nguyentranbao-ct/chat-client/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/chat-client/internal/session"
)

func newTokenStore(conf *config.Config, log *zap.SugaredLogger) (session.Store, error) {
	path, err := conf.Session.TokenPath()
	if err != nil {
		return nil, err
	}
	return session.NewFileStore(path, conf.Session.EncryptionKey, log.Named("session"))
}

// newArchive connects the local message archive, or returns a no-op
// archive when the database is disabled.
func newArchive(lc fx.Lifecycle, conf *config.Config, log *zap.SugaredLogger) (mongodb.MessageArchive, error) {
	if !conf.Database.Enabled {
		return mongodb.NewDisabledArchive(), nil
	}

	db, err := mongodb.NewConnection(context.Background(), conf.Database)
	if err != nil {
		return nil, err
	}
	archive := mongodb.NewMessageArchive(db)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := db.Ping(ctx); err != nil {
				return err
			}
			if err := archive.EnsureIndexes(ctx); err != nil {
				return fmt.Errorf("ensure archive indexes: %w", err)
			}
			log.Named("archive").Infow("Message archive ready", "database", conf.Database.Database)
			return nil
		},
		OnStop: db.Close,
	})
	return archive, nil
}
