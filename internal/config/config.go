package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Server   ServerConfig   `envPrefix:"SERVER_"`
	ChatAPI  ChatAPIConfig  `envPrefix:"CHAT_API_"`
	Sync     SyncConfig     `envPrefix:"SYNC_"`
	Session  SessionConfig  `envPrefix:"SESSION_"`
	Database DatabaseConfig `envPrefix:"DATABASE_"`
	Log      LogConfig      `envPrefix:"LOG_"`
}

type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Host string `env:"HOST" envDefault:"127.0.0.1"`
}

func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type ChatAPIConfig struct {
	BaseURL string        `env:"BASE_URL" envDefault:"http://localhost:5000/api" validate:"required,url"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s" validate:"gt=0"`
	// RetryCount applies to idempotent GET requests only.
	RetryCount int `env:"RETRY_COUNT" envDefault:"0" validate:"gte=0,lte=10"`
}

type SyncConfig struct {
	PageSize          int           `env:"PAGE_SIZE" envDefault:"50" validate:"gt=0,lte=500"`
	PollInterval      time.Duration `env:"POLL_INTERVAL" envDefault:"3s" validate:"gt=0"`
	ScrollThreshold   int           `env:"SCROLL_THRESHOLD" envDefault:"50" validate:"gte=0"`
	RollbackOnFailure bool          `env:"ROLLBACK_ON_FAILURE" envDefault:"true"`
	NoticeBuffer      int           `env:"NOTICE_BUFFER" envDefault:"32" validate:"gt=0"`
}

type SessionConfig struct {
	// TokenFile overrides the default location under DataDir.
	TokenFile string `env:"TOKEN_FILE"`
	DataDir   string `env:"DATA_DIR"`
	// EncryptionKey is a base64 256-bit key. When set the token file is sealed.
	EncryptionKey string `env:"ENCRYPTION_KEY"`
}

// TokenPath resolves where the access token is persisted.
func (c SessionConfig) TokenPath() (string, error) {
	if c.TokenFile != "" {
		return c.TokenFile, nil
	}
	dir := c.DataDir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("resolve config dir: %w", err)
		}
		dir = filepath.Join(base, "chat-client")
	}
	return filepath.Join(dir, "token"), nil
}

type DatabaseConfig struct {
	Enabled  bool     `env:"ENABLED" envDefault:"false"`
	Hosts    []string `env:"HOSTS" envSeparator:"," envDefault:"localhost:27017"`
	Database string   `env:"DATABASE" envDefault:"chat_client"`
	Username string   `env:"USERNAME"`
	Password string   `env:"PASSWORD"`
	AuthDB   string   `env:"AUTH_DB" envDefault:"admin"`
	Direct   bool     `env:"DIRECT" envDefault:"false"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	Format string `env:"FORMAT" envDefault:"console" validate:"oneof=console json"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

const redacted = "[REDACTED]"

// Redacted returns a copy of c that is safe to log.
func (c Config) Redacted() Config {
	if c.Session.EncryptionKey != "" {
		c.Session.EncryptionKey = redacted
	}
	if c.Database.Password != "" {
		c.Database.Password = redacted
	}
	return c
}
