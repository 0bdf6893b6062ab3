package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nguyentranbao-ct/chat-client/internal/config"
	"github.com/nguyentranbao-ct/chat-client/internal/server"
)

func TestNewLogger(t *testing.T) {
	log, err := NewLogger(config.LogConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	assert.False(t, log.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Desugar().Core().Enabled(zapcore.WarnLevel))

	log, err = NewLogger(config.LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, log.Desugar().Core().Enabled(zapcore.DebugLevel))

	_, err = NewLogger(config.LogConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)
}

func TestOptions_GraphIsComplete(t *testing.T) {
	t.Setenv("SESSION_DATA_DIR", t.TempDir())
	conf, err := config.Load()
	require.NoError(t, err)

	err = fx.ValidateApp(
		Options(conf, zap.NewNop().Sugar()),
		fx.Invoke(server.StartServer),
	)
	assert.NoError(t, err)
}
