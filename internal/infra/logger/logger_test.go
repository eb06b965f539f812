package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNew_LevelIsApplied(t *testing.T) {
	l, err := New(Config{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestNew_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mailpulse.log")
	l, err := New(Config{Level: "info", Encoding: "json", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	l.Info("pixel served", zap.String("tracking_id", "abc"))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"pixel served"`)
	assert.Contains(t, string(data), `"tracking_id":"abc"`)
}

func TestL_FallsBackWithoutInit(t *testing.T) {
	assert.NotNil(t, L())
}

func TestNew_UnknownEncoding(t *testing.T) {
	_, err := New(Config{Encoding: "xml"})
	assert.Error(t, err)
}

func TestNew_DevelopmentDefaultsToDebug(t *testing.T) {
	l, err := New(Config{Development: true})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_FileEntriesCarryServiceName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svc.log")
	l, err := New(Config{Level: "debug", Encoding: "json", File: path})
	require.NoError(t, err)

	l.Debug("geo cache miss")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"service":"mailpulse"`)
}
