package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_Levels(t *testing.T) {
	for level, enabled := range map[string]zap.AtomicLevel{
		"debug": zap.NewAtomicLevelAt(zap.DebugLevel),
		"warn":  zap.NewAtomicLevelAt(zap.WarnLevel),
		"bogus": zap.NewAtomicLevelAt(zap.ErrorLevel),
	} {
		log, err := New(level, "console", "")
		require.NoError(t, err)
		assert.Truef(t, log.Core().Enabled(enabled.Level()), "level %s", level)
		if enabled.Level() > zap.DebugLevel {
			assert.Falsef(t, log.Core().Enabled(enabled.Level()-1), "level %s", level)
		}
	}
}

func TestNew_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	log, err := New("info", "json", path)
	require.NoError(t, err)

	log.Info("reminder sent", zap.Int64("chatID", 42))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"chatID":42`)
	assert.Contains(t, string(data), `"ts"`)
}
