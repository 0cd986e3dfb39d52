package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykvlv/water-reminder-bot/internal/domain"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, map[string]string{"BOT_TOKEN": "123:abc"})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "13:00", "15:00", "17:00", "23:00"}, cfg.ReminderTimes)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.FireTolerance)
	assert.Equal(t, 10*time.Second, cfg.SendTimeout)
	assert.Equal(t, 1, cfg.EvictAfter)
	assert.Equal(t, 25, cfg.SendRate)
	assert.Contains(t, cfg.ReminderMessage, "пить воду")
	assert.Equal(t, "json", cfg.LogEncoding)
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, map[string]string{
		"BOT_TOKEN":      "123:abc",
		"REMINDER_TIMES": "08:30,20:15",
		"POLL_INTERVAL":  "15s",
		"EVICT_AFTER":    "0",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"08:30", "20:15"}, cfg.ReminderTimes)
	assert.Equal(t, 15*time.Second, cfg.PollInterval)
	assert.Zero(t, cfg.EvictAfter)
}

func TestLoad_MissingToken(t *testing.T) {
	setEnv(t, map[string]string{"BOT_TOKEN": ""})
	require.NoError(t, os.Unsetenv("BOT_TOKEN"))

	_, err := Load()
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "BOT_TOKEN")
}

func TestLoad_DotEnvFile(t *testing.T) {
	const key = "REMINDER_MESSAGE"
	require.NoError(t, os.Unsetenv(key))
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=hello from dotenv\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("BOT_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "hello from dotenv", cfg.ReminderMessage)
}

func TestValidate_AggregatesProblems(t *testing.T) {
	cfg := Config{
		ReminderMessage: " ",
		PollInterval:    2 * time.Minute,
		SendRate:        -1,
		EvictAfter:      -1,
		LogEncoding:     "xml",
	}
	err := cfg.Validate()
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	for _, want := range []string{"REMINDER_MESSAGE", "POLL_INTERVAL", "SEND_RATE", "EVICT_AFTER", "LOG_ENCODING"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidate_FireToleranceRange(t *testing.T) {
	base := Config{
		BotToken:        "123:abc",
		ReminderMessage: "water",
		PollInterval:    30 * time.Second,
		SendTimeout:     10 * time.Second,
		LogEncoding:     "json",
	}
	for tol, ok := range map[time.Duration]bool{
		0:               false,
		-time.Minute:    false,
		time.Second:     true,
		5 * time.Minute: true,
		24 * time.Hour:  false,
	} {
		cfg := base
		cfg.FireTolerance = tol
		err := cfg.Validate()
		if ok {
			assert.NoError(t, err, tol)
			continue
		}
		var cfgErr *domain.ConfigurationError
		require.ErrorAs(t, err, &cfgErr, tol)
		assert.Contains(t, err.Error(), "FIRE_TOLERANCE", tol)
	}
}

func TestTestTrigger(t *testing.T) {
	now := time.Date(2025, time.May, 5, 10, 0, 40, 0, time.UTC)

	_, ok := Config{}.TestTrigger(now)
	assert.False(t, ok)

	tt, ok := Config{TestTriggerDelay: 2 * time.Minute}.TestTrigger(now)
	require.True(t, ok)
	assert.Equal(t, domain.TriggerTime{Hour: 10, Minute: 2, Transient: true}, tt)
}
