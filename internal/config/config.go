package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/ykvlv/water-reminder-bot/internal/domain"
)

const (
	maxPollInterval = 60 * time.Second
	maxTolerance    = 24 * time.Hour
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken  string `envconfig:"BOT_TOKEN" required:"true"`
	BotAuthor string `envconfig:"BOT_AUTHOR"` // shown in /about

	ReminderTimes    []string      `envconfig:"REMINDER_TIMES" default:"09:00,13:00,15:00,17:00,23:00"`
	ReminderMessage  string        `envconfig:"REMINDER_MESSAGE" default:"💧 Время пить воду! Не забудьте выпить стакан воды для поддержания водного баланса."`
	PollInterval     time.Duration `envconfig:"POLL_INTERVAL" default:"30s"`     // <= 60s
	FireTolerance    time.Duration `envconfig:"FIRE_TOLERANCE" default:"5m"`     // how late a trigger may fire, < 24h
	TestTriggerDelay time.Duration `envconfig:"TEST_TRIGGER_DELAY" default:"0s"` // >0 adds a one-off trigger at startup

	SendTimeout time.Duration `envconfig:"SEND_TIMEOUT" default:"10s"`
	SendRate    int           `envconfig:"SEND_RATE" default:"25"`  // messages per second, 0 = unlimited
	EvictAfter  int           `envconfig:"EVICT_AFTER" default:"1"` // consecutive failures, 0 = never evict

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`    // debug|info|warn|error
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"` // json|console
	LogFile     string `envconfig:"LOG_FILE"`                    // optional copy of the log, e.g. bot.log
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`   // healthz + metrics
}

// Load reads an optional dotenv file (ENV_FILE, default ".env") and then
// environment variables into Config. Variables already set in the
// environment win over the file.
func Load() (Config, error) {
	var cfg Config

	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, &domain.ConfigurationError{Field: "ENV_FILE", Err: err}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, &domain.ConfigurationError{Field: "environment", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks value ranges. Trigger times themselves are validated when
// the calendar is built.
func (c Config) Validate() error {
	var merr *multierror.Error
	if strings.TrimSpace(c.BotToken) == "" {
		merr = multierror.Append(merr, errors.New("BOT_TOKEN is empty"))
	}
	if strings.TrimSpace(c.ReminderMessage) == "" {
		merr = multierror.Append(merr, errors.New("REMINDER_MESSAGE is empty"))
	}
	if c.PollInterval <= 0 || c.PollInterval > maxPollInterval {
		merr = multierror.Append(merr, fmt.Errorf("POLL_INTERVAL must be in (0, %s], got %s", maxPollInterval, c.PollInterval))
	}
	if c.FireTolerance <= 0 || c.FireTolerance >= maxTolerance {
		merr = multierror.Append(merr, fmt.Errorf("FIRE_TOLERANCE must be in (0, %s), got %s", maxTolerance, c.FireTolerance))
	}
	if c.TestTriggerDelay < 0 {
		merr = multierror.Append(merr, fmt.Errorf("TEST_TRIGGER_DELAY must be >= 0, got %s", c.TestTriggerDelay))
	}
	if c.SendTimeout <= 0 {
		merr = multierror.Append(merr, fmt.Errorf("SEND_TIMEOUT must be > 0, got %s", c.SendTimeout))
	}
	if c.SendRate < 0 {
		merr = multierror.Append(merr, fmt.Errorf("SEND_RATE must be >= 0, got %d", c.SendRate))
	}
	if c.EvictAfter < 0 {
		merr = multierror.Append(merr, fmt.Errorf("EVICT_AFTER must be >= 0, got %d", c.EvictAfter))
	}
	switch c.LogEncoding {
	case "json", "console":
	default:
		merr = multierror.Append(merr, fmt.Errorf("LOG_ENCODING must be json or console, got %q", c.LogEncoding))
	}
	if err := merr.ErrorOrNil(); err != nil {
		return &domain.ConfigurationError{Field: "environment", Err: err}
	}
	return nil
}

// TestTrigger returns the transient trigger for TEST_TRIGGER_DELAY relative to now.
func (c Config) TestTrigger(now time.Time) (domain.TriggerTime, bool) {
	if c.TestTriggerDelay <= 0 {
		return domain.TriggerTime{}, false
	}
	tt := domain.TriggerAt(now.Add(c.TestTriggerDelay))
	tt.Transient = true
	return tt, true
}
