package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ykvlv/water-reminder-bot/internal/config"
	"github.com/ykvlv/water-reminder-bot/internal/dispatcher"
	"github.com/ykvlv/water-reminder-bot/internal/domain"
	"github.com/ykvlv/water-reminder-bot/internal/metrics"
	"github.com/ykvlv/water-reminder-bot/internal/registry"
	"github.com/ykvlv/water-reminder-bot/internal/reminder"
	"github.com/ykvlv/water-reminder-bot/internal/scheduler"
	"github.com/ykvlv/water-reminder-bot/internal/telegram"
)

const (
	Version        = "1.0.0"
	purpose        = "Напоминать о питье воды в течение дня"
	updatesTimeout = 30 // seconds, long polling
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	core    *reminder.Service
	router  *telegram.Router
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	cal, err := newCalendar(cfg, time.Now())
	if err != nil {
		return nil, err
	}

	// The client is shared with long polling, so its timeout has to outlive it.
	client := &http.Client{Timeout: updatesTimeout*time.Second + 15*time.Second}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	// Reminders go through their own client so a timed out send is aborted.
	sendBot := telegram.NewSendBot(bot, tgbotapi.APIEndpoint, cfg.SendTimeout)

	reg := registry.New()
	m := metrics.New(reg.Len)
	core := reminder.New(cal, reg, m.Sender(telegram.NewSender(sendBot)), log, reminder.Options{
		Dispatch: dispatcher.Options{
			SendTimeout: cfg.SendTimeout,
			RatePerSec:  cfg.SendRate,
			EvictAfter:  cfg.EvictAfter,
		},
		Schedule: scheduler.Options{
			Interval:  cfg.PollInterval,
			Tolerance: cfg.FireTolerance,
		},
		Wrap: m.Broadcaster,
	})
	router := telegram.NewRouter(bot, log.Named("telegram"), core, telegram.About{
		Version: Version,
		Author:  cfg.BotAuthor,
		Purpose: purpose,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      newHTTPHandler(m),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv, core: core, router: router}, nil
}

// newCalendar builds the trigger calendar, adding the transient test trigger
// when TEST_TRIGGER_DELAY is set.
func newCalendar(cfg config.Config, now time.Time) (*domain.Calendar, error) {
	var extra []domain.TriggerTime
	if tt, ok := cfg.TestTrigger(now); ok {
		extra = append(extra, tt)
	}
	return domain.NewCalendar(cfg.ReminderTimes, cfg.ReminderMessage, extra...)
}

func newHTTPHandler(m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", m.Handler())
	return mux
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting water-reminder-bot",
		zap.String("bot", a.bot.Self.UserName),
		zap.String("version", Version),
		zap.String("http", a.cfg.HTTPAddr),
		zap.Strings("times", a.core.ListTriggerTimes()),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.core.Run(ctx)
	})

	g.Go(func() error {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.log.Info("shutdown signal received")

		// Create a short-lived shutdown context and cancel it immediately after use.
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := a.httpSrv.Shutdown(shCtx)
		cancel()
		if err != nil {
			a.log.Warn("http server shutdown error", zap.Error(err))
		}
		return nil
	})

	g.Go(func() error {
		return a.pollUpdates(ctx)
	})

	return g.Wait()
}

// pollUpdates handles each update on its own goroutine so a long /test
// broadcast does not hold up other commands.
func (a *App) pollUpdates(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = updatesTimeout
	updCh := a.bot.GetUpdatesChan(u)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return nil

		case upd, ok := <-updCh:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						a.log.Error("panic in update handler", zap.Any("panic", r), zap.Int("update", upd.UpdateID))
					}
				}()
				a.router.HandleUpdate(ctx, upd)
			}()
		}
	}
}
