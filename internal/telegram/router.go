package telegram

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/water-reminder-bot/internal/dispatcher"
	"github.com/ykvlv/water-reminder-bot/internal/domain"
	"github.com/ykvlv/water-reminder-bot/internal/registry"
)

// BotAPI is the subset of *tgbotapi.BotAPI the router uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetMe() (tgbotapi.User, error)
}

// Core is the reminder engine as seen by the command surface.
// reminder.Service implements it.
type Core interface {
	Subscribe(id registry.ChatID) bool
	Unsubscribe(id registry.ChatID) bool
	IsSubscribed(id registry.ChatID) bool
	SubscriberCount() int
	NextReminder(now time.Time) (time.Time, bool)
	TriggerTimes() []domain.TriggerTime
	TestBroadcast(ctx context.Context) (dispatcher.BatchResult, error)
}

// Router wires Telegram updates to handlers.
type Router struct {
	bot   BotAPI
	log   *zap.Logger
	core  Core
	about About
	now   func() time.Time
}

// NewRouter creates a new Telegram router.
func NewRouter(bot BotAPI, log *zap.Logger, core Core, about About) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		bot:   bot,
		log:   log,
		core:  core,
		about: about,
		now:   time.Now,
	}
}

// HandleUpdate routes a single update to appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	// Text messages
	if upd.Message != nil {
		msg := upd.Message
		cmd, ok := parseCommand(msg.Text)
		if !ok {
			r.reply(msg, unknownText)
			return
		}
		r.log.Debug("command", zap.String("cmd", cmd), zap.Int64("chatID", msg.Chat.ID), zap.Int64("userID", userID(msg.From)))

		switch cmd {
		case "start", "help":
			r.handleStart(msg)
		case "about":
			r.reply(msg, aboutText(r.about))
		case "ping":
			r.handlePing(msg)
		case "subscribe":
			r.handleSubscribe(msg)
		case "unsubscribe":
			r.handleUnsubscribe(msg)
		case "status":
			r.handleStatus(msg)
		case "next":
			r.handleNext(msg)
		case "schedule":
			r.reply(msg, scheduleText(r.core.TriggerTimes(), r.core.SubscriberCount()))
		case "test":
			r.handleTest(ctx, msg)
		case "confirm":
			r.handleConfirm(msg)
		case "hide":
			out := tgbotapi.NewMessage(msg.Chat.ID, hiddenText)
			out.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
			r.send(out)
		case "show":
			out := tgbotapi.NewMessage(msg.Chat.ID, shownText)
			out.ReplyMarkup = mainMenuKeyboard(r.core.IsSubscribed(msg.Chat.ID))
			r.send(out)
		default:
			r.reply(msg, unknownText)
		}
		return
	}

	// Callback queries (inline buttons)
	if upd.CallbackQuery != nil {
		cb := upd.CallbackQuery
		switch {
		case strings.HasPrefix(cb.Data, "confirm:"):
			r.handleConfirmCallback(cb)
		default:
			// Unknown callback: acknowledge so the client stops spinning
			r.answerCallback(cb.ID, "")
		}
	}
}

// parseCommand extracts "cmd" from "/cmd", "/cmd@bot" or "/cmd args".
func parseCommand(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	cmd := strings.Fields(text)[0][1:]
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	if cmd == "" {
		return "", false
	}
	return strings.ToLower(cmd), true
}

func userID(u *tgbotapi.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}

func (r *Router) send(c tgbotapi.Chattable) (tgbotapi.Message, bool) {
	m, err := r.bot.Send(c)
	if err != nil {
		r.log.Warn("telegram send failed", zap.Error(err))
		return m, false
	}
	return m, true
}

func (r *Router) reply(msg *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyToMessageID = msg.MessageID
	r.send(out)
}

func (r *Router) answerCallback(id, text string) {
	if _, err := r.bot.Request(tgbotapi.NewCallback(id, text)); err != nil {
		r.log.Warn("answer callback failed", zap.Error(err))
	}
}
