package telegram

import (
	"context"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ykvlv/water-reminder-bot/internal/registry"
)

// Sender sends reminders through the Bot API. It satisfies dispatcher.Sender.
type Sender struct {
	bot BotAPI
}

func NewSender(bot BotAPI) *Sender { return &Sender{bot: bot} }

// NewSendBot returns a client for reminder delivery that shares the identity
// of bot but aborts every request after timeout. The Bot API client is not
// context aware, so this keeps a send the dispatcher gave up on from being
// delivered later.
func NewSendBot(bot *tgbotapi.BotAPI, endpoint string, timeout time.Duration) *tgbotapi.BotAPI {
	sb := &tgbotapi.BotAPI{
		Token:  bot.Token,
		Buffer: bot.Buffer,
		Self:   bot.Self,
		Client: &http.Client{Timeout: timeout},
	}
	sb.SetAPIEndpoint(endpoint)
	return sb
}

// Send sends a plain text message to the given chat. ctx is only checked
// before the request; the HTTP client timeout bounds the call itself.
func (s *Sender) Send(ctx context.Context, chatID registry.ChatID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}
