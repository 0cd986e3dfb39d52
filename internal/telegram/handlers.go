package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/water-reminder-bot/internal/domain"
)

func (r *Router) handleStart(msg *tgbotapi.Message) {
	out := tgbotapi.NewMessage(msg.Chat.ID, welcomeText(r.core.TriggerTimes()))
	out.ReplyToMessageID = msg.MessageID
	out.ReplyMarkup = mainMenuKeyboard(r.core.IsSubscribed(msg.Chat.ID))
	r.send(out)
}

func (r *Router) handleSubscribe(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !r.core.Subscribe(chatID) {
		r.reply(msg, alreadySubscribedText)
		return
	}
	out := tgbotapi.NewMessage(chatID, fmt.Sprintf(subscribedFmt, joinTimes(r.core.TriggerTimes())))
	out.ReplyToMessageID = msg.MessageID
	out.ReplyMarkup = mainMenuKeyboard(true)
	r.send(out)
}

func (r *Router) handleUnsubscribe(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !r.core.Unsubscribe(chatID) {
		r.reply(msg, notSubscribedText)
		return
	}
	out := tgbotapi.NewMessage(chatID, unsubscribedText)
	out.ReplyToMessageID = msg.MessageID
	out.ReplyMarkup = mainMenuKeyboard(false)
	r.send(out)
}

func (r *Router) handleStatus(msg *tgbotapi.Message) {
	if r.core.IsSubscribed(msg.Chat.ID) {
		r.reply(msg, statusOnText)
		return
	}
	r.reply(msg, statusOffText)
}

func (r *Router) handleNext(msg *tgbotapi.Message) {
	now := r.now()
	next, ok := r.core.NextReminder(now)
	if !ok {
		r.reply(msg, noScheduleText)
		return
	}
	h, m := domain.FormatUntil(next.Sub(now))
	r.reply(msg, fmt.Sprintf(nextFmt, h, m, next.Format("15:04")))
}

func (r *Router) handleTest(ctx context.Context, msg *tgbotapi.Message) {
	res, err := r.core.TestBroadcast(ctx)
	if err != nil {
		r.log.Error("test broadcast failed", zap.Error(err), zap.Int64("chatID", msg.Chat.ID))
		r.reply(msg, testFailedText)
		return
	}
	r.reply(msg, fmt.Sprintf(testDoneFmt, res.Succeeded, res.Failed))
}

// handlePing measures the send round trip and a getMe call, then edits
// the placeholder message with the results.
func (r *Router) handlePing(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	start := time.Now()
	sent, err := r.bot.Send(tgbotapi.NewMessage(chatID, pingWaitText))
	if err != nil {
		r.log.Warn("ping failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.reply(msg, fmt.Sprintf(pingFailedFmt, err))
		return
	}
	roundTrip := time.Since(start)

	apiStart := time.Now()
	if _, err := r.bot.GetMe(); err != nil {
		r.log.Warn("ping getMe failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.send(tgbotapi.NewEditMessageText(chatID, sent.MessageID, fmt.Sprintf(pingFailedFmt, err)))
		return
	}
	apiPing := time.Since(apiStart)

	r.send(tgbotapi.NewEditMessageText(chatID, sent.MessageID, pingText(ms(roundTrip), ms(apiPing))))
	r.log.Info("ping", zap.Int64("chatID", chatID), zap.Duration("rtt", roundTrip), zap.Duration("api", apiPing))
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

func (r *Router) handleConfirm(msg *tgbotapi.Message) {
	out := tgbotapi.NewMessage(msg.Chat.ID, confirmText)
	out.ReplyMarkup = confirmInlineKeyboard()
	r.send(out)
}

func (r *Router) handleConfirmCallback(cb *tgbotapi.CallbackQuery) {
	r.answerCallback(cb.ID, callbackAckText)

	choice := strings.TrimPrefix(cb.Data, "confirm:")
	text, ok := confirmResponses[choice]
	if !ok {
		text = "Неизвестный выбор"
	}
	if cb.Message == nil {
		return
	}
	r.send(tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID, text))
	r.log.Info("confirm choice", zap.Int64("userID", userID(cb.From)), zap.String("choice", choice))
}
