package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ykvlv/water-reminder-bot/internal/domain"
)

// UI texts in Russian
const (
	botTitle = "💧 Water Reminder Bot 💧"

	commandsText = "📋 Список команд:\n" +
		"/start, /help - начать работу\n" +
		"/about - информация о боте\n" +
		"/ping - проверка работы\n" +
		"/subscribe - подписаться на напоминания\n" +
		"/unsubscribe - отписаться\n" +
		"/status - статус подписки\n" +
		"/next - следующее напоминание\n" +
		"/schedule - расписание\n" +
		"/confirm - подтверждение действия\n" +
		"/test - тестовое напоминание\n" +
		"/hide - скрыть клавиатуру\n" +
		"/show - показать клавиатуру"

	alreadySubscribedText = "Вы уже подписаны на напоминания о воде!"
	subscribedFmt         = "Вы успешно подписались на напоминания о воде! Я буду напоминать вам в %s."
	unsubscribedText      = "Вы отписались от напоминаний о воде."
	notSubscribedText     = "Вы не были подписаны на напоминания."
	statusOnText          = "Вы подписаны на напоминания о воде."
	statusOffText         = "Вы не подписаны на напоминания о воде. Используйте /subscribe для подписки."
	nextFmt               = "Следующее напоминание через %dч %dм в %s"
	noScheduleText        = "Расписание напоминаний пусто."
	testDoneFmt           = "Тестовое напоминание отправлено всем подписанным пользователям: %d успешно, %d с ошибками."
	testFailedText        = "Не удалось отправить тестовое напоминание."
	confirmText           = "Подтвердите ваше действие:"
	hiddenText            = "Клавиатура скрыта. Используйте /show чтобы вернуть."
	shownText             = "Клавиатура активна:"
	pingWaitText          = "⏳ Измеряем пинг..."
	pingFailedFmt         = "Ошибка измерения пинга: %v"
	unknownText           = "Не понимаю ваше сообщение. Используйте /help для просмотра доступных команд."
	callbackAckText       = "Принято!"
)

var confirmResponses = map[string]string{
	"yes":    "Действие подтверждено!",
	"no":     "Действие отменено.",
	"later":  "Хорошо, напомню позже.",
	"unsure": "Вернемся к этому позже.",
}

// About describes the bot for /about.
type About struct {
	Version string
	Author  string
	Purpose string
}

func welcomeText(times []domain.TriggerTime) string {
	var b strings.Builder
	b.WriteString(botTitle + "\n\n")
	b.WriteString("Я буду напоминать вам пить воду в оптимальное время:\n")
	for _, tt := range times {
		if tt.Transient {
			continue
		}
		b.WriteString("• " + tt.String() + "\n")
	}
	b.WriteString("\n" + commandsText)
	return b.String()
}

func aboutText(a About) string {
	var b strings.Builder
	b.WriteString("Информация о боте:\n\n")
	if a.Author != "" {
		b.WriteString("Автор: " + a.Author + "\n")
	}
	b.WriteString("Версия: " + a.Version + "\n")
	b.WriteString("Назначение: " + a.Purpose + "\n\n")
	b.WriteString("Этот бот помогает поддерживать водный баланс, напоминая пить воду в течение дня.")
	return b.String()
}

func scheduleText(times []domain.TriggerTime, subscribers int) string {
	var b strings.Builder
	b.WriteString("📅 Расписание напоминаний:\n\n")
	for _, tt := range times {
		if tt.Transient {
			b.WriteString("• " + tt.String() + " (тестовое)\n")
			continue
		}
		b.WriteString("• " + tt.String() + "\n")
	}
	fmt.Fprintf(&b, "\nВсего подписанных пользователей: %d", subscribers)
	return b.String()
}

func pingText(roundTripMs, apiMs float64) string {
	quality := "Плохое"
	switch {
	case roundTripMs < 200:
		quality = "Отличное"
	case roundTripMs < 500:
		quality = "Хорошее"
	case roundTripMs < 1000:
		quality = "Среднее"
	}
	return fmt.Sprintf("Результаты пинга:\n\n"+
		"Полное время ответа: %.2f мс\n"+
		"Пинг до API Telegram: %.2f мс\n\n"+
		"Качество соединения: %s", roundTripMs, apiMs, quality)
}

// joinTimes renders "09:00, 13:00 и 23:00" for the subscribe reply.
func joinTimes(times []domain.TriggerTime) string {
	var parts []string
	for _, tt := range times {
		if !tt.Transient {
			parts = append(parts, tt.String())
		}
	}
	switch len(parts) {
	case 0:
		return "назначенное время"
	case 1:
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " и " + parts[len(parts)-1]
}

// mainMenuKeyboard builds the reply keyboard; the toggle button is
// "/unsubscribe" for subscribed chats and "/subscribe" otherwise.
func mainMenuKeyboard(subscribed bool) tgbotapi.ReplyKeyboardMarkup {
	toggle := "/subscribe"
	if subscribed {
		toggle = "/unsubscribe"
	}
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/status"),
			tgbotapi.NewKeyboardButton("/next"),
			tgbotapi.NewKeyboardButton("/schedule"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(toggle),
			tgbotapi.NewKeyboardButton("/about"),
			tgbotapi.NewKeyboardButton("/ping"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/help"),
			tgbotapi.NewKeyboardButton("/confirm"),
			tgbotapi.NewKeyboardButton("/hide"),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func confirmInlineKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Да", "confirm:yes"),
			tgbotapi.NewInlineKeyboardButtonData("Нет", "confirm:no"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Позже", "confirm:later"),
			tgbotapi.NewInlineKeyboardButtonData("Не уверен", "confirm:unsure"),
		),
	)
}
