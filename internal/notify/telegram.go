package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"cargo_miniapp/pkg/logger"
)

// TelegramNotifier отправляет служебные сообщения пользователям через
// Telegram-бота. Дополняет push-канал: уведомление доходит и когда
// Mini-App закрыто.
type TelegramNotifier struct {
	bot *tgbotapi.BotAPI
	log logger.Logger
}

// New создает нотификатор. Пустой токен допустим: возвращается nil,
// вызывающий код обязан переживать отсутствие нотификатора.
func New(botToken string, log logger.Logger) (*TelegramNotifier, error) {
	if botToken == "" {
		log.Warn("Telegram bot token is not set, bot notifications disabled")
		return nil, nil
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}

	log.Info("Telegram bot connected", "username", bot.Self.UserName)

	return &TelegramNotifier{bot: bot, log: log}, nil
}

func (n *TelegramNotifier) SendOTP(ctx context.Context, chatID int64, code string) error {
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Ваш код подтверждения: %s\nНикому его не сообщайте.", code))
	_, err := n.bot.Send(msg)
	return err
}

func (n *TelegramNotifier) NotifyNewMessage(ctx context.Context, chatID int64, orderNumber int64, text string) error {
	preview := []rune(text)
	if len(preview) > 80 {
		preview = append(preview[:80], '…')
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Новое сообщение по заказу №%d:\n%s", orderNumber, string(preview)))
	_, err := n.bot.Send(msg)
	return err
}
