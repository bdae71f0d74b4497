package notify

import (
	"fmt"
	"log"
	"os"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier sends run summaries to a Telegram chat. It is optional: when the
// bot token or chat ID is not configured, NewNotifier returns (nil, nil) and
// callers skip notification.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewNotifier builds a Notifier from TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID.
func NewNotifier() (*Notifier, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	chatIDStr := os.Getenv("TELEGRAM_CHAT_ID")
	if token == "" || chatIDStr == "" {
		return nil, nil
	}

	chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", chatIDStr, err)
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &Notifier{bot: bot, chatID: chatID}, nil
}

// SendSummary posts the run summary message.
func (n *Notifier) SendSummary(summary string) error {
	if n == nil {
		return nil
	}

	msg := tgbotapi.NewMessage(n.chatID, summary)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	log.Println("Run summary sent to Telegram")
	return nil
}
