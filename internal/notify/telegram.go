package notify

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"styleswap/internal/telegram"
)

const (
	ChatDefault   = "default"
	ChatAffiliate = "affiliate"
	ChatFinance   = "finance"
)

// SendFunc delivers a MarkdownV2 message to a named operator chat.
type SendFunc func(msg string, chat string) error

func chatId(chat string) (int64, error) {
	env := "DEFAULT_CHAT_ID"
	switch chat {
	case ChatAffiliate:
		env = "AFFILIATE_CHAT_ID"
	case ChatFinance:
		env = "FINANCE_CHAT_ID"
	}
	raw := os.Getenv(env)
	if raw == "" && env != "DEFAULT_CHAT_ID" {
		raw = os.Getenv("DEFAULT_CHAT_ID")
	}
	if raw == "" {
		return 0, fmt.Errorf("%s is not set", env)
	}
	return strconv.ParseInt(raw, 10, 64)
}

// SendTelegramMessage posts msg to the operator chat configured for chat.
func SendTelegramMessage(msg string, chat string) error {
	token := os.Getenv("TELEGRAM_TOKEN")
	if token == "" {
		return errors.New("TELEGRAM_TOKEN is not set")
	}
	id, err := chatId(chat)
	if err != nil {
		return err
	}
	bot, err := telegram.NewBot(token)
	if err != nil {
		return err
	}
	return bot.SendMarkdown(id, msg)
}
