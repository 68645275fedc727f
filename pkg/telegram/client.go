package telegram

import (
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const defaultRequestTimeout = 10 * time.Second

// Sender is the part of tgbotapi.BotAPI the client uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Client struct {
	Bot    Sender
	ChatID int64
}

// NewClient connects to the Bot API and binds the client to chatID. Every
// API request is bounded by timeout.
func NewClient(token string, chatID int64, timeout time.Duration, debug bool) (*Client, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, newHTTPClient(timeout))
	if err != nil {
		return nil, err
	}

	bot.Debug = debug

	return &Client{
		Bot:    bot,
		ChatID: chatID,
	}, nil
}

// SendText posts text to the bound chat.
func (c *Client) SendText(text string) error {
	msg := tgbotapi.NewMessage(c.ChatID, text)
	_, err := c.Bot.Send(msg)
	return err
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &http.Client{Timeout: timeout}
}
