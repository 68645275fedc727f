package notify

import (
	"context"
	"fmt"
	"strings"
)

// TextSender sends a plain text message to a fixed chat.
type TextSender interface {
	SendText(text string) error
}

// TelegramNotifier mirrors log lines into a Telegram chat.
type TelegramNotifier struct {
	sender TextSender
}

func NewTelegramNotifier(sender TextSender) *TelegramNotifier {
	return &TelegramNotifier{sender: sender}
}

// Notify strips Discord markdown emphasis and sends the line. The Bot API
// call takes no context, so ctx only bounds how long Notify waits for it.
func (n *TelegramNotifier) Notify(ctx context.Context, text string) error {
	done := make(chan error, 1)
	go func() {
		done <- n.sender.SendText(strings.ReplaceAll(text, "**", ""))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram mirror: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("telegram mirror: %w", ctx.Err())
	}
}
