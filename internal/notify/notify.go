// Package notify delivers leave log lines to staff channels.
package notify

import (
	"context"
	"fmt"

	"loa-bot/internal/platform"
)

// ChannelNotifier posts log lines to a channel of the chat platform.
type ChannelNotifier struct {
	client    platform.Client
	channelID string
}

func NewChannelNotifier(client platform.Client, channelID string) *ChannelNotifier {
	return &ChannelNotifier{client: client, channelID: channelID}
}

func (n *ChannelNotifier) Notify(ctx context.Context, text string) error {
	if err := n.client.PostMessage(ctx, n.channelID, text); err != nil {
		return fmt.Errorf("post to log channel %s: %w", n.channelID, err)
	}
	return nil
}
