package telegram

import (
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func TestClient_SendText(t *testing.T) {
	sender := &fakeSender{}
	client := &Client{Bot: sender, ChatID: -100}

	require.NoError(t, client.SendText("hello"))
	require.Len(t, sender.sent, 1)

	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(-100), msg.ChatID)
	assert.Equal(t, "hello", msg.Text)
}

func TestClient_SendText_Error(t *testing.T) {
	client := &Client{Bot: &fakeSender{err: errors.New("forbidden")}, ChatID: 1}

	assert.EqualError(t, client.SendText("hello"), "forbidden")
}

func TestNewHTTPClient_Timeout(t *testing.T) {
	assert.Equal(t, 3*time.Second, newHTTPClient(3*time.Second).Timeout)
	assert.Equal(t, defaultRequestTimeout, newHTTPClient(0).Timeout)
}
