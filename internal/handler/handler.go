package handler

import (
	"context"
	"strings"
	"time"

	"loa-bot/internal/config"
	"loa-bot/internal/platform"
	"loa-bot/internal/service"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// Message is a chat message as the handler sees it.
type Message struct {
	GuildID       string
	ChannelID     string
	AuthorID      string
	AuthorRoleIDs []string
	AuthorIsBot   bool
	Content       string
}

type Handler struct {
	client       platform.Client
	leaveService *service.LeaveService
	effects      *service.EffectApplier
	config       *config.BotConfig
	logger       *logrus.Logger
	now          func() time.Time
}

func NewHandler(
	client platform.Client,
	leaveService *service.LeaveService,
	effects *service.EffectApplier,
	cfg *config.BotConfig,
	logger *logrus.Logger,
) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		client:       client,
		leaveService: leaveService,
		effects:      effects,
		config:       cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// OnMessageCreate is registered with the discordgo session.
func (h *Handler) OnMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil {
		return
	}

	msg := Message{
		GuildID:     m.GuildID,
		ChannelID:   m.ChannelID,
		AuthorID:    m.Author.ID,
		AuthorIsBot: m.Author.Bot,
		Content:     m.Content,
	}
	if m.Member != nil {
		msg.AuthorRoleIDs = m.Member.Roles
	}

	h.HandleMessage(context.Background(), msg)
}

// HandleMessage dispatches prefixed commands sent in the configured guild.
func (h *Handler) HandleMessage(ctx context.Context, message Message) {
	if message.AuthorIsBot || message.GuildID != h.config.GuildID {
		return
	}
	if !strings.HasPrefix(message.Content, h.config.CommandPrefix) {
		return
	}

	command, args := nextField(strings.TrimPrefix(message.Content, h.config.CommandPrefix))
	if command == "" {
		return
	}

	h.logger.WithFields(logrus.Fields{
		"author_id": message.AuthorID,
		"command":   command,
	}).Info("Command received")

	h.handleCommand(ctx, message, strings.ToLower(command), args)
}

func (h *Handler) reply(ctx context.Context, message Message, text string) {
	callCtx, cancel := context.WithTimeout(ctx, h.config.PlatformTimeout)
	defer cancel()

	if err := h.client.PostMessage(callCtx, message.ChannelID, text); err != nil {
		h.logger.WithError(err).WithField("channel_id", message.ChannelID).Warn("Failed to send reply")
	}
}

func (h *Handler) replyEmbed(ctx context.Context, message Message, embed platform.Embed) {
	callCtx, cancel := context.WithTimeout(ctx, h.config.PlatformTimeout)
	defer cancel()

	if err := h.client.PostEmbed(callCtx, message.ChannelID, embed); err != nil {
		h.logger.WithError(err).WithField("channel_id", message.ChannelID).Warn("Failed to send embed")
	}
}

// nextField splits s into its first whitespace separated field and the
// trimmed remainder.
func nextField(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, isSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
