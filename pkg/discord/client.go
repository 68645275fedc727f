package discord

import (
	"github.com/bwmarrin/discordgo"
)

// NewSession creates a bot session with the gateway intents the LOA bot
// needs: guild messages, their content, and guild members.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	return session, nil
}
