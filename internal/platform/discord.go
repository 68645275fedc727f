package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// Discord implements Client over a discordgo session.
type Discord struct {
	session      *discordgo.Session
	guildID      string
	markerRoleID string
}

func NewDiscord(session *discordgo.Session, guildID, markerRoleID string) *Discord {
	return &Discord{
		session:      session,
		guildID:      guildID,
		markerRoleID: markerRoleID,
	}
}

func (d *Discord) LookupMember(ctx context.Context, subjectID string) (*Member, error) {
	m, err := d.session.GuildMember(d.guildID, subjectID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classifyError(err)
	}
	return toMember(m), nil
}

func (d *Discord) GrantMarker(ctx context.Context, subjectID string) error {
	err := d.session.GuildMemberRoleAdd(d.guildID, subjectID, d.markerRoleID, discordgo.WithContext(ctx))
	return classifyError(err)
}

func (d *Discord) RevokeMarker(ctx context.Context, subjectID string) error {
	err := d.session.GuildMemberRoleRemove(d.guildID, subjectID, d.markerRoleID, discordgo.WithContext(ctx))
	return classifyError(err)
}

func (d *Discord) HasMarker(ctx context.Context, subjectID string) (bool, error) {
	member, err := d.LookupMember(ctx, subjectID)
	if err != nil {
		return false, err
	}
	return member.HasRole(d.markerRoleID), nil
}

func (d *Discord) PostMessage(ctx context.Context, channelID, content string) error {
	_, err := d.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return classifyError(err)
}

func (d *Discord) PostEmbed(ctx context.Context, channelID string, embed Embed) error {
	_, err := d.session.ChannelMessageSendEmbed(channelID, toMessageEmbed(embed), discordgo.WithContext(ctx))
	return classifyError(err)
}

func toMember(m *discordgo.Member) *Member {
	member := &Member{RoleIDs: m.Roles, DisplayName: m.Nick}
	if m.User != nil {
		member.ID = m.User.ID
		if member.DisplayName == "" {
			member.DisplayName = m.User.Username
		}
	}
	return member
}

func toMessageEmbed(embed Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title: embed.Title,
		Color: embed.Color,
	}
	for _, f := range embed.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	if embed.Footer != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: embed.Footer}
	}
	return out
}

// classifyError maps Discord REST failures onto the package sentinels.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}

	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
			return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
		case discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser:
			return fmt.Errorf("%w: %w", ErrMemberNotFound, err)
		}
	}

	if restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusForbidden:
			return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", ErrMemberNotFound, err)
		}
	}

	return err
}
