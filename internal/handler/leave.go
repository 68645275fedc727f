package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"loa-bot/internal/platform"
	"loa-bot/internal/service"
)

// maxEmbedFields is Discord's limit on fields per embed.
const maxEmbedFields = 25

const invalidDurationText = "❌ Invalid duration format. Use `d` for days, `w` for weeks, `m` for months.\nExample: `%sloa @User 7d Vacation`"

// startLeave handles: loa @User 7d [reason]
func (h *Handler) startLeave(ctx context.Context, message Message, args string) {
	if !h.requireManager(ctx, message) {
		return
	}

	target, rest := nextField(args)
	duration, reason := nextField(rest)
	subjectID, ok := parseSubject(target)
	if !ok || duration == "" {
		h.reply(ctx, message, fmt.Sprintf("❌ Usage: `%sloa @User <duration> [reason]`", h.config.CommandPrefix))
		return
	}

	if err := h.lookupTarget(ctx, subjectID); err != nil {
		if errors.Is(err, platform.ErrMemberNotFound) {
			h.reply(ctx, message, fmt.Sprintf("❌ %s is not a member of this server.", platform.Mention(subjectID)))
			return
		}
		h.logger.WithError(err).WithField("subject_id", subjectID).Error("Failed to look up member")
		h.reply(ctx, message, "❌ Could not look up that member: "+err.Error())
		return
	}

	result, err := h.leaveService.StartLeave(ctx, subjectID, duration, reason, h.now())
	if errors.Is(err, service.ErrInvalidDuration) {
		h.reply(ctx, message, fmt.Sprintf(invalidDurationText, h.config.CommandPrefix))
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("subject_id", subjectID).Error("Failed to start leave")
		h.reply(ctx, message, "❌ Database error: "+err.Error())
		return
	}

	outcomes := h.effects.Apply(ctx, message.AuthorID, result.Intents)
	if err := outcomes.Err(service.IntentGrantMarker); err != nil {
		h.reply(ctx, message, grantFailureText(err))
		return
	}

	embed := platform.Embed{
		Title: "✅ LOA Activated",
		Color: platform.ColorGreen,
		Fields: []platform.EmbedField{
			{Name: "User", Value: platform.Mention(subjectID), Inline: true},
			{Name: "Duration", Value: duration, Inline: true},
			{Name: "Return Date", Value: fmt.Sprintf("<t:%d:D>", result.Leave.EndDate.Unix())},
			{Name: "Reason", Value: result.Leave.Reason},
		},
	}
	if result.Replaced {
		embed.Footer = "The previous leave of this member was replaced."
	}
	h.replyEmbed(ctx, message, embed)
}

// endLeave handles: endloa @User
func (h *Handler) endLeave(ctx context.Context, message Message, args string) {
	if !h.requireManager(ctx, message) {
		return
	}

	target, _ := nextField(args)
	subjectID, ok := parseSubject(target)
	if !ok {
		h.reply(ctx, message, fmt.Sprintf("❌ Usage: `%sendloa @User`", h.config.CommandPrefix))
		return
	}

	result, err := h.leaveService.EndLeave(ctx, subjectID, h.now())
	if err != nil {
		h.logger.WithError(err).WithField("subject_id", subjectID).Error("Failed to end leave")
		h.reply(ctx, message, "❌ Database error: "+err.Error())
		return
	}

	outcomes := h.effects.Apply(ctx, message.AuthorID, result.Intents)
	mention := platform.Mention(subjectID)

	switch err := outcomes.Err(service.IntentRevokeMarker); {
	case err == nil:
		h.reply(ctx, message, fmt.Sprintf("✅ LOA ended manually for %s.", mention))
	case errors.Is(err, platform.ErrMarkerAbsent), errors.Is(err, platform.ErrMemberNotFound):
		h.reply(ctx, message, fmt.Sprintf("⚠️ %s is removed from the database, but did not have the LOA role.", mention))
	case errors.Is(err, platform.ErrPermissionDenied):
		h.reply(ctx, message, "❌ I couldn't remove the role. Check role hierarchy.")
	default:
		h.reply(ctx, message, "❌ Could not remove the LOA role: "+err.Error())
	}
}

// listLeaves handles: active_loas
func (h *Handler) listLeaves(ctx context.Context, message Message) {
	if h.config.ListRequiresManager {
		if err := service.RequireAnyRole(message.AuthorRoleIDs, h.config.ManagerRoleIDs); err != nil {
			h.reply(ctx, message, "⛔ Permission denied.")
			return
		}
	}

	leaves, err := h.leaveService.ListLeaves(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list leaves")
		h.reply(ctx, message, "❌ Database error: "+err.Error())
		return
	}

	if len(leaves) == 0 {
		h.reply(ctx, message, "📂 No active leaves found.")
		return
	}

	embed := platform.Embed{
		Title: "📅 Active Leaves of Absence",
		Color: platform.ColorBlue,
	}

	for i, leave := range leaves {
		if i == maxEmbedFields {
			embed.Footer = "List truncated due to Discord embed limits."
			break
		}

		embed.Fields = append(embed.Fields, platform.EmbedField{
			Name:  "👤 " + h.displayName(ctx, leave.SubjectID),
			Value: fmt.Sprintf("**Ends:** <t:%d:R>\n**Reason:** %s", leave.EndDate.Unix(), leave.Reason),
		})
	}

	h.replyEmbed(ctx, message, embed)
}

func (h *Handler) lookupTarget(ctx context.Context, subjectID string) error {
	callCtx, cancel := context.WithTimeout(ctx, h.config.PlatformTimeout)
	defer cancel()

	_, err := h.client.LookupMember(callCtx, subjectID)
	return err
}

func (h *Handler) displayName(ctx context.Context, subjectID string) string {
	callCtx, cancel := context.WithTimeout(ctx, h.config.PlatformTimeout)
	defer cancel()

	member, err := h.client.LookupMember(callCtx, subjectID)
	if err != nil || member.DisplayName == "" {
		return fmt.Sprintf("Unknown User (%s)", subjectID)
	}
	return member.DisplayName
}

func (h *Handler) requireManager(ctx context.Context, message Message) bool {
	if err := service.RequireAnyRole(message.AuthorRoleIDs, h.config.ManagerRoleIDs); err != nil {
		h.reply(ctx, message, "⛔ You do not have permission to manage leaves.")
		return false
	}
	return true
}

func grantFailureText(err error) string {
	switch {
	case errors.Is(err, platform.ErrPermissionDenied):
		return "❌ **Error:** I cannot add the role. Please ensure my Bot Role is positioned **HIGHER** than the LOA role in Server Settings."
	case errors.Is(err, platform.ErrMemberNotFound):
		return "❌ That member left the server. The leave is recorded but the LOA role could not be added."
	default:
		return "❌ Could not add the LOA role: " + err.Error()
	}
}

// parseSubject accepts a user mention (<@id> or <@!id>) or a bare numeric id.
func parseSubject(token string) (string, bool) {
	id := token
	if strings.HasPrefix(id, "<@") && strings.HasSuffix(id, ">") {
		id = strings.TrimPrefix(strings.TrimSuffix(strings.TrimPrefix(id, "<@"), ">"), "!")
	}
	if id == "" {
		return "", false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return id, true
}
