package handler

import (
	"context"
	"fmt"
	"strings"
)

func (h *Handler) handleCommand(ctx context.Context, message Message, command, args string) {
	switch command {
	case "loa":
		h.startLeave(ctx, message, args)
	case "endloa":
		h.endLeave(ctx, message, args)
	case "active_loas":
		h.listLeaves(ctx, message)
	case "loahelp":
		h.sendHelpMessage(ctx, message)
	}
}

func (h *Handler) sendHelpMessage(ctx context.Context, message Message) {
	p := h.config.CommandPrefix

	lines := []string{
		"📋 **LOA commands**",
		"",
		fmt.Sprintf("`%sloa @User <duration> [reason]` - put a member on leave (managers)", p),
		fmt.Sprintf("`%sendloa @User` - end a leave early (managers)", p),
		fmt.Sprintf("`%sactive_loas` - list current leaves", p),
		"",
		"Durations: `d` days, `w` weeks, `m` months (30 days). Example: `7d`, `2w`, `1m`.",
	}

	h.reply(ctx, message, strings.Join(lines, "\n"))
}
