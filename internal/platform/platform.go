// Package platform is the boundary to the chat platform: member lookup,
// marker role changes and message posting.
package platform

import (
	"context"
	"errors"
	"slices"
)

var (
	ErrMemberNotFound   = errors.New("member not found")
	ErrPermissionDenied = errors.New("missing permission to change the marker role, check role hierarchy")
	ErrMarkerAbsent     = errors.New("member does not hold the marker role")
)

// Embed colors.
const (
	ColorGreen = 0x2ecc71
	ColorBlue  = 0x3498db
)

type Member struct {
	ID          string
	DisplayName string
	RoleIDs     []string
}

func (m *Member) HasRole(roleID string) bool {
	return slices.Contains(m.RoleIDs, roleID)
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

type Embed struct {
	Title  string
	Color  int
	Fields []EmbedField
	Footer string
}

// Client is bound to a single guild and marker role.
type Client interface {
	LookupMember(ctx context.Context, subjectID string) (*Member, error)
	GrantMarker(ctx context.Context, subjectID string) error
	RevokeMarker(ctx context.Context, subjectID string) error
	HasMarker(ctx context.Context, subjectID string) (bool, error)
	PostMessage(ctx context.Context, channelID, content string) error
	PostEmbed(ctx context.Context, channelID string, embed Embed) error
}

// Mention renders a user mention.
func Mention(subjectID string) string {
	return "<@" + subjectID + ">"
}
