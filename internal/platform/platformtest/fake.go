// Package platformtest provides an in-memory platform.Client for tests.
package platformtest

import (
	"context"
	"slices"
	"sync"

	"loa-bot/internal/platform"
)

type Post struct {
	ChannelID string
	Content   string
	Embed     *platform.Embed
}

// Fake records every call. Members are registered with AddMember; the marker
// role is tracked per member. Errors set in GrantErr/RevokeErr/PostErr are
// returned for the matching subject or channel.
type Fake struct {
	mu sync.Mutex

	MarkerRoleID string
	Members      map[string]*platform.Member
	GrantErr     map[string]error
	RevokeErr    map[string]error
	PostErr      map[string]error

	Posts   []Post
	Grants  []string
	Revokes []string
}

func NewFake(markerRoleID string) *Fake {
	return &Fake{
		MarkerRoleID: markerRoleID,
		Members:      make(map[string]*platform.Member),
		GrantErr:     make(map[string]error),
		RevokeErr:    make(map[string]error),
		PostErr:      make(map[string]error),
	}
}

func (f *Fake) AddMember(id, name string, roleIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Members[id] = &platform.Member{ID: id, DisplayName: name, RoleIDs: roleIDs}
}

func (f *Fake) LookupMember(_ context.Context, subjectID string) (*platform.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.Members[subjectID]
	if !ok {
		return nil, platform.ErrMemberNotFound
	}
	cp := *m
	cp.RoleIDs = slices.Clone(m.RoleIDs)
	return &cp, nil
}

func (f *Fake) GrantMarker(_ context.Context, subjectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.GrantErr[subjectID]; err != nil {
		return err
	}
	m, ok := f.Members[subjectID]
	if !ok {
		return platform.ErrMemberNotFound
	}
	if !m.HasRole(f.MarkerRoleID) {
		m.RoleIDs = append(m.RoleIDs, f.MarkerRoleID)
	}
	f.Grants = append(f.Grants, subjectID)
	return nil
}

func (f *Fake) RevokeMarker(_ context.Context, subjectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.RevokeErr[subjectID]; err != nil {
		return err
	}
	m, ok := f.Members[subjectID]
	if !ok {
		return platform.ErrMemberNotFound
	}
	m.RoleIDs = slices.DeleteFunc(m.RoleIDs, func(id string) bool { return id == f.MarkerRoleID })
	f.Revokes = append(f.Revokes, subjectID)
	return nil
}

func (f *Fake) HasMarker(ctx context.Context, subjectID string) (bool, error) {
	m, err := f.LookupMember(ctx, subjectID)
	if err != nil {
		return false, err
	}
	return m.HasRole(f.MarkerRoleID), nil
}

func (f *Fake) PostMessage(_ context.Context, channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.PostErr[channelID]; err != nil {
		return err
	}
	f.Posts = append(f.Posts, Post{ChannelID: channelID, Content: content})
	return nil
}

func (f *Fake) PostEmbed(_ context.Context, channelID string, embed platform.Embed) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.PostErr[channelID]; err != nil {
		return err
	}
	f.Posts = append(f.Posts, Post{ChannelID: channelID, Embed: &embed})
	return nil
}

// PostsTo returns the posts sent to channelID in order.
func (f *Fake) PostsTo(channelID string) []Post {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Post
	for _, p := range f.Posts {
		if p.ChannelID == channelID {
			out = append(out, p)
		}
	}
	return out
}

func (f *Fake) HasMarkerRole(subjectID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.Members[subjectID]
	return ok && m.HasRole(f.MarkerRoleID)
}
