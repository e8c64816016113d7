package audience

import (
	"fmt"
	"strings"

	"github.com/luciverlabs/luciver/internal/discord"
)

// RoleDirectory is the slice of the chat transport the resolver needs.
// Implementations are expected to answer from a cached roster when possible
// and fall back to a fresh fetch on a miss.
type RoleDirectory interface {
	FetchRole(guildID, roleID string) (discord.Role, error)
}

type Resolver struct {
	dir RoleDirectory
}

func NewResolver(dir RoleDirectory) *Resolver {
	return &Resolver{dir: dir}
}

// Request carries the captured pieces of a remind command's target clause.
// MentionedUserID/MentionedRoleID are set when the token was a mention.
type Request struct {
	Token           string
	MentionedUserID string
	MentionedRoleID string
	RequesterID     string
	GuildID         string
}

func (r *Resolver) Resolve(req Request) (Descriptor, error) {
	token := strings.ToLower(strings.TrimSpace(req.Token))

	if token == "me" {
		return userDescriptor(KindSelf, req.RequesterID, req.GuildID), nil
	}

	if token == "@everyone" || token == "everyone" {
		if req.GuildID == "" {
			return Descriptor{}, ErrBroadcastNeedsGuild
		}
		return Descriptor{
			Kind:         KindBroadcast,
			SubjectID:    req.GuildID,
			GuildID:      req.GuildID,
			DisplayLabel: "everyone",
			AuditLabel:   "everyone",
		}, nil
	}

	if req.MentionedUserID != "" {
		return userDescriptor(KindUser, req.MentionedUserID, req.GuildID), nil
	}

	if req.MentionedRoleID != "" {
		if req.GuildID == "" {
			return Descriptor{}, ErrRoleNeedsGuild
		}
		role, err := r.dir.FetchRole(req.GuildID, req.MentionedRoleID)
		if err != nil {
			return Descriptor{}, fmt.Errorf("%w: %s", ErrRoleNotFound, req.MentionedRoleID)
		}
		name := role.Name
		if name == "" {
			name = "role " + req.MentionedRoleID
		}
		label := name + " role"
		return Descriptor{
			Kind:         KindRole,
			SubjectID:    role.ID,
			GuildID:      req.GuildID,
			DisplayLabel: label,
			AuditLabel:   label,
		}, nil
	}

	return Descriptor{}, ErrCannotResolve
}
