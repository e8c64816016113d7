// Package audience maps recipient tokens (me, @everyone, user and role
// mentions) to canonical descriptors. A descriptor records who a reminder
// targets; the concrete recipient list is expanded lazily at delivery time
// so membership changes between scheduling and firing are honored.
package audience

import (
	"errors"
	"fmt"
)

var (
	ErrCannotResolve       = errors.New("audience token could not be resolved")
	ErrBroadcastNeedsGuild = errors.New("broadcast audience requires a guild")
	ErrRoleNeedsGuild      = errors.New("role audience requires a guild")
	ErrRoleNotFound        = errors.New("role not found")
)

type Kind int

const (
	KindSelf Kind = iota
	KindUser
	KindRole
	KindBroadcast
)

func (k Kind) String() string {
	switch k {
	case KindSelf:
		return "self"
	case KindUser:
		return "user"
	case KindRole:
		return "role"
	case KindBroadcast:
		return "broadcast"
	default:
		return "unknown"
	}
}

// Descriptor is immutable once constructed. SubjectID is the user ID for
// Self/User, the role ID for Role and the guild ID for Broadcast. GuildID
// is empty only for Self/User audiences resolved outside a guild.
type Descriptor struct {
	Kind         Kind
	SubjectID    string
	GuildID      string
	DisplayLabel string
	AuditLabel   string
}

// IsSingleUser reports whether the descriptor targets exactly one person,
// which is the only case eligible for channel fallback delivery.
func (d Descriptor) IsSingleUser() bool {
	return d.Kind == KindSelf || d.Kind == KindUser
}

func userDescriptor(kind Kind, userID, guildID string) Descriptor {
	label := fmt.Sprintf("<@%s>", userID)
	return Descriptor{
		Kind:         kind,
		SubjectID:    userID,
		GuildID:      guildID,
		DisplayLabel: label,
		AuditLabel:   label,
	}
}
