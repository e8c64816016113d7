package discord

import "context"

type User struct {
	ID          string
	DisplayName string
	IsBot       bool
}

type Role struct {
	ID   string
	Name string
}

// MessageEvent is a guild or direct message the bot can react to.
// Reply posts into the originating channel referencing the message.
type MessageEvent struct {
	GuildID          string
	ChannelID        string
	MessageID        string
	AuthorID         string
	AuthorName       string
	AuthorIsBot      bool
	AuthorRoleNames  []string
	Content          string
	MentionedUserIDs []string
	MentionedRoleIDs []string
	MentionsBot      bool
	Reply            func(content string) error
}

// ChannelMessage carries an explicit mention allow-list; an empty list
// suppresses all pings regardless of the message text.
type ChannelMessage struct {
	ChannelID      string
	Content        string
	MentionUserIDs []string
	MentionRoleIDs []string
}

type Client interface {
	Connect(ctx context.Context) error
	Close() error
	Run() error
	RegisterMessageHandler(handler func(MessageEvent))
	GetBotUserID() (string, error)

	SendDirectMessage(userID, content string) error
	SendChannelMessage(msg ChannelMessage) error

	FetchUser(userID string) (User, error)
	FetchRole(guildID, roleID string) (Role, error)
	FindRoleByName(guildID, name string) (Role, error)
	ListRoleMembers(guildID, roleID string) ([]User, error)
	ListGuildMembers(guildID string) ([]User, error)
	ListGuildIDs() ([]string, error)
}
