package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/luciverlabs/luciver/internal/discord"
)

type Client struct {
	session   *discordgo.Session
	token     string
	botUserID string
}

func NewClient(token string) discordpkg.Client {
	return &Client{
		token: token,
	}
}

func (c *Client) Connect(ctx context.Context) error {
	_ = ctx
	s, err := discordgo.New("Bot " + c.token)
	if err != nil {
		return err
	}
	c.session = s
	s.Identify.Intents = discordgo.MakeIntent(
		discordgo.IntentsGuilds |
			discordgo.IntentsGuildMembers |
			discordgo.IntentsGuildMessages |
			discordgo.IntentsDirectMessages |
			discordgo.IntentMessageContent)
	s.StateEnabled = true
	if err := s.Open(); err != nil {
		return err
	}
	userID, err := c.GetBotUserID()
	if err != nil {
		return err
	}
	c.botUserID = userID
	return nil
}

func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

func (c *Client) Run() error {
	select {}
}

func (c *Client) GetBotUserID() (string, error) {
	if c.botUserID != "" {
		return c.botUserID, nil
	}
	if c.session == nil {
		return "", fmt.Errorf("discord session is not initialized")
	}
	if c.session.State != nil && c.session.State.User != nil && c.session.State.User.ID != "" {
		c.botUserID = c.session.State.User.ID
		return c.botUserID, nil
	}
	u, err := c.session.User("@me")
	if err != nil {
		return "", err
	}
	c.botUserID = u.ID
	return c.botUserID, nil
}

func (c *Client) RegisterMessageHandler(handler func(discordpkg.MessageEvent)) {
	c.session.AddHandler(func(s *discordgo.Session, mc *discordgo.MessageCreate) {
		if mc == nil || mc.Author == nil {
			return
		}
		event := discordpkg.MessageEvent{
			GuildID:     mc.GuildID,
			ChannelID:   mc.ChannelID,
			MessageID:   mc.ID,
			AuthorID:    mc.Author.ID,
			AuthorName:  authorDisplayName(mc),
			AuthorIsBot: mc.Author.Bot,
			Content:     mc.Content,
			Reply: func(content string) error {
				_, err := s.ChannelMessageSendReply(mc.ChannelID, content, mc.Reference())
				return err
			},
		}
		for _, user := range mc.Mentions {
			if user == nil {
				continue
			}
			event.MentionedUserIDs = append(event.MentionedUserIDs, user.ID)
			if user.ID == c.botUserID {
				event.MentionsBot = true
			}
		}
		event.MentionedRoleIDs = append(event.MentionedRoleIDs, mc.MentionRoles...)
		event.AuthorRoleNames = c.resolveAuthorRoleNames(mc)
		handler(event)
	})
}

func authorDisplayName(mc *discordgo.MessageCreate) string {
	if mc.Member != nil && mc.Member.Nick != "" {
		return mc.Member.Nick
	}
	if mc.Author.GlobalName != "" {
		return mc.Author.GlobalName
	}
	return mc.Author.Username
}

func (c *Client) resolveAuthorRoleNames(mc *discordgo.MessageCreate) []string {
	if mc.GuildID == "" || mc.Member == nil {
		return nil
	}
	names := make([]string, 0, len(mc.Member.Roles))
	for _, roleID := range mc.Member.Roles {
		role, err := c.FetchRole(mc.GuildID, roleID)
		if err != nil {
			continue
		}
		names = append(names, role.Name)
	}
	return names
}

// SendDirectMessage opens (or reuses) the DM channel with the user and
// posts into it.
func (c *Client) SendDirectMessage(userID, content string) error {
	if c.session == nil {
		return fmt.Errorf("discord session is not initialized")
	}
	channel, err := c.session.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("failed to open dm channel: %w", err)
	}
	_, err = c.session.ChannelMessageSend(channel.ID, content)
	return err
}

// SendChannelMessage posts with an explicit mention allow-list. Mentions
// not on the list render as plain text without pinging anyone.
func (c *Client) SendChannelMessage(msg discordpkg.ChannelMessage) error {
	if c.session == nil {
		return fmt.Errorf("discord session is not initialized")
	}
	allowed := &discordgo.MessageAllowedMentions{
		Users: msg.MentionUserIDs,
		Roles: msg.MentionRoleIDs,
	}
	_, err := c.session.ChannelMessageSendComplex(msg.ChannelID, &discordgo.MessageSend{
		Content:         msg.Content,
		AllowedMentions: allowed,
	})
	return err
}

func (c *Client) FetchUser(userID string) (discordpkg.User, error) {
	if c.session == nil {
		return discordpkg.User{}, fmt.Errorf("discord session is not initialized")
	}
	u, err := c.session.User(userID)
	if err != nil {
		return discordpkg.User{}, err
	}
	return discordpkg.User{ID: u.ID, DisplayName: userDisplayName(u), IsBot: u.Bot}, nil
}

func userDisplayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func (c *Client) FetchRole(guildID, roleID string) (discordpkg.Role, error) {
	if role := c.roleFromState(guildID, roleID); role != nil {
		return discordpkg.Role{ID: role.ID, Name: role.Name}, nil
	}
	// Cache may be cold right after bot startup; ask Discord API directly as fallback.
	roles, err := c.session.GuildRoles(guildID)
	if err != nil {
		return discordpkg.Role{}, err
	}
	for _, role := range roles {
		if role != nil && role.ID == roleID {
			return discordpkg.Role{ID: role.ID, Name: role.Name}, nil
		}
	}
	return discordpkg.Role{}, fmt.Errorf("role %s not found in guild %s", roleID, guildID)
}

func (c *Client) roleFromState(guildID, roleID string) *discordgo.Role {
	if c.session == nil || c.session.State == nil {
		return nil
	}
	role, err := c.session.State.Role(guildID, roleID)
	if err != nil {
		return nil
	}
	return role
}

func (c *Client) FindRoleByName(guildID, name string) (discordpkg.Role, error) {
	if c.session == nil {
		return discordpkg.Role{}, fmt.Errorf("discord session is not initialized")
	}
	var roles []*discordgo.Role
	if c.session.State != nil {
		if guild, err := c.session.State.Guild(guildID); err == nil && guild != nil {
			roles = guild.Roles
		}
	}
	if len(roles) == 0 {
		fetched, err := c.session.GuildRoles(guildID)
		if err != nil {
			return discordpkg.Role{}, err
		}
		roles = fetched
	}
	for _, role := range roles {
		if role != nil && strings.EqualFold(role.Name, name) {
			return discordpkg.Role{ID: role.ID, Name: role.Name}, nil
		}
	}
	return discordpkg.Role{}, fmt.Errorf("role %q not found in guild %s", name, guildID)
}

// ListRoleMembers walks the member roster and keeps holders of the role.
// Bots are excluded; they cannot receive reminder DMs anyway.
func (c *Client) ListRoleMembers(guildID, roleID string) ([]discordpkg.User, error) {
	members, err := c.listMembers(guildID)
	if err != nil {
		return nil, err
	}
	var out []discordpkg.User
	for _, member := range members {
		if member == nil || member.User == nil || member.User.Bot {
			continue
		}
		for _, id := range member.Roles {
			if id == roleID {
				out = append(out, memberToUser(member))
				break
			}
		}
	}
	return out, nil
}

func (c *Client) ListGuildMembers(guildID string) ([]discordpkg.User, error) {
	members, err := c.listMembers(guildID)
	if err != nil {
		return nil, err
	}
	var out []discordpkg.User
	for _, member := range members {
		if member == nil || member.User == nil || member.User.Bot {
			continue
		}
		out = append(out, memberToUser(member))
	}
	return out, nil
}

const memberPageSize = 1000

func (c *Client) listMembers(guildID string) ([]*discordgo.Member, error) {
	if c.session == nil {
		return nil, fmt.Errorf("discord session is not initialized")
	}
	if c.session.State != nil {
		if guild, err := c.session.State.Guild(guildID); err == nil && guild != nil && len(guild.Members) > 0 {
			return guild.Members, nil
		}
	}
	// Cache miss; page through the REST roster.
	var all []*discordgo.Member
	after := ""
	for {
		page, err := c.session.GuildMembers(guildID, after, memberPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < memberPageSize {
			return all, nil
		}
		after = page[len(page)-1].User.ID
	}
}

func memberToUser(member *discordgo.Member) discordpkg.User {
	name := member.Nick
	if name == "" {
		name = userDisplayName(member.User)
	}
	return discordpkg.User{ID: member.User.ID, DisplayName: name, IsBot: member.User.Bot}
}

func (c *Client) ListGuildIDs() ([]string, error) {
	if c.session == nil {
		return nil, fmt.Errorf("discord session is not initialized")
	}
	if c.session.State != nil && len(c.session.State.Guilds) > 0 {
		ids := make([]string, 0, len(c.session.State.Guilds))
		for _, guild := range c.session.State.Guilds {
			if guild != nil {
				ids = append(ids, guild.ID)
			}
		}
		return ids, nil
	}
	guilds, err := c.session.UserGuilds(100, "", "", false)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(guilds))
	for _, guild := range guilds {
		if guild != nil {
			ids = append(ids, guild.ID)
		}
	}
	return ids, nil
}
