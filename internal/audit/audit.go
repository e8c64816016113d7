// Package audit posts operational summaries (deliveries, cancellations,
// trigger firings) to a configured log channel. Failures are logged and
// swallowed; auditing never blocks the action being audited.
package audit

import (
	"log/slog"

	"github.com/luciverlabs/luciver/internal/discord"
)

type Logger interface {
	Emit(text string, mentionUserIDs []string)
}

type ChannelLogger struct {
	client    discord.Client
	channelID string
}

func NewChannelLogger(client discord.Client, channelID string) *ChannelLogger {
	return &ChannelLogger{client: client, channelID: channelID}
}

func (l *ChannelLogger) Emit(text string, mentionUserIDs []string) {
	if l.channelID == "" {
		return
	}
	if mentionUserIDs == nil {
		mentionUserIDs = []string{}
	}
	err := l.client.SendChannelMessage(discord.ChannelMessage{
		ChannelID:      l.channelID,
		Content:        text,
		MentionUserIDs: mentionUserIDs,
	})
	if err != nil {
		slog.Error("failed to post audit log entry", "error", err, "channel_id", l.channelID)
	}
}
