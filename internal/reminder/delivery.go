package reminder

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/luciverlabs/luciver/internal/audience"
	"github.com/luciverlabs/luciver/internal/audit"
	"github.com/luciverlabs/luciver/internal/discord"
	"github.com/luciverlabs/luciver/internal/timefmt"
)

// Engine expands a record's audience into concrete recipients at fire time
// and delivers to each independently. One recipient's failure never aborts
// the others; the aggregated outcome is the only place failures surface.
type Engine struct {
	client discord.Client
	audit  audit.Logger
	loc    *time.Location
}

func NewEngine(client discord.Client, auditLog audit.Logger, loc *time.Location) *Engine {
	return &Engine{client: client, audit: auditLog, loc: loc}
}

// Result is the accounting of one delivery attempt.
type Result struct {
	Outcome      Outcome
	Attempted    int
	Reached      int
	FallbackUsed bool
}

// Deliver performs exactly one delivery attempt for rec. It never returns
// an error: every failure path resolves to an outcome classification.
func (e *Engine) Deliver(rec Record, now time.Time) Result {
	text := e.renderMessage(rec)
	recipients := e.expandRecipients(rec.Audience)

	var reached, failed int
	for _, user := range recipients {
		if err := e.client.SendDirectMessage(user.ID, text); err != nil {
			slog.Warn("failed to DM reminder recipient", "error", err, "reminder_id", rec.ID, "user_id", user.ID)
			failed++
			continue
		}
		reached++
	}

	fallbackUsed := false
	if reached == 0 && rec.Audience.IsSingleUser() && rec.OriginChannelID != "" {
		err := e.client.SendChannelMessage(discord.ChannelMessage{
			ChannelID:      rec.OriginChannelID,
			Content:        text,
			MentionUserIDs: mentionList(rec.Audience.SubjectID, rec.RequesterID),
		})
		if err != nil {
			slog.Error("failed to post reminder to original channel", "error", err, "reminder_id", rec.ID, "channel_id", rec.OriginChannelID)
		} else {
			fallbackUsed = true
		}
	}

	result := Result{
		Outcome:      classify(len(recipients), reached, fallbackUsed),
		Attempted:    len(recipients),
		Reached:      reached,
		FallbackUsed: fallbackUsed,
	}
	e.emitAuditEntry(rec, result, failed, now)
	return result
}

func classify(attempted, reached int, fallbackUsed bool) Outcome {
	if fallbackUsed {
		return OutcomeChannelFallback
	}
	switch {
	case attempted > 0 && reached == attempted:
		return OutcomeDelivered
	case reached > 0:
		return OutcomePartial
	default:
		return OutcomeFailed
	}
}

func (e *Engine) renderMessage(rec Record) string {
	lines := []string{
		fmt.Sprintf("Reminder checkpoint for %s", rec.Audience.DisplayLabel),
		fmt.Sprintf("Note: **%s**", rec.Note),
		fmt.Sprintf("Scheduled for: %s", timefmt.Stamp(rec.DueAt, e.loc)),
		fmt.Sprintf("Requested by: <@%s>", rec.RequesterID),
	}
	return strings.Join(lines, "\n")
}

// expandRecipients resolves who actually receives the message, at delivery
// time rather than scheduling time, so membership churn is honored.
// Directory failures degrade to a smaller recipient set.
func (e *Engine) expandRecipients(desc audience.Descriptor) []discord.User {
	switch desc.Kind {
	case audience.KindSelf, audience.KindUser:
		user, err := e.client.FetchUser(desc.SubjectID)
		if err != nil {
			slog.Warn("failed to fetch reminder recipient", "error", err, "user_id", desc.SubjectID)
			return nil
		}
		return []discord.User{user}
	case audience.KindBroadcast:
		members, err := e.client.ListGuildMembers(desc.GuildID)
		if err != nil {
			slog.Warn("failed to enumerate guild members for reminder", "error", err, "guild_id", desc.GuildID)
			return nil
		}
		return members
	case audience.KindRole:
		members, err := e.client.ListRoleMembers(desc.GuildID, desc.SubjectID)
		if err != nil {
			slog.Warn("failed to enumerate role members for reminder", "error", err, "guild_id", desc.GuildID, "role_id", desc.SubjectID)
			return nil
		}
		return members
	default:
		return nil
	}
}

func (e *Engine) emitAuditEntry(rec Record, result Result, failed int, now time.Time) {
	label := result.Outcome.Label(result.Attempted, result.Reached)
	switch result.Outcome {
	case OutcomeDelivered:
		label = fmt.Sprintf("%s (%d)", label, result.Reached)
	case OutcomePartial:
		label = fmt.Sprintf("%s (%d/%d)", label, result.Reached, result.Attempted)
	}

	lines := []string{
		fmt.Sprintf("Reminder fired for %s", rec.Audience.AuditLabel),
		fmt.Sprintf("• Note: %s", rec.Note),
		fmt.Sprintf("• Scheduled for: %s", timefmt.Stamp(rec.DueAt, e.loc)),
	}
	if rec.TimeDefaulted {
		lines = append(lines, "• Time detail: Defaulted to 09:00 (no explicit time provided)")
	}
	lines = append(lines, fmt.Sprintf("• Delivery: %s", label))
	if result.Attempted > 0 {
		lines = append(lines, fmt.Sprintf("• Recipients reached: %d/%d", result.Reached, result.Attempted))
		if failed > 0 {
			lines = append(lines, fmt.Sprintf("• DM failures: %d", failed))
		}
	}
	if result.FallbackUsed {
		lines = append(lines, "• Fallback: Posted in original channel")
	}
	lines = append(lines,
		fmt.Sprintf("• Requested by: <@%s>", rec.RequesterID),
		fmt.Sprintf("• Original channel: <#%s>", rec.OriginChannelID),
		fmt.Sprintf("• Sent at: %s", timefmt.Stamp(now, e.loc)),
	)

	mentions := []string{rec.RequesterID}
	if rec.Audience.IsSingleUser() && rec.Audience.SubjectID != rec.RequesterID {
		mentions = append(mentions, rec.Audience.SubjectID)
	}
	e.audit.Emit(strings.Join(lines, "\n"), mentions)
}

func mentionList(ids ...string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
