// Package bot is the conversational front end. It watches guild messages
// for the bot's cue, dispatches recognized commands, and feeds the
// activity tracker with everything else.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/luciverlabs/luciver/internal/activity"
	"github.com/luciverlabs/luciver/internal/audience"
	"github.com/luciverlabs/luciver/internal/audit"
	"github.com/luciverlabs/luciver/internal/clock"
	"github.com/luciverlabs/luciver/internal/config"
	"github.com/luciverlabs/luciver/internal/discord"
	"github.com/luciverlabs/luciver/internal/reminder"
	"github.com/luciverlabs/luciver/internal/repository"
	"github.com/luciverlabs/luciver/internal/temporal"
	"github.com/luciverlabs/luciver/internal/timefmt"
)

const (
	reminderListPage = 10
	taskWriteTimeout = 5 * time.Second
)

var (
	namePattern   = regexp.MustCompile(`(?i)\bluciver\b`)
	greetPattern  = regexp.MustCompile(`(?i)\b(hello|hi|hey|yo|howdy)\b`)
	remindPattern = regexp.MustCompile(`(?i)\bremind\s+(me|@?everyone|<@!?(\d+)>|<@&(\d+)>)(?:\s+to\b)?\s*(.+)`)
	cancelPattern = regexp.MustCompile(`(?i)\bcancel\s+(?:reminder\s+)?(\S+)`)
	deletePattern = regexp.MustCompile(`(?i)\breminders\s+delete\s+(\S+)`)
	assignPattern = regexp.MustCompile(`(?i)\bassign\s+<@!?(\d+)>\s+(.+)`)
	donePattern   = regexp.MustCompile(`(?i)\btask\s+done\s+(\d+)\b`)
	dueByPattern  = regexp.MustCompile(`(?i)^(.+)\s+by\s+(.+)$`)
	cancelWord    = regexp.MustCompile(`(?i)\bcancel\b`)
	remindersWord = regexp.MustCompile(`(?i)\breminders\b`)
	assignWord    = regexp.MustCompile(`(?i)\bassign\b`)
	tasksWord     = regexp.MustCompile(`(?i)\btasks\b`)
	statsWord     = regexp.MustCompile(`(?i)\bstats\b`)
	helpWord      = regexp.MustCompile(`(?i)\bhelp\b`)
	mentionToken  = regexp.MustCompile(`<@!?\d+>`)
)

type Manager struct {
	store    *reminder.Store
	resolver *audience.Resolver
	repo     repository.Repository
	tracker  *activity.Tracker
	audit    audit.Logger
	client   discord.Client
	clk      clock.Clock
	loc      *time.Location

	botUserID string
}

func NewManager(
	cfg *config.Config,
	store *reminder.Store,
	resolver *audience.Resolver,
	repo repository.Repository,
	tracker *activity.Tracker,
	auditLog audit.Logger,
	client discord.Client,
	clk clock.Clock,
) *Manager {
	return &Manager{
		store:    store,
		resolver: resolver,
		repo:     repo,
		tracker:  tracker,
		audit:    auditLog,
		client:   client,
		clk:      clk,
		loc:      cfg.Location(),
	}
}

// SetBotUserID must be called once after connecting, before message
// handlers are registered.
func (m *Manager) SetBotUserID(id string) {
	m.botUserID = id
}

func (m *Manager) HandleMessage(event discord.MessageEvent) {
	if event.AuthorIsBot || event.AuthorID == m.botUserID {
		return
	}
	if event.GuildID != "" {
		m.tracker.Record(event.ChannelID, event.AuthorID, event.AuthorName, m.clk.Now())
	}
	if !m.addressed(event) {
		return
	}

	content := strings.TrimSpace(event.Content)
	slog.Debug("cue received", "guild_id", event.GuildID, "channel_id", event.ChannelID, "author_id", event.AuthorID)

	switch {
	case remindPattern.MatchString(content):
		m.handleRemind(event, content)
	case deletePattern.MatchString(content):
		m.handleCancelToken(event, deletePattern.FindStringSubmatch(content)[1])
	case cancelWord.MatchString(content):
		m.handleCancel(event, content)
	case remindersWord.MatchString(content):
		m.handleListReminders(event)
	case assignWord.MatchString(content):
		m.handleAssign(event, content)
	case donePattern.MatchString(content):
		m.handleTaskDone(event, content)
	case tasksWord.MatchString(content):
		m.handleListTasks(event)
	case statsWord.MatchString(content):
		m.handleStats(event)
	case helpWord.MatchString(content):
		m.reply(event, messageHelp)
	case greetPattern.MatchString(content):
		m.reply(event, messageGreeting)
	case isBareCue(content):
		m.reply(event, messageNamePing)
	default:
		m.reply(event, messageUnknownCue)
	}
}

// addressed reports whether the message is aimed at the bot, either via an
// explicit mention or by name.
func (m *Manager) addressed(event discord.MessageEvent) bool {
	return event.MentionsBot || namePattern.MatchString(event.Content)
}

// isBareCue reports whether the message carries nothing beyond the cue
// itself, like a bare mention or just the bot's name.
func isBareCue(content string) bool {
	stripped := mentionToken.ReplaceAllString(content, "")
	stripped = namePattern.ReplaceAllString(stripped, "")
	stripped = strings.Trim(stripped, " \t,.!?")
	return stripped == ""
}

func (m *Manager) isModerator(event discord.MessageEvent) bool {
	for _, name := range event.AuthorRoleNames {
		if strings.Contains(strings.ToLower(name), "moderator") {
			return true
		}
	}
	return false
}

func (m *Manager) handleRemind(event discord.MessageEvent, content string) {
	match := remindPattern.FindStringSubmatch(content)
	desc, err := m.resolver.Resolve(audience.Request{
		Token:           match[1],
		MentionedUserID: match[2],
		MentionedRoleID: match[3],
		RequesterID:     event.AuthorID,
		GuildID:         event.GuildID,
	})
	if err != nil {
		m.reply(event, resolveErrorMessage(err))
		return
	}

	now := m.clk.Now().In(m.loc)
	expr, err := temporal.Parse(match[4], now)
	if err != nil {
		m.reply(event, parseErrorMessage(err))
		return
	}

	rec, err := m.store.Enqueue(reminder.EnqueueInput{
		Audience:        desc,
		Note:            expr.Note,
		DueAt:           expr.DueAt,
		OriginChannelID: event.ChannelID,
		RequesterID:     event.AuthorID,
		CreatedAt:       now,
		TimeDefaulted:   expr.TimeDefaulted,
	})
	if err != nil {
		m.reply(event, messageInThePast)
		return
	}

	when := timefmt.Stamp(rec.DueAt, m.loc)
	m.reply(event, confirmReminder(desc.DisplayLabel, rec.Note, when, rec.ID, rec.TimeDefaulted))
	slog.Info("reminder scheduled",
		"reminder_id", rec.ID,
		"audience", desc.Kind.String(),
		"due_at", rec.DueAt.Format(time.RFC3339),
		"requester_id", event.AuthorID)
	m.audit.Emit(fmt.Sprintf("Reminder scheduled for %s\n• Note: %s\n• Due: %s\n• Requested by: <@%s>",
		desc.AuditLabel, rec.Note, when, event.AuthorID), nil)
}

func resolveErrorMessage(err error) string {
	switch {
	case errors.Is(err, audience.ErrBroadcastNeedsGuild), errors.Is(err, audience.ErrRoleNeedsGuild):
		return messageRoleNeedsGuild
	case errors.Is(err, audience.ErrRoleNotFound):
		return messageCannotTarget
	default:
		return messageCannotTarget
	}
}

func parseErrorMessage(err error) string {
	switch {
	case errors.Is(err, temporal.ErrNoTimeFound):
		return messageNoTimeFound
	case errors.Is(err, temporal.ErrUnparsableDate):
		return messageBadDate
	case errors.Is(err, temporal.ErrUnparsableTime):
		return messageBadTime
	case errors.Is(err, temporal.ErrEmptyNote):
		return messageEmptyNote
	case errors.Is(err, temporal.ErrInThePast):
		return messageInThePast
	default:
		return messageNoTimeFound
	}
}

func (m *Manager) handleListReminders(event discord.MessageEvent) {
	if !m.isModerator(event) {
		m.reply(event, messageModeratorsOnly)
		return
	}
	pending := m.store.Pending()
	if len(pending) == 0 {
		m.reply(event, messageNoPendingReminders)
		return
	}

	now := m.clk.Now()
	var b strings.Builder
	fmt.Fprintf(&b, "**Pending reminders** (%d)\n", len(pending))
	for i, rec := range pending {
		if i >= reminderListPage {
			fmt.Fprintf(&b, "… and %d more\n", len(pending)-reminderListPage)
			break
		}
		fmt.Fprintf(&b, "%d. %s: %s / due %s", i+1, rec.Audience.DisplayLabel, rec.Note, timefmt.Stamp(rec.DueAt, m.loc))
		if rec.TimeDefaulted {
			b.WriteString(" (default 09:00)")
		}
		fmt.Fprintf(&b, ", requested by <@%s>, queued %s `%s`\n", rec.RequesterID, timefmt.Relative(now, rec.CreatedAt), rec.ID)
	}
	m.reply(event, strings.TrimRight(b.String(), "\n"))
}

func (m *Manager) handleCancel(event discord.MessageEvent, content string) {
	match := cancelPattern.FindStringSubmatch(content)
	if match == nil {
		m.reply(event, messageCancelNotFound)
		return
	}
	m.handleCancelToken(event, match[1])
}

func (m *Manager) handleCancelToken(event discord.MessageEvent, token string) {
	if !m.isModerator(event) {
		m.reply(event, messageModeratorsOnly)
		return
	}
	rec, err := m.store.Cancel(token)
	if err != nil {
		m.reply(event, messageCancelNotFound)
		return
	}
	when := timefmt.Stamp(rec.DueAt, m.loc)
	m.reply(event, confirmCancel(rec.Note, when))
	slog.Info("reminder cancelled", "reminder_id", rec.ID, "by", event.AuthorID)
	m.audit.Emit(fmt.Sprintf("Reminder cancelled\n• Note: %s\n• Was due: %s\n• Cancelled by: <@%s>",
		rec.Note, when, event.AuthorID), nil)
}

func (m *Manager) handleAssign(event discord.MessageEvent, content string) {
	if !m.isModerator(event) {
		m.reply(event, messageModeratorsOnly)
		return
	}
	match := assignPattern.FindStringSubmatch(content)
	if match == nil {
		m.reply(event, messageAssignUsage)
		return
	}
	assigneeID, description := match[1], strings.TrimSpace(match[2])
	description, dueText := splitDueClause(description)

	ctx, cancel := context.WithTimeout(context.Background(), taskWriteTimeout)
	defer cancel()
	task, err := m.repo.CreateTask(ctx, repository.CreateTaskInput{
		GuildID:        event.GuildID,
		AssigneeID:     assigneeID,
		AssignerID:     event.AuthorID,
		Description:    description,
		DueText:        dueText,
		AssignedInChan: event.ChannelID,
		CreatedAt:      m.clk.Now(),
	})
	if err != nil {
		slog.Error("failed to create task", "error", err, "guild_id", event.GuildID)
		m.reply(event, messageAssignFailed)
		return
	}

	dmErr := m.client.SendDirectMessage(task.AssigneeID, assignDM(event.AuthorID, task.Description, task.DueText))
	if dmErr != nil {
		slog.Warn("could not DM assignee", "error", dmErr, "assignee_id", task.AssigneeID)
	}
	m.reply(event, confirmAssign(task.AssigneeID, task.Description, task.DueText, dmErr != nil))
	slog.Info("task assigned", "task_id", task.ID, "assignee_id", task.AssigneeID, "assigner_id", event.AuthorID)
	m.audit.Emit(fmt.Sprintf("Task assigned to <@%s>\n• Task: %s\n• Assigned by: <@%s>",
		task.AssigneeID, task.Description, event.AuthorID), nil)
}

// splitDueClause peels a trailing "by <when>" off a task description. The
// split happens at the last "by" so descriptions containing the word keep
// everything up to the final clause.
func splitDueClause(description string) (string, string) {
	match := dueByPattern.FindStringSubmatch(description)
	if match == nil {
		return description, ""
	}
	return strings.TrimSpace(match[1]), strings.TrimSpace(match[2])
}

func (m *Manager) handleListTasks(event discord.MessageEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), taskWriteTimeout)
	defer cancel()
	tasks, err := m.repo.ListOpenTasks(ctx, event.GuildID)
	if err != nil {
		slog.Error("failed to list open tasks", "error", err, "guild_id", event.GuildID)
		m.reply(event, messageNoOpenTasks)
		return
	}
	if len(tasks) == 0 {
		m.reply(event, messageNoOpenTasks)
		return
	}

	now := m.clk.Now()
	var b strings.Builder
	fmt.Fprintf(&b, "**Open tasks** (%d)\n", len(tasks))
	for i, task := range tasks {
		fmt.Fprintf(&b, "%d. <@%s>: %s (assigned %s", i+1, task.AssigneeID, task.Description, timefmt.Relative(now, task.CreatedAt))
		if task.DueText != "" {
			fmt.Fprintf(&b, ", due %s", task.DueText)
		}
		b.WriteString(")\n")
	}
	m.reply(event, strings.TrimRight(b.String(), "\n"))
}

// handleTaskDone closes an open task by its 1-based position in the
// current `tasks` listing.
func (m *Manager) handleTaskDone(event discord.MessageEvent, content string) {
	if !m.isModerator(event) {
		m.reply(event, messageModeratorsOnly)
		return
	}
	match := donePattern.FindStringSubmatch(content)
	index, err := strconv.Atoi(match[1])
	if err != nil {
		m.reply(event, messageTaskNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), taskWriteTimeout)
	defer cancel()
	tasks, err := m.repo.ListOpenTasks(ctx, event.GuildID)
	if err != nil || index < 1 || index > len(tasks) {
		m.reply(event, messageTaskNotFound)
		return
	}
	task := tasks[index-1]
	if err := m.repo.CompleteTask(ctx, task.ID, m.clk.Now()); err != nil {
		slog.Error("failed to complete task", "error", err, "task_id", task.ID)
		m.reply(event, messageTaskDoneFailed)
		return
	}
	m.reply(event, confirmTaskDone(task.AssigneeID, task.Description))
	slog.Info("task completed", "task_id", task.ID, "closed_by", event.AuthorID)
	m.audit.Emit(fmt.Sprintf("Task completed\n• Task: %s\n• Assignee: <@%s>\n• Closed by: <@%s>",
		task.Description, task.AssigneeID, event.AuthorID), nil)
}

const statsTopEntries = 5

// handleStats renders the current activity window plus an operations
// snapshot, without resetting the window the weekly report covers.
func (m *Manager) handleStats(event discord.MessageEvent) {
	if !m.isModerator(event) {
		m.reply(event, messageModeratorsOnly)
		return
	}
	now := m.clk.Now()
	snap := m.tracker.View(now)

	var b strings.Builder
	b.WriteString("**Server pulse**\n")
	fmt.Fprintf(&b, "Total tracked messages: **%d**\n", snap.TotalMessages)
	fmt.Fprintf(&b, "Active contributors: **%d**\n", len(snap.Members))
	fmt.Fprintf(&b, "Window since: %s\n", timefmt.Stamp(snap.WindowStart, m.loc))

	if len(snap.Channels) > 0 {
		b.WriteString("Top channels:\n")
		for i, ch := range snap.Channels {
			if i >= statsTopEntries {
				break
			}
			fmt.Fprintf(&b, "%d. <#%s>: %d msgs\n", i+1, ch.ChannelID, ch.Messages)
		}
	}
	if len(snap.Members) > 0 {
		b.WriteString("Top contributors:\n")
		for i, mc := range snap.Members {
			if i >= statsTopEntries {
				break
			}
			name := mc.Name
			if name == "" {
				name = mc.UserID
			}
			fmt.Fprintf(&b, "%d. %s: %d msgs (last seen %s)\n", i+1, name, mc.Messages, timefmt.Relative(now, mc.LastSeen))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), taskWriteTimeout)
	defer cancel()
	b.WriteString("Operations snapshot:\n")
	openCount := 0
	if tasks, err := m.repo.ListOpenTasks(ctx, event.GuildID); err == nil {
		openCount = len(tasks)
	}
	fmt.Fprintf(&b, "• Open assignments: %d\n", openCount)
	pending := m.store.Pending()
	fmt.Fprintf(&b, "• Pending reminders: %d\n", len(pending))
	if len(pending) > 0 {
		fmt.Fprintf(&b, "• Next reminder: %s for %s\n",
			timefmt.Stamp(pending[0].DueAt, m.loc), pending[0].Audience.DisplayLabel)
	} else {
		b.WriteString("• Next reminder: none queued\n")
	}
	if recent, err := m.repo.RecentDeliveries(ctx, 1); err == nil && len(recent) > 0 {
		fmt.Fprintf(&b, "• Last delivery: %s (%s)\n", timefmt.Relative(now, recent[0].SentAt), recent[0].Outcome)
	}
	m.reply(event, strings.TrimRight(b.String(), "\n"))
}

func (m *Manager) reply(event discord.MessageEvent, text string) {
	if event.Reply == nil {
		return
	}
	if err := event.Reply(text); err != nil {
		slog.Error("failed to reply", "error", err, "channel_id", event.ChannelID)
	}
}
