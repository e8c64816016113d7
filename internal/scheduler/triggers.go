package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/luciverlabs/luciver/internal/discord"
	"github.com/luciverlabs/luciver/internal/repository"
	"github.com/luciverlabs/luciver/internal/timefmt"
)

const (
	triggerTaskDigest  = "task_digest"
	triggerStatsReport = "stats_report"
	triggerDailyPing   = "daily_ping"
)

// weeklyTrigger fires when a coarse tick lands inside the target weekday
// and hour. The debounce interval is what makes a once-per-week guarantee
// out of repeated ticks inside the same qualifying hour.
type weeklyTrigger struct {
	targetWeekday time.Weekday
	targetHour    int
	minInterval   time.Duration
	lastFired     time.Time
}

func newWeeklyTrigger(weekday time.Weekday, hour int, minInterval time.Duration) *weeklyTrigger {
	return &weeklyTrigger{
		targetWeekday: weekday,
		targetHour:    hour,
		minInterval:   minInterval,
	}
}

func (t *weeklyTrigger) shouldFire(now time.Time) bool {
	if now.Weekday() != t.targetWeekday || now.Hour() != t.targetHour {
		return false
	}
	if !t.lastFired.IsZero() && now.Sub(t.lastFired) < t.minInterval {
		return false
	}
	return true
}

func (t *weeklyTrigger) markFired(now time.Time) {
	t.lastFired = now
}

// seedWeeklyTriggers restores the last digest and stats firing stamps
// from history, so a restart inside a qualifying hour does not fire a
// trigger twice in the same week.
func (s *Scheduler) seedWeeklyTriggers() {
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()
	for trigger, wt := range map[string]*weeklyTrigger{
		triggerTaskDigest:  s.digestTrigger,
		triggerStatsReport: s.statsTrigger,
	} {
		firing, err := s.repo.LastTriggerFiring(ctx, trigger, "")
		if err != nil {
			slog.Warn("could not restore trigger history", "error", err, "trigger", trigger)
			continue
		}
		if firing != nil {
			wt.lastFired = firing.FiredAt.In(s.loc)
		}
	}
}

// CheckWeekly evaluates both weekly triggers against now. Called on the
// coarse recurrence tick, so a qualifying hour is hit several times; the
// debounce ensures each trigger fires once per week regardless.
func (s *Scheduler) CheckWeekly(now time.Time) {
	local := now.In(s.loc)
	if s.digestTrigger.shouldFire(local) {
		s.digestTrigger.markFired(local)
		s.sendTaskDigest(local)
	}
	if s.statsTrigger.shouldFire(local) {
		s.statsTrigger.markFired(local)
		s.sendStatsReport(local)
	}
}

func (s *Scheduler) sendTaskDigest(now time.Time) {
	guildIDs, err := s.client.ListGuildIDs()
	if err != nil {
		slog.Error("task digest: failed to list guilds", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()

	// Tasks are grouped under their assignee, in the order assignees
	// first appear in the listings.
	var order []string
	grouped := make(map[string][]repository.Task)
	total := 0
	for _, guildID := range guildIDs {
		tasks, err := s.repo.ListOpenTasks(ctx, guildID)
		if err != nil {
			slog.Error("task digest: failed to list open tasks", "error", err, "guild_id", guildID)
			continue
		}
		for _, task := range tasks {
			total++
			if _, seen := grouped[task.AssigneeID]; !seen {
				order = append(order, task.AssigneeID)
			}
			grouped[task.AssigneeID] = append(grouped[task.AssigneeID], task)
		}
	}

	var text string
	if total == 0 {
		text = "**Weekly task digest**\nNo open tasks. Clean slate!"
	} else {
		var b strings.Builder
		fmt.Fprintf(&b, "**Weekly task digest**\n%d open task(s):", total)
		for _, assigneeID := range order {
			fmt.Fprintf(&b, "\n<@%s>:", assigneeID)
			for _, task := range grouped[assigneeID] {
				fmt.Fprintf(&b, "\n• %s (assigned %s", task.Description, timefmt.Relative(now, task.CreatedAt))
				if task.DueText != "" {
					fmt.Fprintf(&b, ", due %s", task.DueText)
				}
				b.WriteString(")")
			}
		}
		text = b.String()
	}
	s.postReport(text, triggerTaskDigest, now)
}

func (s *Scheduler) sendStatsReport(now time.Time) {
	snap := s.tracker.Snapshot(now)

	var b strings.Builder
	b.WriteString("**Weekly activity report**\n")
	fmt.Fprintf(&b, "Window: %s to %s\n",
		timefmt.Stamp(snap.WindowStart, s.loc), timefmt.Stamp(snap.WindowEnd, s.loc))
	fmt.Fprintf(&b, "Total messages: %d\n", snap.TotalMessages)

	if len(snap.Channels) > 0 {
		b.WriteString("Busiest channels:\n")
		for i, ch := range snap.Channels {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "• <#%s>: %d message(s)\n", ch.ChannelID, ch.Messages)
		}
	}
	if len(snap.Members) > 0 {
		b.WriteString("Most active members:\n")
		for i, m := range snap.Members {
			if i >= 5 {
				break
			}
			name := m.Name
			if name == "" {
				name = m.UserID
			}
			fmt.Fprintf(&b, "• %s: %d message(s), last seen %s\n", name, m.Messages, timefmt.Relative(now, m.LastSeen))
		}
	}
	s.postReport(strings.TrimRight(b.String(), "\n"), triggerStatsReport, now)
}

func (s *Scheduler) postReport(text, trigger string, now time.Time) {
	if s.cfg.ModeratorChannelID == "" {
		slog.Warn("no moderator channel configured, dropping report", "trigger", trigger)
		return
	}
	err := s.client.SendChannelMessage(discord.ChannelMessage{
		ChannelID: s.cfg.ModeratorChannelID,
		Content:   text,
	})
	if err != nil {
		slog.Error("failed to post weekly report", "error", err, "trigger", trigger)
		return
	}
	slog.Info("weekly report posted", "trigger", trigger)
	s.audit.Emit(fmt.Sprintf("Scheduled report posted\n• trigger: %s\n• at: %s", trigger, timefmt.Stamp(now, s.loc)), nil)
	s.recordTriggerFiring(trigger, "", now)
}

func (s *Scheduler) recordTriggerFiring(trigger, guildID string, now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()
	err := s.repo.RecordTriggerFiring(ctx, repository.RecordTriggerFiringInput{
		Trigger: trigger,
		GuildID: guildID,
		FiredAt: now,
	})
	if err != nil {
		slog.Error("failed to record trigger firing", "error", err, "trigger", trigger)
	}
}

// armDailyPing schedules a one-shot timer for the next daily ping instant
// and re-arms it after each firing. A timer survives at most one firing,
// so rescheduling happens inside the callback.
func (s *Scheduler) armDailyPing() {
	now := s.clk.Now().In(s.loc)
	next := nextDailyInstant(now, s.cfg.DailyReminderHour, s.cfg.DailyReminderMinute)
	delay := next.Sub(now)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.dailyTimer = time.AfterFunc(delay, func() {
		s.DispatchDailyPing(s.clk.Now())
		s.armDailyPing()
	})
	slog.Info("daily role ping armed", "next", next.Format(time.RFC3339))
}

// nextDailyInstant returns the next occurrence of hour:minute strictly
// after now, in now's location.
func nextDailyInstant(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

const dailyReminderMessage = "Uploaded today's progress?! If not, do it now!!"

// DispatchDailyPing DMs every non-bot holder of the configured role,
// across all guilds. A member holding the role in several guilds gets a
// single message.
func (s *Scheduler) DispatchDailyPing(now time.Time) {
	guildIDs, err := s.client.ListGuildIDs()
	if err != nil {
		slog.Error("daily ping: failed to list guilds", "error", err)
		return
	}

	var targetedRoles []string
	seen := make(map[string]bool)
	var recipients []discord.User
	for _, guildID := range guildIDs {
		role, err := s.client.FindRoleByName(guildID, s.cfg.DailyReminderRole)
		if err != nil {
			slog.Debug("daily ping: role not present in guild", "guild_id", guildID, "role", s.cfg.DailyReminderRole)
			continue
		}
		targetedRoles = append(targetedRoles, fmt.Sprintf("%s (guild %s)", role.Name, guildID))
		members, err := s.client.ListRoleMembers(guildID, role.ID)
		if err != nil {
			slog.Warn("daily ping: failed to list role members", "error", err, "guild_id", guildID)
			continue
		}
		for _, member := range members {
			if member.IsBot || seen[member.ID] {
				continue
			}
			seen[member.ID] = true
			recipients = append(recipients, member)
		}
		s.recordTriggerFiring(triggerDailyPing, guildID, now)
	}

	reached := 0
	failures := 0
	for _, user := range recipients {
		if err := s.client.SendDirectMessage(user.ID, dailyReminderMessage); err != nil {
			slog.Warn("daily ping: DM failed", "error", err, "user_id", user.ID)
			failures++
			continue
		}
		reached++
	}

	roleLine := fmt.Sprintf("• Target role: %s", strings.Join(targetedRoles, ", "))
	if len(targetedRoles) == 0 {
		roleLine = fmt.Sprintf("• Target role: %q not found", s.cfg.DailyReminderRole)
	}
	lines := []string{
		"Daily reminder has been sent",
		roleLine,
		fmt.Sprintf("• Scheduled at: %s", timefmt.Stamp(now, s.loc)),
		fmt.Sprintf("• Recipients reached: %d/%d", reached, len(recipients)),
	}
	if failures > 0 {
		lines = append(lines, fmt.Sprintf("• DM failures: %d", failures))
	}
	s.audit.Emit(strings.Join(lines, "\n"), nil)
	slog.Info("daily role ping dispatched", "recipients", len(recipients), "reached", reached)
}
