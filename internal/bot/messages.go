package bot

import "fmt"

const (
	messageGreeting = "Hey there! Ask me to remind you about something, e.g. `remind me to ship the release in 20m`."
	messageNamePing = "At your service. Say `help` after my name to see what I can do."

	messageHelp = "Here's what I respond to:\n" +
		"• `remind me|@user|@role|@everyone [to] <note>, <when>` schedules a reminder\n" +
		"• `reminders` lists pending reminders (moderators)\n" +
		"• `cancel reminder <number or id>` or `reminders delete <number or id>` cancels one (moderators)\n" +
		"• `assign @user <task> [by <when>]` records a task (moderators)\n" +
		"• `tasks` lists open tasks\n" +
		"• `task done <number>` closes an open task (moderators)\n" +
		"• `stats` shows the current activity window (moderators)\n" +
		"Schedules understand `in 20m`, `tomorrow 5pm`, `on 2025-12-15`, `3rd sept at 9am` and friends."

	messageUnknownCue = "Not sure what you need. Say `help` after my name for the full list."

	messageModeratorsOnly = "Sorry, that one is for moderators."

	messageNoTimeFound    = "I couldn't find a time in that. Try something like `, in 20m` or `, tomorrow 5pm`."
	messageBadDate        = "That date didn't parse. Try `on 2025-12-15` or `15 dec`."
	messageBadTime        = "That time of day didn't parse. Try `at 17:00` or `5pm`."
	messageEmptyNote      = "What should I remind about? The note came out empty."
	messageInThePast      = "That instant is already in the past. Give me something in the future."
	messageCannotTarget   = "I can remind `me`, a mentioned user, a mentioned role, or `everyone`."
	messageRoleNeedsGuild = "Role and everyone reminders only work inside a server."

	messageNoPendingReminders = "No pending reminders."
	messageCancelNotFound     = "No pending reminder matches that. Say `reminders` to see the list."

	messageNoOpenTasks    = "No open tasks."
	messageAssignUsage    = "Usage: `assign @user <task description>`."
	messageAssignFailed   = "Couldn't save that task. Try again in a bit."
	messageTaskNotFound   = "No open task with that number. Say `tasks` to see the list."
	messageTaskDoneFailed = "Couldn't close that task. Try again in a bit."
)

func confirmReminder(label, note, when, id string, timeDefaulted bool) string {
	text := fmt.Sprintf("Got it. I'll remind %s: **%s**\nWhen: %s", label, note, when)
	if timeDefaulted {
		text += " (default 09:00)"
	}
	return text + fmt.Sprintf("\n-# Cancel with `cancel reminder %s`", id)
}

func confirmCancel(note, when string) string {
	return fmt.Sprintf("Cancelled: **%s** (was due %s)", note, when)
}

func confirmAssign(assigneeID, description, dueText string, dmFailed bool) string {
	text := fmt.Sprintf("Task recorded for <@%s>: **%s**", assigneeID, description)
	if dueText != "" {
		text += fmt.Sprintf(" (due %s)", dueText)
	}
	if dmFailed {
		text += "\n-# Couldn't DM them, they'll have to spot it here."
	}
	return text
}

func confirmTaskDone(assigneeID, description string) string {
	return fmt.Sprintf("Closed <@%s>'s task: **%s**", assigneeID, description)
}

func assignDM(assignerID, description, dueText string) string {
	text := fmt.Sprintf("<@%s> assigned you a task: **%s**", assignerID, description)
	if dueText != "" {
		text += fmt.Sprintf(" (due %s)", dueText)
	}
	return text
}
