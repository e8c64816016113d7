package repository

import "time"

type TaskStatus string

const (
	TaskStatusOpen TaskStatus = "open"
	TaskStatusDone TaskStatus = "done"
)

type Task struct {
	ID             string
	GuildID        string
	AssigneeID     string
	AssigneeName   string
	AssignerID     string
	Description    string
	DueText        string
	Status         TaskStatus
	AssignedInChan string
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

type DeliveryRecord struct {
	ID           string
	ReminderID   string
	AudienceKind string
	SubjectID    string
	GuildID      string
	Note         string
	RequesterID  string
	DueAt        time.Time
	SentAt       time.Time
	Outcome      string
	Attempted    int
	Reached      int
	CreatedAt    time.Time
}

type TriggerFiring struct {
	ID        string
	Trigger   string
	GuildID   string
	FiredAt   time.Time
	CreatedAt time.Time
}
