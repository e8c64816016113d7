package repository

import (
	"context"
	"time"
)

type CreateTaskInput struct {
	GuildID        string
	AssigneeID     string
	AssigneeName   string
	AssignerID     string
	Description    string
	DueText        string
	AssignedInChan string
	CreatedAt      time.Time
}

type RecordDeliveryInput struct {
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
}

type RecordTriggerFiringInput struct {
	Trigger string
	GuildID string
	FiredAt time.Time
}

type TaskRepository interface {
	CreateTask(ctx context.Context, input CreateTaskInput) (*Task, error)
	ListOpenTasks(ctx context.Context, guildID string) ([]Task, error)
	CompleteTask(ctx context.Context, taskID string, completedAt time.Time) error
}

type HistoryRepository interface {
	RecordDelivery(ctx context.Context, input RecordDeliveryInput) error
	RecentDeliveries(ctx context.Context, limit int) ([]DeliveryRecord, error)
	RecordTriggerFiring(ctx context.Context, input RecordTriggerFiringInput) error
	LastTriggerFiring(ctx context.Context, trigger, guildID string) (*TriggerFiring, error)
}

type Repository interface {
	TaskRepository
	HistoryRepository
}
