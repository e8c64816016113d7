package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/luciverlabs/luciver/internal/repository"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) CreateTask(ctx context.Context, input repository.CreateTaskInput) (*repository.Task, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO tasks (guild_id, assignee_id, assignee_name, assigner_id, description, due_text, assigned_in_channel, created_at, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'open')
		 RETURNING id, guild_id, assignee_id, assignee_name, assigner_id, description, due_text, status, assigned_in_channel, created_at, completed_at`,
		input.GuildID, input.AssigneeID, input.AssigneeName, input.AssignerID,
		input.Description, input.DueText, input.AssignedInChan, input.CreatedAt)
	var t repository.Task
	var completedAt *time.Time
	err := row.Scan(&t.ID, &t.GuildID, &t.AssigneeID, &t.AssigneeName, &t.AssignerID,
		&t.Description, &t.DueText, &t.Status, &t.AssignedInChan, &t.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	t.CompletedAt = completedAt
	return &t, nil
}

func (r *PostgresRepository) ListOpenTasks(ctx context.Context, guildID string) ([]repository.Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, guild_id, assignee_id, assignee_name, assigner_id, description, due_text, status, assigned_in_channel, created_at, completed_at
		 FROM tasks WHERE guild_id = $1 AND status = 'open' ORDER BY created_at ASC`,
		guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.Task
	for rows.Next() {
		var t repository.Task
		var completedAt *time.Time
		if err := rows.Scan(&t.ID, &t.GuildID, &t.AssigneeID, &t.AssigneeName, &t.AssignerID,
			&t.Description, &t.DueText, &t.Status, &t.AssignedInChan, &t.CreatedAt, &completedAt); err != nil {
			return nil, err
		}
		t.CompletedAt = completedAt
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) CompleteTask(ctx context.Context, taskID string, completedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tasks SET status = 'done', completed_at = $2 WHERE id = $1 AND status = 'open'`,
		taskID, completedAt)
	return err
}

func (r *PostgresRepository) RecordDelivery(ctx context.Context, input repository.RecordDeliveryInput) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO reminder_deliveries (reminder_id, audience_kind, subject_id, guild_id, note, requester_id, due_at, sent_at, outcome, attempted, reached)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		input.ReminderID, input.AudienceKind, input.SubjectID, input.GuildID,
		input.Note, input.RequesterID, input.DueAt, input.SentAt,
		input.Outcome, input.Attempted, input.Reached)
	return err
}

func (r *PostgresRepository) RecentDeliveries(ctx context.Context, limit int) ([]repository.DeliveryRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, reminder_id, audience_kind, subject_id, guild_id, note, requester_id, due_at, sent_at, outcome, attempted, reached, created_at
		 FROM reminder_deliveries ORDER BY sent_at DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.DeliveryRecord
	for rows.Next() {
		var d repository.DeliveryRecord
		if err := rows.Scan(&d.ID, &d.ReminderID, &d.AudienceKind, &d.SubjectID, &d.GuildID,
			&d.Note, &d.RequesterID, &d.DueAt, &d.SentAt, &d.Outcome, &d.Attempted, &d.Reached, &d.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) RecordTriggerFiring(ctx context.Context, input repository.RecordTriggerFiringInput) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO trigger_firings (trigger, guild_id, fired_at) VALUES ($1, $2, $3)`,
		input.Trigger, input.GuildID, input.FiredAt)
	return err
}

func (r *PostgresRepository) LastTriggerFiring(ctx context.Context, trigger, guildID string) (*repository.TriggerFiring, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, trigger, guild_id, fired_at, created_at
		 FROM trigger_firings WHERE trigger = $1 AND guild_id = $2
		 ORDER BY fired_at DESC LIMIT 1`,
		trigger, guildID)
	var f repository.TriggerFiring
	err := row.Scan(&f.ID, &f.Trigger, &f.GuildID, &f.FiredAt, &f.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}
