package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`DO $$ BEGIN CREATE TYPE task_status AS ENUM ('open', 'done'); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		guild_id TEXT NOT NULL,
		assignee_id TEXT NOT NULL,
		assignee_name TEXT NOT NULL,
		assigner_id TEXT NOT NULL,
		description TEXT NOT NULL,
		due_text TEXT NOT NULL DEFAULT '',
		status task_status NOT NULL DEFAULT 'open',
		assigned_in_channel TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_open ON tasks (guild_id, created_at) WHERE status = 'open'`,
	`CREATE TABLE IF NOT EXISTS reminder_deliveries (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		reminder_id TEXT NOT NULL,
		audience_kind TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		guild_id TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL,
		requester_id TEXT NOT NULL,
		due_at TIMESTAMPTZ NOT NULL,
		sent_at TIMESTAMPTZ NOT NULL,
		outcome TEXT NOT NULL,
		attempted INTEGER NOT NULL DEFAULT 0,
		reached INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reminder_deliveries_sent ON reminder_deliveries (sent_at)`,
	`CREATE TABLE IF NOT EXISTS trigger_firings (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		trigger TEXT NOT NULL,
		guild_id TEXT NOT NULL DEFAULT '',
		fired_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trigger_firings_lookup ON trigger_firings (trigger, guild_id, fired_at DESC)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
