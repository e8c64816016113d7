// Package scheduler drives everything time triggered: the due-reminder
// sweep, the weekly task digest and stats report, and the daily role ping.
// Fixed-cadence work runs on cron ticks; the daily ping re-arms its own
// timer after each firing.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/luciverlabs/luciver/internal/activity"
	"github.com/luciverlabs/luciver/internal/audit"
	"github.com/luciverlabs/luciver/internal/clock"
	"github.com/luciverlabs/luciver/internal/config"
	"github.com/luciverlabs/luciver/internal/discord"
	"github.com/luciverlabs/luciver/internal/reminder"
	"github.com/luciverlabs/luciver/internal/repository"
)

const historyWriteTimeout = 5 * time.Second

// Deliverer is what the sweep needs from the delivery engine.
type Deliverer interface {
	Deliver(rec reminder.Record, now time.Time) reminder.Result
}

type Scheduler struct {
	cfg     *config.Config
	store   *reminder.Store
	engine  Deliverer
	client  discord.Client
	audit   audit.Logger
	repo    repository.Repository
	tracker *activity.Tracker
	clk     clock.Clock
	loc     *time.Location

	digestTrigger *weeklyTrigger
	statsTrigger  *weeklyTrigger

	cron *cron.Cron

	mu         sync.Mutex
	dailyTimer *time.Timer
	stopped    bool
}

func New(
	cfg *config.Config,
	store *reminder.Store,
	engine Deliverer,
	client discord.Client,
	auditLog audit.Logger,
	repo repository.Repository,
	tracker *activity.Tracker,
	clk clock.Clock,
) *Scheduler {
	loc := cfg.Location()
	return &Scheduler{
		cfg:     cfg,
		store:   store,
		engine:  engine,
		client:  client,
		audit:   auditLog,
		repo:    repo,
		tracker: tracker,
		clk:     clk,
		loc:     loc,
		digestTrigger: newWeeklyTrigger(
			time.Weekday(cfg.DigestWeekday), cfg.DigestHour, cfg.WeeklyDebounce()),
		statsTrigger: newWeeklyTrigger(
			time.Weekday(cfg.StatsReportWeekday), cfg.StatsReportHour, cfg.WeeklyDebounce()),
	}
}

// Start registers the cron entries and arms the daily ping timer. Jobs
// that are still running when their next tick arrives are skipped rather
// than stacked.
func (s *Scheduler) Start() error {
	s.cron = cron.New(
		cron.WithLocation(s.loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	sweepSpec := fmt.Sprintf("@every %s", s.cfg.ReminderSweepInterval())
	if _, err := s.cron.AddFunc(sweepSpec, func() { s.SweepDue(s.clk.Now()) }); err != nil {
		return fmt.Errorf("failed to register reminder sweep: %w", err)
	}
	recurrenceSpec := fmt.Sprintf("@every %s", s.cfg.RecurrenceCheckInterval())
	if _, err := s.cron.AddFunc(recurrenceSpec, func() { s.CheckWeekly(s.clk.Now()) }); err != nil {
		return fmt.Errorf("failed to register weekly trigger check: %w", err)
	}

	s.seedWeeklyTriggers()
	s.cron.Start()
	s.armDailyPing()
	slog.Info("scheduler started",
		"sweep_interval", s.cfg.ReminderSweepInterval().String(),
		"recurrence_interval", s.cfg.RecurrenceCheckInterval().String(),
		"timezone", s.loc.String())
	return nil
}

// Stop halts the cron entries and the daily timer and drops any pending
// reminders. Pending records do not survive a restart.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.dailyTimer != nil {
		s.dailyTimer.Stop()
		s.dailyTimer = nil
	}
	s.mu.Unlock()

	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	dropped := s.store.PendingCount()
	s.store.Clear()
	if dropped > 0 {
		slog.Info("dropped pending reminders at shutdown", "count", dropped)
	}
}

// SweepDue delivers every reminder whose due time has elapsed. Each record
// gets exactly one attempt; the record is stamped sent whatever the
// outcome, so a failed delivery is never retried on a later sweep.
func (s *Scheduler) SweepDue(now time.Time) {
	due := s.store.Due(now)
	for _, rec := range due {
		result := s.engine.Deliver(rec, now)
		if !s.store.MarkSent(rec.ID, now, result.Outcome) {
			slog.Warn("due reminder vanished before it could be stamped", "reminder_id", rec.ID)
			continue
		}
		slog.Info("reminder delivered",
			"reminder_id", rec.ID,
			"outcome", string(result.Outcome),
			"attempted", result.Attempted,
			"reached", result.Reached)
		s.recordDeliveryHistory(rec, result, now)
	}
}

func (s *Scheduler) recordDeliveryHistory(rec reminder.Record, result reminder.Result, now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()
	err := s.repo.RecordDelivery(ctx, repository.RecordDeliveryInput{
		ReminderID:   rec.ID,
		AudienceKind: rec.Audience.Kind.String(),
		SubjectID:    rec.Audience.SubjectID,
		GuildID:      rec.Audience.GuildID,
		Note:         rec.Note,
		RequesterID:  rec.RequesterID,
		DueAt:        rec.DueAt,
		SentAt:       now,
		Outcome:      string(result.Outcome),
		Attempted:    result.Attempted,
		Reached:      result.Reached,
	})
	if err != nil {
		slog.Error("failed to record delivery history", "error", err, "reminder_id", rec.ID)
	}
}
