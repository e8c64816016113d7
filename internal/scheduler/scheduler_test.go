package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/luciverlabs/luciver/internal/activity"
	"github.com/luciverlabs/luciver/internal/audience"
	"github.com/luciverlabs/luciver/internal/config"
	"github.com/luciverlabs/luciver/internal/discord"
	"github.com/luciverlabs/luciver/internal/reminder"
	"github.com/luciverlabs/luciver/internal/repository"
)

type mockClock struct {
	now time.Time
}

func (c *mockClock) Now() time.Time { return c.now }

type mockDeliverer struct {
	calls   []string
	outcome reminder.Outcome
}

func (d *mockDeliverer) Deliver(rec reminder.Record, now time.Time) reminder.Result {
	d.calls = append(d.calls, rec.ID)
	return reminder.Result{Outcome: d.outcome, Attempted: 1, Reached: 1}
}

type mockSchedClient struct {
	guildIDs    []string
	rolesByName map[string]discord.Role
	roleMembers map[string][]discord.User
	sent        []discord.ChannelMessage
	dms         []string
	dmFail      map[string]bool
	sendErr     error
}

func (m *mockSchedClient) Connect(ctx context.Context) error { return nil }

func (m *mockSchedClient) Close() error { return nil }

func (m *mockSchedClient) Run() error { return nil }

func (m *mockSchedClient) RegisterMessageHandler(func(discord.MessageEvent)) {}

func (m *mockSchedClient) GetBotUserID() (string, error) { return "bot", nil }

func (m *mockSchedClient) SendDirectMessage(userID, content string) error {
	if m.dmFail[userID] {
		return errors.New("dms closed")
	}
	m.dms = append(m.dms, userID)
	return nil
}
func (m *mockSchedClient) SendChannelMessage(msg discord.ChannelMessage) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockSchedClient) FetchUser(userID string) (discord.User, error) {
	return discord.User{ID: userID}, nil
}

func (m *mockSchedClient) FetchRole(guildID, roleID string) (discord.Role, error) {
	return discord.Role{}, errors.New("not used")
}

func (m *mockSchedClient) FindRoleByName(guildID, name string) (discord.Role, error) {
	key := guildID + "/" + name
	if role, ok := m.rolesByName[key]; ok {
		return role, nil
	}
	return discord.Role{}, errors.New("role not found")
}

func (m *mockSchedClient) ListRoleMembers(guildID, roleID string) ([]discord.User, error) {
	return m.roleMembers[guildID+"/"+roleID], nil
}

func (m *mockSchedClient) ListGuildMembers(guildID string) ([]discord.User, error) {
	return nil, nil
}

func (m *mockSchedClient) ListGuildIDs() ([]string, error) { return m.guildIDs, nil }

type mockAudit struct {
	entries []string
}

func (m *mockAudit) Emit(text string, mentionUserIDs []string) {
	m.entries = append(m.entries, text)
}

type mockRepo struct {
	openTasks   map[string][]repository.Task
	deliveries  []repository.RecordDeliveryInput
	firings     []repository.RecordTriggerFiringInput
	lastFirings map[string]*repository.TriggerFiring
}

func (m *mockRepo) CreateTask(ctx context.Context, input repository.CreateTaskInput) (*repository.Task, error) {
	return nil, errors.New("not used")
}

func (m *mockRepo) ListOpenTasks(ctx context.Context, guildID string) ([]repository.Task, error) {
	return m.openTasks[guildID], nil
}

func (m *mockRepo) CompleteTask(ctx context.Context, taskID string, completedAt time.Time) error {
	return nil
}

func (m *mockRepo) RecordDelivery(ctx context.Context, input repository.RecordDeliveryInput) error {
	m.deliveries = append(m.deliveries, input)
	return nil
}

func (m *mockRepo) RecordTriggerFiring(ctx context.Context, input repository.RecordTriggerFiringInput) error {
	m.firings = append(m.firings, input)
	return nil
}

func (m *mockRepo) RecentDeliveries(ctx context.Context, limit int) ([]repository.DeliveryRecord, error) {
	return nil, nil
}

func (m *mockRepo) LastTriggerFiring(ctx context.Context, trigger, guildID string) (*repository.TriggerFiring, error) {
	return m.lastFirings[trigger], nil
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                 "test",
		DiscordToken:        "token",
		DatabaseURL:         "postgres://localhost/test",
		Timezone:            "UTC",
		ModeratorChannelID:  "mod-chan",
		LogChannelID:        "log-chan",
		DailyReminderRole:   "bashers",
		DailyReminderHour:   20,
		DailyReminderMinute: 0,
		DigestWeekday:       0,
		DigestHour:          14,
		StatsReportWeekday:  0,
		StatsReportHour:     18,
		ReminderSweepSec:    30,
		RecurrenceCheckSec:  900,
		WeeklyDebounceHours: 156,
	}
}

func newTestScheduler(cfg *config.Config, client *mockSchedClient, repo *mockRepo, deliverer *mockDeliverer, start time.Time) (*Scheduler, *reminder.Store) {
	store := reminder.NewStore()
	tracker := activity.NewTracker(start)
	clk := &mockClock{now: start}
	sched := New(cfg, store, deliverer, client, &mockAudit{}, repo, tracker, clk)
	return sched, store
}

func enqueue(t *testing.T, store *reminder.Store, note string, created, due time.Time) reminder.Record {
	t.Helper()
	rec, err := store.Enqueue(reminder.EnqueueInput{
		Audience: audience.Descriptor{
			Kind:         audience.KindSelf,
			SubjectID:    "u1",
			DisplayLabel: "<@u1>",
			AuditLabel:   "<@u1>",
		},
		Note:        note,
		DueAt:       due,
		RequesterID: "u1",
		CreatedAt:   created,
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return rec
}

func TestSweepDeliversDueReminderOnce(t *testing.T) {
	start := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
	client := &mockSchedClient{}
	repo := &mockRepo{}
	deliverer := &mockDeliverer{outcome: reminder.OutcomeDelivered}
	sched, store := newTestScheduler(testConfig(), client, repo, deliverer, start)

	rec := enqueue(t, store, "ship release", start, start.Add(time.Minute))

	// Not due yet.
	sched.SweepDue(start.Add(30 * time.Second))
	if len(deliverer.calls) != 0 {
		t.Fatalf("premature delivery: %v", deliverer.calls)
	}

	// Due now; repeated sweeps must not redeliver.
	for i := 0; i < 3; i++ {
		sched.SweepDue(start.Add(time.Minute + time.Duration(i*30)*time.Second))
	}
	if len(deliverer.calls) != 1 || deliverer.calls[0] != rec.ID {
		t.Errorf("delivery calls = %v, want exactly one for %q", deliverer.calls, rec.ID)
	}
	if len(repo.deliveries) != 1 {
		t.Errorf("history writes = %d, want 1", len(repo.deliveries))
	}
	if repo.deliveries[0].Outcome != string(reminder.OutcomeDelivered) {
		t.Errorf("recorded outcome = %q", repo.deliveries[0].Outcome)
	}
}

func TestSweepFailedOutcomeNotRetried(t *testing.T) {
	start := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
	deliverer := &mockDeliverer{outcome: reminder.OutcomeFailed}
	sched, store := newTestScheduler(testConfig(), &mockSchedClient{}, &mockRepo{}, deliverer, start)

	enqueue(t, store, "doomed", start, start.Add(time.Minute))

	sched.SweepDue(start.Add(2 * time.Minute))
	sched.SweepDue(start.Add(3 * time.Minute))
	if len(deliverer.calls) != 1 {
		t.Errorf("delivery calls = %d, want 1 despite failure", len(deliverer.calls))
	}
	if store.PendingCount() != 0 {
		t.Errorf("failed reminder still pending")
	}
}

func TestSweepMultipleDueProcessedIndependently(t *testing.T) {
	start := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
	deliverer := &mockDeliverer{outcome: reminder.OutcomeDelivered}
	sched, store := newTestScheduler(testConfig(), &mockSchedClient{}, &mockRepo{}, deliverer, start)

	enqueue(t, store, "a", start, start.Add(time.Minute))
	enqueue(t, store, "b", start.Add(time.Second), start.Add(2*time.Minute))
	enqueue(t, store, "c", start.Add(2*time.Second), start.Add(time.Hour))

	sched.SweepDue(start.Add(5 * time.Minute))
	if len(deliverer.calls) != 2 {
		t.Errorf("delivery calls = %d, want 2", len(deliverer.calls))
	}
	if store.PendingCount() != 1 {
		t.Errorf("pending after sweep = %d, want 1", store.PendingCount())
	}
}

// Simulates a full week of coarse ticks and asserts the digest fires
// exactly once inside each Sunday 14:00 hour.
func TestWeeklyDigestFiresOncePerWeek(t *testing.T) {
	cfg := testConfig()
	client := &mockSchedClient{guildIDs: []string{"guild-1"}}
	repo := &mockRepo{}
	// Sunday 2025-12-07 00:00 UTC.
	start := time.Date(2025, 12, 7, 0, 0, 0, 0, time.UTC)
	if start.Weekday() != time.Sunday {
		t.Fatal("test anchor is not a Sunday")
	}
	sched, _ := newTestScheduler(cfg, client, repo, &mockDeliverer{}, start)

	tick := cfg.RecurrenceCheckInterval()
	digests := 0
	for now := start; now.Before(start.Add(15 * 24 * time.Hour)); now = now.Add(tick) {
		before := len(client.sent)
		sched.CheckWeekly(now)
		for _, msg := range client.sent[before:] {
			if strings.Contains(msg.Content, "task digest") {
				digests++
				if now.Weekday() != time.Sunday || now.Hour() != 14 {
					t.Errorf("digest fired at %v, outside Sunday 14:00", now)
				}
			}
		}
	}
	if digests != 3 {
		t.Errorf("digest fired %d times over 15 days starting Sunday, want 3", digests)
	}
}

func TestWeeklyTriggerDebounce(t *testing.T) {
	trig := newWeeklyTrigger(time.Sunday, 14, 156*time.Hour)
	sunday14 := time.Date(2025, 12, 7, 14, 0, 0, 0, time.UTC)

	if !trig.shouldFire(sunday14) {
		t.Fatal("first qualifying tick did not fire")
	}
	trig.markFired(sunday14)

	for _, delta := range []time.Duration{15 * time.Minute, 30 * time.Minute, 59 * time.Minute} {
		if trig.shouldFire(sunday14.Add(delta)) {
			t.Errorf("refire at +%v inside same hour", delta)
		}
	}
	// Next Sunday's hour is past the debounce.
	if !trig.shouldFire(sunday14.Add(7 * 24 * time.Hour)) {
		t.Error("did not fire the following Sunday")
	}
	// Wrong weekday or hour never fires.
	if trig.shouldFire(time.Date(2025, 12, 8, 14, 0, 0, 0, time.UTC)) {
		t.Error("fired on a Monday")
	}
	if trig.shouldFire(time.Date(2025, 12, 14, 13, 59, 0, 0, time.UTC)) {
		t.Error("fired outside the target hour")
	}
}

func TestDigestListsOpenTasks(t *testing.T) {
	cfg := testConfig()
	client := &mockSchedClient{guildIDs: []string{"guild-1"}}
	now := time.Date(2025, 12, 7, 14, 0, 0, 0, time.UTC)
	repo := &mockRepo{
		openTasks: map[string][]repository.Task{
			"guild-1": {
				{ID: "t1", AssigneeID: "u1", Description: "update docs", CreatedAt: now.Add(-80 * time.Hour)},
				{ID: "t2", AssigneeID: "u2", Description: "fix deploy", DueText: "Friday", CreatedAt: now.Add(-2 * time.Hour)},
				{ID: "t3", AssigneeID: "u1", Description: "write changelog", CreatedAt: now.Add(-26 * time.Hour)},
			},
		},
	}
	sched, _ := newTestScheduler(cfg, client, repo, &mockDeliverer{}, now)

	sched.sendTaskDigest(now)
	if len(client.sent) != 1 {
		t.Fatalf("messages sent = %d, want 1", len(client.sent))
	}
	text := client.sent[0].Content
	wantLines := []string{
		"3 open task(s)",
		"<@u1>:\n• update docs (assigned 3 days ago)\n• write changelog (assigned 1 day ago)",
		"<@u2>:\n• fix deploy (assigned 2 hr ago, due Friday)",
	}
	for _, want := range wantLines {
		if !strings.Contains(text, want) {
			t.Errorf("digest missing %q:\n%s", want, text)
		}
	}
	if len(repo.firings) != 1 || repo.firings[0].Trigger != triggerTaskDigest {
		t.Errorf("trigger firings = %+v", repo.firings)
	}
}

func TestStatsReportResetsWindow(t *testing.T) {
	cfg := testConfig()
	client := &mockSchedClient{guildIDs: []string{"guild-1"}}
	start := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	sched, _ := newTestScheduler(cfg, client, &mockRepo{}, &mockDeliverer{}, start)

	sched.tracker.Record("chan-a", "u1", "Pat", start)
	sched.tracker.Record("chan-a", "u1", "Pat", start.Add(time.Minute))
	sched.tracker.Record("chan-b", "u2", "Sam", start.Add(2*time.Minute))

	now := start.Add(7 * 24 * time.Hour)
	sched.sendStatsReport(now)

	if len(client.sent) != 1 {
		t.Fatalf("messages sent = %d, want 1", len(client.sent))
	}
	text := client.sent[0].Content
	for _, want := range []string{"Total messages: 3", "<#chan-a>: 2 message(s)", "Pat: 2 message(s)"} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}
	if sched.tracker.TotalMessages() != 0 {
		t.Error("tracker window not reset after report")
	}
}

func TestNextDailyInstant(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before today's slot",
			now:  time.Date(2025, 12, 1, 10, 0, 0, 0, loc),
			want: time.Date(2025, 12, 1, 20, 0, 0, 0, loc),
		},
		{
			name: "exactly at the slot rolls to tomorrow",
			now:  time.Date(2025, 12, 1, 20, 0, 0, 0, loc),
			want: time.Date(2025, 12, 2, 20, 0, 0, 0, loc),
		},
		{
			name: "after the slot",
			now:  time.Date(2025, 12, 1, 21, 30, 0, 0, loc),
			want: time.Date(2025, 12, 2, 20, 0, 0, 0, loc),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextDailyInstant(tt.now, 20, 0)
			if !got.Equal(tt.want) {
				t.Errorf("nextDailyInstant(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestDispatchDailyPingDMsRoleMembers(t *testing.T) {
	cfg := testConfig()
	client := &mockSchedClient{
		guildIDs: []string{"guild-1", "guild-2"},
		rolesByName: map[string]discord.Role{
			"guild-1/bashers": {ID: "role-1", Name: "bashers"},
			"guild-2/bashers": {ID: "role-2", Name: "bashers"},
		},
		roleMembers: map[string][]discord.User{
			"guild-1/role-1": {
				{ID: "u1", DisplayName: "Pat"},
				{ID: "u2", DisplayName: "Sam"},
			},
			// u1 holds the role here too; must not be messaged twice.
			"guild-2/role-2": {
				{ID: "u1", DisplayName: "Pat"},
			},
		},
	}
	repo := &mockRepo{}
	now := time.Date(2025, 12, 1, 20, 0, 0, 0, time.UTC)
	sched, _ := newTestScheduler(cfg, client, repo, &mockDeliverer{}, now)
	auditLog := &mockAudit{}
	sched.audit = auditLog

	sched.DispatchDailyPing(now)

	if len(client.dms) != 2 || client.dms[0] != "u1" || client.dms[1] != "u2" {
		t.Errorf("DMs = %v, want [u1 u2] once each", client.dms)
	}
	if len(client.sent) != 0 {
		t.Errorf("channel messages sent = %d, want 0 (ping goes out as DMs)", len(client.sent))
	}
	if len(repo.firings) != 2 {
		t.Errorf("trigger firings = %+v, want one per targeted guild", repo.firings)
	}
	if len(auditLog.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(auditLog.entries))
	}
	entry := auditLog.entries[0]
	for _, want := range []string{"Daily reminder has been sent", "bashers (guild guild-1)", "Recipients reached: 2/2"} {
		if !strings.Contains(entry, want) {
			t.Errorf("audit entry missing %q:\n%s", want, entry)
		}
	}
}

func TestDispatchDailyPingCountsDMFailures(t *testing.T) {
	cfg := testConfig()
	client := &mockSchedClient{
		guildIDs: []string{"guild-1"},
		rolesByName: map[string]discord.Role{
			"guild-1/bashers": {ID: "role-1", Name: "bashers"},
		},
		roleMembers: map[string][]discord.User{
			"guild-1/role-1": {
				{ID: "u1", DisplayName: "Pat"},
				{ID: "u2", DisplayName: "Sam"},
			},
		},
		dmFail: map[string]bool{"u2": true},
	}
	now := time.Date(2025, 12, 1, 20, 0, 0, 0, time.UTC)
	sched, _ := newTestScheduler(cfg, client, &mockRepo{}, &mockDeliverer{}, now)
	auditLog := &mockAudit{}
	sched.audit = auditLog

	sched.DispatchDailyPing(now)

	if len(client.dms) != 1 || client.dms[0] != "u1" {
		t.Errorf("DMs = %v, want [u1]", client.dms)
	}
	entry := auditLog.entries[0]
	for _, want := range []string{"Recipients reached: 1/2", "DM failures: 1"} {
		if !strings.Contains(entry, want) {
			t.Errorf("audit entry missing %q:\n%s", want, entry)
		}
	}
}

func TestDispatchDailyPingReportsMissingRole(t *testing.T) {
	cfg := testConfig()
	client := &mockSchedClient{guildIDs: []string{"guild-1"}}
	now := time.Date(2025, 12, 1, 20, 0, 0, 0, time.UTC)
	sched, _ := newTestScheduler(cfg, client, &mockRepo{}, &mockDeliverer{}, now)
	auditLog := &mockAudit{}
	sched.audit = auditLog

	sched.DispatchDailyPing(now)

	if len(client.dms) != 0 {
		t.Errorf("DMs = %v, want none", client.dms)
	}
	if len(auditLog.entries) != 1 || !strings.Contains(auditLog.entries[0], `Target role: "bashers" not found`) {
		t.Errorf("audit entries = %v, want not-found notice", auditLog.entries)
	}
}

func TestSeedWeeklyTriggersSuppressesRefireAfterRestart(t *testing.T) {
	cfg := testConfig()
	client := &mockSchedClient{guildIDs: []string{"guild-1"}}
	// Digest already fired this Sunday at 14:00; the process restarts at
	// 14:10, still inside the qualifying hour.
	fired := time.Date(2025, 12, 7, 14, 0, 0, 0, time.UTC)
	repo := &mockRepo{
		lastFirings: map[string]*repository.TriggerFiring{
			triggerTaskDigest: {Trigger: triggerTaskDigest, FiredAt: fired},
		},
		openTasks: map[string][]repository.Task{
			"guild-1": {{ID: "t1", AssigneeID: "u1", Description: "update docs", CreatedAt: fired.Add(-time.Hour)}},
		},
	}
	sched, _ := newTestScheduler(cfg, client, repo, &mockDeliverer{}, fired.Add(10*time.Minute))

	sched.seedWeeklyTriggers()
	sched.CheckWeekly(fired.Add(10 * time.Minute))

	if len(client.sent) != 0 {
		t.Errorf("messages sent = %d, want 0 (digest already fired this week)", len(client.sent))
	}
	// The following Sunday fires normally.
	sched.CheckWeekly(fired.Add(7 * 24 * time.Hour))
	if len(client.sent) != 1 {
		t.Errorf("messages sent after a week = %d, want 1", len(client.sent))
	}
}
