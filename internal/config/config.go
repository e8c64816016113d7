package config

import (
	"fmt"
	"time"
)

type Config struct {
	Env                 string
	DiscordToken        string
	DatabaseURL         string
	Timezone            string
	ModeratorChannelID  string
	LogChannelID        string
	DailyReminderRole   string
	DailyReminderHour   int
	DailyReminderMinute int
	DigestWeekday       int
	DigestHour          int
	StatsReportWeekday  int
	StatsReportHour     int
	ReminderSweepSec    int
	RecurrenceCheckSec  int
	WeeklyDebounceHours int
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("LUCIVER_TIMEZONE is invalid: %w", err)
	}
	if c.DailyReminderHour < 0 || c.DailyReminderHour > 23 {
		return fmt.Errorf("DAILY_REMINDER_HOUR must be 0-23, got %d", c.DailyReminderHour)
	}
	if c.DailyReminderMinute < 0 || c.DailyReminderMinute > 59 {
		return fmt.Errorf("DAILY_REMINDER_MINUTE must be 0-59, got %d", c.DailyReminderMinute)
	}
	for _, check := range []struct {
		name string
		val  int
		max  int
	}{
		{name: "TASK_DIGEST_TARGET_DAY", val: c.DigestWeekday, max: 6},
		{name: "STATS_REPORT_TARGET_DAY", val: c.StatsReportWeekday, max: 6},
		{name: "TASK_DIGEST_TARGET_HOUR", val: c.DigestHour, max: 23},
		{name: "STATS_REPORT_TARGET_HOUR", val: c.StatsReportHour, max: 23},
	} {
		if check.val < 0 || check.val > check.max {
			return fmt.Errorf("%s must be 0-%d, got %d", check.name, check.max, check.val)
		}
	}
	if c.ReminderSweepSec <= 0 {
		return fmt.Errorf("REMINDER_CHECK_INTERVAL_SEC must be positive, got %d", c.ReminderSweepSec)
	}
	if c.RecurrenceCheckSec <= 0 {
		return fmt.Errorf("RECURRENCE_CHECK_INTERVAL_SEC must be positive, got %d", c.RecurrenceCheckSec)
	}
	if c.WeeklyDebounceHours <= 0 {
		return fmt.Errorf("WEEKLY_DEBOUNCE_HOURS must be positive, got %d", c.WeeklyDebounceHours)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "DISCORD_TOKEN", value: c.DiscordToken},
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "LUCIVER_TIMEZONE", value: c.Timezone},
		{name: "DAILY_REMINDER_ROLE_NAME", value: c.DailyReminderRole},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Location resolves the configured timezone. Validate must have passed first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) ReminderSweepInterval() time.Duration {
	return time.Duration(c.ReminderSweepSec) * time.Second
}

func (c *Config) RecurrenceCheckInterval() time.Duration {
	return time.Duration(c.RecurrenceCheckSec) * time.Second
}

// WeeklyDebounce stays just under a full week so a trigger that fired late
// within last week's target hour still qualifies this week.
func (c *Config) WeeklyDebounce() time.Duration {
	return time.Duration(c.WeeklyDebounceHours) * time.Hour
}
