package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/luciverlabs/luciver/internal/config"
)

type envConfig struct {
	Env                 string `env:"ENV" envDefault:"production"`
	DiscordToken        string `env:"DISCORD_TOKEN,required"`
	DatabaseURL         string `env:"DATABASE_URL,required"`
	Timezone            string `env:"LUCIVER_TIMEZONE" envDefault:"Asia/Kolkata"`
	ModeratorChannelID  string `env:"MODERATOR_CHANNEL_ID"`
	LogChannelID        string `env:"LUCIVER_LOG_CHANNEL_ID"`
	DailyReminderRole   string `env:"DAILY_REMINDER_ROLE_NAME" envDefault:"bashers"`
	DailyReminderHour   int    `env:"DAILY_REMINDER_HOUR" envDefault:"20"`
	DailyReminderMinute int    `env:"DAILY_REMINDER_MINUTE" envDefault:"0"`
	DigestWeekday       int    `env:"TASK_DIGEST_TARGET_DAY" envDefault:"0"`
	DigestHour          int    `env:"TASK_DIGEST_TARGET_HOUR" envDefault:"14"`
	StatsReportWeekday  int    `env:"STATS_REPORT_TARGET_DAY" envDefault:"0"`
	StatsReportHour     int    `env:"STATS_REPORT_TARGET_HOUR" envDefault:"18"`
	ReminderSweepSec    int    `env:"REMINDER_CHECK_INTERVAL_SEC" envDefault:"30"`
	RecurrenceCheckSec  int    `env:"RECURRENCE_CHECK_INTERVAL_SEC" envDefault:"900"`
	WeeklyDebounceHours int    `env:"WEEKLY_DEBOUNCE_HOURS" envDefault:"156"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                 raw.Env,
		DiscordToken:        raw.DiscordToken,
		DatabaseURL:         raw.DatabaseURL,
		Timezone:            raw.Timezone,
		ModeratorChannelID:  raw.ModeratorChannelID,
		LogChannelID:        raw.LogChannelID,
		DailyReminderRole:   raw.DailyReminderRole,
		DailyReminderHour:   raw.DailyReminderHour,
		DailyReminderMinute: raw.DailyReminderMinute,
		DigestWeekday:       raw.DigestWeekday,
		DigestHour:          raw.DigestHour,
		StatsReportWeekday:  raw.StatsReportWeekday,
		StatsReportHour:     raw.StatsReportHour,
		ReminderSweepSec:    raw.ReminderSweepSec,
		RecurrenceCheckSec:  raw.RecurrenceCheckSec,
		WeeklyDebounceHours: raw.WeeklyDebounceHours,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
