package scheduler

import (
	"github.com/luciverlabs/luciver/internal/activity"
	"github.com/luciverlabs/luciver/internal/audit"
	"github.com/luciverlabs/luciver/internal/clock"
	"github.com/luciverlabs/luciver/internal/config"
	"github.com/luciverlabs/luciver/internal/discord"
	"github.com/luciverlabs/luciver/internal/reminder"
	"github.com/luciverlabs/luciver/internal/repository"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Scheduler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		store := do.MustInvoke[*reminder.Store](i)
		engine := do.MustInvoke[*reminder.Engine](i)
		dc := do.MustInvoke[discord.Client](i)
		auditLog := do.MustInvoke[audit.Logger](i)
		repo := do.MustInvoke[repository.Repository](i)
		tracker := do.MustInvoke[*activity.Tracker](i)
		clk := do.MustInvoke[clock.Clock](i)
		return New(cfg, store, engine, dc, auditLog, repo, tracker, clk), nil
	})
}
