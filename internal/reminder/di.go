package reminder

import (
	"github.com/luciverlabs/luciver/internal/audit"
	"github.com/luciverlabs/luciver/internal/config"
	"github.com/luciverlabs/luciver/internal/discord"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Store, error) {
		return NewStore(), nil
	})
	do.Provide(injector, func(i do.Injector) (*Engine, error) {
		cfg := do.MustInvoke[*config.Config](i)
		dc := do.MustInvoke[discord.Client](i)
		auditLog := do.MustInvoke[audit.Logger](i)
		return NewEngine(dc, auditLog, cfg.Location()), nil
	})
}
