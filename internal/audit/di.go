package audit

import (
	"github.com/luciverlabs/luciver/internal/config"
	"github.com/luciverlabs/luciver/internal/discord"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		dc := do.MustInvoke[discord.Client](i)
		return NewChannelLogger(dc, cfg.LogChannelID), nil
	})
}
