package activity

import (
	"github.com/luciverlabs/luciver/internal/clock"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Tracker, error) {
		clk := do.MustInvoke[clock.Clock](i)
		return NewTracker(clk.Now()), nil
	})
}
