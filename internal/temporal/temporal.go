// Package temporal turns free-form schedule text ("in 20m", "tomorrow 5pm",
// "on 2025-12-15 at 09:00") into absolute instants anchored to a fixed
// timezone. Parsing is pure: callers pass the current instant, already
// localized to the configured zone.
package temporal

import (
	"errors"
	"time"
)

var (
	ErrNoTimeFound    = errors.New("no schedule expression found")
	ErrUnparsableDate = errors.New("date could not be parsed")
	ErrUnparsableTime = errors.New("time of day could not be parsed")
	ErrEmptyNote      = errors.New("reminder note is empty")
	ErrInThePast      = errors.New("scheduled instant is in the past")
)

// Expression is the resolved form of a schedule clause. It is consumed
// immediately by the reminder-creation path and never stored.
type Expression struct {
	DueAt         time.Time
	Note          string
	TimeDefaulted bool
}

const defaultHour = 9
