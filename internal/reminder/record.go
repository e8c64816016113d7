// Package reminder holds the pending-notification queue and the delivery
// engine that expands audiences and performs per-recipient notification.
// The queue is volatile by design: process restart drops all pending
// records.
package reminder

import (
	"time"

	"github.com/luciverlabs/luciver/internal/audience"
)

// Outcome classifies one delivery attempt. Every outcome is terminal;
// failed sends are never retried.
type Outcome string

const (
	OutcomeDelivered       Outcome = "delivered"
	OutcomePartial         Outcome = "partial"
	OutcomeChannelFallback Outcome = "channel_fallback"
	OutcomeFailed          Outcome = "failed"
)

func (o Outcome) Label(attempted, reached int) string {
	switch o {
	case OutcomeDelivered:
		return "Direct Messages"
	case OutcomePartial:
		return "Partial delivery"
	case OutcomeChannelFallback:
		return "Channel fallback"
	default:
		if attempted == 0 {
			return "No recipients"
		}
		return "Direct Messages failed"
	}
}

type Record struct {
	ID              string
	Audience        audience.Descriptor
	Note            string
	OriginChannelID string
	RequesterID     string
	CreatedAt       time.Time
	DueAt           time.Time
	SentAt          *time.Time
	Outcome         Outcome
	TimeDefaulted   bool
}

func (r Record) Pending() bool {
	return r.SentAt == nil
}
