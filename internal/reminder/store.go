package reminder

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/luciverlabs/luciver/internal/audience"
)

var (
	ErrDueNotInFuture = errors.New("reminder due time is not in the future")
	ErrNotFound       = errors.New("no matching pending reminder")
)

// Store is the in-memory reminder queue. All access goes through the
// mutex; the scheduler's sweep and user-triggered cancellations therefore
// never interleave mid-record.
type Store struct {
	mu      sync.Mutex
	records []*Record
}

func NewStore() *Store {
	return &Store{}
}

type EnqueueInput struct {
	Audience        audience.Descriptor
	Note            string
	DueAt           time.Time
	OriginChannelID string
	RequesterID     string
	CreatedAt       time.Time
	TimeDefaulted   bool
}

// Enqueue adds a pending record. Past-due instants are rejected here as a
// second line of defense behind the parser.
func (s *Store) Enqueue(in EnqueueInput) (Record, error) {
	if !in.DueAt.After(in.CreatedAt) {
		return Record{}, ErrDueNotInFuture
	}
	rec := &Record{
		ID:              fmt.Sprintf("%d-%s", in.CreatedAt.UnixMilli(), in.Audience.SubjectID),
		Audience:        in.Audience,
		Note:            in.Note,
		OriginChannelID: in.OriginChannelID,
		RequesterID:     in.RequesterID,
		CreatedAt:       in.CreatedAt,
		DueAt:           in.DueAt,
		TimeDefaulted:   in.TimeDefaulted,
	}
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	return *rec, nil
}

// Pending returns copies of the pending records sorted ascending by due
// time. The ordering also defines the 1-based display index Cancel accepts.
func (s *Store) Pending() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked()
}

func (s *Store) pendingLocked() []Record {
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		if rec.Pending() {
			out = append(out, *rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueAt.Before(out[j].DueAt)
	})
	return out
}

// Due returns copies of pending records whose due time is at or before now.
func (s *Store) Due(now time.Time) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0)
	for _, rec := range s.records {
		if rec.Pending() && !rec.DueAt.After(now) {
			out = append(out, *rec)
		}
	}
	return out
}

// MarkSent stamps a pending record as terminally sent with the delivery
// outcome. It reports false when the record is unknown or already sent,
// which callers treat as "do not deliver again".
func (s *Store) MarkSent(id string, at time.Time, outcome Outcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ID == id && rec.Pending() {
			stamped := at
			rec.SentAt = &stamped
			rec.Outcome = outcome
			return true
		}
	}
	return false
}

// Cancel removes a pending record addressed either by its 1-based display
// index (optionally prefixed with '#') or by its literal id. The index
// interpretation wins when both could apply.
func (s *Store) Cancel(token string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.pendingLocked()
	if len(pending) == 0 {
		return Record{}, ErrNotFound
	}

	raw := strings.TrimSpace(token)
	stripped := strings.TrimPrefix(raw, "#")

	var target *Record
	if idx, err := strconv.Atoi(stripped); err == nil && idx >= 1 && idx <= len(pending) {
		target = s.findLocked(pending[idx-1].ID)
	}
	if target == nil {
		for _, cand := range pending {
			if cand.ID == raw || cand.ID == stripped {
				target = s.findLocked(cand.ID)
				break
			}
		}
	}
	if target == nil {
		return Record{}, ErrNotFound
	}

	removed := *target
	for i, rec := range s.records {
		if rec == target {
			s.records = append(s.records[:i], s.records[i+1:]...)
			break
		}
	}
	return removed, nil
}

func (s *Store) findLocked(id string) *Record {
	for _, rec := range s.records {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}

func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.records {
		if rec.Pending() {
			n++
		}
	}
	return n
}

// Clear drops every record. Used at process stop.
func (s *Store) Clear() {
	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()
}
