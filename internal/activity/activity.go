// Package activity counts guild message traffic per channel and per
// member. The counters are volatile and reset whenever a stats report is
// generated, so each report covers one reporting window.
package activity

import (
	"sort"
	"sync"
	"time"
)

type ChannelCount struct {
	ChannelID string
	Messages  int
}

type MemberCount struct {
	UserID   string
	Name     string
	Messages int
	LastSeen time.Time
}

// Snapshot is one reporting window's worth of traffic.
type Snapshot struct {
	WindowStart   time.Time
	WindowEnd     time.Time
	TotalMessages int
	Channels      []ChannelCount
	Members       []MemberCount
}

type memberEntry struct {
	name     string
	messages int
	lastSeen time.Time
}

// Tracker accumulates message counts between stats reports.
type Tracker struct {
	mu          sync.Mutex
	windowStart time.Time
	channels    map[string]int
	members     map[string]*memberEntry
	total       int
}

func NewTracker(now time.Time) *Tracker {
	return &Tracker{
		windowStart: now,
		channels:    make(map[string]int),
		members:     make(map[string]*memberEntry),
	}
}

// Record counts one message. Bot traffic is the caller's responsibility
// to filter out before recording.
func (t *Tracker) Record(channelID, userID, userName string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total++
	t.channels[channelID]++
	entry, ok := t.members[userID]
	if !ok {
		entry = &memberEntry{}
		t.members[userID] = entry
	}
	entry.messages++
	entry.lastSeen = at
	if userName != "" {
		entry.name = userName
	}
}

func (t *Tracker) TotalMessages() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// View returns the current window's counts, sorted busiest first,
// without disturbing them. Used for on-demand stats.
func (t *Tracker) View(now time.Time) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked(now)
}

// Snapshot returns the current window's counts, sorted busiest first,
// and resets the counters so the next window starts empty.
func (t *Tracker) Snapshot(now time.Time) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.snapshotLocked(now)
	t.windowStart = now
	t.channels = make(map[string]int)
	t.members = make(map[string]*memberEntry)
	t.total = 0
	return snap
}

func (t *Tracker) snapshotLocked(now time.Time) Snapshot {
	snap := Snapshot{
		WindowStart:   t.windowStart,
		WindowEnd:     now,
		TotalMessages: t.total,
		Channels:      make([]ChannelCount, 0, len(t.channels)),
		Members:       make([]MemberCount, 0, len(t.members)),
	}
	for id, n := range t.channels {
		snap.Channels = append(snap.Channels, ChannelCount{ChannelID: id, Messages: n})
	}
	for id, entry := range t.members {
		snap.Members = append(snap.Members, MemberCount{UserID: id, Name: entry.name, Messages: entry.messages, LastSeen: entry.lastSeen})
	}
	sort.Slice(snap.Channels, func(i, j int) bool {
		if snap.Channels[i].Messages != snap.Channels[j].Messages {
			return snap.Channels[i].Messages > snap.Channels[j].Messages
		}
		return snap.Channels[i].ChannelID < snap.Channels[j].ChannelID
	})
	sort.Slice(snap.Members, func(i, j int) bool {
		if snap.Members[i].Messages != snap.Members[j].Messages {
			return snap.Members[i].Messages > snap.Members[j].Messages
		}
		return snap.Members[i].UserID < snap.Members[j].UserID
	})
	return snap
}
