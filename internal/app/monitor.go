package app

import (
	"context"
	"sync"
	"time"

	"interanxy-service/internal/domain"
	"interanxy-service/internal/scoring"
)

// GroupView is one cohort's aggregate as shown on the monitoring board.
type GroupView struct {
	Average int         `json:"average"`
	Count   int         `json:"count"`
	Tier    domain.Tier `json:"tier"`
}

// StatsSnapshot is the instructor-facing picture of a room at a moment.
type StatsSnapshot struct {
	RoomID    string               `json:"roomId"`
	Groups    map[string]GroupView `json:"groups"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// BuildStats aggregates a room's students into cohort views, classified
// against the room's tier bands (stock bands when none are configured).
func BuildStats(room domain.Room, students []*domain.StudentData, now time.Time) StatsSnapshot {
	tiers := room.Tiers
	if len(tiers) == 0 {
		tiers = domain.DefaultTiers()
	}
	groups := make(map[string]GroupView)
	for label, stat := range scoring.AggregateByGroup(students, room.ID) {
		avg := stat.Average()
		groups[label] = GroupView{
			Average: avg,
			Count:   stat.Count,
			Tier:    scoring.ClassifyTier(avg, tiers),
		}
	}
	return StatsSnapshot{RoomID: room.ID, Groups: groups, UpdatedAt: now}
}

// StatsFeed recomputes a room's snapshot after a student-data write and
// publishes it to the room's watchers. Refresh is best effort: a failed
// lookup only skips the broadcast, it never fails the triggering write.
type StatsFeed struct {
	rooms    RoomRepository
	students StudentRepository
	monitor  *Monitor
	now      func() time.Time
}

func NewStatsFeed(rooms RoomRepository, students StudentRepository, monitor *Monitor) *StatsFeed {
	return &StatsFeed{rooms: rooms, students: students, monitor: monitor, now: time.Now}
}

func (f *StatsFeed) Refresh(ctx context.Context, roomID string) {
	room, err := f.rooms.Get(ctx, roomID)
	if err != nil {
		return
	}
	students, err := f.students.ListByRoom(ctx, roomID)
	if err != nil {
		return
	}
	f.monitor.Publish(BuildStats(room, students, f.now()))
}

// Monitor fans stats snapshots out to instructor dashboards watching a room.
type Monitor struct {
	mu   sync.RWMutex
	hubs map[string]*roomHub
}

type roomHub struct {
	subscribers map[chan StatsSnapshot]struct{}
}

func NewMonitor() *Monitor {
	return &Monitor{hubs: make(map[string]*roomHub)}
}

// Subscribe returns a channel of snapshots for one room. The caller must
// invoke the returned cancel function to avoid leaks.
func (m *Monitor) Subscribe(roomID string) (<-chan StatsSnapshot, func()) {
	ch := make(chan StatsSnapshot, 8)

	m.mu.Lock()
	hub, ok := m.hubs[roomID]
	if !ok {
		hub = &roomHub{subscribers: make(map[chan StatsSnapshot]struct{})}
		m.hubs[roomID] = hub
	}
	hub.subscribers[ch] = struct{}{}
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		hub, ok := m.hubs[roomID]
		if !ok {
			return
		}
		if _, ok := hub.subscribers[ch]; ok {
			delete(hub.subscribers, ch)
			close(ch)
		}
		if len(hub.subscribers) == 0 {
			delete(m.hubs, roomID)
		}
	}
	return ch, cancel
}

// Publish delivers a snapshot to every watcher of its room. Slow consumers
// have their stale snapshot dropped rather than blocking the publisher.
func (m *Monitor) Publish(snapshot StatsSnapshot) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hub, ok := m.hubs[snapshot.RoomID]
	if !ok {
		return
	}
	for ch := range hub.subscribers {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}
