package server

import (
	"sync"
	"time"

	openairealtime "github.com/haivivi/rtcall/pkg/openai-realtime"
)

// Tracker is an observer that remembers what a status surface needs to
// show: the last status line and when the current call started and
// connected.
type Tracker struct {
	now func() time.Time

	mu          sync.Mutex
	status      string
	startedAt   time.Time
	connectedAt time.Time
	calls       int
	inbound     int
	outbound    int
}

// NewTracker returns an empty Tracker. now defaults to time.Now.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{now: now, status: openairealtime.StatusDisconnected}
}

// Snapshot is a copy of the tracked values.
type Snapshot struct {
	Status      string
	StartedAt   time.Time
	ConnectedAt time.Time
	Calls       int
	Inbound     int
	Outbound    int
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		Status:      t.status,
		StartedAt:   t.startedAt,
		ConnectedAt: t.connectedAt,
		Calls:       t.calls,
		Inbound:     t.inbound,
		Outbound:    t.outbound,
	}
}

func (t *Tracker) OnStatusChange(status string) {
	t.mu.Lock()
	t.status = status
	t.mu.Unlock()
}

func (t *Tracker) OnStateChange(_, to openairealtime.State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch to {
	case openairealtime.StateBootstrapping:
		t.calls++
		t.startedAt = t.now()
		t.connectedAt = time.Time{}
		t.inbound, t.outbound = 0, 0
	case openairealtime.StateDisconnected:
		t.startedAt = time.Time{}
		t.connectedAt = time.Time{}
	}
}

func (t *Tracker) OnConnected() {
	t.mu.Lock()
	t.connectedAt = t.now()
	t.mu.Unlock()
}

func (t *Tracker) OnDisconnected() {}

func (t *Tracker) OnEvent(dir openairealtime.Direction, _ string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if dir == openairealtime.DirectionInbound {
		t.inbound++
	} else {
		t.outbound++
	}
}

var _ openairealtime.Observer = (*Tracker)(nil)
