// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// App is one tracked application with its own usage and limit state.
// Usage is simulated wall-clock accrual: there is no OS-level monitoring.
type App struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Color string `json:"color"`
	Icon  string `json:"icon"`

	// UsedSeconds never exceeds LimitSeconds when LimitSeconds > 0.
	UsedSeconds  int64 `json:"used_seconds"`
	LimitSeconds int64 `json:"limit_seconds"` // 0 means unlimited

	Running   bool       `json:"running"`
	StartedAt *time.Time `json:"started_at,omitempty"`

	// BaseUsed is the UsedSeconds snapshot taken when accrual last
	// (re)started. Accrual is always BaseUsed + floor(now-StartedAt),
	// never repeated small increments, so it stays correct across
	// missed ticks and process restarts.
	BaseUsed int64 `json:"base_used"`
}

// Unlimited reports whether the app has no per-app limit.
func (a *App) Unlimited() bool {
	return a.LimitSeconds == 0
}

// EventKind identifies an entry in the usage event log.
type EventKind string

const (
	EventStart EventKind = "start"
	EventStop  EventKind = "stop"
)

// Event is one append-only audit record. The engine never reads the
// log back; it exists for the report exporter.
type Event struct {
	ID           string    `json:"id"`
	Kind         EventKind `json:"kind"`
	AppID        string    `json:"app"`
	Timestamp    time.Time `json:"timestamp"`
	ReachedLimit bool      `json:"reached_limit"`
}

// NewEvent creates an audit record with a fresh ID.
func NewEvent(kind EventKind, appID string, ts time.Time, reachedLimit bool) Event {
	return Event{
		ID:           uuid.NewString(),
		Kind:         kind,
		AppID:        appID,
		Timestamp:    ts,
		ReachedLimit: reachedLimit,
	}
}

// Ledger is the aggregate root: every tracked app plus aggregate
// settings. The app set is fixed at initialization; the timer engine
// holds sole mutable ownership for the process lifetime.
type Ledger struct {
	ChildName         string  `json:"child_name"`
	TotalLimitSeconds int64   `json:"total_limit_seconds"` // 0 means unlimited aggregate
	Apps              []*App  `json:"apps"`
	EventLog          []Event `json:"event_log"`
}

// App returns the tracked app with the given id, or nil.
func (l *Ledger) App(id string) *App {
	for _, a := range l.Apps {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// Clone returns a deep copy. The projector and exporter only ever see
// clones; they must never observe a half-mutated ledger.
func (l *Ledger) Clone() *Ledger {
	c := &Ledger{
		ChildName:         l.ChildName,
		TotalLimitSeconds: l.TotalLimitSeconds,
		Apps:              make([]*App, len(l.Apps)),
		EventLog:          make([]Event, len(l.EventLog)),
	}
	for i, a := range l.Apps {
		ac := *a
		if a.StartedAt != nil {
			t := *a.StartedAt
			ac.StartedAt = &t
		}
		c.Apps[i] = &ac
	}
	copy(c.EventLog, l.EventLog)
	return c
}

// Status is the derived per-app state shown everywhere. Locked is not
// stored anywhere: it is computed from usage vs limit.
type Status string

const (
	StatusRunning Status = "Running"
	StatusLocked  Status = "Locked"
	StatusStopped Status = "Stopped"
)

// AppView is the projected read model for one app.
type AppView struct {
	ID           string
	Label        string
	Color        string
	Icon         string
	UsedSeconds  int64
	LimitSeconds int64
	Status       Status
}

// ViewModel is the projected read model for the whole dashboard.
type ViewModel struct {
	ChildName         string
	TotalUsedSeconds  int64
	TotalLimitSeconds int64
	UsedPercent       int
	Apps              []AppView
}
