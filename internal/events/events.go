// Package events publishes party lifecycle notifications so the host can
// tell affected players what happened.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindCreated   Kind = "created"
	KindInvited   Kind = "invited"
	KindKicked    Kind = "kicked"
	KindLeft      Kind = "left"
	KindDisbanded Kind = "disbanded"
	KindRenamed   Kind = "renamed"
)

type Event struct {
	Kind    Kind        `json:"kind"`
	PartyID int64       `json:"party_id"`
	Actor   uuid.UUID   `json:"actor"`
	Target  *uuid.UUID  `json:"target,omitempty"`
	Members []uuid.UUID `json:"members,omitempty"`
	Name    string      `json:"name,omitempty"`
	At      time.Time   `json:"at"`
}

// Notifier delivers events. Delivery is best effort: callers log failures
// and never roll back a committed change because of them.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the recorded kinds in order.
func (r *Recorder) Kinds() []Kind {
	evs := r.Events()
	kinds := make([]Kind, len(evs))
	for i, e := range evs {
		kinds[i] = e.Kind
	}
	return kinds
}
