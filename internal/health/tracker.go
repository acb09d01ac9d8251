// Package health tracks the last known state of the sync collaborators and
// the most recent sync outcome.
package health

import (
	"sync"
	"time"
)

// Outcome is the result classification of a sync cycle.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// ClientHealth records whether a collaborator client is usable.
type ClientHealth struct {
	Ready  bool   `json:"ready"`
	Detail string `json:"detail"`
}

// SyncResult is the outcome of a single sync cycle. Error holds the error
// string only; secret values never appear in it.
type SyncResult struct {
	Outcome   Outcome   `json:"outcome"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// Succeeded reports whether the cycle completed.
func (r SyncResult) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// Snapshot is a point-in-time copy of the tracker state.
type Snapshot struct {
	Source   ClientHealth
	Sink     ClientHealth
	LastSync *SyncResult
}

// Tracker holds process-wide sync health. All access goes through the mutex;
// Report returns copies so callers never observe a half-written update.
type Tracker struct {
	mu       sync.RWMutex
	source   ClientHealth
	sink     ClientHealth
	lastSync *SyncResult
}

// NewTracker returns a tracker in the not-yet-initialized state.
func NewTracker() *Tracker {
	return &Tracker{
		source: ClientHealth{Detail: "not yet initialized"},
		sink:   ClientHealth{Detail: "not yet initialized"},
	}
}

// SetSourceHealth records the source client's readiness.
func (t *Tracker) SetSourceHealth(ready bool, detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.source = ClientHealth{Ready: ready, Detail: detail}
}

// SetSinkHealth records the sink client's readiness.
func (t *Tracker) SetSinkHealth(ready bool, detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sink = ClientHealth{Ready: ready, Detail: detail}
}

// RecordSync overwrites the last sync outcome.
func (t *Tracker) RecordSync(result SyncResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := result
	t.lastSync = &r
}

// Report returns the current snapshot. LastSync is nil until the first cycle.
func (t *Tracker) Report() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := Snapshot{
		Source: t.source,
		Sink:   t.sink,
	}
	if t.lastSync != nil {
		r := *t.lastSync
		snap.LastSync = &r
	}
	return snap
}

// Healthy reports whether both collaborator clients are ready.
func (s Snapshot) Healthy() bool {
	return s.Source.Ready && s.Sink.Ready
}
