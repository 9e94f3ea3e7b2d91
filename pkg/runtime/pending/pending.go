// Copyright 2025 The fpath Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pending tracks external calls discovered during evaluation
// passes. Records are keyed by call fingerprint, so identical calls issued
// from different expression positions, or across passes, collapse into a
// single record.
//
// A registry belongs to exactly one top-level evaluation and is discarded
// when it returns. During the resolve phase distinct fingerprints are
// completed concurrently; the registry serializes its internal map for
// that case.
package pending

import (
	"fmt"
	"sync"
)

// State is the lifecycle of one pending-call record. It only ever moves
// forward: NotStarted -> InFlight -> Completed.
type State int

const (
	// StateNotStarted means the call has been registered but no resolution
	// has been attempted yet.
	StateNotStarted State = iota
	// StateInFlight means a resolve phase has picked the record up.
	StateInFlight
	// StateCompleted means the call finished, successfully or not.
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateInFlight:
		return "in-flight"
	case StateCompleted:
		return "completed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Record tracks one external call from registration to completion.
// A nil Value on a completed record means the call resolved to nothing,
// which is a valid outcome distinct from a failure.
type Record struct {
	Fingerprint string
	State       State
	Value       any
	Err         error
}

// Registry is the keyed store of pending-call records for one top-level
// evaluation.
type Registry struct {
	mu      sync.Mutex
	records map[string]*Record
	// order preserves registration order so Pending returns fingerprints
	// deterministically.
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]*Record),
	}
}

// Lookup returns the record for a fingerprint, if any.
func (r *Registry) Lookup(fingerprint string) (*Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[fingerprint]
	return rec, ok
}

// RegisterIfAbsent returns the record for the fingerprint, creating a
// not-started one if none exists. The second return value reports whether
// a new record was created; callers use it to flag that a pass introduced
// new pending work.
func (r *Registry) RegisterIfAbsent(fingerprint string) (*Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[fingerprint]; ok {
		return rec, false
	}
	rec := &Record{
		Fingerprint: fingerprint,
		State:       StateNotStarted,
	}
	r.records[fingerprint] = rec
	r.order = append(r.order, fingerprint)
	return rec, true
}

// MarkInFlight transitions a not-started record to in-flight. The resolve
// phase calls this when it picks the record up.
func (r *Registry) MarkInFlight(fingerprint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[fingerprint]
	if !ok {
		return fmt.Errorf("no record for fingerprint %q", fingerprint)
	}
	if rec.State == StateCompleted {
		return fmt.Errorf("record %q is already completed", fingerprint)
	}
	rec.State = StateInFlight
	return nil
}

// Complete stores the outcome of a call and marks the record completed.
// Completing the same fingerprint twice is a logic error surfaced to the
// caller rather than silently ignored.
func (r *Registry) Complete(fingerprint string, value any, callErr error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[fingerprint]
	if !ok {
		return fmt.Errorf("no record for fingerprint %q", fingerprint)
	}
	if rec.State == StateCompleted {
		return fmt.Errorf("record %q completed twice", fingerprint)
	}
	rec.State = StateCompleted
	rec.Value = value
	rec.Err = callErr
	return nil
}

// Pending returns the fingerprints of all not-started records, in
// registration order.
func (r *Registry) Pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []string
	for _, fp := range r.order {
		if r.records[fp].State == StateNotStarted {
			pending = append(pending, fp)
		}
	}
	return pending
}

// Len returns the total number of records.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
