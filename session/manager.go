//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-workflow-go/journal"
	"trpc.group/trpc-go/trpc-workflow-go/log"
	"trpc.group/trpc-go/trpc-workflow-go/state"
)

// Manager maps session ids to live execution contexts. Cache misses are
// reconstructed from the journal (latest snapshot, then replay); entries
// carry a reference-counted lock so eviction never races an in-flight run.
type Manager struct {
	journal       journal.Service
	snapshotEvery int64

	mu      sync.Mutex
	entries map[string]*entry
}

// entry holds the per-session lock, its reference count, and the cached
// session. refs counts goroutines between acquire and release; eviction
// skips entries with refs > 0.
type entry struct {
	mu       sync.Mutex
	refs     int
	session  *Session
	lastUsed time.Time
}

// Options configure a Manager.
type Options struct {
	snapshotEvery int64
}

// Option configures a Manager.
type Option func(*Options)

// WithSnapshotEvery writes a state snapshot each time n more events have been
// committed since the last one. Zero disables snapshotting.
func WithSnapshotEvery(n int64) Option {
	return func(o *Options) {
		o.snapshotEvery = n
	}
}

// NewManager creates a manager on top of the given journal.
func NewManager(j journal.Service, opts ...Option) *Manager {
	options := Options{snapshotEvery: 20}
	for _, opt := range opts {
		opt(&options)
	}
	return &Manager{
		journal:       j,
		snapshotEvery: options.snapshotEvery,
		entries:       make(map[string]*entry),
	}
}

// acquireEntry gets or creates the entry for id and increments its reference
// count. The caller must lock entry.mu and call releaseEntry afterwards.
func (m *Manager) acquireEntry(id string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		e = &entry{}
		m.entries[id] = e
	}
	e.refs++
	return e
}

func (m *Manager) releaseEntry(e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	e.lastUsed = time.Now().UTC()
}

// Create allocates a new session id and installs an empty session in the
// cache. Nothing is persisted until the first event is appended; an empty
// session reconstructs identically from an empty log.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	now := time.Now().UTC()
	s := &Session{
		ID:        uuid.NewString(),
		Status:    StatusActive,
		State:     state.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.mu.Lock()
	m.entries[s.ID] = &entry{session: s, lastUsed: now}
	m.mu.Unlock()
	log.Debugf("session created: %s", s.ID)
	return s, nil
}

// Acquire returns the session with exclusive access, reconstructing it from
// the journal when it is not cached. The returned release func must be called
// exactly once. Acquire blocks while another run holds the session, so two
// concurrent messages for one session serialize instead of interleaving.
func (m *Manager) Acquire(ctx context.Context, id string) (*Session, func(), error) {
	if id == "" {
		return nil, nil, ErrSessionIDRequired
	}

	e := m.acquireEntry(id)
	e.mu.Lock()

	if e.session == nil {
		s, err := m.reconstruct(ctx, id)
		if err != nil {
			e.mu.Unlock()
			m.releaseEntry(e)
			return nil, nil, err
		}
		e.session = s
	}

	release := func() {
		e.session.UpdatedAt = time.Now().UTC()
		e.mu.Unlock()
		m.releaseEntry(e)
	}
	return e.session, release, nil
}

// Peek returns a deep copy of the session without taking the writer lock for
// longer than the copy. It reconstructs on a cache miss, so reads work after
// an eviction or restart.
func (m *Manager) Peek(ctx context.Context, id string) (*Session, error) {
	s, release, err := m.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.Clone(), nil
}

// reconstruct rebuilds a session from its latest snapshot plus every event
// after it. The result is identical to the in-memory state at the last
// committed event, whatever happened to the process in between.
func (m *Manager) reconstruct(ctx context.Context, id string) (*Session, error) {
	snap, err := m.journal.ReadLatestSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}

	st := state.New()
	var fromSeq, snapSeq int64
	if snap != nil {
		st = snap.State.Clone()
		fromSeq = snap.Seq
		snapSeq = snap.Seq
	}

	events, err := m.journal.ReadSince(ctx, id, fromSeq)
	if err != nil {
		return nil, err
	}

	seq := fromSeq
	status := StatusActive
	for _, ev := range events {
		if ev.AppliesToState() {
			if err := st.Apply(ev.Delta); err != nil {
				return nil, journal.NewError("replay", id, err)
			}
		}
		seq = ev.Seq
		status = statusAfter(ev.Kind)
	}
	if snap != nil && len(events) == 0 {
		// The snapshot covers the last event; re-read it for its kind only,
		// its delta is already folded into the snapshot state.
		tail, err := m.journal.ReadSince(ctx, id, fromSeq-1)
		if err != nil {
			return nil, err
		}
		if len(tail) > 0 {
			status = statusAfter(tail[len(tail)-1].Kind)
		}
	}

	now := time.Now().UTC()
	return &Session{
		ID:        id,
		Status:    status,
		Seq:       seq,
		SnapSeq:   snapSeq,
		State:     st,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// MaybeSnapshot writes a snapshot when the configured cadence is due. A
// failed snapshot only logs: snapshots bound replay cost, correctness never
// depends on them.
func (m *Manager) MaybeSnapshot(ctx context.Context, s *Session) {
	if m.snapshotEvery <= 0 || s.Seq-s.SnapSeq < m.snapshotEvery {
		return
	}
	snap := &journal.Snapshot{
		SessionID: s.ID,
		Seq:       s.Seq,
		State:     s.State.Clone(),
		TakenAt:   time.Now().UTC(),
	}
	if err := m.journal.WriteSnapshot(ctx, snap); err != nil {
		log.Warnf("snapshot for session %s at seq %d failed: %v", s.ID, s.Seq, err)
		return
	}
	s.SnapSeq = s.Seq
	log.Debugf("snapshot for session %s written at seq %d", s.ID, s.Seq)
}

// EvictIdle drops cached sessions untouched for longer than maxIdle and
// returns how many were evicted. Entries with an in-flight acquisition are
// skipped; they age out after release. Evicted sessions reconstruct from the
// journal on next use.
func (m *Manager) EvictIdle(maxIdle time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxIdle)
	evicted := 0
	m.mu.Lock()
	for id, e := range m.entries {
		if e.refs > 0 {
			continue
		}
		if e.lastUsed.Before(cutoff) {
			delete(m.entries, id)
			evicted++
		}
	}
	m.mu.Unlock()
	if evicted > 0 {
		log.Debugf("evicted %d idle sessions", evicted)
	}
	return evicted
}

// RunEvictor sweeps idle sessions every interval until ctx is cancelled.
func (m *Manager) RunEvictor(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictIdle(maxIdle)
		}
	}
}

// Cached reports whether the session is currently held in the cache.
func (m *Manager) Cached(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	return ok && e.session != nil
}
