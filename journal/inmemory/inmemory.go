//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides the in-process journal backend. It is the
// reference implementation used by tests and examples; nothing survives a
// process restart.
package inmemory

import (
	"context"
	"sync"

	"trpc.group/trpc-go/trpc-workflow-go/event"
	"trpc.group/trpc-go/trpc-workflow-go/journal"
)

// Service keeps every session's log and latest snapshot in process memory.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*sessionLog
}

type sessionLog struct {
	lastSeq  int64
	events   []*event.Event
	snapshot *journal.Snapshot
}

// New creates an empty in-memory journal.
func New() *Service {
	return &Service{sessions: make(map[string]*sessionLog)}
}

// Append implements journal.Service.
func (s *Service) Append(ctx context.Context, sessionID string, events ...*event.Event) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sl := s.sessions[sessionID]
	if sl == nil {
		sl = &sessionLog{}
		s.sessions[sessionID] = sl
	}
	for _, ev := range events {
		sl.lastSeq++
		ev.Seq = sl.lastSeq
		sl.events = append(sl.events, ev.Clone())
	}
	return sl.lastSeq, nil
}

// ReadSince implements journal.Service.
func (s *Service) ReadSince(ctx context.Context, sessionID string, fromSeq int64) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sl := s.sessions[sessionID]
	if sl == nil {
		return nil, nil
	}
	var out []*event.Event
	for _, ev := range sl.events {
		if ev.Seq > fromSeq {
			out = append(out, ev.Clone())
		}
	}
	return out, nil
}

// WriteSnapshot implements journal.Service.
func (s *Service) WriteSnapshot(ctx context.Context, snap *journal.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl := s.sessions[snap.SessionID]
	if sl == nil {
		sl = &sessionLog{}
		s.sessions[snap.SessionID] = sl
	}
	copied := *snap
	copied.State = snap.State.Clone()
	sl.snapshot = &copied
	return nil
}

// ReadLatestSnapshot implements journal.Service.
func (s *Service) ReadLatestSnapshot(ctx context.Context, sessionID string) (*journal.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sl := s.sessions[sessionID]
	if sl == nil || sl.snapshot == nil {
		return nil, nil
	}
	copied := *sl.snapshot
	copied.State = sl.snapshot.State.Clone()
	return &copied, nil
}

// Close implements journal.Service.
func (s *Service) Close() error {
	return nil
}
