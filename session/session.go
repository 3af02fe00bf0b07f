//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package session owns the cache of live sessions and their reconstruction
// from the journal. A session is one long-running workflow execution plus its
// durable state; the manager guarantees at most one executor run is active
// per session at a time.
package session

import (
	"errors"
	"time"

	"trpc.group/trpc-go/trpc-workflow-go/event"
	"trpc.group/trpc-go/trpc-workflow-go/state"
)

// ErrSessionIDRequired is returned when an operation is missing a session id.
var ErrSessionIDRequired = errors.New("session id is required")

// Status reflects the outcome of a session's most recent run.
type Status string

const (
	// StatusActive marks a session with no completed run yet, or one whose
	// run is in flight.
	StatusActive Status = "active"
	// StatusCompleted marks a session whose last run finished cleanly.
	StatusCompleted Status = "completed"
	// StatusFailed marks a session whose last run failed. The session stays
	// usable; a later run may complete it.
	StatusFailed Status = "failed"
)

// Session is the live execution context for one session id.
//
// Seq is the sequence number of the last committed event; State is always
// exactly the result of replaying the journal through Seq. SnapSeq tracks the
// seq covered by the last written snapshot so the manager knows when the
// cadence calls for a new one.
type Session struct {
	ID        string
	Status    Status
	Seq       int64
	SnapSeq   int64
	State     state.State
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy safe to read after the session lock is released.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.State = s.State.Clone()
	return &c
}

// statusAfter maps the kind of the last committed event to the session
// status it implies.
func statusAfter(kind event.Kind) Status {
	if kind == event.KindError {
		return StatusFailed
	}
	return StatusCompleted
}
