//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package journal defines the persistence adapter behind the engine: an
// append-only, per-session ordered event log plus compacted state snapshots.
// The four operations here are the entire durability contract; backends
// (inmemory, sqlite, redis) are interchangeable.
package journal

import (
	"context"
	"fmt"
	"time"

	"trpc.group/trpc-go/trpc-workflow-go/event"
	"trpc.group/trpc-go/trpc-workflow-go/state"
)

// Snapshot is a compacted checkpoint of one session's state. It is always
// derivable from the log alone; snapshots only bound replay cost.
type Snapshot struct {
	SessionID string      `json:"sessionId"`
	Seq       int64       `json:"seq"`
	State     state.State `json:"state"`
	TakenAt   time.Time   `json:"takenAt"`
}

// Service is the durable store the engine writes through. Append must be
// atomic per session; an append that fails is not committed and the caller
// must not advance state past it.
type Service interface {
	// Append assigns the next sequence numbers to the given events in order,
	// stores them durably, and stamps each event's Seq. It returns the last
	// assigned sequence number. Appends for one session are serialized.
	Append(ctx context.Context, sessionID string, events ...*event.Event) (int64, error)

	// ReadSince returns the session's events with seq strictly greater than
	// fromSeq, ordered by seq. fromSeq 0 reads the whole log.
	ReadSince(ctx context.Context, sessionID string, fromSeq int64) ([]*event.Event, error)

	// WriteSnapshot stores a checkpoint. A later snapshot for the same
	// session replaces the earlier one.
	WriteSnapshot(ctx context.Context, snap *Snapshot) error

	// ReadLatestSnapshot returns the most recent snapshot for the session,
	// or nil when none exists.
	ReadLatestSnapshot(ctx context.Context, sessionID string) (*Snapshot, error)

	// Close releases backend resources.
	Close() error
}

// Error wraps a persistence failure. A failed append is always fatal to the
// in-flight run: the event was never committed.
type Error struct {
	Op        string
	SessionID string
	Err       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("journal %s failed for session %q: %v", e.Op, e.SessionID, e.Err)
}

// Unwrap exposes the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a journal error for the given operation.
func NewError(op, sessionID string, err error) *Error {
	return &Error{Op: op, SessionID: sessionID, Err: err}
}
