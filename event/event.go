//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package event defines the immutable records appended to a session's journal.
// Every state mutation in a run is captured as an ordered event, so replaying
// a session's events from an empty state reproduces its live state exactly.
package event

import (
	"time"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-workflow-go/state"
)

// Kind classifies an event. Only KindStateDelta carries a state effect;
// every other kind replays as a no-op.
type Kind string

const (
	// KindNodeStart marks a node beginning execution (opt-in, see runner).
	KindNodeStart Kind = "node_start"
	// KindNodeResult marks a node finishing with an output (opt-in).
	KindNodeResult Kind = "node_result"
	// KindStateDelta records the delta one leaf execution produced.
	KindStateDelta Kind = "state_delta"
	// KindAgentTransfer records a handoff from one node to another.
	KindAgentTransfer Kind = "agent_transfer"
	// KindLoopExit records a loop terminating, with the reason.
	KindLoopExit Kind = "loop_exit"
	// KindError records a failed run.
	KindError Kind = "error"
)

// Loop exit reasons.
const (
	ReasonExitSignal    = "exit_signal"
	ReasonMaxIterations = "max_iterations"
)

// Transfer is the payload of an agent_transfer event.
type Transfer struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ErrorDetail is the payload of an error event.
type ErrorDetail struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

// Event is one immutable journal record. Seq is zero until the journal
// assigns it at append time; it is unique and dense per session.
type Event struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Seq       int64     `json:"seq"`
	Kind      Kind      `json:"kind"`
	Node      string    `json:"node"`
	Timestamp time.Time `json:"timestamp"`

	// Kind-specific payload fields.
	Delta      state.Delta  `json:"delta,omitempty"`
	Output     string       `json:"output,omitempty"`
	Reason     string       `json:"reason,omitempty"`
	Iterations int          `json:"iterations,omitempty"`
	Transfer   *Transfer    `json:"transfer,omitempty"`
	Error      *ErrorDetail `json:"error,omitempty"`
}

// Option configures an event at construction.
type Option func(*Event)

// WithOutput attaches a node's textual output.
func WithOutput(output string) Option {
	return func(e *Event) { e.Output = output }
}

// WithTimestamp overrides the event timestamp.
func WithTimestamp(ts time.Time) Option {
	return func(e *Event) { e.Timestamp = ts }
}

// New creates an event of the given kind.
func New(sessionID, node string, kind Kind, opts ...Option) *Event {
	e := &Event{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Kind:      kind,
		Node:      node,
		Timestamp: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewStateDelta creates a state_delta event carrying the given delta.
func NewStateDelta(sessionID, node string, delta state.Delta, opts ...Option) *Event {
	e := New(sessionID, node, KindStateDelta, opts...)
	e.Delta = delta
	return e
}

// NewLoopExit creates a loop_exit event recording why and after how many
// iterations the loop stopped.
func NewLoopExit(sessionID, node, reason string, iterations int) *Event {
	e := New(sessionID, node, KindLoopExit)
	e.Reason = reason
	e.Iterations = iterations
	return e
}

// NewTransfer creates an agent_transfer event for a handoff from one node to
// another.
func NewTransfer(sessionID, from, to string) *Event {
	e := New(sessionID, from, KindAgentTransfer)
	e.Transfer = &Transfer{From: from, To: to}
	return e
}

// NewError creates an error event for a failed run.
func NewError(sessionID, node, errType, message string) *Event {
	e := New(sessionID, node, KindError)
	e.Error = &ErrorDetail{Type: errType, Message: message}
	return e
}

// AppliesToState reports whether replaying this event mutates state.
func (e *Event) AppliesToState() bool {
	return e.Kind == KindStateDelta && !e.Delta.IsEmpty()
}

// Clone returns a deep copy. Journals hand out clones so callers can never
// mutate stored history.
func (e *Event) Clone() *Event {
	c := *e
	if e.Delta != nil {
		c.Delta = make(state.Delta, len(e.Delta))
		for i, op := range e.Delta {
			buf := make([]byte, len(op.Value))
			copy(buf, op.Value)
			c.Delta[i] = state.Op{Key: op.Key, Kind: op.Kind, Value: buf}
		}
	}
	if e.Transfer != nil {
		t := *e.Transfer
		c.Transfer = &t
	}
	if e.Error != nil {
		d := *e.Error
		c.Error = &d
	}
	return &c
}
