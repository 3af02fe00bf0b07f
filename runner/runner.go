//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package runner executes a workflow tree against durable sessions. It is
// the single entry point for sending a message to a session: it acquires the
// session, walks the node tree, commits every state change to the journal,
// and returns the terminal output.
package runner

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"trpc.group/trpc-go/trpc-workflow-go/event"
	itelemetry "trpc.group/trpc-go/trpc-workflow-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-workflow-go/journal"
	"trpc.group/trpc-go/trpc-workflow-go/log"
	"trpc.group/trpc-go/trpc-workflow-go/node"
	"trpc.group/trpc-go/trpc-workflow-go/session"
	"trpc.group/trpc-go/trpc-workflow-go/state"
	"trpc.group/trpc-go/trpc-workflow-go/telemetry/trace"
)

const defaultSnapshotEvery = 20

// Option is a function that configures a Runner.
type Option func(*Options)

// Options is the options for the Runner.
type Options struct {
	sessions       *session.Manager
	snapshotEvery  int64
	nodeEvents     bool
	maxParallelism int
}

// WithSessionManager sets the session manager to use. When set, the manager's
// own snapshot cadence applies and WithSnapshotEvery has no effect.
func WithSessionManager(m *session.Manager) Option {
	return func(opts *Options) {
		opts.sessions = m
	}
}

// WithSnapshotEvery sets how many events may accumulate before the next
// snapshot. Zero disables snapshotting.
func WithSnapshotEvery(n int64) Option {
	return func(opts *Options) {
		opts.snapshotEvery = n
	}
}

// WithNodeEvents also records node_start and node_result lifecycle events.
// Off by default: they double the log volume and replay ignores them.
func WithNodeEvents(enabled bool) Option {
	return func(opts *Options) {
		opts.nodeEvents = enabled
	}
}

// WithMaxParallelism bounds how many branches of one parallel node run
// concurrently. Zero or negative means one worker per branch.
func WithMaxParallelism(n int) Option {
	return func(opts *Options) {
		opts.maxParallelism = n
	}
}

// Runner runs one workflow tree over many sessions. Different sessions run
// arbitrarily concurrently; runs for the same session serialize.
type Runner struct {
	root           node.Node
	journal        journal.Service
	sessions       *session.Manager
	nodeEvents     bool
	maxParallelism int
}

// Result is the outcome of one run.
type Result struct {
	// SessionID identifies the session the run mutated.
	SessionID string `json:"sessionId"`
	// Output is the terminal output of the root node.
	Output string `json:"output"`
	// Seq is the sequence number of the last event this run committed.
	Seq int64 `json:"seq"`
	// FailedBranches lists best-effort parallel branches that failed while
	// the run as a whole succeeded.
	FailedBranches []BranchFailure `json:"failedBranches,omitempty"`
}

// New creates a Runner for the given workflow tree on top of the journal.
// The tree is validated here, once; an invalid composition never runs.
func New(root node.Node, j journal.Service, opts ...Option) (*Runner, error) {
	if j == nil {
		return nil, errors.New("runner: journal service is required")
	}
	if err := node.Validate(root); err != nil {
		return nil, err
	}
	options := Options{snapshotEvery: defaultSnapshotEvery}
	for _, opt := range opts {
		opt(&options)
	}
	if options.sessions == nil {
		options.sessions = session.NewManager(j, session.WithSnapshotEvery(options.snapshotEvery))
	}
	return &Runner{
		root:           root,
		journal:        j,
		sessions:       options.sessions,
		nodeEvents:     options.nodeEvents,
		maxParallelism: options.maxParallelism,
	}, nil
}

// CreateSession allocates a fresh session and returns its id.
func (r *Runner) CreateSession(ctx context.Context) (string, error) {
	s, err := r.sessions.Create(ctx)
	if err != nil {
		return "", err
	}
	return s.ID, nil
}

// Run sends one message to the session and evaluates the workflow tree to
// completion. A failed run leaves the session state exactly as of its last
// durably committed event and the session stays usable; the failure names
// the node that caused it.
func (r *Runner) Run(ctx context.Context, sessionID, input string) (*Result, error) {
	ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanNameRunWorkflow)
	defer span.End()
	span.SetAttributes(
		attribute.String(itelemetry.KeySessionID, sessionID),
		attribute.String(itelemetry.KeyNode, r.root.Name()),
	)

	sess, release, err := r.sessions.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess.Status = session.StatusActive
	ex := &executor{
		sessionID:   sess.ID,
		scope:       &journalScope{journal: r.journal, sess: sess},
		nodeEvents:  r.nodeEvents,
		maxParallel: r.maxParallelism,
	}
	out, err := ex.evaluate(ctx, r.root, input)
	if err != nil {
		sess.Status = session.StatusFailed
		r.recordFailure(ctx, sess, err)
		r.sessions.MaybeSnapshot(ctx, sess)
		return nil, err
	}
	sess.Status = session.StatusCompleted
	r.sessions.MaybeSnapshot(ctx, sess)
	return &Result{
		SessionID:      sess.ID,
		Output:         out.Output,
		Seq:            sess.Seq,
		FailedBranches: out.Failed,
	}, nil
}

// State returns a copy of the session's current working state.
func (r *Runner) State(ctx context.Context, sessionID string) (state.State, error) {
	s, err := r.sessions.Peek(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.State, nil
}

// Session returns a copy of the session, reconstructing it if needed.
func (r *Runner) Session(ctx context.Context, sessionID string) (*session.Session, error) {
	return r.sessions.Peek(ctx, sessionID)
}

// Events returns the session's committed events with sequence numbers
// strictly greater than sinceSeq, in order. Pass 0 for the full log.
func (r *Runner) Events(ctx context.Context, sessionID string, sinceSeq int64) ([]*event.Event, error) {
	if sessionID == "" {
		return nil, session.ErrSessionIDRequired
	}
	return r.journal.ReadSince(ctx, sessionID, sinceSeq)
}

// Sessions exposes the session manager, e.g. to run the idle evictor.
func (r *Runner) Sessions() *session.Manager {
	return r.sessions
}

// recordFailure appends the run's error event. The append itself failing is
// only logged; the run already failed and the log stays consistent without
// the marker.
func (r *Runner) recordFailure(ctx context.Context, sess *session.Session, runErr error) {
	failedNode := ""
	var execErr *ExecutionError
	if errors.As(runErr, &execErr) {
		failedNode = execErr.Node
	}
	ev := event.NewError(sess.ID, failedNode, errorType(runErr), runErr.Error())
	last, err := r.journal.Append(ctx, sess.ID, ev)
	if err != nil {
		log.Errorf("recording failure for session %s: %v", sess.ID, err)
		return
	}
	sess.Seq = last
}
