//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package sqlite provides the SQLite-backed journal. Events live in an
// append-only table keyed by (session_id, seq); only the latest snapshot per
// session is kept. The database file survives process restarts, which is what
// makes snapshot+replay reconstruction work across crashes.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"trpc.group/trpc-go/trpc-workflow-go/event"
	"trpc.group/trpc-go/trpc-workflow-go/journal"
	"trpc.group/trpc-go/trpc-workflow-go/state"
)

// Service is a journal.Service backed by a SQLite database file.
type Service struct {
	db *sql.DB
}

// Options configure the SQLite journal.
type Options struct {
	maxOpenConns int
}

// Option configures the service.
type Option func(*Options)

// WithMaxOpenConns caps the connection pool size.
func WithMaxOpenConns(n int) Option {
	return func(o *Options) {
		o.maxOpenConns = n
	}
}

// New opens (creating if needed) the journal database at path.
func New(path string, opts ...Option) (*Service, error) {
	options := Options{maxOpenConns: 10}
	for _, opt := range opts {
		opt(&options)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	// WAL keeps readers from blocking the single writer.
	dsn := path + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}
	db.SetMaxOpenConns(options.maxOpenConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal database: %w", err)
	}

	s := &Service{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS events (
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		event_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		node TEXT NOT NULL,
		ts INTEGER NOT NULL,
		payload TEXT NOT NULL,
		PRIMARY KEY (session_id, seq)
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		session_id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		taken_at INTEGER NOT NULL,
		state TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create journal schema: %w", err)
	}
	return nil
}

// Append implements journal.Service. The whole batch commits in one
// transaction, so sequence numbers stay dense even if the process dies
// mid-append.
func (s *Service) Append(ctx context.Context, sessionID string, events ...*event.Event) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, journal.NewError("append", sessionID, err)
	}
	defer tx.Rollback()

	var last int64
	row := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM events WHERE session_id = ?`, sessionID)
	if err := row.Scan(&last); err != nil {
		return 0, journal.NewError("append", sessionID, err)
	}

	for _, ev := range events {
		last++
		ev.Seq = last
		payload, err := json.Marshal(ev)
		if err != nil {
			return 0, journal.NewError("append", sessionID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO events (session_id, seq, event_id, kind, node, ts, payload)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sessionID, ev.Seq, ev.ID, string(ev.Kind), ev.Node, ev.Timestamp.UnixNano(), string(payload))
		if err != nil {
			return 0, journal.NewError("append", sessionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, journal.NewError("append", sessionID, err)
	}
	return last, nil
}

// ReadSince implements journal.Service.
func (s *Service) ReadSince(ctx context.Context, sessionID string, fromSeq int64) ([]*event.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM events WHERE session_id = ? AND seq > ? ORDER BY seq`,
		sessionID, fromSeq)
	if err != nil {
		return nil, journal.NewError("read", sessionID, err)
	}
	defer rows.Close()

	var out []*event.Event
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, journal.NewError("read", sessionID, err)
		}
		var ev event.Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, journal.NewError("read", sessionID, err)
		}
		out = append(out, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, journal.NewError("read", sessionID, err)
	}
	return out, nil
}

// WriteSnapshot implements journal.Service.
func (s *Service) WriteSnapshot(ctx context.Context, snap *journal.Snapshot) error {
	raw, err := json.Marshal(snap.State)
	if err != nil {
		return journal.NewError("snapshot", snap.SessionID, err)
	}
	takenAt := snap.TakenAt
	if takenAt.IsZero() {
		takenAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (session_id, seq, taken_at, state)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
			seq = excluded.seq,
			taken_at = excluded.taken_at,
			state = excluded.state`,
		snap.SessionID, snap.Seq, takenAt.UnixNano(), string(raw))
	if err != nil {
		return journal.NewError("snapshot", snap.SessionID, err)
	}
	return nil
}

// ReadLatestSnapshot implements journal.Service.
func (s *Service) ReadLatestSnapshot(ctx context.Context, sessionID string) (*journal.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT seq, taken_at, state FROM snapshots WHERE session_id = ?`, sessionID)

	var (
		seq     int64
		takenAt int64
		raw     string
	)
	err := row.Scan(&seq, &takenAt, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, journal.NewError("snapshot", sessionID, err)
	}

	st := state.New()
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, journal.NewError("snapshot", sessionID, err)
	}
	return &journal.Snapshot{
		SessionID: sessionID,
		Seq:       seq,
		State:     st,
		TakenAt:   time.Unix(0, takenAt).UTC(),
	}, nil
}

// Close implements journal.Service.
func (s *Service) Close() error {
	return s.db.Close()
}
