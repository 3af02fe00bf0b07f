//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package redis provides the Redis-backed journal. Each session keeps a
// sequence counter, a sorted set of events scored by sequence number, and a
// latest-snapshot key. Appends reserve sequence numbers with INCRBY and write
// the batch through one transaction pipeline.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"trpc.group/trpc-go/trpc-workflow-go/event"
	"trpc.group/trpc-go/trpc-workflow-go/journal"
	"trpc.group/trpc-go/trpc-workflow-go/state"
)

const defaultURL = "redis://127.0.0.1:6379"

// Service is a journal.Service backed by Redis.
type Service struct {
	client redis.UniversalClient
	prefix string
}

// Options configure the Redis journal.
type Options struct {
	url    string
	client redis.UniversalClient
	prefix string
}

// Option configures the service.
type Option func(*Options)

// WithURL points the journal at a Redis instance by URL
// (redis://host:port/db).
func WithURL(url string) Option {
	return func(o *Options) {
		o.url = url
	}
}

// WithClient supplies a pre-built client, taking precedence over WithURL.
func WithClient(client redis.UniversalClient) Option {
	return func(o *Options) {
		o.client = client
	}
}

// WithKeyPrefix namespaces every key this journal touches.
func WithKeyPrefix(prefix string) Option {
	return func(o *Options) {
		o.prefix = prefix
	}
}

// New creates a Redis journal.
func New(opts ...Option) (*Service, error) {
	options := Options{url: defaultURL, prefix: "workflow"}
	for _, opt := range opts {
		opt(&options)
	}
	client := options.client
	if client == nil {
		redisOpts, err := redis.ParseURL(options.url)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(redisOpts)
	}
	return &Service{client: client, prefix: options.prefix}, nil
}

func (s *Service) seqKey(sessionID string) string {
	return s.prefix + ":seq:" + sessionID
}

func (s *Service) eventsKey(sessionID string) string {
	return s.prefix + ":events:" + sessionID
}

func (s *Service) snapshotKey(sessionID string) string {
	return s.prefix + ":snapshot:" + sessionID
}

// Append implements journal.Service. Sequence numbers are reserved with one
// INCRBY, then the batch lands in the sorted set through a TxPipeline.
func (s *Service) Append(ctx context.Context, sessionID string, events ...*event.Event) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}
	last, err := s.client.IncrBy(ctx, s.seqKey(sessionID), int64(len(events))).Result()
	if err != nil {
		return 0, journal.NewError("append", sessionID, err)
	}
	base := last - int64(len(events))

	pipe := s.client.TxPipeline()
	for i, ev := range events {
		ev.Seq = base + int64(i) + 1
		payload, err := json.Marshal(ev)
		if err != nil {
			return 0, journal.NewError("append", sessionID, err)
		}
		pipe.ZAdd(ctx, s.eventsKey(sessionID), redis.Z{
			Score:  float64(ev.Seq),
			Member: string(payload),
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, journal.NewError("append", sessionID, err)
	}
	return last, nil
}

// ReadSince implements journal.Service.
func (s *Service) ReadSince(ctx context.Context, sessionID string, fromSeq int64) ([]*event.Event, error) {
	members, err := s.client.ZRangeByScore(ctx, s.eventsKey(sessionID), &redis.ZRangeBy{
		Min: fmt.Sprintf("(%d", fromSeq),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, journal.NewError("read", sessionID, err)
	}
	if len(members) == 0 {
		return nil, nil
	}
	out := make([]*event.Event, 0, len(members))
	for _, m := range members {
		var ev event.Event
		if err := json.Unmarshal([]byte(m), &ev); err != nil {
			return nil, journal.NewError("read", sessionID, err)
		}
		out = append(out, &ev)
	}
	return out, nil
}

// WriteSnapshot implements journal.Service.
func (s *Service) WriteSnapshot(ctx context.Context, snap *journal.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return journal.NewError("snapshot", snap.SessionID, err)
	}
	if err := s.client.Set(ctx, s.snapshotKey(snap.SessionID), payload, 0).Err(); err != nil {
		return journal.NewError("snapshot", snap.SessionID, err)
	}
	return nil
}

// ReadLatestSnapshot implements journal.Service.
func (s *Service) ReadLatestSnapshot(ctx context.Context, sessionID string) (*journal.Snapshot, error) {
	payload, err := s.client.Get(ctx, s.snapshotKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, journal.NewError("snapshot", sessionID, err)
	}
	snap := journal.Snapshot{State: state.New()}
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, journal.NewError("snapshot", sessionID, err)
	}
	return &snap, nil
}

// Close implements journal.Service.
func (s *Service) Close() error {
	return s.client.Close()
}
