// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package graph

import (
	"context"
	"time"

	"github.com/cinegraph/cinegraph/internal/metrics"
	"github.com/cinegraph/cinegraph/internal/models"
)

// WithMetrics wraps a Store so every operation reports its duration
// and failure count to the graph operation collectors, labeled with
// the backend name. Close is a plain delegate.
func WithMetrics(store Store, backend string) Store {
	return &measuredStore{store: store, backend: backend}
}

type measuredStore struct {
	store   Store
	backend string
}

func (m *measuredStore) observe(operation string, start time.Time, err error) {
	metrics.ObserveGraphOperation(operation, m.backend, time.Since(start), err)
}

func (m *measuredStore) UpsertNode(ctx context.Context, label Label, id string, props map[string]any) error {
	start := time.Now()
	err := m.store.UpsertNode(ctx, label, id, props)
	m.observe("upsert_node", start, err)
	return err
}

func (m *measuredStore) EnsureEdge(ctx context.Context, from Ref, edgeType EdgeType, to Ref) error {
	start := time.Now()
	err := m.store.EnsureEdge(ctx, from, edgeType, to)
	m.observe("ensure_edge", start, err)
	return err
}

func (m *measuredStore) Films(ctx context.Context, limit int) ([]models.Film, error) {
	start := time.Now()
	films, err := m.store.Films(ctx, limit)
	m.observe("films", start, err)
	return films, err
}

func (m *measuredStore) Genres(ctx context.Context) ([]models.Genre, error) {
	start := time.Now()
	genres, err := m.store.Genres(ctx)
	m.observe("genres", start, err)
	return genres, err
}

func (m *measuredStore) UserByUsername(ctx context.Context, username string) (*UserRecord, error) {
	start := time.Now()
	user, err := m.store.UserByUsername(ctx, username)
	m.observe("user_by_username", start, err)
	return user, err
}

func (m *measuredStore) CoOccurrence(ctx context.Context, userID string, limit int) ([]models.ScoredFilm, error) {
	start := time.Now()
	scored, err := m.store.CoOccurrence(ctx, userID, limit)
	m.observe("co_occurrence", start, err)
	return scored, err
}

func (m *measuredStore) GenrePreferenceFilms(ctx context.Context, userID string, limit int) ([]models.Film, error) {
	start := time.Now()
	films, err := m.store.GenrePreferenceFilms(ctx, userID, limit)
	m.observe("genre_preference_films", start, err)
	return films, err
}

func (m *measuredStore) Ping(ctx context.Context) error {
	start := time.Now()
	err := m.store.Ping(ctx)
	m.observe("ping", start, err)
	return err
}

func (m *measuredStore) Close() error {
	return m.store.Close()
}
