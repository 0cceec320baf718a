// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package graph

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/cinegraph/cinegraph/internal/config"
)

func newTestDuckDB(t *testing.T) *DuckDB {
	t.Helper()
	db, err := NewDuckDB(&config.DuckDBConfig{Path: "", MaxMemory: "256MB"})
	if err != nil {
		t.Fatalf("NewDuckDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func duckSeedFilm(t *testing.T, db *DuckDB, id int, title string, genreIDs ...int) {
	t.Helper()
	ctx := context.Background()

	if err := db.UpsertNode(ctx, LabelFilm, strconv.Itoa(id), map[string]any{PropTitle: title}); err != nil {
		t.Fatalf("upsert film %d: %v", id, err)
	}
	for _, gid := range genreIDs {
		if err := db.UpsertNode(ctx, LabelGenre, strconv.Itoa(gid), nil); err != nil {
			t.Fatalf("upsert genre %d: %v", gid, err)
		}
		err := db.EnsureEdge(ctx,
			Ref{Label: LabelFilm, ID: strconv.Itoa(id)},
			EdgeBelongsTo,
			Ref{Label: LabelGenre, ID: strconv.Itoa(gid)},
		)
		if err != nil {
			t.Fatalf("link film %d genre %d: %v", id, gid, err)
		}
	}
}

func TestDuckDBUpsertAndEdgeIdempotent(t *testing.T) {
	db := newTestDuckDB(t)
	ctx := context.Background()

	duckSeedFilm(t, db, 1, "Alien", 878)
	if err := db.UpsertNode(ctx, LabelUser, "u1", nil); err != nil {
		t.Fatalf("upsert user: %v", err)
	}

	for i := 0; i < 3; i++ {
		duckSeedFilm(t, db, 1, "Alien", 878)
		err := db.EnsureEdge(ctx,
			Ref{Label: LabelUser, ID: "u1"},
			EdgeLikes,
			Ref{Label: LabelFilm, ID: "1"},
		)
		if err != nil {
			t.Fatalf("like %d: %v", i, err)
		}
	}

	films, err := db.Films(ctx, 10)
	if err != nil {
		t.Fatalf("films: %v", err)
	}
	if len(films) != 1 || films[0].Title != "Alien" {
		t.Fatalf("films = %+v", films)
	}

	var likeCount int
	if err := db.Conn().QueryRow(`SELECT count(*) FROM likes`).Scan(&likeCount); err != nil {
		t.Fatalf("count likes: %v", err)
	}
	if likeCount != 1 {
		t.Errorf("likes rows = %d, want 1", likeCount)
	}
}

func TestDuckDBEnsureEdgeMissingEndpoint(t *testing.T) {
	db := newTestDuckDB(t)
	ctx := context.Background()

	if err := db.UpsertNode(ctx, LabelUser, "u1", nil); err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	err := db.EnsureEdge(ctx,
		Ref{Label: LabelUser, ID: "u1"},
		EdgeLikes,
		Ref{Label: LabelFilm, ID: "42"},
	)
	if !errors.Is(err, ErrEndpointNotFound) {
		t.Fatalf("err = %v, want ErrEndpointNotFound", err)
	}
}

func TestDuckDBCoOccurrence(t *testing.T) {
	db := newTestDuckDB(t)
	ctx := context.Background()

	duckSeedFilm(t, db, 1, "Seed", 10, 20)
	duckSeedFilm(t, db, 2, "DoubleMatch", 10, 20)
	duckSeedFilm(t, db, 3, "SingleMatch", 10)
	duckSeedFilm(t, db, 4, "Unrelated", 30)
	if err := db.UpsertNode(ctx, LabelUser, "u1", nil); err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	err := db.EnsureEdge(ctx, Ref{Label: LabelUser, ID: "u1"}, EdgeLikes, Ref{Label: LabelFilm, ID: "1"})
	if err != nil {
		t.Fatalf("like: %v", err)
	}

	scored, err := db.CoOccurrence(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("co-occurrence: %v", err)
	}
	if len(scored) != 2 {
		t.Fatalf("scored = %+v, want 2", scored)
	}
	if scored[0].Film.ID != 2 || scored[0].Score != 2 {
		t.Errorf("first = %+v, want film 2 score 2", scored[0])
	}
	if scored[1].Film.ID != 3 || scored[1].Score != 1 {
		t.Errorf("second = %+v, want film 3 score 1", scored[1])
	}
}

func TestDuckDBGenrePreferenceFilms(t *testing.T) {
	db := newTestDuckDB(t)
	ctx := context.Background()

	duckSeedFilm(t, db, 1, "Liked", 10)
	duckSeedFilm(t, db, 2, "Wanted", 10)
	duckSeedFilm(t, db, 3, "Other", 20)
	if err := db.UpsertNode(ctx, LabelUser, "u1", nil); err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	if err := db.EnsureEdge(ctx, Ref{Label: LabelUser, ID: "u1"}, EdgeLikes, Ref{Label: LabelFilm, ID: "1"}); err != nil {
		t.Fatalf("like: %v", err)
	}
	if err := db.EnsureEdge(ctx, Ref{Label: LabelUser, ID: "u1"}, EdgeLikesGenre, Ref{Label: LabelGenre, ID: "10"}); err != nil {
		t.Fatalf("prefer genre: %v", err)
	}

	films, err := db.GenrePreferenceFilms(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("genre preference films: %v", err)
	}
	if len(films) != 1 || films[0].ID != 2 {
		t.Errorf("films = %+v, want only film 2", films)
	}
}

func TestDuckDBUserByUsername(t *testing.T) {
	db := newTestDuckDB(t)
	ctx := context.Background()

	props := map[string]any{PropUsername: "alice", PropPasswordHash: "hash"}
	if err := db.UpsertNode(ctx, LabelUser, "u1", props); err != nil {
		t.Fatalf("upsert user: %v", err)
	}

	rec, err := db.UserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec.ID != "u1" || rec.PasswordHash != "hash" {
		t.Errorf("record = %+v", rec)
	}

	if _, err := db.UserByUsername(ctx, "bob"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("unknown username err = %v, want ErrNodeNotFound", err)
	}
}

func TestDuckDBGenresNamedBySeed(t *testing.T) {
	db := newTestDuckDB(t)
	ctx := context.Background()

	if err := db.UpsertNode(ctx, LabelGenre, "28", nil); err != nil {
		t.Fatalf("bare genre: %v", err)
	}
	if err := db.UpsertNode(ctx, LabelGenre, "28", map[string]any{PropName: "Action"}); err != nil {
		t.Fatalf("named genre: %v", err)
	}

	genres, err := db.Genres(ctx)
	if err != nil {
		t.Fatalf("genres: %v", err)
	}
	if len(genres) != 1 || genres[0].Name != "Action" {
		t.Errorf("genres = %+v", genres)
	}
}

func TestDuckDBPing(t *testing.T) {
	db := newTestDuckDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}
