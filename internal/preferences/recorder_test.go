// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package preferences

import (
	"context"
	"testing"

	"github.com/cinegraph/cinegraph/internal/catalog"
	"github.com/cinegraph/cinegraph/internal/graph"
	"github.com/cinegraph/cinegraph/internal/models"
)

func newTestRecorder() (*Recorder, *graph.Memory) {
	store := graph.NewMemory()
	return NewRecorder(store, catalog.NewIngestor(store)), store
}

func TestRecordLikeCreatesFilmAndEdge(t *testing.T) {
	recorder, store := newTestRecorder()
	ctx := context.Background()

	film := models.Film{ID: 603, Title: "The Matrix", GenreIDs: []int{28, 878}}
	if err := recorder.RecordLike(ctx, "u1", film); err != nil {
		t.Fatalf("RecordLike: %v", err)
	}

	films, err := store.Films(ctx, 10)
	if err != nil {
		t.Fatalf("films: %v", err)
	}
	if len(films) != 1 || films[0].Title != "The Matrix" {
		t.Fatalf("films = %+v", films)
	}
	if got := store.LikeCount("u1"); got != 1 {
		t.Errorf("like count = %d, want 1", got)
	}

	// The genres referenced by the film exist as bare nodes.
	genres, err := store.Genres(ctx)
	if err != nil {
		t.Fatalf("genres: %v", err)
	}
	if len(genres) != 2 {
		t.Errorf("genres = %+v, want 2 bare genres", genres)
	}
}

func TestRecordLikeIdempotent(t *testing.T) {
	recorder, store := newTestRecorder()
	ctx := context.Background()

	film := models.Film{ID: 603, Title: "The Matrix"}
	for i := 0; i < 3; i++ {
		if err := recorder.RecordLike(ctx, "u1", film); err != nil {
			t.Fatalf("RecordLike %d: %v", i, err)
		}
	}

	if got := store.LikeCount("u1"); got != 1 {
		t.Errorf("like count = %d, want 1", got)
	}
	films, _ := store.Films(ctx, 10)
	if len(films) != 1 {
		t.Errorf("films = %+v, want 1", films)
	}
}

func TestRecordGenrePreferences(t *testing.T) {
	recorder, store := newTestRecorder()
	ctx := context.Background()

	ingestor := catalog.NewIngestor(store)
	if err := ingestor.SeedGenres(ctx, []models.Genre{{ID: 28, Name: "Action"}, {ID: 35, Name: "Comedy"}}); err != nil {
		t.Fatalf("seed genres: %v", err)
	}

	results, err := recorder.RecordGenrePreferences(ctx, "u1", []int{28, 35})
	if err != nil {
		t.Fatalf("RecordGenrePreferences: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	for _, res := range results {
		if !res.OK {
			t.Errorf("genre %d rejected: %s", res.GenreID, res.Error)
		}
	}
}

func TestRecordGenrePreferencesPartialFailure(t *testing.T) {
	recorder, store := newTestRecorder()
	ctx := context.Background()

	ingestor := catalog.NewIngestor(store)
	if err := ingestor.SeedGenres(ctx, []models.Genre{{ID: 28, Name: "Action"}}); err != nil {
		t.Fatalf("seed genres: %v", err)
	}

	// 999 was never seeded; its entry fails while 28 succeeds.
	results, err := recorder.RecordGenrePreferences(ctx, "u1", []int{28, 999})
	if err != nil {
		t.Fatalf("RecordGenrePreferences: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	if !results[0].OK {
		t.Errorf("genre 28 should succeed: %+v", results[0])
	}
	if results[1].OK || results[1].Error == "" {
		t.Errorf("genre 999 should fail with a message: %+v", results[1])
	}
}
