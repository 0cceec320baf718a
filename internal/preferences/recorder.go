// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

// Package preferences records user taste signals as graph edges.
package preferences

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/cinegraph/cinegraph/internal/catalog"
	"github.com/cinegraph/cinegraph/internal/graph"
	"github.com/cinegraph/cinegraph/internal/logging"
	"github.com/cinegraph/cinegraph/internal/models"
)

// Recorder writes LIKES and LIKES_GENRE edges. All writes are
// idempotent: recording the same preference twice leaves a single edge.
type Recorder struct {
	store    graph.Store
	ingestor *catalog.Ingestor
	logger   zerolog.Logger
}

// GenreResult reports the outcome of one genre preference in a batch.
type GenreResult struct {
	GenreID int    `json:"genre_id"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// NewRecorder creates a preference recorder over the given store.
func NewRecorder(store graph.Store, ingestor *catalog.Ingestor) *Recorder {
	return &Recorder{
		store:    store,
		ingestor: ingestor,
		logger:   logging.With().Str("component", "preferences").Logger(),
	}
}

// RecordLike ingests the film payload and links the user to it.
//
// The film is created or refreshed on every like, so liking is also the
// lazy ingestion path for films the seeder never saw. The user node is
// upserted bare: an unknown user id becomes a node rather than an
// error, which keeps likes recordable before registration.
func (r *Recorder) RecordLike(ctx context.Context, userID string, film models.Film) error {
	if err := r.ingestor.IngestFilm(ctx, film); err != nil {
		return err
	}
	if err := r.store.UpsertNode(ctx, graph.LabelUser, userID, nil); err != nil {
		return fmt.Errorf("ensure user %s: %w", userID, err)
	}
	if err := r.store.EnsureEdge(ctx,
		graph.Ref{Label: graph.LabelUser, ID: userID},
		graph.EdgeLikes,
		graph.Ref{Label: graph.LabelFilm, ID: strconv.Itoa(film.ID)},
	); err != nil {
		return fmt.Errorf("record like: %w", err)
	}

	r.logger.Debug().Str("user_id", userID).Int("film_id", film.ID).Msg("Like recorded")
	return nil
}

// RecordGenrePreferences links the user to each genre id, best-effort.
// Genres must already exist in the graph (the taxonomy is seeded, not
// lazily created from bare ids), so an unknown id fails only its own
// entry. The returned slice is positionally aligned with genreIDs.
func (r *Recorder) RecordGenrePreferences(ctx context.Context, userID string, genreIDs []int) ([]GenreResult, error) {
	if err := r.store.UpsertNode(ctx, graph.LabelUser, userID, nil); err != nil {
		return nil, fmt.Errorf("ensure user %s: %w", userID, err)
	}

	results := make([]GenreResult, 0, len(genreIDs))
	for _, genreID := range genreIDs {
		err := r.store.EnsureEdge(ctx,
			graph.Ref{Label: graph.LabelUser, ID: userID},
			graph.EdgeLikesGenre,
			graph.Ref{Label: graph.LabelGenre, ID: strconv.Itoa(genreID)},
		)
		if err != nil {
			r.logger.Warn().Err(err).Str("user_id", userID).Int("genre_id", genreID).Msg("Genre preference rejected")
			results = append(results, GenreResult{GenreID: genreID, Error: err.Error()})
			continue
		}
		results = append(results, GenreResult{GenreID: genreID, OK: true})
	}
	return results, nil
}
