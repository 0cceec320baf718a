// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

// Package catalog materializes films and genres into the graph and
// talks to the external movie catalog provider.
//
// Ingestion is the single upsert path shared by every writer: the
// seeder, the preference recorder and any future import all funnel
// film payloads through Ingestor.IngestFilm, so lazy creation
// semantics cannot drift between callers.
package catalog

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/cinegraph/cinegraph/internal/graph"
	"github.com/cinegraph/cinegraph/internal/logging"
	"github.com/cinegraph/cinegraph/internal/models"
)

// Ingestor idempotently materializes films and their genre membership
// edges into the graph store.
type Ingestor struct {
	store  graph.Store
	logger zerolog.Logger
}

// NewIngestor creates an ingestor over the given store.
func NewIngestor(store graph.Store) *Ingestor {
	return &Ingestor{
		store:  store,
		logger: logging.With().Str("component", "catalog").Logger(),
	}
}

// IngestFilm upserts the film node and, for each genre id on the
// payload, upserts a bare genre node and the BELONGS_TO edge.
//
// Repeated ingestion of the same film is safe and convergent:
// descriptive fields are last-write-wins and genre edges accumulate
// monotonically. The film and its edges are separate store operations,
// so a failure can leave a film without some of its genre edges;
// callers recover by retrying, not by rollback.
func (in *Ingestor) IngestFilm(ctx context.Context, film models.Film) error {
	film.Normalize()
	filmID := strconv.Itoa(film.ID)

	props := map[string]any{
		graph.PropTitle:       film.Title,
		graph.PropOverview:    film.Overview,
		graph.PropPosterPath:  film.PosterPath,
		graph.PropReleaseDate: film.ReleaseDate,
		graph.PropVoteAverage: film.VoteAverage,
	}
	if err := in.store.UpsertNode(ctx, graph.LabelFilm, filmID, props); err != nil {
		return fmt.Errorf("ingest film %d: %w", film.ID, err)
	}

	for _, genreID := range film.GenreIDs {
		gid := strconv.Itoa(genreID)

		// The payload only carries the genre id; the node is created
		// bare and picks up a name if a richer write arrives later.
		if err := in.store.UpsertNode(ctx, graph.LabelGenre, gid, nil); err != nil {
			return fmt.Errorf("ingest genre %d for film %d: %w", genreID, film.ID, err)
		}
		if err := in.store.EnsureEdge(ctx,
			graph.Ref{Label: graph.LabelFilm, ID: filmID},
			graph.EdgeBelongsTo,
			graph.Ref{Label: graph.LabelGenre, ID: gid},
		); err != nil {
			return fmt.Errorf("link film %d to genre %d: %w", film.ID, genreID, err)
		}
	}

	in.logger.Debug().Int("film_id", film.ID).Int("genres", len(film.GenreIDs)).Msg("Film ingested")
	return nil
}

// SeedGenres upserts id+name genre pairs. A name written here
// overwrites an empty name left by lazy film ingestion.
func (in *Ingestor) SeedGenres(ctx context.Context, genres []models.Genre) error {
	for _, g := range genres {
		props := map[string]any{graph.PropName: g.Name}
		if err := in.store.UpsertNode(ctx, graph.LabelGenre, strconv.Itoa(g.ID), props); err != nil {
			return fmt.Errorf("seed genre %d: %w", g.ID, err)
		}
	}
	return nil
}
