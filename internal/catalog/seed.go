// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package catalog

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cinegraph/cinegraph/internal/logging"
)

// Seeder bulk-loads the graph from the external catalog: the full
// genre taxonomy followed by N pages of popular films.
type Seeder struct {
	client   CatalogClient
	ingestor *Ingestor
	pages    int
	logger   zerolog.Logger
}

// SeedStats summarizes one seeding run.
type SeedStats struct {
	Genres      int `json:"genres"`
	Films       int `json:"films"`
	FilmsFailed int `json:"films_failed"`
	Pages       int `json:"pages"`
}

// NewSeeder creates a seeder that loads the given number of popular
// film pages.
func NewSeeder(client CatalogClient, ingestor *Ingestor, pages int) *Seeder {
	if pages < 1 {
		pages = 1
	}
	return &Seeder{
		client:   client,
		ingestor: ingestor,
		pages:    pages,
		logger:   logging.With().Str("component", "seeder").Logger(),
	}
}

// Run executes a full seed pass. Genre taxonomy failures abort the run
// since films would otherwise link to nameless genres; individual film
// failures are counted and skipped so one bad payload cannot sink the
// whole load.
func (s *Seeder) Run(ctx context.Context) (SeedStats, error) {
	var stats SeedStats

	genres, err := s.client.GenreList(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch genre taxonomy: %w", err)
	}
	if err := s.ingestor.SeedGenres(ctx, genres); err != nil {
		return stats, err
	}
	stats.Genres = len(genres)

	for page := 1; page <= s.pages; page++ {
		films, err := s.client.Popular(ctx, page)
		if err != nil {
			// Pages already loaded stay loaded; report how far we got.
			return stats, fmt.Errorf("fetch popular page %d: %w", page, err)
		}
		stats.Pages++

		for _, film := range films {
			if err := s.ingestor.IngestFilm(ctx, film); err != nil {
				stats.FilmsFailed++
				s.logger.Warn().Err(err).Int("film_id", film.ID).Msg("Skipping film during seed")
				continue
			}
			stats.Films++
		}
	}

	s.logger.Info().
		Int("genres", stats.Genres).
		Int("films", stats.Films).
		Int("films_failed", stats.FilmsFailed).
		Int("pages", stats.Pages).
		Msg("Seed run complete")
	return stats, nil
}
