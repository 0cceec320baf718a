// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

// Package recommend produces film recommendations by blending a
// content-based strategy with a genre preference strategy.
package recommend

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cinegraph/cinegraph/internal/models"
)

// Note: this package depends only on models. The Provider interface
// lets the graph layer plug in without a circular import.

// Provider supplies the two traversals the engine blends. The graph
// store implements it.
type Provider interface {
	// CoOccurrence returns films sharing genres with the user's liked
	// films, scored by shared-genre path count, liked films excluded.
	CoOccurrence(ctx context.Context, userID string, limit int) ([]models.ScoredFilm, error)

	// GenrePreferenceFilms returns films belonging to the user's
	// explicitly preferred genres.
	GenrePreferenceFilms(ctx context.Context, userID string, limit int) ([]models.Film, error)
}

// Config controls how many candidates each strategy contributes.
type Config struct {
	// ContentLimit caps the content-based (co-occurrence) slate.
	ContentLimit int `koanf:"content_limit"`

	// GenreLimit caps the genre preference slate.
	GenreLimit int `koanf:"genre_limit"`
}

// DefaultConfig returns the standard ten-plus-ten blend.
func DefaultConfig() *Config {
	return &Config{ContentLimit: 10, GenreLimit: 10}
}

// Validate checks config invariants.
func (c *Config) Validate() error {
	if c.ContentLimit < 0 {
		return fmt.Errorf("content_limit must be >= 0, got %d", c.ContentLimit)
	}
	if c.GenreLimit < 0 {
		return fmt.Errorf("genre_limit must be >= 0, got %d", c.GenreLimit)
	}
	if c.ContentLimit == 0 && c.GenreLimit == 0 {
		return fmt.Errorf("at least one strategy limit must be positive")
	}
	return nil
}

// Response is one recommendation slate with per-strategy counts
// observed before deduplication.
type Response struct {
	Films        []models.Film `json:"films"`
	ContentCount int           `json:"content_count"`
	GenreCount   int           `json:"genre_count"`
}

// Engine blends strategy outputs into a single deduplicated slate.
// It is safe for concurrent use.
type Engine struct {
	config   *Config
	provider Provider
	logger   zerolog.Logger
}

// NewEngine creates a recommendation engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, provider Provider, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Engine{
		config:   cfg,
		provider: provider,
		logger:   logger.With().Str("component", "recommend").Logger(),
	}, nil
}

// Recommend returns the blended slate for a user: the content-based
// films first, then genre preference films, deduplicated by film id
// with the first occurrence winning.
//
// Each strategy degrades independently: if one traversal fails its
// contribution is dropped and logged, and the other still serves. The
// error is non-nil only when both strategies fail, so a user with no
// recorded signals gets an empty slate, not an error.
func (e *Engine) Recommend(ctx context.Context, userID string) (*Response, error) {
	var (
		resp        Response
		contentErr  error
		genreErr    error
		contentRecs []models.ScoredFilm
		genreRecs   []models.Film
	)

	if e.config.ContentLimit > 0 {
		contentRecs, contentErr = e.provider.CoOccurrence(ctx, userID, e.config.ContentLimit)
		if contentErr != nil {
			e.logger.Warn().Err(contentErr).Str("user_id", userID).Msg("Content strategy failed, degrading")
		}
	}
	if e.config.GenreLimit > 0 {
		genreRecs, genreErr = e.provider.GenrePreferenceFilms(ctx, userID, e.config.GenreLimit)
		if genreErr != nil {
			e.logger.Warn().Err(genreErr).Str("user_id", userID).Msg("Genre strategy failed, degrading")
		}
	}

	// Fail only when every enabled strategy failed. A disabled strategy
	// counts as failed here so a single-strategy setup still surfaces
	// its errors.
	contentDown := e.config.ContentLimit == 0 || contentErr != nil
	genreDown := e.config.GenreLimit == 0 || genreErr != nil
	if contentDown && genreDown {
		err := contentErr
		if err == nil {
			err = genreErr
		}
		return nil, fmt.Errorf("recommend for user %s: %w", userID, err)
	}

	resp.ContentCount = len(contentRecs)
	resp.GenreCount = len(genreRecs)

	seen := make(map[int]struct{}, len(contentRecs)+len(genreRecs))
	resp.Films = make([]models.Film, 0, len(contentRecs)+len(genreRecs))
	for _, sf := range contentRecs {
		if _, dup := seen[sf.Film.ID]; dup {
			continue
		}
		seen[sf.Film.ID] = struct{}{}
		resp.Films = append(resp.Films, sf.Film)
	}
	for _, f := range genreRecs {
		if _, dup := seen[f.ID]; dup {
			continue
		}
		seen[f.ID] = struct{}{}
		resp.Films = append(resp.Films, f)
	}

	e.logger.Debug().
		Str("user_id", userID).
		Int("content", resp.ContentCount).
		Int("genre", resp.GenreCount).
		Int("total", len(resp.Films)).
		Msg("Recommendation slate built")
	return &resp, nil
}
