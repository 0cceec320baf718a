// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

// Package models defines the domain types shared across Cinegraph:
// films, genres, users and the scored results produced by the
// recommendation engine. JSON tags follow the TMDB wire format so
// catalog payloads round-trip through clients unchanged.
package models

// Film is a catalog entry materialized into the graph. ID is the
// external catalog identifier and is stable across ingestion sources;
// the descriptive fields are refreshed on every upsert.
type Film struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`

	// GenreIDs carries genre membership on ingestion payloads. It is
	// not stored on the film node itself; membership lives on
	// BELONGS_TO edges.
	GenreIDs []int `json:"genre_ids,omitempty"`
}

// Normalize fills missing optional fields with zero values so repeated
// ingestion of the same film converges on a stable attribute set.
func (f *Film) Normalize() {
	// Strings and floats already default to zero values after JSON
	// decoding; nil genre slices become empty so callers can range
	// without nil checks.
	if f.GenreIDs == nil {
		f.GenreIDs = []int{}
	}
}

// Genre is a catalog genre. Name may be empty when the genre was
// lazily created from a film payload that only carried the id.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// User is a registered account. The password hash never leaves the
// auth package and is not part of this type.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ScoredFilm pairs a film with its co-occurrence score from the
// content-based recommendation strategy.
type ScoredFilm struct {
	Film  Film    `json:"film"`
	Score float64 `json:"score"`
}
