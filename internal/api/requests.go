// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package api

import "github.com/cinegraph/cinegraph/internal/models"

// PreferenceRequest records a film like. The film payload is ingested
// as-is, so a film never seen before is created on the spot.
type PreferenceRequest struct {
	UserID string      `json:"userID" validate:"required"`
	Film   models.Film `json:"film" validate:"required"`
}

// GenrePreferencesRequest records explicit genre preferences.
type GenrePreferencesRequest struct {
	UserID   string `json:"userID" validate:"required"`
	GenreIDs []int  `json:"genreIDs" validate:"required,min=1,dive,gte=1"`
}

// RegisterRequest creates an account. Password length policy beyond
// the baseline minimum is enforced by the handler from config.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest exchanges credentials for a session token.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
