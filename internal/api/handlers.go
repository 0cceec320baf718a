// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cinegraph/cinegraph/internal/auth"
	"github.com/cinegraph/cinegraph/internal/catalog"
	"github.com/cinegraph/cinegraph/internal/config"
	"github.com/cinegraph/cinegraph/internal/graph"
	"github.com/cinegraph/cinegraph/internal/logging"
	"github.com/cinegraph/cinegraph/internal/metrics"
	"github.com/cinegraph/cinegraph/internal/preferences"
	"github.com/cinegraph/cinegraph/internal/recommend"
)

// Handler bundles the services behind the HTTP surface.
type Handler struct {
	cfg      *config.Config
	store    graph.Store
	catalog  catalog.CatalogClient // nil when no API key is configured
	recorder *preferences.Recorder
	engine   *recommend.Engine
	auth     *auth.Service
	seeder   *catalog.Seeder // nil when no API key is configured
}

// NewHandler creates the HTTP handler set. catalogClient and seeder may
// be nil; the routes that need them then answer CATALOG_UNAVAILABLE.
func NewHandler(
	cfg *config.Config,
	store graph.Store,
	catalogClient catalog.CatalogClient,
	recorder *preferences.Recorder,
	engine *recommend.Engine,
	authService *auth.Service,
	seeder *catalog.Seeder,
) *Handler {
	return &Handler{
		cfg:      cfg,
		store:    store,
		catalog:  catalogClient,
		recorder: recorder,
		engine:   engine,
		auth:     authService,
		seeder:   seeder,
	}
}

// storeError maps graph layer failures onto the API error taxonomy.
func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, graph.ErrEndpointNotFound):
		respondError(w, http.StatusNotFound, CodeEndpointNotFound, "A node referenced by the edge does not exist", err)
	case errors.Is(err, graph.ErrNodeNotFound):
		respondError(w, http.StatusNotFound, CodeNotFound, "Requested resource does not exist", err)
	case errors.Is(err, graph.ErrStoreUnavailable):
		respondError(w, http.StatusServiceUnavailable, CodeStoreUnavailable, "Graph store is unavailable", err)
	default:
		respondError(w, http.StatusInternalServerError, CodeInternal, "Internal error", err)
	}
}

// Films returns the film catalog, most recently ingested first.
func (h *Handler) Films(w http.ResponseWriter, r *http.Request) {
	films, err := h.store.Films(r.Context(), h.cfg.Server.CatalogLimit)
	if err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusOK, films)
}

// Genres returns all known genres ordered by name.
func (h *Handler) Genres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.store.Genres(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusOK, genres)
}

// Preference records a film like for a user.
func (h *Handler) Preference(w http.ResponseWriter, r *http.Request) {
	var req PreferenceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validateRequest(w, &req) {
		return
	}
	if req.Film.ID < 1 {
		respondError(w, http.StatusBadRequest, CodeValidationFailed, "film.id must be a positive integer", nil)
		return
	}

	if err := h.recorder.RecordLike(r.Context(), req.UserID, req.Film); err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]any{
		"userID": req.UserID,
		"filmID": req.Film.ID,
	})
}

// UserGenres records genre preferences for a user, best-effort per id.
func (h *Handler) UserGenres(w http.ResponseWriter, r *http.Request) {
	var req GenrePreferencesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validateRequest(w, &req) {
		return
	}

	results, err := h.recorder.RecordGenrePreferences(r.Context(), req.UserID, req.GenreIDs)
	if err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]any{
		"userID":  req.UserID,
		"results": results,
	})
}

// Recommendations serves the blended slate for a user.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respondError(w, http.StatusBadRequest, CodeValidationFailed, "userID path parameter is required", nil)
		return
	}

	start := time.Now()
	resp, err := h.engine.Recommend(r.Context(), userID)
	if err != nil {
		storeError(w, err)
		return
	}

	metrics.RecommendationsServed.Inc()
	metrics.RecommendationSlateSize.Observe(float64(len(resp.Films)))

	respondJSON(w, http.StatusOK, successEnvelope(resp, time.Since(start)))
}

// Register creates an account and returns a session token.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validateRequest(w, &req) {
		return
	}
	if len(req.Password) < h.cfg.Security.MinPasswordLength {
		respondError(w, http.StatusBadRequest, CodeValidationFailed,
			"password must be at least "+strconv.Itoa(h.cfg.Security.MinPasswordLength)+" characters", nil)
		return
	}

	session, err := h.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("register", "failure").Inc()
		if errors.Is(err, auth.ErrUsernameTaken) {
			respondError(w, http.StatusConflict, CodeUsernameTaken, "Username is already taken", nil)
			return
		}
		storeError(w, err)
		return
	}

	metrics.AuthAttempts.WithLabelValues("register", "success").Inc()
	respondData(w, http.StatusCreated, session)
}

// Login verifies credentials and returns a session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validateRequest(w, &req) {
		return
	}

	session, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("login", "failure").Inc()
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid username or password", nil)
			return
		}
		storeError(w, err)
		return
	}

	metrics.AuthAttempts.WithLabelValues("login", "success").Inc()
	respondData(w, http.StatusOK, session)
}

// Search proxies a film title search to the upstream catalog.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		respondError(w, http.StatusServiceUnavailable, CodeCatalogUnavailable, "Film catalog is not configured", nil)
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		respondError(w, http.StatusBadRequest, CodeValidationFailed, "q parameter is required", nil)
		return
	}

	films, err := h.catalog.Search(r.Context(), query)
	if err != nil {
		metrics.CatalogRequests.WithLabelValues("search", "failure").Inc()
		respondError(w, http.StatusBadGateway, CodeCatalogUnavailable, "Film catalog request failed", err)
		return
	}
	metrics.CatalogRequests.WithLabelValues("search", "success").Inc()
	respondData(w, http.StatusOK, films)
}

// Popular proxies the upstream popular film listing.
func (h *Handler) Popular(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		respondError(w, http.StatusServiceUnavailable, CodeCatalogUnavailable, "Film catalog is not configured", nil)
		return
	}
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, CodeValidationFailed, "page must be a positive integer", nil)
			return
		}
		page = parsed
	}

	films, err := h.catalog.Popular(r.Context(), page)
	if err != nil {
		metrics.CatalogRequests.WithLabelValues("popular", "failure").Inc()
		respondError(w, http.StatusBadGateway, CodeCatalogUnavailable, "Film catalog request failed", err)
		return
	}
	metrics.CatalogRequests.WithLabelValues("popular", "success").Inc()
	respondData(w, http.StatusOK, films)
}

// Seed runs a full catalog seed pass.
func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	if h.seeder == nil {
		respondError(w, http.StatusServiceUnavailable, CodeCatalogUnavailable, "Seeding requires a configured film catalog", nil)
		return
	}

	logging.Info().Msg("Seed requested via API")
	stats, err := h.seeder.Run(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, CodeCatalogUnavailable, "Seed run failed", err)
		return
	}
	respondData(w, http.StatusOK, stats)
}

// Health reports liveness plus store reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	respondData(w, code, map[string]string{"status": status})
}

// HealthLive always returns 200 while the process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HealthReady returns 200 only when the store answers.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, CodeStoreUnavailable, "Graph store is unavailable", err)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"status": "ready"})
}
