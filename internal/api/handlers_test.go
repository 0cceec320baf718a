// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/cinegraph/cinegraph/internal/auth"
	"github.com/cinegraph/cinegraph/internal/catalog"
	"github.com/cinegraph/cinegraph/internal/config"
	"github.com/cinegraph/cinegraph/internal/graph"
	"github.com/cinegraph/cinegraph/internal/logging"
	"github.com/cinegraph/cinegraph/internal/models"
	"github.com/cinegraph/cinegraph/internal/preferences"
	"github.com/cinegraph/cinegraph/internal/recommend"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         0,
			Timeout:      5 * time.Second,
			CatalogLimit: 50,
		},
		Security: config.SecurityConfig{
			JWTSecret:         strings.Repeat("s", 32),
			SessionTimeout:    time.Hour,
			MinPasswordLength: 8,
			RateLimitReqs:     1000,
			AuthRateLimitReqs: 1000,
			RateLimitWindow:   time.Minute,
		},
		Recommend: config.RecommendConfig{ContentLimit: 10, GenreLimit: 10},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *graph.Memory) {
	t.Helper()

	cfg := testConfig()
	store := graph.NewMemory()
	ingestor := catalog.NewIngestor(store)
	recorder := preferences.NewRecorder(store, ingestor)

	engine, err := recommend.NewEngine(&recommend.Config{
		ContentLimit: cfg.Recommend.ContentLimit,
		GenreLimit:   cfg.Recommend.GenreLimit,
	}, store, logging.NewTestLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	authService := auth.NewService(store, jwtManager)

	handler := NewHandler(cfg, store, nil, recorder, engine, authService, nil)
	server := httptest.NewServer(NewRouter(handler, cfg).Setup())
	t.Cleanup(server.Close)
	return server, store
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, models.APIResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var envelope models.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp, envelope
}

func decodeData(t *testing.T, envelope models.APIResponse, dst any) {
	t.Helper()
	raw, err := json.Marshal(envelope.Data)
	if err != nil {
		t.Fatalf("remarshal data: %v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestPreferenceAndRecommendationsFlow(t *testing.T) {
	server, store := newTestServer(t)

	// Seed a co-occurring candidate directly in the store.
	ingestor := catalog.NewIngestor(store)
	if err := ingestor.IngestFilm(context.Background(), models.Film{ID: 2, Title: "Candidate", GenreIDs: []int{878}}); err != nil {
		t.Fatalf("seed candidate: %v", err)
	}

	resp, envelope := doJSON(t, http.MethodPost, server.URL+"/api/v1/users/preference", PreferenceRequest{
		UserID: "u1",
		Film:   models.Film{ID: 1, Title: "Liked", GenreIDs: []int{878}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("preference status = %d, envelope = %+v", resp.StatusCode, envelope)
	}

	resp, envelope = doJSON(t, http.MethodGet, server.URL+"/api/v1/recommendations/u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("recommendations status = %d", resp.StatusCode)
	}

	var slate recommend.Response
	decodeData(t, envelope, &slate)
	if len(slate.Films) != 1 || slate.Films[0].ID != 2 {
		t.Errorf("slate = %+v, want candidate film 2", slate)
	}
}

func TestRecommendationsEmptyUser(t *testing.T) {
	server, _ := newTestServer(t)

	resp, envelope := doJSON(t, http.MethodGet, server.URL+"/api/v1/recommendations/nobody", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var slate recommend.Response
	decodeData(t, envelope, &slate)
	if len(slate.Films) != 0 {
		t.Errorf("slate = %+v, want empty", slate)
	}
}

func TestPreferenceValidation(t *testing.T) {
	server, _ := newTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"missing user", PreferenceRequest{Film: models.Film{ID: 1}}},
		{"missing film id", PreferenceRequest{UserID: "u1"}},
		{"unknown field", map[string]any{"userID": "u1", "movie": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, envelope := doJSON(t, http.MethodPost, server.URL+"/api/v1/users/preference", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			if envelope.Error == nil || envelope.Error.Code != CodeValidationFailed {
				t.Errorf("error = %+v, want %s", envelope.Error, CodeValidationFailed)
			}
		})
	}
}

func TestUserGenresPartialResults(t *testing.T) {
	server, store := newTestServer(t)

	ingestor := catalog.NewIngestor(store)
	if err := ingestor.SeedGenres(context.Background(), []models.Genre{{ID: 28, Name: "Action"}}); err != nil {
		t.Fatalf("seed genres: %v", err)
	}

	resp, envelope := doJSON(t, http.MethodPost, server.URL+"/api/v1/users/genres", GenrePreferencesRequest{
		UserID:   "u1",
		GenreIDs: []int{28, 999},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var data struct {
		Results []preferences.GenreResult `json:"results"`
	}
	decodeData(t, envelope, &data)
	if len(data.Results) != 2 || !data.Results[0].OK || data.Results[1].OK {
		t.Errorf("results = %+v", data.Results)
	}
}

func TestGenrePreferenceRecommendationsWithoutLikes(t *testing.T) {
	server, store := newTestServer(t)

	ingestor := catalog.NewIngestor(store)
	if err := ingestor.SeedGenres(context.Background(), []models.Genre{{ID: 12, Name: "Adventure"}}); err != nil {
		t.Fatalf("seed genres: %v", err)
	}
	if err := ingestor.IngestFilm(context.Background(), models.Film{ID: 3, Title: "Quest", GenreIDs: []int{12}}); err != nil {
		t.Fatalf("ingest film: %v", err)
	}

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/v1/users/genres", GenrePreferencesRequest{
		UserID:   "u1",
		GenreIDs: []int{12},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save genres status = %d", resp.StatusCode)
	}

	resp, envelope := doJSON(t, http.MethodGet, server.URL+"/api/v1/recommendations/u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("recommendations status = %d", resp.StatusCode)
	}

	var slate recommend.Response
	decodeData(t, envelope, &slate)
	if len(slate.Films) != 1 || slate.Films[0].ID != 3 {
		t.Errorf("slate = %+v, want film 3 via genre preference", slate.Films)
	}
}

func TestGenresEndpoint(t *testing.T) {
	server, store := newTestServer(t)

	ingestor := catalog.NewIngestor(store)
	if err := ingestor.SeedGenres(context.Background(), []models.Genre{{ID: 28, Name: "Action"}}); err != nil {
		t.Fatalf("seed genres: %v", err)
	}

	resp, envelope := doJSON(t, http.MethodGet, server.URL+"/api/v1/genres", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var genres []models.Genre
	decodeData(t, envelope, &genres)
	if len(genres) != 1 || genres[0].Name != "Action" {
		t.Errorf("genres = %+v", genres)
	}
}

func TestRegisterConflict(t *testing.T) {
	server, _ := newTestServer(t)

	body := RegisterRequest{Username: "alice", Password: "password-one"}
	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/register", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first register status = %d", resp.StatusCode)
	}

	resp, envelope := doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/register", body)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second register status = %d, want 409", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != CodeUsernameTaken {
		t.Errorf("error = %+v, want %s", envelope.Error, CodeUsernameTaken)
	}
}

func TestLoginInvalid(t *testing.T) {
	server, _ := newTestServer(t)

	doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/register", RegisterRequest{Username: "alice", Password: "password-one"})

	resp, envelope := doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/login", LoginRequest{Username: "alice", Password: "wrong-password"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != CodeInvalidCredentials {
		t.Errorf("error = %+v, want %s", envelope.Error, CodeInvalidCredentials)
	}
}

func TestLoginReturnsToken(t *testing.T) {
	server, _ := newTestServer(t)

	doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/register", RegisterRequest{Username: "alice", Password: "password-one"})

	resp, envelope := doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/login", LoginRequest{Username: "alice", Password: "password-one"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var session auth.Session
	decodeData(t, envelope, &session)
	if session.Token == "" || session.User.Username != "alice" {
		t.Errorf("session = %+v", session)
	}
}

func TestSearchWithoutCatalog(t *testing.T) {
	server, _ := newTestServer(t)

	resp, envelope := doJSON(t, http.MethodGet, server.URL+"/api/v1/search?q=alien", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != CodeCatalogUnavailable {
		t.Errorf("error = %+v", envelope.Error)
	}
}

func TestUnknownRoute(t *testing.T) {
	server, _ := newTestServer(t)

	resp, envelope := doJSON(t, http.MethodGet, server.URL+"/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != CodeNotFound {
		t.Errorf("error = %+v", envelope.Error)
	}
}

func TestHealthEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	for _, path := range []string{"/api/v1/health", "/api/v1/health/live", "/api/v1/health/ready"} {
		resp, _ := doJSON(t, http.MethodGet, server.URL+path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d", path, resp.StatusCode)
		}
	}
}

func TestRequestIDHeader(t *testing.T) {
	server, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, server.URL+"/api/v1/health", nil)
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}
