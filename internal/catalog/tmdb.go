// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

/*
tmdb.go - TMDB REST API Client

This file implements a REST API client for The Movie Database (TMDB).
It provides film search, popular film listings and the canonical genre
taxonomy. All calls go through a shared rate limiter and a circuit
breaker so a slow or failing upstream cannot stall request handlers.

API Reference: https://developer.themoviedb.org/reference
*/

package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/cinegraph/cinegraph/internal/config"
	"github.com/cinegraph/cinegraph/internal/logging"
	"github.com/cinegraph/cinegraph/internal/models"
)

// ErrCatalogUnavailable is returned when the upstream catalog rejects
// or cannot serve a request, including circuit breaker rejections.
var ErrCatalogUnavailable = errors.New("film catalog unavailable")

const (
	breakerInterval = time.Minute
	breakerTimeout  = 30 * time.Second
)

// CatalogClient is the read surface of the external film catalog.
// TMDBClient is the production implementation; tests substitute fakes.
type CatalogClient interface {
	Search(ctx context.Context, query string) ([]models.Film, error)
	Popular(ctx context.Context, page int) ([]models.Film, error)
	GenreList(ctx context.Context) ([]models.Genre, error)
}

// Ensure TMDBClient implements CatalogClient
var _ CatalogClient = (*TMDBClient)(nil)

// TMDBClient provides access to the TMDB REST API.
//
// DETERMINISM NOTE: The circuit breaker uses real time (via sony/gobreaker)
// for its interval and timeout calculations. This is intentional for
// production resilience.
type TMDBClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	cb         *gobreaker.CircuitBreaker[interface{}]
}

// NewTMDBClient creates a TMDB API client from config.
//
// Circuit breaker configuration:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 30 second timeout before attempting recovery
// - Opens after 5 consecutive failures
func NewTMDBClient(cfg *config.TMDBConfig) *TMDBClient {
	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "tmdb-api",
		MaxRequests: 3,
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("from", from.String()).Str("to", to.String()).Msg("[CIRCUIT BREAKER] TMDB state transition")
		},
	})

	return &TMDBClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		cb:      cb,
	}
}

// filmPage is the shared TMDB envelope for film list responses.
type filmPage struct {
	Page         int           `json:"page"`
	Results      []models.Film `json:"results"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
}

type genreList struct {
	Genres []models.Genre `json:"genres"`
}

// Search queries TMDB for films matching the given title text.
func (c *TMDBClient) Search(ctx context.Context, query string) ([]models.Film, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")
	params.Set("page", "1")

	var page filmPage
	if err := c.getJSON(ctx, "/search/movie", params, &page); err != nil {
		return nil, fmt.Errorf("tmdb search %q: %w", query, err)
	}
	return normalizeFilms(page.Results), nil
}

// Popular retrieves one page of TMDB's popular film listing.
// Pages are 1-based; values below 1 are clamped to the first page.
func (c *TMDBClient) Popular(ctx context.Context, page int) ([]models.Film, error) {
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))

	var result filmPage
	if err := c.getJSON(ctx, "/movie/popular", params, &result); err != nil {
		return nil, fmt.Errorf("tmdb popular page %d: %w", page, err)
	}
	return normalizeFilms(result.Results), nil
}

// GenreList retrieves the full TMDB movie genre taxonomy.
func (c *TMDBClient) GenreList(ctx context.Context) ([]models.Genre, error) {
	var result genreList
	if err := c.getJSON(ctx, "/genre/movie/list", params(nil), &result); err != nil {
		return nil, fmt.Errorf("tmdb genre list: %w", err)
	}
	return result.Genres, nil
}

func params(v url.Values) url.Values {
	if v == nil {
		return url.Values{}
	}
	return v
}

// getJSON performs a rate-limited, breaker-protected GET and decodes
// the response body into out.
func (c *TMDBClient) getJSON(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	query.Set("api_key", c.apiKey)
	query.Set("language", "en-US")
	reqURL := c.baseURL + endpoint + "?" + query.Encode()

	body, err := c.cb.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, reqURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.Warn().Str("endpoint", endpoint).Msg("[CIRCUIT BREAKER] TMDB request rejected")
			return fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
		}
		return err
	}

	raw, ok := body.([]byte)
	if !ok {
		return fmt.Errorf("unexpected tmdb response type %T", body)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode tmdb response: %w", err)
	}
	return nil
}

func (c *TMDBClient) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create tmdb request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tmdb response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: tmdb returned status %d: %s", ErrCatalogUnavailable, resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func normalizeFilms(films []models.Film) []models.Film {
	for i := range films {
		films[i].Normalize()
	}
	return films
}
