// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

// Package main is the entry point for the Cinegraph server.
//
// Cinegraph serves film recommendations over a property graph of
// users, films and genres. Taste signals (film likes and genre
// preferences) are recorded as edges, and recommendations blend a
// shared-genre co-occurrence traversal with the user's explicit genre
// preferences.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered via Koanf v2 (defaults, config.yaml, env)
//  2. Graph store: DuckDB (embedded, default), Neo4j, or in-memory
//  3. Catalog: TMDB client with rate limiting and circuit breaker
//  4. Services: ingestor, preference recorder, recommendation engine, auth
//  5. HTTP server: Chi router with request IDs, CORS, rate limits, metrics
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file, built-in
// defaults. Commonly used variables:
//
//	export STORE_BACKEND=duckdb          # duckdb | neo4j | memory
//	export DUCKDB_PATH=/data/cinegraph.duckdb
//	export NEO4J_URI=neo4j://localhost:7687
//	export TMDB_API_KEY=your-tmdb-key    # enables search/popular/seed
//	export JWT_SECRET=$(openssl rand -base64 32)
//	export HTTP_PORT=3000
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops
// accepting connections, waits up to 10 seconds for in-flight requests,
// then closes the graph store.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cinegraph/cinegraph/internal/api"
	"github.com/cinegraph/cinegraph/internal/auth"
	"github.com/cinegraph/cinegraph/internal/catalog"
	"github.com/cinegraph/cinegraph/internal/config"
	"github.com/cinegraph/cinegraph/internal/graph"
	"github.com/cinegraph/cinegraph/internal/logging"
	"github.com/cinegraph/cinegraph/internal/preferences"
	"github.com/cinegraph/cinegraph/internal/recommend"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logging.Info().Str("backend", cfg.Store.Backend).Msg("Starting Cinegraph")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open graph store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close graph store")
		}
	}()

	ingestor := catalog.NewIngestor(store)
	recorder := preferences.NewRecorder(store, ingestor)

	engine, err := recommend.NewEngine(&recommend.Config{
		ContentLimit: cfg.Recommend.ContentLimit,
		GenreLimit:   cfg.Recommend.GenreLimit,
	}, store, logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create recommendation engine")
	}

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}
	authService := auth.NewService(store, jwtManager)

	// The catalog client is optional: without an API key the service
	// still records preferences and serves recommendations from
	// whatever is already in the graph.
	var (
		tmdbClient catalog.CatalogClient
		seeder     *catalog.Seeder
	)
	if cfg.TMDB.APIKey != "" {
		tmdbClient = catalog.NewTMDBClient(&cfg.TMDB)
		seeder = catalog.NewSeeder(tmdbClient, ingestor, cfg.Seed.PopularPages)
	} else {
		logging.Warn().Msg("TMDB_API_KEY not set, catalog search and seeding disabled")
	}

	if cfg.Seed.OnStartup && seeder != nil {
		stats, err := seeder.Run(ctx)
		if err != nil {
			logging.Error().Err(err).Msg("Startup seed failed")
		} else {
			logging.Info().Int("films", stats.Films).Int("genres", stats.Genres).Msg("Startup seed complete")
		}
	}

	handler := api.NewHandler(cfg, store, tmdbClient, recorder, engine, authService, seeder)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("HTTP server error")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Graceful shutdown failed")
	}

	logging.Info().Msg("Application stopped gracefully")
}

// openStore selects the graph backend from config.
func openStore(ctx context.Context, cfg *config.Config) (graph.Store, error) {
	var (
		store graph.Store
		err   error
	)
	switch cfg.Store.Backend {
	case config.BackendDuckDB:
		store, err = graph.NewDuckDB(&cfg.Store.DuckDB)
	case config.BackendNeo4j:
		store, err = graph.NewNeo4j(ctx, &cfg.Store.Neo4j)
	case config.BackendMemory:
		store = graph.NewMemory()
	default:
		return nil, errors.New("unknown store backend: " + cfg.Store.Backend)
	}
	if err != nil {
		return nil, err
	}
	return graph.WithMetrics(store, cfg.Store.Backend), nil
}
