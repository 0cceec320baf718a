// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

// Package config defines the Cinegraph configuration model and loads
// it via Koanf v2 with layered sources: built-in defaults, an optional
// YAML file, then environment variables.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Cinegraph server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	TMDB      TMDBConfig      `koanf:"tmdb"`
	Security  SecurityConfig  `koanf:"security"`
	Recommend RecommendConfig `koanf:"recommend"`
	Seed      SeedConfig      `koanf:"seed"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"` // per-request read/write timeout

	// CORSOrigins lists allowed origins for browser clients.
	CORSOrigins []string `koanf:"cors_origins"`

	// CatalogLimit bounds the GetFilms catalog read.
	CatalogLimit int `koanf:"catalog_limit"`
}

// StoreConfig selects and configures the graph store backend.
type StoreConfig struct {
	// Backend is one of "duckdb", "neo4j", "memory".
	Backend string `koanf:"backend"`

	DuckDB DuckDBConfig `koanf:"duckdb"`
	Neo4j  Neo4jConfig  `koanf:"neo4j"`
}

// DuckDBConfig configures the embedded DuckDB backend.
type DuckDBConfig struct {
	// Path is the database file. Empty opens an in-memory database.
	Path      string `koanf:"path"`
	Threads   int    `koanf:"threads"` // 0 = use runtime.NumCPU()
	MaxMemory string `koanf:"max_memory"`
}

// Neo4jConfig configures the external Neo4j backend.
type Neo4jConfig struct {
	URI      string `koanf:"uri"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Database string `koanf:"database"` // empty = server default
}

// TMDBConfig configures the external movie catalog provider.
type TMDBConfig struct {
	APIKey  string        `koanf:"api_key"`
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`

	// RatePerSecond caps outbound catalog requests.
	RatePerSecond float64 `koanf:"rate_per_second"`
	RateBurst     int     `koanf:"rate_burst"`
}

// SecurityConfig holds authentication settings.
type SecurityConfig struct {
	// JWTSecret signs login tokens. Required; 32+ characters.
	JWTSecret string `koanf:"jwt_secret"`

	// SessionTimeout is the token lifetime.
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// MinPasswordLength applies at registration.
	MinPasswordLength int `koanf:"min_password_length"`

	// RateLimitReqs/RateLimitWindow bound requests per client IP.
	// Auth routes use the stricter AuthRateLimitReqs bucket.
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	AuthRateLimitReqs int           `koanf:"auth_rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// RecommendConfig holds recommendation engine limits.
type RecommendConfig struct {
	// ContentLimit caps the content-based strategy result.
	ContentLimit int `koanf:"content_limit"`

	// GenreLimit caps the genre-preference strategy result.
	GenreLimit int `koanf:"genre_limit"`
}

// SeedConfig controls catalog seeding from the external provider.
type SeedConfig struct {
	// OnStartup seeds genres and popular films when the server boots.
	OnStartup bool `koanf:"on_startup"`

	// PopularPages is the number of popular-film pages to ingest.
	PopularPages int `koanf:"popular_pages"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Addr returns the host:port the HTTP server binds.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Store backend identifiers.
const (
	BackendDuckDB = "duckdb"
	BackendNeo4j  = "neo4j"
	BackendMemory = "memory"
)

// Validate checks the configuration for inconsistencies. Messages are
// actionable: they name the setting and how to fix it.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendDuckDB, BackendMemory:
	case BackendNeo4j:
		if c.Store.Neo4j.URI == "" {
			return fmt.Errorf("store.neo4j.uri is required when store.backend=neo4j (set NEO4J_URI)")
		}
	default:
		return fmt.Errorf("store.backend must be one of duckdb, neo4j, memory; got %q", c.Store.Backend)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535; got %d", c.Server.Port)
	}
	if c.Server.CatalogLimit <= 0 {
		return fmt.Errorf("server.catalog_limit must be positive; got %d", c.Server.CatalogLimit)
	}

	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required (set JWT_SECRET to a 32+ character value)")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters; got %d", len(c.Security.JWTSecret))
	}
	if c.Security.MinPasswordLength < 1 {
		return fmt.Errorf("security.min_password_length must be positive; got %d", c.Security.MinPasswordLength)
	}

	if c.Recommend.ContentLimit <= 0 || c.Recommend.GenreLimit <= 0 {
		return fmt.Errorf("recommend.content_limit and recommend.genre_limit must be positive")
	}

	if c.Seed.OnStartup && c.TMDB.APIKey == "" {
		return fmt.Errorf("tmdb.api_key is required when seed.on_startup is enabled (set TMDB_API_KEY)")
	}
	if c.Seed.PopularPages < 1 {
		return fmt.Errorf("seed.popular_pages must be at least 1; got %d", c.Seed.PopularPages)
	}

	return nil
}
