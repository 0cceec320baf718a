// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched
// in order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cinegraph/config.yaml",
	"/etc/cinegraph/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied. Defaults
// are loaded first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         3000,
			Timeout:      30 * time.Second,
			CORSOrigins:  []string{"*"},
			CatalogLimit: 50,
		},
		Store: StoreConfig{
			Backend: "duckdb",
			DuckDB: DuckDBConfig{
				Path:      "/data/cinegraph.duckdb",
				Threads:   0, // 0 = use runtime.NumCPU()
				MaxMemory: "1GB",
			},
			Neo4j: Neo4jConfig{
				URI:      "",
				Username: "neo4j",
				Password: "",
				Database: "",
			},
		},
		TMDB: TMDBConfig{
			APIKey:        "",
			BaseURL:       "https://api.themoviedb.org/3",
			Timeout:       10 * time.Second,
			RatePerSecond: 4,
			RateBurst:     8,
		},
		Security: SecurityConfig{
			JWTSecret:         "",
			SessionTimeout:    24 * time.Hour,
			MinPasswordLength: 8,
			RateLimitReqs:     100,
			AuthRateLimitReqs: 10,
			RateLimitWindow:   time.Minute,
		},
		Recommend: RecommendConfig{
			ContentLimit: 10,
			GenreLimit:   10,
		},
		Seed: SeedConfig{
			OnStartup:    false,
			PopularPages: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML config file (if present)
//  3. Environment variables: override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated
// slices when they arrive via environment variables.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated strings to slices for
// known slice fields. Env vars come in as strings; YAML values are
// already slices and are left untouched.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps well-known environment variable names to config
// paths. Variables not listed here are ignored, which keeps unrelated
// environment noise out of the configuration.
var envMappings = map[string]string{
	"HTTP_HOST":            "server.host",
	"HTTP_PORT":            "server.port",
	"HTTP_TIMEOUT":         "server.timeout",
	"CORS_ORIGINS":         "server.cors_origins",
	"CATALOG_LIMIT":        "server.catalog_limit",
	"STORE_BACKEND":        "store.backend",
	"DUCKDB_PATH":          "store.duckdb.path",
	"DUCKDB_THREADS":       "store.duckdb.threads",
	"DUCKDB_MAX_MEMORY":    "store.duckdb.max_memory",
	"NEO4J_URI":            "store.neo4j.uri",
	"NEO4J_USER":           "store.neo4j.username",
	"NEO4J_PASSWORD":       "store.neo4j.password",
	"NEO4J_DATABASE":       "store.neo4j.database",
	"TMDB_API_KEY":         "tmdb.api_key",
	"TMDB_BASE_URL":        "tmdb.base_url",
	"JWT_SECRET":           "security.jwt_secret",
	"SESSION_TIMEOUT":      "security.session_timeout",
	"MIN_PASSWORD_LENGTH":  "security.min_password_length",
	"RATE_LIMIT_REQS":      "security.rate_limit_reqs",
	"AUTH_RATE_LIMIT_REQS": "security.auth_rate_limit_reqs",
	"RECOMMEND_CONTENT_LIMIT": "recommend.content_limit",
	"RECOMMEND_GENRE_LIMIT":   "recommend.genre_limit",
	"SEED_ON_STARTUP":         "seed.on_startup",
	"SEED_POPULAR_PAGES":      "seed.popular_pages",
	"LOG_LEVEL":               "logging.level",
	"LOG_FORMAT":              "logging.format",
	"LOG_CALLER":              "logging.caller",
}

// envTransformFunc maps environment variable names to koanf paths.
// Unknown variables map to the empty string and are skipped.
func envTransformFunc(key string) string {
	if path, ok := envMappings[strings.ToUpper(key)]; ok {
		return path
	}
	return ""
}
