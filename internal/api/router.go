// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

// Package api provides HTTP routing using the Chi router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cinegraph/cinegraph/internal/config"
	"github.com/cinegraph/cinegraph/internal/middleware"
)

// Router wires handlers and middleware into the HTTP surface.
type Router struct {
	handler *Handler
	cfg     *config.Config
}

// NewRouter creates a router around the given handler set.
func NewRouter(handler *Handler, cfg *config.Config) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Setup configures all HTTP routes.
//
// Middleware order matters: request IDs first so every later log line
// carries one, recovery before anything that can panic, CORS global so
// OPTIONS preflight is always answered.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	}))

	// Health and metrics stay outside the rate limit buckets so
	// monitoring cannot be starved by API traffic.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})
	r.Handle("/metrics", promhttp.Handler())

	// Auth endpoints get a strict per-IP bucket to slow brute force.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(httprate.Limit(
			router.cfg.Security.AuthRateLimitReqs,
			router.cfg.Security.RateLimitWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
		))
		r.Post("/register", router.handler.Register)
		r.Post("/login", router.handler.Login)
	})

	// Core API endpoints share the standard bucket.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.Limit(
			router.cfg.Security.RateLimitReqs,
			router.cfg.Security.RateLimitWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
		))
		r.Use(middleware.PrometheusMetrics)

		r.Get("/films", router.handler.Films)
		r.Get("/films/popular", router.handler.Popular)
		r.Get("/genres", router.handler.Genres)
		r.Get("/search", router.handler.Search)
		r.Post("/users/preference", router.handler.Preference)
		r.Post("/users/genres", router.handler.UserGenres)
		r.Get("/recommendations/{userID}", router.handler.Recommendations)
		r.Post("/admin/seed", router.handler.Seed)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, CodeNotFound, "Route not found", nil)
	})

	return r
}
