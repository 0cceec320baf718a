// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

// Package graph is the store adapter for the Users/Films/Genres
// property graph.
//
// Three backends implement the same Store contract:
//
//   - DuckDB (default): nodes are per-label tables keyed by id, edges
//     are join tables with composite primary keys. Merge-never-deletes
//     and edge dedup come from ON CONFLICT clauses; co-occurrence
//     scoring is a join/aggregate.
//   - Neo4j: native property graph via the official Go driver, with
//     MERGE-based upserts and Cypher traversals.
//   - Memory: map-backed reference implementation used in tests and
//     for ephemeral development runs.
//
// The backend is selected by config (store.backend). Business rules
// (lazy ingestion, partial-failure policy, result merging) live in the
// catalog, preferences and recommend packages, never here.
package graph
