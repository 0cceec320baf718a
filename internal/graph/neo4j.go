// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/cinegraph/cinegraph/internal/config"
	"github.com/cinegraph/cinegraph/internal/logging"
	"github.com/cinegraph/cinegraph/internal/models"
)

// Neo4j implements Store against a native property-graph backend using
// the official Go driver. Upserts are MERGE statements; the node
// identity contract comes from unique constraints ensured at startup.
type Neo4j struct {
	driver neo4j.DriverWithContext
	dbName string
}

// NewNeo4j connects to the configured Neo4j instance and ensures the
// identity constraints.
func NewNeo4j(ctx context.Context, cfg *config.Neo4jConfig) (*Neo4j, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, storeErr("create neo4j driver", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, storeErr("verify neo4j connectivity", err)
	}

	st := &Neo4j{driver: driver, dbName: cfg.Database}
	if err := st.ensureConstraints(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}

	logging.Debug().Str("uri", cfg.URI).Msg("Neo4j graph store connected")
	return st, nil
}

// neo4jSchema holds the constraints ensured at startup. Username
// uniqueness backs the registration guarantee; users created through
// the preference path carry no username property and uniqueness
// constraints do not apply to absent properties.
var neo4jSchema = []string{
	`CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`,
	`CREATE CONSTRAINT film_id_unique IF NOT EXISTS FOR (f:Film) REQUIRE f.id IS UNIQUE`,
	`CREATE CONSTRAINT genre_id_unique IF NOT EXISTS FOR (g:Genre) REQUIRE g.id IS UNIQUE`,
	`CREATE CONSTRAINT user_username_unique IF NOT EXISTS FOR (u:User) REQUIRE u.username IS UNIQUE`,
}

// ensureConstraints creates the uniqueness constraints backing node
// identity. Constraints also create index support for the point
// lookups every write path performs.
func (st *Neo4j) ensureConstraints(ctx context.Context) error {
	session := st.session(ctx)
	defer func() { _ = session.Close(ctx) }()

	for _, query := range neo4jSchema {
		if _, err := session.Run(ctx, query, nil); err != nil {
			return storeErr("ensure constraints", err)
		}
	}
	return nil
}

func (st *Neo4j) session(ctx context.Context) neo4j.SessionWithContext {
	return st.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: st.dbName})
}

// UpsertNode implements Store.
func (st *Neo4j) UpsertNode(ctx context.Context, label Label, id string, props map[string]any) error {
	if err := validateProps(label, props); err != nil {
		return err
	}
	idArg, err := nodeIDArg(label, id)
	if err != nil {
		return err
	}

	params := map[string]any{"id": idArg}
	var b strings.Builder
	fmt.Fprintf(&b, "MERGE (n:%s {id: $id})", label)

	// Fixed key order keeps generated Cypher deterministic. Keys are
	// validated against the per-label allowlist above, so direct
	// interpolation into the SET clause is safe.
	assignments := []string{}
	for _, key := range labelPropOrder[label] {
		if val, ok := props[key]; ok {
			assignments = append(assignments, fmt.Sprintf("n.%s = $%s", key, key))
			params[key] = val
		}
	}
	if label == LabelFilm && len(assignments) > 0 {
		assignments = append(assignments, "n.ingested_at = timestamp()")
	}
	if len(assignments) > 0 {
		b.WriteString(" SET ")
		b.WriteString(strings.Join(assignments, ", "))
	}

	session := st.session(ctx)
	defer func() { _ = session.Close(ctx) }()

	if _, err := session.Run(ctx, b.String(), params); err != nil {
		return storeErr(fmt.Sprintf("upsert %s %s", label, id), err)
	}
	return nil
}

// EnsureEdge implements Store. The MATCH clauses resolve both
// endpoints; when either is missing the MERGE runs over zero rows and
// no edge is created.
func (st *Neo4j) EnsureEdge(ctx context.Context, from Ref, edgeType EdgeType, to Ref) error {
	if err := validateEdge(from, edgeType, to); err != nil {
		return err
	}
	fromArg, err := nodeIDArg(from.Label, from.ID)
	if err != nil {
		return err
	}
	toArg, err := nodeIDArg(to.Label, to.ID)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		MATCH (a:%s {id: $from})
		MATCH (b:%s {id: $to})
		MERGE (a)-[:%s]->(b)
		RETURN count(*) AS n`, from.Label, to.Label, edgeType)

	session := st.session(ctx)
	defer func() { _ = session.Close(ctx) }()

	result, err := session.Run(ctx, query, map[string]any{"from": fromArg, "to": toArg})
	if err != nil {
		return storeErr(fmt.Sprintf("ensure edge %s", edgeType), err)
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return storeErr(fmt.Sprintf("ensure edge %s", edgeType), err)
	}
	if mergedEdgeCount(records) == 0 {
		return fmt.Errorf("ensure edge %s: %s -> %s: %w", edgeType, from, to, ErrEndpointNotFound)
	}
	return nil
}

// mergedEdgeCount reads the count aggregate from an edge merge result.
// count(*) is a global aggregation, so the query returns one record
// even when the MATCH clauses resolve nothing; a zero count means an
// endpoint was missing and the MERGE was a no-op.
func mergedEdgeCount(records []*neo4j.Record) int {
	if len(records) == 0 {
		return 0
	}
	return recInt(records[0], "n")
}

const filmReturn = `rec.id AS id,
	coalesce(rec.title, '') AS title,
	coalesce(rec.overview, '') AS overview,
	coalesce(rec.poster_path, '') AS poster_path,
	coalesce(rec.release_date, '') AS release_date,
	coalesce(rec.vote_average, 0.0) AS vote_average`

// Films implements Store.
func (st *Neo4j) Films(ctx context.Context, limit int) ([]models.Film, error) {
	query := `MATCH (rec:Film)
		RETURN ` + filmReturn + `
		ORDER BY coalesce(rec.ingested_at, 0) DESC, rec.id ASC
		LIMIT $limit`

	records, err := st.collect(ctx, query, map[string]any{"limit": limit})
	if err != nil {
		return nil, storeErr("query films", err)
	}
	return filmsFromRecords(records), nil
}

// Genres implements Store.
func (st *Neo4j) Genres(ctx context.Context) ([]models.Genre, error) {
	query := `MATCH (g:Genre)
		RETURN g.id AS id, coalesce(g.name, '') AS name
		ORDER BY name ASC, id ASC`

	records, err := st.collect(ctx, query, nil)
	if err != nil {
		return nil, storeErr("query genres", err)
	}

	genres := make([]models.Genre, 0, len(records))
	for _, rec := range records {
		genres = append(genres, models.Genre{
			ID:   recInt(rec, "id"),
			Name: recString(rec, "name"),
		})
	}
	return genres, nil
}

// UserByUsername implements Store.
func (st *Neo4j) UserByUsername(ctx context.Context, username string) (*UserRecord, error) {
	query := `MATCH (u:User {username: $username})
		RETURN u.id AS id, u.username AS username, coalesce(u.password_hash, '') AS password_hash`

	records, err := st.collect(ctx, query, map[string]any{"username": username})
	if err != nil {
		return nil, storeErr("query user", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("user %q: %w", username, ErrNodeNotFound)
	}
	rec := records[0]
	return &UserRecord{
		ID:           recString(rec, "id"),
		Username:     recString(rec, "username"),
		PasswordHash: recString(rec, "password_hash"),
	}, nil
}

// CoOccurrence implements Store. This is the original traversal shape:
// liked film -> shared genre -> candidate, scored by path count, with
// the film id as deterministic secondary sort key.
func (st *Neo4j) CoOccurrence(ctx context.Context, userID string, limit int) ([]models.ScoredFilm, error) {
	query := `MATCH (u:User {id: $userID})-[:LIKES]->(:Film)-[:BELONGS_TO]->(g:Genre)<-[:BELONGS_TO]-(rec:Film)
		WHERE NOT (u)-[:LIKES]->(rec)
		WITH rec, count(g) AS score
		ORDER BY score DESC, rec.id ASC
		LIMIT $limit
		RETURN ` + filmReturn + `, score`

	records, err := st.collect(ctx, query, map[string]any{"userID": userID, "limit": limit})
	if err != nil {
		return nil, storeErr("query co-occurrence", err)
	}

	scored := make([]models.ScoredFilm, 0, len(records))
	for _, rec := range records {
		scored = append(scored, models.ScoredFilm{
			Film:  filmFromRecord(rec),
			Score: recFloat(rec, "score"),
		})
	}
	return scored, nil
}

// GenrePreferenceFilms implements Store.
func (st *Neo4j) GenrePreferenceFilms(ctx context.Context, userID string, limit int) ([]models.Film, error) {
	query := `MATCH (u:User {id: $userID})-[:LIKES_GENRE]->(:Genre)<-[:BELONGS_TO]-(rec:Film)
		WHERE NOT (u)-[:LIKES]->(rec)
		WITH DISTINCT rec
		ORDER BY rec.id ASC
		LIMIT $limit
		RETURN ` + filmReturn

	records, err := st.collect(ctx, query, map[string]any{"userID": userID, "limit": limit})
	if err != nil {
		return nil, storeErr("query genre preference films", err)
	}
	return filmsFromRecords(records), nil
}

// Ping implements Store.
func (st *Neo4j) Ping(ctx context.Context) error {
	if err := st.driver.VerifyConnectivity(ctx); err != nil {
		return storeErr("ping", err)
	}
	return nil
}

// Close implements Store.
func (st *Neo4j) Close() error {
	return st.driver.Close(context.Background())
}

func (st *Neo4j) collect(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	session := st.session(ctx)
	defer func() { _ = session.Close(ctx) }()

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return result.Collect(ctx)
}

func filmsFromRecords(records []*neo4j.Record) []models.Film {
	films := make([]models.Film, 0, len(records))
	for _, rec := range records {
		films = append(films, filmFromRecord(rec))
	}
	return films
}

func filmFromRecord(rec *neo4j.Record) models.Film {
	return models.Film{
		ID:          recInt(rec, "id"),
		Title:       recString(rec, "title"),
		Overview:    recString(rec, "overview"),
		PosterPath:  recString(rec, "poster_path"),
		ReleaseDate: recString(rec, "release_date"),
		VoteAverage: recFloat(rec, "vote_average"),
	}
}

// Record value coercion. The driver returns int64/float64/string for
// scalar properties; absent keys fall back to zero values.
func recString(rec *neo4j.Record, key string) string {
	if val, ok := rec.Get(key); ok {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

func recInt(rec *neo4j.Record, key string) int {
	if val, ok := rec.Get(key); ok {
		switch n := val.(type) {
		case int64:
			return int(n)
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return 0
}

func recFloat(rec *neo4j.Record, key string) float64 {
	if val, ok := rec.Get(key); ok {
		switch n := val.(type) {
		case float64:
			return n
		case int64:
			return float64(n)
		case int:
			return float64(n)
		}
	}
	return 0
}
