// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/cinegraph/cinegraph/internal/config"
	"github.com/cinegraph/cinegraph/internal/logging"
	"github.com/cinegraph/cinegraph/internal/models"
)

// schemaTimeout bounds schema bootstrap statements.
const schemaTimeout = 60 * time.Second

// DuckDB renders the property graph over DuckDB: per-label node tables
// keyed by id, edge sets as join tables with composite primary keys.
// ON CONFLICT clauses give the merge-never-duplicates contract without
// any in-process locking.
type DuckDB struct {
	conn *sql.DB
}

// duckdbTables maps node labels to their backing tables.
var duckdbTables = map[Label]string{
	LabelUser:  "users",
	LabelFilm:  "films",
	LabelGenre: "genres",
}

// duckdbEdges maps edge types to their join tables.
var duckdbEdges = map[EdgeType]struct {
	table, fromCol, toCol string
}{
	EdgeLikes:      {"likes", "user_id", "film_id"},
	EdgeBelongsTo:  {"film_genres", "film_id", "genre_id"},
	EdgeLikesGenre: {"genre_prefs", "user_id", "genre_id"},
}

// NewDuckDB opens (or creates) the graph database at cfg.Path and
// bootstraps the schema. An empty path opens an in-memory database,
// used by tests and ephemeral runs.
func NewDuckDB(cfg *config.DuckDBConfig) (*DuckDB, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	connStr := ""
	if cfg.Path != "" {
		// Ensure the parent directory exists before DuckDB opens the file.
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
		connStr = fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
			cfg.Path, threads, cfg.MaxMemory)
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, storeErr("open duckdb", err)
	}

	db := &DuckDB{conn: conn}
	if err := db.createTables(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logging.Debug().Str("path", cfg.Path).Int("threads", threads).Msg("DuckDB graph store opened")
	return db, nil
}

// createTables bootstraps the node and edge tables. All statements are
// idempotent; reopening an existing database is a no-op.
func (db *DuckDB) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT,
			password_hash TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(username)`,

		`CREATE TABLE IF NOT EXISTS films (
			id INTEGER PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			overview TEXT NOT NULL DEFAULT '',
			poster_path TEXT NOT NULL DEFAULT '',
			release_date TEXT NOT NULL DEFAULT '',
			vote_average DOUBLE NOT NULL DEFAULT 0,
			ingested_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS genres (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL DEFAULT ''
		)`,

		// Edge sets. Composite primary keys are the dedup mechanism:
		// re-inserting an existing edge hits ON CONFLICT DO NOTHING.
		`CREATE TABLE IF NOT EXISTS likes (
			user_id TEXT NOT NULL,
			film_id INTEGER NOT NULL,
			PRIMARY KEY (user_id, film_id)
		)`,
		`CREATE TABLE IF NOT EXISTS film_genres (
			film_id INTEGER NOT NULL,
			genre_id INTEGER NOT NULL,
			PRIMARY KEY (film_id, genre_id)
		)`,
		`CREATE TABLE IF NOT EXISTS genre_prefs (
			user_id TEXT NOT NULL,
			genre_id INTEGER NOT NULL,
			PRIMARY KEY (user_id, genre_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_film_genres_genre ON film_genres(genre_id)`,
		`CREATE INDEX IF NOT EXISTS idx_likes_film ON likes(film_id)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return storeErr("create tables", err)
		}
	}
	return nil
}

// UpsertNode implements Store. Only the provided properties are
// written; existing column values for unset properties are preserved
// by listing only the given columns in the DO UPDATE clause.
func (db *DuckDB) UpsertNode(ctx context.Context, label Label, id string, props map[string]any) error {
	if err := validateProps(label, props); err != nil {
		return err
	}

	table := duckdbTables[label]
	idArg, err := nodeIDArg(label, id)
	if err != nil {
		return err
	}

	cols := []string{"id"}
	args := []any{idArg}
	for _, col := range labelPropOrder[label] {
		if val, ok := props[col]; ok {
			cols = append(cols, col)
			args = append(args, val)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), placeholders(len(cols)))

	if len(cols) == 1 {
		b.WriteString(" ON CONFLICT DO NOTHING")
	} else {
		b.WriteString(" ON CONFLICT (id) DO UPDATE SET ")
		for i, col := range cols[1:] {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s = excluded.%s", col, col)
		}
		if label == LabelFilm {
			// Refresh ingestion recency on every descriptive update so
			// the bounded catalog read reflects the latest writes.
			b.WriteString(", ingested_at = now()")
		}
	}

	if _, err := db.conn.ExecContext(ctx, b.String(), args...); err != nil {
		return storeErr(fmt.Sprintf("upsert %s %s", label, id), err)
	}
	return nil
}

// EnsureEdge implements Store. Both endpoints must already exist; the
// insert itself is deduplicated by the join table's primary key.
func (db *DuckDB) EnsureEdge(ctx context.Context, from Ref, edgeType EdgeType, to Ref) error {
	if err := validateEdge(from, edgeType, to); err != nil {
		return err
	}

	edge := duckdbEdges[edgeType]
	fromArg, err := nodeIDArg(from.Label, from.ID)
	if err != nil {
		return err
	}
	toArg, err := nodeIDArg(to.Label, to.ID)
	if err != nil {
		return err
	}

	for _, end := range []struct {
		ref Ref
		arg any
	}{{from, fromArg}, {to, toArg}} {
		exists, err := db.nodeExists(ctx, end.ref.Label, end.arg)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("ensure edge %s: %s: %w", edgeType, end.ref, ErrEndpointNotFound)
		}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?) ON CONFLICT DO NOTHING",
		edge.table, edge.fromCol, edge.toCol)
	if _, err := db.conn.ExecContext(ctx, query, fromArg, toArg); err != nil {
		return storeErr(fmt.Sprintf("ensure edge %s", edgeType), err)
	}
	return nil
}

func (db *DuckDB) nodeExists(ctx context.Context, label Label, idArg any) (bool, error) {
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE id = ?)", duckdbTables[label])
	var exists bool
	if err := db.conn.QueryRowContext(ctx, query, idArg).Scan(&exists); err != nil {
		return false, storeErr(fmt.Sprintf("lookup %s node", label), err)
	}
	return exists, nil
}

const filmColumns = "f.id, f.title, f.overview, f.poster_path, f.release_date, f.vote_average"

// Films implements Store: bounded catalog read, most recently ingested
// first.
func (db *DuckDB) Films(ctx context.Context, limit int) ([]models.Film, error) {
	query := `SELECT ` + filmColumns + `
		FROM films f
		ORDER BY f.ingested_at DESC, f.id ASC
		LIMIT ?`

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, storeErr("query films", err)
	}
	defer closeQuietly(rows)

	return scanFilms(rows)
}

// Genres implements Store.
func (db *DuckDB) Genres(ctx context.Context) ([]models.Genre, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name FROM genres ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, storeErr("query genres", err)
	}
	defer closeQuietly(rows)

	genres := []models.Genre{}
	for rows.Next() {
		var g models.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, storeErr("scan genre", err)
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}

// UserByUsername implements Store. Username matching is exact and
// case-sensitive.
func (db *DuckDB) UserByUsername(ctx context.Context, username string) (*UserRecord, error) {
	var rec UserRecord
	var uname, hash sql.NullString
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, password_hash FROM users WHERE username = ?`,
		username).Scan(&rec.ID, &uname, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", username, ErrNodeNotFound)
	}
	if err != nil {
		return nil, storeErr("query user", err)
	}
	rec.Username = uname.String
	rec.PasswordHash = hash.String
	return &rec, nil
}

// CoOccurrence implements Store. The co-occurrence score of a
// candidate is the number of distinct (liked film, shared genre) pairs
// connecting it to the user's likes; the join below produces exactly
// one row per such pair.
func (db *DuckDB) CoOccurrence(ctx context.Context, userID string, limit int) ([]models.ScoredFilm, error) {
	query := `SELECT ` + filmColumns + `, COUNT(*) AS score
		FROM likes l
		JOIN film_genres liked ON liked.film_id = l.film_id
		JOIN film_genres cand ON cand.genre_id = liked.genre_id AND cand.film_id <> l.film_id
		JOIN films f ON f.id = cand.film_id
		WHERE l.user_id = ?
		  AND cand.film_id NOT IN (SELECT film_id FROM likes WHERE user_id = ?)
		GROUP BY ` + filmColumns + `
		ORDER BY score DESC, f.id ASC
		LIMIT ?`

	rows, err := db.conn.QueryContext(ctx, query, userID, userID, limit)
	if err != nil {
		return nil, storeErr("query co-occurrence", err)
	}
	defer closeQuietly(rows)

	scored := []models.ScoredFilm{}
	for rows.Next() {
		var sf models.ScoredFilm
		if err := rows.Scan(&sf.Film.ID, &sf.Film.Title, &sf.Film.Overview,
			&sf.Film.PosterPath, &sf.Film.ReleaseDate, &sf.Film.VoteAverage,
			&sf.Score); err != nil {
			return nil, storeErr("scan scored film", err)
		}
		scored = append(scored, sf)
	}
	return scored, rows.Err()
}

// GenrePreferenceFilms implements Store.
func (db *DuckDB) GenrePreferenceFilms(ctx context.Context, userID string, limit int) ([]models.Film, error) {
	query := `SELECT DISTINCT ` + filmColumns + `
		FROM genre_prefs gp
		JOIN film_genres fg ON fg.genre_id = gp.genre_id
		JOIN films f ON f.id = fg.film_id
		WHERE gp.user_id = ?
		  AND f.id NOT IN (SELECT film_id FROM likes WHERE user_id = ?)
		ORDER BY f.id ASC
		LIMIT ?`

	rows, err := db.conn.QueryContext(ctx, query, userID, userID, limit)
	if err != nil {
		return nil, storeErr("query genre preference films", err)
	}
	defer closeQuietly(rows)

	return scanFilms(rows)
}

// Ping implements Store.
func (db *DuckDB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return storeErr("ping", err)
	}
	return nil
}

// Close implements Store.
func (db *DuckDB) Close() error {
	return db.conn.Close()
}

// Conn exposes the underlying connection for package tests.
func (db *DuckDB) Conn() *sql.DB {
	return db.conn
}

// nodeIDArg converts the adapter's string node id to the backing
// column type. Film and genre ids are external catalog integers.
func nodeIDArg(label Label, id string) (any, error) {
	if label == LabelUser {
		return id, nil
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return nil, fmt.Errorf("invalid %s id %q: %w", label, id, err)
	}
	return n, nil
}

func scanFilms(rows *sql.Rows) ([]models.Film, error) {
	films := []models.Film{}
	for rows.Next() {
		var f models.Film
		if err := rows.Scan(&f.ID, &f.Title, &f.Overview, &f.PosterPath,
			&f.ReleaseDate, &f.VoteAverage); err != nil {
			return nil, storeErr("scan film", err)
		}
		films = append(films, f)
	}
	return films, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// closeQuietly closes a resource and explicitly ignores any error.
// Cleanup in read paths is best-effort.
func closeQuietly(rows *sql.Rows) {
	_ = rows.Close()
}
