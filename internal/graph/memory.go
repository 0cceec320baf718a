// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cinegraph/cinegraph/internal/models"
)

// Memory is a map-backed Store. It is the reference implementation of
// the adapter semantics and backs unit tests and ephemeral development
// runs. Safe for concurrent use.
type Memory struct {
	mu sync.RWMutex

	users     map[string]*UserRecord
	usernames map[string]string // username -> user id

	films   map[int]models.Film
	filmSeq map[int]int64 // ingestion recency, monotonic
	seq     int64

	genres map[int]models.Genre

	likes      map[string]map[int]struct{}
	filmGenres map[int]map[int]struct{}
	genrePrefs map[string]map[int]struct{}
}

// NewMemory creates an empty in-memory graph store.
func NewMemory() *Memory {
	return &Memory{
		users:      make(map[string]*UserRecord),
		usernames:  make(map[string]string),
		films:      make(map[int]models.Film),
		filmSeq:    make(map[int]int64),
		genres:     make(map[int]models.Genre),
		likes:      make(map[string]map[int]struct{}),
		filmGenres: make(map[int]map[int]struct{}),
		genrePrefs: make(map[string]map[int]struct{}),
	}
}

// UpsertNode implements Store.
func (m *Memory) UpsertNode(ctx context.Context, label Label, id string, props map[string]any) error {
	if err := validateProps(label, props); err != nil {
		return err
	}
	idArg, err := nodeIDArg(label, id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch label {
	case LabelUser:
		return m.upsertUser(id, props)
	case LabelFilm:
		m.upsertFilm(idArg.(int), props)
	case LabelGenre:
		m.upsertGenre(idArg.(int), props)
	}
	return nil
}

func (m *Memory) upsertUser(id string, props map[string]any) error {
	rec, ok := m.users[id]
	if !ok {
		rec = &UserRecord{ID: id}
		m.users[id] = rec
	}
	if val, ok := props[PropUsername]; ok {
		username, _ := val.(string)
		if owner, taken := m.usernames[username]; taken && owner != id {
			return fmt.Errorf("username %q already bound to another user", username)
		}
		rec.Username = username
		m.usernames[username] = id
	}
	if val, ok := props[PropPasswordHash]; ok {
		rec.PasswordHash, _ = val.(string)
	}
	return nil
}

func (m *Memory) upsertFilm(id int, props map[string]any) {
	film, ok := m.films[id]
	if !ok {
		film = models.Film{ID: id}
		m.seq++
		m.filmSeq[id] = m.seq
	}
	if len(props) > 0 {
		if val, ok := props[PropTitle]; ok {
			film.Title, _ = val.(string)
		}
		if val, ok := props[PropOverview]; ok {
			film.Overview, _ = val.(string)
		}
		if val, ok := props[PropPosterPath]; ok {
			film.PosterPath, _ = val.(string)
		}
		if val, ok := props[PropReleaseDate]; ok {
			film.ReleaseDate, _ = val.(string)
		}
		if val, ok := props[PropVoteAverage]; ok {
			film.VoteAverage = asFloat(val)
		}
		m.seq++
		m.filmSeq[id] = m.seq
	}
	m.films[id] = film
}

func (m *Memory) upsertGenre(id int, props map[string]any) {
	genre, ok := m.genres[id]
	if !ok {
		genre = models.Genre{ID: id}
	}
	if val, ok := props[PropName]; ok {
		genre.Name, _ = val.(string)
	}
	m.genres[id] = genre
}

// EnsureEdge implements Store.
func (m *Memory) EnsureEdge(ctx context.Context, from Ref, edgeType EdgeType, to Ref) error {
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

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.nodeExists(from.Label, fromArg) {
		return fmt.Errorf("ensure edge %s: %s: %w", edgeType, from, ErrEndpointNotFound)
	}
	if !m.nodeExists(to.Label, toArg) {
		return fmt.Errorf("ensure edge %s: %s: %w", edgeType, to, ErrEndpointNotFound)
	}

	switch edgeType {
	case EdgeLikes:
		addEdge(m.likes, from.ID, toArg.(int))
	case EdgeBelongsTo:
		addEdge(m.filmGenres, fromArg.(int), toArg.(int))
	case EdgeLikesGenre:
		addEdge(m.genrePrefs, from.ID, toArg.(int))
	}
	return nil
}

func (m *Memory) nodeExists(label Label, idArg any) bool {
	switch label {
	case LabelUser:
		_, ok := m.users[idArg.(string)]
		return ok
	case LabelFilm:
		_, ok := m.films[idArg.(int)]
		return ok
	case LabelGenre:
		_, ok := m.genres[idArg.(int)]
		return ok
	}
	return false
}

func addEdge[K comparable](edges map[K]map[int]struct{}, from K, to int) {
	set, ok := edges[from]
	if !ok {
		set = make(map[int]struct{})
		edges[from] = set
	}
	set[to] = struct{}{}
}

// Films implements Store.
func (m *Memory) Films(ctx context.Context, limit int) ([]models.Film, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	films := make([]models.Film, 0, len(m.films))
	for _, f := range m.films {
		films = append(films, f)
	}
	sort.Slice(films, func(i, j int) bool {
		si, sj := m.filmSeq[films[i].ID], m.filmSeq[films[j].ID]
		if si != sj {
			return si > sj
		}
		return films[i].ID < films[j].ID
	})
	if len(films) > limit {
		films = films[:limit]
	}
	return films, nil
}

// Genres implements Store.
func (m *Memory) Genres(ctx context.Context) ([]models.Genre, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	genres := make([]models.Genre, 0, len(m.genres))
	for _, g := range m.genres {
		genres = append(genres, g)
	}
	sort.Slice(genres, func(i, j int) bool {
		if genres[i].Name != genres[j].Name {
			return genres[i].Name < genres[j].Name
		}
		return genres[i].ID < genres[j].ID
	})
	return genres, nil
}

// UserByUsername implements Store.
func (m *Memory) UserByUsername(ctx context.Context, username string) (*UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.usernames[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, ErrNodeNotFound)
	}
	rec := *m.users[id]
	return &rec, nil
}

// CoOccurrence implements Store. One score point per distinct
// (liked film, shared genre) path to the candidate.
func (m *Memory) CoOccurrence(ctx context.Context, userID string, limit int) ([]models.ScoredFilm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	liked := m.likes[userID]
	scores := make(map[int]float64)
	for likedID := range liked {
		for genreID := range m.filmGenres[likedID] {
			for candID, candGenres := range m.filmGenres {
				if _, isLiked := liked[candID]; isLiked {
					continue
				}
				if _, shares := candGenres[genreID]; shares {
					scores[candID]++
				}
			}
		}
	}

	scored := make([]models.ScoredFilm, 0, len(scores))
	for id, score := range scores {
		scored = append(scored, models.ScoredFilm{Film: m.films[id], Score: score})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Film.ID < scored[j].Film.ID
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// GenrePreferenceFilms implements Store.
func (m *Memory) GenrePreferenceFilms(ctx context.Context, userID string, limit int) ([]models.Film, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	liked := m.likes[userID]
	seen := make(map[int]struct{})
	films := []models.Film{}
	for genreID := range m.genrePrefs[userID] {
		for filmID, filmGenres := range m.filmGenres {
			if _, shares := filmGenres[genreID]; !shares {
				continue
			}
			if _, isLiked := liked[filmID]; isLiked {
				continue
			}
			if _, dup := seen[filmID]; dup {
				continue
			}
			seen[filmID] = struct{}{}
			films = append(films, m.films[filmID])
		}
	}
	sort.Slice(films, func(i, j int) bool { return films[i].ID < films[j].ID })
	if len(films) > limit {
		films = films[:limit]
	}
	return films, nil
}

// Ping implements Store.
func (m *Memory) Ping(ctx context.Context) error { return nil }

// Close implements Store.
func (m *Memory) Close() error { return nil }

// LikeCount reports the number of LIKES edges for a user. Test helper.
func (m *Memory) LikeCount(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.likes[userID])
}

func asFloat(val any) float64 {
	switch n := val.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
