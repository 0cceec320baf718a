// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/cinegraph/cinegraph/internal/models"
)

// Label identifies a node kind in the property graph.
type Label string

// Node labels.
const (
	LabelUser  Label = "User"
	LabelFilm  Label = "Film"
	LabelGenre Label = "Genre"
)

// EdgeType identifies a directed relationship kind.
type EdgeType string

// Edge types. All edges are sets: creating an edge that already exists
// is a no-op.
const (
	EdgeLikes      EdgeType = "LIKES"       // User -> Film
	EdgeBelongsTo  EdgeType = "BELONGS_TO"  // Film -> Genre
	EdgeLikesGenre EdgeType = "LIKES_GENRE" // User -> Genre
)

// Property keys accepted by UpsertNode, per label.
const (
	PropTitle        = "title"
	PropOverview     = "overview"
	PropPosterPath   = "poster_path"
	PropReleaseDate  = "release_date"
	PropVoteAverage  = "vote_average"
	PropName         = "name"
	PropUsername     = "username"
	PropPasswordHash = "password_hash"
)

// Ref names one endpoint of an edge.
type Ref struct {
	Label Label
	ID    string
}

func (r Ref) String() string {
	return fmt.Sprintf("%s(%s)", r.Label, r.ID)
}

// UserRecord is the stored shape of a User node, including the
// credential hash needed by the auth service.
type UserRecord struct {
	ID           string
	Username     string
	PasswordHash string
}

// Sentinel errors returned by Store implementations.
var (
	// ErrEndpointNotFound indicates an edge creation where one endpoint
	// node does not exist. The edge is not created; no dangling edges.
	ErrEndpointNotFound = errors.New("edge endpoint not found")

	// ErrNodeNotFound indicates a point read that matched nothing.
	ErrNodeNotFound = errors.New("node not found")

	// ErrStoreUnavailable indicates a transport or connectivity failure
	// to the graph backend. The underlying cause is attached.
	ErrStoreUnavailable = errors.New("graph store unavailable")
)

// storeErr wraps a backend failure so callers can test for
// ErrStoreUnavailable while keeping the driver cause in the chain.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrStoreUnavailable, err))
}

// Store is the graph store adapter. It owns no business logic: write
// paths compose UpsertNode and EnsureEdge, read paths use the query
// methods. Every operation is individually atomic; no multi-statement
// transaction spans logical writes, so callers must be retry-safe.
//
// Node identity is (label, id). Upserts refresh descriptive properties
// and never remove unset ones; nothing is ever deleted.
type Store interface {
	// UpsertNode creates or updates the node matched by (label, id),
	// setting the given properties. An empty property map creates the
	// node if absent and leaves an existing node untouched.
	UpsertNode(ctx context.Context, label Label, id string, props map[string]any) error

	// EnsureEdge creates the edge only if both endpoints resolve, and
	// fails with ErrEndpointNotFound otherwise. Repeated calls for the
	// same triple converge to a single edge.
	EnsureEdge(ctx context.Context, from Ref, edgeType EdgeType, to Ref) error

	// Films returns up to limit films, most recently ingested first.
	Films(ctx context.Context, limit int) ([]models.Film, error)

	// Genres returns all genres ordered by name.
	Genres(ctx context.Context) ([]models.Genre, error)

	// UserByUsername resolves a user by exact username match. Returns
	// ErrNodeNotFound when no such user exists.
	UserByUsername(ctx context.Context, username string) (*UserRecord, error)

	// CoOccurrence returns candidate films sharing at least one genre
	// with the user's liked films, excluding films already liked,
	// scored by the count of distinct (liked film, shared genre) paths.
	// Ordered by score descending, then film id ascending. A user with
	// no likes, or an unknown user, yields an empty slice.
	CoOccurrence(ctx context.Context, userID string, limit int) ([]models.ScoredFilm, error)

	// GenrePreferenceFilms returns films belonging to any genre the
	// user explicitly prefers (LIKES_GENRE), excluding films already
	// liked, ordered by film id ascending.
	GenrePreferenceFilms(ctx context.Context, userID string, limit int) ([]models.Film, error)

	// Ping verifies connectivity to the backend.
	Ping(ctx context.Context) error

	Close() error
}

// nodeProps lists the properties each label accepts. Unknown keys are
// rejected before they reach the backend, which also keeps
// dynamically-built statements safe.
var nodeProps = map[Label]map[string]bool{
	LabelUser: {
		PropUsername:     true,
		PropPasswordHash: true,
	},
	LabelFilm: {
		PropTitle:       true,
		PropOverview:    true,
		PropPosterPath:  true,
		PropReleaseDate: true,
		PropVoteAverage: true,
	},
	LabelGenre: {
		PropName: true,
	},
}

// labelPropOrder fixes the order properties appear in generated
// statements, keeping them deterministic across calls.
var labelPropOrder = map[Label][]string{
	LabelUser:  {PropUsername, PropPasswordHash},
	LabelFilm:  {PropTitle, PropOverview, PropPosterPath, PropReleaseDate, PropVoteAverage},
	LabelGenre: {PropName},
}

// edgeShape maps each edge type to its required endpoint labels.
var edgeShape = map[EdgeType][2]Label{
	EdgeLikes:      {LabelUser, LabelFilm},
	EdgeBelongsTo:  {LabelFilm, LabelGenre},
	EdgeLikesGenre: {LabelUser, LabelGenre},
}

// validateProps rejects property keys a label does not accept.
func validateProps(label Label, props map[string]any) error {
	allowed, ok := nodeProps[label]
	if !ok {
		return fmt.Errorf("unknown node label %q", label)
	}
	for key := range props {
		if !allowed[key] {
			return fmt.Errorf("unknown property %q for label %s", key, label)
		}
	}
	return nil
}

// validateEdge rejects edge creations whose endpoint labels do not
// match the edge type's shape.
func validateEdge(from Ref, edgeType EdgeType, to Ref) error {
	shape, ok := edgeShape[edgeType]
	if !ok {
		return fmt.Errorf("unknown edge type %q", edgeType)
	}
	if from.Label != shape[0] || to.Label != shape[1] {
		return fmt.Errorf("edge %s requires %s -> %s, got %s -> %s",
			edgeType, shape[0], shape[1], from.Label, to.Label)
	}
	return nil
}
