// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

// Package auth implements user registration and login over the graph
// store, with bcrypt password hashing and JWT session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/cinegraph/cinegraph/internal/graph"
	"github.com/cinegraph/cinegraph/internal/logging"
	"github.com/cinegraph/cinegraph/internal/models"
)

// bcrypt cost factor 12 for good security/performance balance
const bcryptCost = 12

var (
	// ErrUsernameTaken is returned when registering a username that
	// already belongs to another user.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidCredentials is returned on login when the username is
	// unknown or the password does not match. The two cases are
	// deliberately indistinguishable to callers.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Session is the result of a successful register or login.
type Session struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// Service handles account creation and credential verification.
type Service struct {
	store  graph.Store
	tokens *JWTManager
	logger zerolog.Logger
}

// NewService creates an auth service over the given store.
func NewService(store graph.Store, tokens *JWTManager) *Service {
	return &Service{
		store:  store,
		tokens: tokens,
		logger: logging.With().Str("component", "auth").Logger(),
	}
}

// Register creates a new user with a random id and a bcrypt password
// hash, and issues a session token.
//
// Uniqueness is checked up front and again enforced by the store's
// username constraint, so two racing registrations cannot both win.
func (s *Service) Register(ctx context.Context, username, password string) (*Session, error) {
	existing, err := s.store.UserByUsername(ctx, username)
	if err != nil && !errors.Is(err, graph.ErrNodeNotFound) {
		return nil, fmt.Errorf("check username %q: %w", username, err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID := uuid.New().String()
	props := map[string]any{
		graph.PropUsername:     username,
		graph.PropPasswordHash: string(hash),
	}
	if err := s.store.UpsertNode(ctx, graph.LabelUser, userID, props); err != nil {
		return nil, fmt.Errorf("create user %q: %w", username, err)
	}

	token, err := s.tokens.GenerateToken(userID, username)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", userID).Str("username", username).Msg("User registered")
	return &Session{
		User:  models.User{ID: userID, Username: username},
		Token: token,
	}, nil
}

// Login verifies the username and password and issues a session token.
// bcrypt.CompareHashAndPassword is timing-safe by design.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	record, err := s.store.UserByUsername(ctx, username)
	if errors.Is(err, graph.ErrNodeNotFound) {
		// Burn a comparison anyway so unknown usernames cost the same
		// as wrong passwords.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup username %q: %w", username, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(record.ID, record.Username)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", record.ID).Msg("User logged in")
	return &Session{
		User:  models.User{ID: record.ID, Username: record.Username},
		Token: token,
	}, nil
}

// dummyHash is a bcrypt hash of an unguessable placeholder, used to
// equalize login timing for unknown usernames.
var dummyHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte(uuid.New().String()), bcryptCost)
	if err != nil {
		panic(err)
	}
	return h
}()
