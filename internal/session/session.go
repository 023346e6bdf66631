// Package session carries the signed-in user and profile through a request.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ultron-ftp/backend/internal/models"
)

const contextKey = "session"

// Loader fetches the records a session is built from.
type Loader interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

// Session is the identity of the current request. Profile is nil until the user submits one.
type Session struct {
	User    *models.User
	Profile *models.Profile
	loader  Loader
}

// Load builds a session for userID.
func Load(ctx context.Context, loader Loader, userID uuid.UUID) (*Session, error) {
	s := &Session{loader: loader}
	user, err := loader.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	s.User = user
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// New builds a session from already-loaded records.
func New(user *models.User, profile *models.Profile) *Session {
	return &Session{User: user, Profile: profile}
}

// Refresh reloads the profile, e.g. after the user saved it.
func (s *Session) Refresh(ctx context.Context) error {
	if s.loader == nil {
		return nil
	}
	p, err := s.loader.GetProfile(ctx, s.User.ID)
	switch {
	case err == nil:
		s.Profile = p
	case errors.Is(err, models.ErrNotFound):
		s.Profile = nil
	default:
		return fmt.Errorf("load profile: %w", err)
	}
	return nil
}

// UserID returns the signed-in user's id.
func (s *Session) UserID() uuid.UUID { return s.User.ID }

// HasProfile reports whether the user has saved a profile.
func (s *Session) HasProfile() bool { return s.Profile != nil }

// Role returns the profile role, or user when there is no profile.
func (s *Session) Role() models.Role {
	if s.Profile == nil {
		return models.RoleUser
	}
	return s.Profile.Role
}

// IsAdmin reports whether the user is an administrator.
func (s *Session) IsAdmin() bool { return s.Profile.IsAdmin() }

// CanManage reports whether the user may manage a program: its creator or an admin.
func (s *Session) CanManage(p *models.Program) bool {
	return p != nil && (s.IsAdmin() || p.CreatedBy == s.User.ID)
}

// Set stores s on the gin context.
func Set(c *gin.Context, s *Session) { c.Set(contextKey, s) }

// From returns the request session, or nil when the route is unauthenticated.
func From(c *gin.Context) *Session {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil
	}
	s, _ := v.(*Session)
	return s
}

// UserGetter loads users by id.
type UserGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ProfileGetter loads profiles by user id.
type ProfileGetter interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

type storeLoader struct {
	users    UserGetter
	profiles ProfileGetter
}

// NewLoader combines the user and profile stores into a Loader.
func NewLoader(users UserGetter, profiles ProfileGetter) Loader {
	return storeLoader{users: users, profiles: profiles}
}

func (l storeLoader) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return l.users.GetByID(ctx, id)
}

func (l storeLoader) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return l.profiles.Get(ctx, userID)
}
