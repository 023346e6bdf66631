package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ultron-ftp/backend/internal/models"
	"github.com/ultron-ftp/backend/pkg/utils"
)

// ProfileWriter stores profiles.
type ProfileWriter interface {
	Upsert(ctx context.Context, p *models.Profile) error
}

// Bootstrapper makes sure the configured administrator account exists.
type Bootstrapper struct {
	users    UserStore
	profiles ProfileWriter
	logger   *zap.Logger
}

// NewBootstrapper creates an admin bootstrapper.
func NewBootstrapper(users UserStore, profiles ProfileWriter, logger *zap.Logger) *Bootstrapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bootstrapper{users: users, profiles: profiles, logger: logger}
}

// EnsureAdmin creates the admin user when missing and writes the fixed administrative
// profile. An existing user's password is left unchanged. Safe to call repeatedly.
func (b *Bootstrapper) EnsureAdmin(ctx context.Context, email, password string) (*models.User, error) {
	user, err := b.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrNotFound):
		hash, herr := utils.HashPassword(password)
		if herr != nil {
			return nil, fmt.Errorf("hash admin password: %w", herr)
		}
		user, err = b.users.Create(ctx, email, hash, "System Administrator")
		if err != nil {
			return nil, fmt.Errorf("create admin user: %w", err)
		}
		b.logger.Info("admin user created", zap.String("user_id", user.ID.String()))
	default:
		return nil, fmt.Errorf("lookup admin user: %w", err)
	}
	if err := b.profiles.Upsert(ctx, models.AdminProfile(user.ID)); err != nil {
		return nil, fmt.Errorf("write admin profile: %w", err)
	}
	return user, nil
}
