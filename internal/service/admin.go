package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/tenant-auth-service/internal/config"
	"github.com/iliyamo/tenant-auth-service/internal/model"
	"github.com/iliyamo/tenant-auth-service/internal/repository"
)

// AdminStore is the slice of the user directory the bootstrap needs.
type AdminStore interface {
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, nu repository.NewUser, cost int) (uint64, error)
}

// EnsureAdminUser creates the configured administrator if no user with that
// email exists yet. An existing account is left untouched, whatever its role.
func EnsureAdminUser(ctx context.Context, users AdminStore, cfg config.AdminConfig, cost int, logger *zap.Logger) error {
	if cfg.Email == "" {
		logger.Info("admin bootstrap skipped: ADMIN_EMAIL not set")
		return nil
	}

	existing, err := users.FindByEmail(ctx, cfg.Email)
	switch {
	case err == nil:
		logger.Info("admin user already exists", zap.Uint64("user_id", existing.ID), zap.String("role", string(existing.Role)))
		return nil
	case !errors.Is(err, repository.ErrUserNotFound):
		return fmt.Errorf("look up admin user: %w", err)
	}

	id, err := users.Create(ctx, repository.NewUser{
		FirstName: cfg.FirstName,
		LastName:  cfg.LastName,
		Email:     cfg.Email,
		Password:  cfg.Password,
		Role:      model.RoleAdmin,
	}, cost)
	if errors.Is(err, repository.ErrEmailExists) {
		// another instance won the race
		logger.Info("admin user already exists")
		return nil
	}
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	logger.Info("admin user created", zap.Uint64("user_id", id))
	return nil
}
