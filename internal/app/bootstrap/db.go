// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"errors"

	userstore "github.com/dalemusser/edusync/internal/app/store/users"
	"github.com/dalemusser/edusync/internal/app/system/indexes"
	"github.com/dalemusser/edusync/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureSchema reconciles indexes and seeds the bootstrap admin account.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase, logger.Named("indexes")); err != nil {
		logger.Error("index reconcile failed", zap.Error(err))
		return err
	}
	return ensureAdmin(ctx, deps.MongoDatabase, appCfg.AdminEmail, appCfg.AdminPassword, logger)
}

// ensureAdmin creates an admin account for email if no user has that
// address. An existing user is left untouched, whatever its role.
func ensureAdmin(ctx context.Context, db *mongo.Database, email, password string, logger *zap.Logger) error {
	if email == "" {
		return nil
	}
	store := userstore.New(db)

	if _, err := store.GetByEmail(ctx, email); err == nil {
		logger.Debug("admin account already present", zap.String("email", email))
		return nil
	} else if !errors.Is(err, userstore.ErrNotFound) {
		return err
	}

	u := models.User{FullName: "Administrator", Email: email, Role: models.RoleAdmin}
	created, err := store.Create(ctx, u, password)
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		// another instance won the race
		return nil
	}
	if err != nil {
		logger.Error("failed to create admin account", zap.String("email", email), zap.Error(err))
		return err
	}
	logger.Info("created admin account", zap.String("email", created.Email))
	return nil
}
