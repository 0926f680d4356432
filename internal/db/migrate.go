package db

import (
	"errors"
	"strings"

	"github.com/ikkim/marketplace-backend/config"
	"github.com/ikkim/marketplace-backend/internal/app/model"
	"github.com/ikkim/marketplace-backend/pkg/logger"
	"github.com/ikkim/marketplace-backend/pkg/util"
	"gorm.io/gorm"
)

// Models lists every table managed by AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Product{},
		&model.Review{},
		&model.Cart{},
		&model.CartItem{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// SeedAdmin creates the configured admin account unless a user with that email exists.
func SeedAdmin(db *gorm.DB, cfg *config.AdminConfig) error {
	email := strings.ToLower(strings.TrimSpace(cfg.Email))
	if email == "" || cfg.Password == "" {
		logger.Info("Admin seed skipped, ADMIN_EMAIL or ADMIN_PASSWORD not set")
		return nil
	}

	var existing model.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		logger.Info("Admin account already exists, skipping...", map[string]interface{}{
			"email": email,
		})
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to look up admin account", err)
		return err
	}

	hash, err := util.HashPassword(cfg.Password)
	if err != nil {
		logger.Error("Failed to hash admin password", err)
		return err
	}

	admin := &model.User{
		Name:         cfg.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
	}
	if err := db.Create(admin).Error; err != nil {
		logger.Error("Failed to create admin account", err)
		return err
	}

	logger.Info("Admin account seeded", map[string]interface{}{
		"user_id": admin.ID,
		"email":   email,
	})
	return nil
}
