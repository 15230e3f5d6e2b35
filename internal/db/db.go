package db

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/fruitstand/fruitstand/internal/config"
	"github.com/fruitstand/fruitstand/pkg/database"
	"github.com/fruitstand/fruitstand/pkg/models"
)

// NewDB connects to the database described by cfg. With auto_migrate set the
// schema is created by gorm and the fruits are seeded; otherwise the schema is
// expected to come from fruitstand-migrate.
func NewDB(cfg *config.Config, log hclog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(cfg.DatabaseConfig(), log)
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		if log != nil {
			log.Info("migrated and seeded database")
		}
	}

	return db, nil
}

// Migrate creates the schema with gorm and seeds the fruits.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.ModelsToAutoMigrate()...); err != nil {
		return fmt.Errorf("error migrating database: %w", err)
	}
	if err := models.Seed(db); err != nil {
		return fmt.Errorf("error seeding database: %w", err)
	}
	return nil
}
