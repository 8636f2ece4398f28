// Package bootstrap wires the store and Redis for the server and tools.
package bootstrap

import (
	"fmt"

	"gatherly/internal/cache"
	"gatherly/internal/config"
	"gatherly/internal/database"
	"gatherly/internal/middleware"
	"gatherly/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemoData fills an empty development database.
	SeedDemoData bool
}

// InitRuntime connects to the DB and Redis. Either may be nil: no store when
// DB_HOST is unset or "none", no Redis when it is unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	var db *gorm.DB
	if cfg.StoreConfigured() {
		var err error
		db, err = database.Connect(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedDemoData && db != nil {
		if err := seedIfEmpty(cfg, db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

func seedIfEmpty(cfg *config.Config, db *gorm.DB) error {
	if cfg.IsProduction() {
		return nil
	}
	var users int64
	if err := db.Table("users").Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		return nil
	}
	middleware.Logger.Info("empty development database, seeding demo data")
	_, err := seed.NewSeeder(db, 0).Run(seed.Options{NumUsers: 40, NumEvents: 12})
	return err
}
