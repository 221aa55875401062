package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/db"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/migrate"
)

type FactoryConfig struct {
	Backend  string
	MySQLDSN string

	RunMigrations bool
	MigrationsDir string
}

type FactoryResult struct {
	Store Store
	DB    *sql.DB // only set for mysql
}

func NewStore(ctx context.Context, cfg FactoryConfig) (FactoryResult, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = "memory"
	}

	switch backend {
	case "memory":
		return FactoryResult{Store: NewMemoryStore()}, nil

	case "mysql":
		if strings.TrimSpace(cfg.MySQLDSN) == "" {
			return FactoryResult{}, errors.New("DB_DSN is required when STATE_BACKEND=mysql")
		}

		sqlDB, err := db.Open(db.Config{DSN: cfg.MySQLDSN})
		if err != nil {
			return FactoryResult{}, err
		}

		if err := db.Ping(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return FactoryResult{}, fmt.Errorf("mysql ping: %w", err)
		}

		if cfg.RunMigrations {
			c, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			if err := migrate.ApplyDir(c, sqlDB, cfg.MigrationsDir); err != nil {
				_ = sqlDB.Close()
				return FactoryResult{}, fmt.Errorf("migrations: %w", err)
			}
		}

		return FactoryResult{
			Store: NewMySQLStore(sqlDB),
			DB:    sqlDB,
		}, nil

	default:
		return FactoryResult{}, fmt.Errorf("unknown STATE_BACKEND %q (use memory or mysql)", backend)
	}
}
