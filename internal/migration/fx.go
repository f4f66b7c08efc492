package migration

import (
	"github.com/smallbiznis/fleetwatch/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if !cfg.DBAutoMigrate {
			log.Info("migration.skipped", zap.String("reason", "auto_migrate_disabled"))
			return nil
		}
		if cfg.DBType != "postgres" {
			log.Info("migration.skipped", zap.String("reason", "unsupported_driver"), zap.String("db_type", cfg.DBType))
			return nil
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		version, err := RunMigrations(sqlDB)
		if err != nil {
			return err
		}
		log.Info("migration.applied", zap.Uint("version", version))
		return nil
	}),
)
