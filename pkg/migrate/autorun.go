package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/thriftlane-backend/pkg/config"
	"github.com/angelmondragon/thriftlane-backend/pkg/db"
	"github.com/angelmondragon/thriftlane-backend/pkg/db/models"
	"github.com/angelmondragon/thriftlane-backend/pkg/logger"
)

// MaybeRunDev migrates the schema on startup in dev when THRIFTLANE_AUTO_MIGRATE
// is set. SQLite is built from the models because the SQL files are postgres-only.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if client.Dialect() != Dialect {
		logg.Info(ctx, "auto-migrating sqlite schema from models")
		return AutoMigrateModels(client)
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	source, err := Source("")
	if err != nil {
		return err
	}
	runner, err := NewRunner(sqlDB, source, logg)
	if err != nil {
		return err
	}

	logg.Info(logg.WithField(ctx, "env", cfg.App.Env), "running embedded migrations (dev auto-run)")
	return runner.Up(ctx)
}

// AutoMigrateModels creates or updates tables for every persisted model.
func AutoMigrateModels(client *db.Client) error {
	if err := client.DB().AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto-migrate models: %w", err)
	}
	return nil
}
