// Command importer runs one import pass and exits. Meant for cron-less
// environments and manual backfills.
package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/officepulse/officepulse/internal/audit"
	"github.com/officepulse/officepulse/internal/clock"
	"github.com/officepulse/officepulse/internal/config"
	"github.com/officepulse/officepulse/internal/graph"
	"github.com/officepulse/officepulse/internal/identity"
	"github.com/officepulse/officepulse/internal/logger"
	"github.com/officepulse/officepulse/internal/migration"
	"github.com/officepulse/officepulse/internal/usagereport"
	"github.com/officepulse/officepulse/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		clock.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,

		graph.Module,
		identity.Module,
		audit.Module,
		usagereport.Module,

		fx.Invoke(runOnce),
	)
	app.Run()
}

func runOnce(lc fx.Lifecycle, sh fx.Shutdowner, log *zap.Logger, holder *config.ImportSettingsHolder, importer *usagereport.Importer) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				settings := holder.Get()
				stats, err := importer.RunImport(context.Background(), settings.LookbackDays)
				if err != nil {
					log.Error("import failed", zap.Error(err))
				} else {
					log.Info("import finished",
						zap.Int("users_synced", stats.UsersSynced),
						zap.Int("persisted", stats.TotalPersisted()))
				}
				_ = sh.Shutdown()
			}()
			return nil
		},
	})
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
