package main

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/allisson/secretbroker/cmd/app/commands"
	"github.com/allisson/secretbroker/internal/app"
	"github.com/allisson/secretbroker/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the broker API (and the metrics server when enabled)",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Create the recovery_material table for the postgres and mysql recovery stores",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "path",
					Value: "migrations",
					Usage: "Root directory holding the per-driver migration files",
				},
				&cli.BoolFlag{
					Name:  "down",
					Usage: "Revert the migrations instead of applying them",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				logger := container.Logger()
				if cfg.RecoveryStore != cfg.DBDriver {
					logger.Warn("recovery store does not use the database, migrating anyway",
						slog.String("recovery_store", cfg.RecoveryStore),
						slog.String("db_driver", cfg.DBDriver),
					)
				}

				return commands.RunMigrations(logger, cfg.DBDriver, cfg.DBConnectionString, cmd.String("path"), cmd.Bool("down"))
			},
		},
	}
}
