package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/secretbroker/cmd/app/commands"
	"github.com/allisson/secretbroker/internal/app"
	"github.com/allisson/secretbroker/internal/config"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   commands.FormatText,
		Usage:   "Output format: 'text' or 'json'",
	}
}

func getVaultCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "init-vault",
			Usage: "Initialize the master vault and store its recovery material",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "shares",
					Aliases: []string{"s"},
					Usage:   "Number of unseal key shares (defaults to VAULT_SHARES)",
				},
				&cli.IntFlag{
					Name:    "threshold",
					Aliases: []string{"t"},
					Usage:   "Shares required to unseal (defaults to VAULT_THRESHOLD)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				lifecycle, err := container.LifecycleUseCase()
				if err != nil {
					return err
				}

				var shares, threshold *int
				if cmd.IsSet("shares") {
					v := int(cmd.Int("shares"))
					shares = &v
				}
				if cmd.IsSet("threshold") {
					v := int(cmd.Int("threshold"))
					threshold = &v
				}

				return commands.RunInitVault(
					ctx,
					lifecycle,
					container.Logger(),
					commands.DefaultIO().Writer,
					container.VaultInitParams(),
					shares,
					threshold,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "vault-status",
			Usage: "Show the master vault state",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				lifecycle, err := container.LifecycleUseCase()
				if err != nil {
					return err
				}

				return commands.RunVaultStatus(ctx, lifecycle, commands.DefaultIO().Writer, cmd.String("format"))
			},
		},
		{
			Name:  "seal-vault",
			Usage: "Seal the master vault using the stored root token",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				lifecycle, err := container.LifecycleUseCase()
				if err != nil {
					return err
				}

				return commands.RunSealVault(ctx, lifecycle, container.Logger())
			},
		},
	}
}
