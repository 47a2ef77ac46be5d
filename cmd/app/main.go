// Command secretbroker runs the broker API and its vault maintenance commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:     "secretbroker",
		Usage:    "Secret broker backed by a HashiCorp Vault master store",
		Version:  version,
		Commands: append(getSystemCommands(version), getVaultCommands()...),
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("secretbroker failed", slog.Any("error", err))
		os.Exit(1)
	}
}
