package main

import (
	"context"
	"fmt"
	"os"

	"github.com/omarmustafa130/LoomAutomation/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the embedded template when missing,
// prepares the staging directory and migrates the ledger.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if path == "" {
		path = r.configPath
	}

	if _, err := os.Stat(path); err == nil {
		r.logger.Info("using existing config", "path", path)
	} else {
		r.logger.Info("config file not found, creating from template", "path", path)
		if err := shared.CreateConfigFile(path); err != nil {
			return err
		}
	}

	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	if err := os.MkdirAll(r.config.Paths.StagingDir, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	r.logger.Info("initializing ledger", "path", r.config.Paths.Ledger)
	ledger, err := r.openLedger(ctx)
	if err != nil {
		return err
	}
	if err := ledger.Close(); err != nil {
		return fmt.Errorf("failed to close ledger: %w", err)
	}

	r.writePlainHeader("Setup complete")
	r.writePlain("config:  %s\n", r.configPath)
	r.writePlain("ledger:  %s\n", r.config.Paths.Ledger)
	r.writePlain("staging: %s\n", r.config.Paths.StagingDir)
	if !shared.HasSession(r.config.Paths.Session) {
		r.writePlain("\nNo Loom session yet, run `loomops login` next.\n")
	}
	return nil
}
