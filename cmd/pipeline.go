package main

import (
	"context"
	"fmt"

	"github.com/omarmustafa130/LoomAutomation/internal/models"
	"github.com/omarmustafa130/LoomAutomation/internal/shared"
	"github.com/omarmustafa130/LoomAutomation/internal/tasks"
	"github.com/urfave/cli/v3"
)

// source resolves the Drive folder and credentials, preferring flags over the config.
func (r *Runner) source(cmd *cli.Command) (folderID, credentialsFile string) {
	folderID, credentialsFile = cmd.String("folder"), cmd.String("credentials")
	if folderID == "" {
		folderID = r.config.FolderID
	}
	if credentialsFile == "" {
		credentialsFile = r.config.CredentialsFile
	}
	return folderID, credentialsFile
}

// Fetch downloads the configured Drive folder into staging.
func (r *Runner) Fetch(ctx context.Context, cmd *cli.Command) error {
	return r.runOperation(ctx, cmd, func(ctx context.Context, c *tasks.Controller) error {
		folderID, credentialsFile := r.source(cmd)
		r.logger.Info("fetching folder", "folder", folderID)
		return c.Fetch(ctx, folderID, credentialsFile)
	})
}

// Upload uploads every staged file.
func (r *Runner) Upload(ctx context.Context, cmd *cli.Command) error {
	return r.runOperation(ctx, cmd, func(ctx context.Context, c *tasks.Controller) error {
		return c.Upload(ctx)
	})
}

// Auto downloads the folder and uploads the result.
func (r *Runner) Auto(ctx context.Context, cmd *cli.Command) error {
	return r.runOperation(ctx, cmd, func(ctx context.Context, c *tasks.Controller) error {
		folderID, credentialsFile := r.source(cmd)
		return c.FetchThenUpload(ctx, folderID, credentialsFile)
	})
}

// Embeds backfills embed snippets for ledger rows that lack one.
func (r *Runner) Embeds(ctx context.Context, cmd *cli.Command) error {
	return r.runOperation(ctx, cmd, func(ctx context.Context, c *tasks.Controller) error {
		return c.GenerateEmbeds(ctx, cmd.Bool("retry-failed"))
	})
}

// Sync appends workspace videos that the ledger does not know.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	return r.runOperation(ctx, cmd, func(ctx context.Context, c *tasks.Controller) error {
		return c.Sync(ctx)
	})
}

// Pending lists the staged files.
func (r *Runner) Pending(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	items, err := tasks.Staging{Dir: r.config.Paths.StagingDir}.List()
	if err != nil {
		return err
	}
	if items == nil {
		items = []models.PendingItem{}
	}

	if cmd.Bool("json") {
		return r.writeJSON(items, true)
	}

	if len(items) == 0 {
		return r.writePlain("Nothing staged in %s\n", r.config.Paths.StagingDir)
	}

	r.writePlainHeader(fmt.Sprintf("%d staged videos", len(items)))
	for _, item := range items {
		if err := r.writePlain("%-50s %10s\n", item.FileName, formatBytes(item.SizeBytes)); err != nil {
			return err
		}
	}
	return nil
}

// Rename renames a staged file, keeping its extension.
func (r *Runner) Rename(ctx context.Context, cmd *cli.Command) error {
	oldName, newName := cmd.StringArg("old"), cmd.StringArg("new")
	if oldName == "" || newName == "" {
		return fmt.Errorf("%w: usage: rename <old> <new>", shared.ErrMissingArgument)
	}
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	renamed, err := tasks.Staging{Dir: r.config.Paths.StagingDir}.Rename(oldName, newName)
	if err != nil {
		return err
	}

	r.logger.Info("renamed staged file", "from", oldName, "to", renamed)
	return r.writePlain("✓ %s → %s\n", oldName, renamed)
}
