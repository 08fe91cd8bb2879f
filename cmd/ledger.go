package main

import (
	"context"
	"fmt"

	"github.com/omarmustafa130/LoomAutomation/internal/formatter"
	"github.com/omarmustafa130/LoomAutomation/internal/shared"
	"github.com/urfave/cli/v3"
)

// LedgerList prints every ledger row in the requested format.
func (r *Runner) LedgerList(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}
	ledger, err := r.openLedger(ctx)
	if err != nil {
		return err
	}
	defer ledger.Close()

	records, err := ledger.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list ledger: %w", err)
	}

	out, err := formatter.Render(cmd.String("format"), records)
	if err != nil {
		return err
	}
	return r.writePlain("%s", out)
}

// LedgerExport writes the ledger as a single-sheet spreadsheet.
func (r *Runner) LedgerExport(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}
	ledger, err := r.openLedger(ctx)
	if err != nil {
		return err
	}
	defer ledger.Close()

	records, err := ledger.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list ledger: %w", err)
	}

	path := cmd.String("output")
	if err := formatter.WriteXLSX(records, path); err != nil {
		return err
	}

	r.logger.Info("ledger exported", "rows", len(records), "path", path)
	return r.writePlain("✓ Exported %d rows to %s\n", len(records), path)
}

// LedgerImport records every row of a spreadsheet that carries a video URL.
//
// Rows are upserted on their URL.
func (r *Runner) LedgerImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: spreadsheet path", shared.ErrMissingArgument)
	}
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	rows, err := formatter.ReadXLSX(path)
	if err != nil {
		return err
	}

	ledger, err := r.openLedger(ctx)
	if err != nil {
		return err
	}
	defer ledger.Close()

	imported, skipped := 0, 0
	for _, row := range rows {
		if row.ReferenceURL == "" {
			skipped++
			continue
		}
		if _, err := ledger.Record(ctx, row.Title, row.ReferenceURL, row.EmbedSnippet); err != nil {
			return fmt.Errorf("failed to import %q: %w", row.Title, err)
		}
		imported++
	}

	r.logger.Info("ledger imported", "rows", imported, "skipped", skipped, "path", path)
	return r.writePlain("✓ Imported %d rows, skipped %d without a URL\n", imported, skipped)
}
