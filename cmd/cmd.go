// submodule cmd contains command definitions
package main

import (
	"github.com/omarmustafa130/LoomAutomation/internal/formatter"
	"github.com/omarmustafa130/LoomAutomation/internal/shared"
	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   shared.DefaultConfigPath,
	}
}

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		&cli.StringFlag{
			Name:    "folder",
			Aliases: []string{"f"},
			Usage:   "Drive folder ID (defaults to folder_id from the config)",
		},
		&cli.StringFlag{
			Name:  "credentials",
			Usage: "Service account key file (defaults to credentials_file from the config)",
		},
	}
}

// setupCommand creates the config file and migrates the ledger.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the configuration file and initialize the ledger",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// loginCommand saves a Loom browser session.
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in to Loom and save the browser session",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "curl-file",
				Usage: "Read session cookies from a file containing a cURL command copied from the browser",
			},
		},
		Action: r.Login,
	}
}

// logoutCommand removes the saved session and configuration.
func logoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Delete the saved session and configuration file",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Logout,
	}
}

// fetchCommand downloads the source folder into staging.
func fetchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "fetch",
		Aliases: []string{"download"},
		Usage:   "Download every video of the Drive folder into the staging directory",
		Flags:   sourceFlags(),
		Action:  r.Fetch,
	}
}

// uploadCommand uploads the staged files.
func uploadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "upload",
		Usage:  "Upload every staged video to Loom",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Upload,
	}
}

// autoCommand runs fetch and upload back to back.
func autoCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auto",
		Usage:  "Download the Drive folder, then upload everything staged",
		Flags:  sourceFlags(),
		Action: r.Auto,
	}
}

// embedsCommand backfills embed snippets.
func embedsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "embeds",
		Usage: "Extract embed codes for ledger rows that lack one",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "retry-failed",
				Usage: "Also retry rows that exhausted their lifetime attempts",
			},
		},
		Action: r.Embeds,
	}
}

// syncCommand reconciles the ledger with the workspace.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "sync",
		Usage:  "Add workspace videos missing from the ledger",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Sync,
	}
}

// pendingCommand lists the staged files.
func pendingCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "pending",
		Aliases: []string{"ls"},
		Usage:   "List staged videos waiting for upload",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Pending,
	}
}

// renameCommand renames a staged file.
func renameCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "rename",
		Usage: "Rename a staged video, keeping its extension",
		Flags: []cli.Flag{configFlag()},
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "old"},
			&cli.StringArg{Name: "new"},
		},
		Action: r.Rename,
	}
}

// ledgerCommand inspects and exports the ledger.
func ledgerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "ledger",
		Usage: "Inspect, export and import the upload ledger",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Print every ledger row",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format: table, json, csv, markdown or text",
						Value: formatter.FormatTable,
					},
				},
				Action: r.LedgerList,
			},
			{
				Name:  "export",
				Usage: "Write the ledger as a spreadsheet",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
						Value:   "uploaded_videos.xlsx",
					},
				},
				Action: r.LedgerExport,
			},
			{
				Name:  "import",
				Usage: "Record the rows of an exported spreadsheet",
				Flags: []cli.Flag{configFlag()},
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Action: r.LedgerImport,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive pipeline dashboard",
		Flags:   []cli.Flag{configFlag()},
		Action:  r.TUI,
	}
}
