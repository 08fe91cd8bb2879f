package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/omarmustafa130/LoomAutomation/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:    "loomops",
		Usage:   "Move videos from a Google Drive folder into Loom and keep a ledger of what was published",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				shared.SetLogLevel(logger, log.DebugLevel)
			}
			return ctx, nil
		},
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		if isPrecondition(err) {
			logger.Error(err)
			os.Exit(2)
		}
		logger.Fatalf("application error: %v", err)
	}
}

// isPrecondition reports whether err means the command could not start,
// as opposed to failing part way through.
func isPrecondition(err error) bool {
	for _, target := range []error{
		shared.ErrNoSession,
		shared.ErrMissingConfig,
		shared.ErrMissingCredentials,
		shared.ErrNothingPending,
		shared.ErrMissingArgument,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
