package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/omarmustafa130/LoomAutomation/internal/events"
	"github.com/omarmustafa130/LoomAutomation/internal/repositories"
	"github.com/omarmustafa130/LoomAutomation/internal/services"
	"github.com/omarmustafa130/LoomAutomation/internal/shared"
	"github.com/omarmustafa130/LoomAutomation/internal/tasks"
	"github.com/urfave/cli/v3"
)

// drainInterval is the polling period of the headless event printer.
const drainInterval = 100 * time.Millisecond

// loginBrowser runs the interactive sign-in and saves the resulting session.
type loginBrowser interface {
	Login(ctx context.Context, confirm func(ctx context.Context) error) (int, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	browser    services.Browser
	storage    tasks.StorageFactory
	clock      tasks.Clock
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Browser and Storage replace the Loom and Drive clients built from the config.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Browser    services.Browser
	Storage    tasks.StorageFactory
	Clock      tasks.Clock
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = shared.DefaultConfigPath
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Clock == nil {
		opts.Clock = tasks.RealClock{}
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		browser:    opts.Browser,
		storage:    opts.Storage,
		clock:      opts.Clock,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
	}
}

// SetLogger replaces the logger used by subsequent commands.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, loginCommand, logoutCommand, fetchCommand, uploadCommand, autoCommand,
		embedsCommand, syncCommand, pendingCommand, renameCommand, ledgerCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reads the file named by the command's --config flag.
//
// A missing file leaves the defaults in place.
func (r *Runner) loadConfig(cmd *cli.Command) error {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	config, err := shared.LoadOrDefault(r.configPath)
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}
	r.config = config
	return nil
}

func (r *Runner) saveConfig(config *shared.Config) error {
	if err := shared.SaveConfig(r.configPath, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	r.config = config
	return nil
}

func (r *Runner) openLedger(ctx context.Context) (*repositories.LedgerRepository, error) {
	ledger, err := repositories.OpenLedger(ctx, r.config.Paths.Ledger)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	return ledger, nil
}

func (r *Runner) loomBrowser(headless bool) services.Browser {
	if r.browser != nil {
		return r.browser
	}
	return services.NewLoomBrowser(services.LoomBrowserOpts{
		SessionFile:  r.config.Paths.Session,
		WorkspaceURL: r.config.WorkspaceURL,
		Headless:     headless,
		UserAgent:    r.config.Browser.UserAgent,
		Logger:       r.logger,
	})
}

func (r *Runner) storageFactory() tasks.StorageFactory {
	if r.storage != nil {
		return r.storage
	}
	rps := r.config.Drive.RequestsPerSecond
	return func(ctx context.Context, credentialsFile string) (services.StorageLister, error) {
		return services.NewDriveService(ctx, credentialsFile, services.DriveOpts{RequestsPerSecond: rps})
	}
}

func (r *Runner) newController(ledger tasks.Ledger, publisher events.Publisher) *tasks.Controller {
	return tasks.NewController(tasks.ControllerOpts{
		Config:     r.config,
		ConfigPath: r.configPath,
		Ledger:     ledger,
		Browser:    r.loomBrowser(r.config.Browser.Headless),
		Storage:    r.storageFactory(),
		Events:     publisher,
		Clock:      r.clock,
		Logger:     r.logger,
	})
}

// runOperation starts one controller operation and prints its events until it completes.
//
// Workers run detached from ctx. Cancelling ctx pauses a running upload and lets
// fetch, embed and sync finish; the worker still publishes its completion.
func (r *Runner) runOperation(ctx context.Context, cmd *cli.Command, start func(ctx context.Context, c *tasks.Controller) error) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}
	ledger, err := r.openLedger(ctx)
	if err != nil {
		return err
	}
	defer ledger.Close()

	ch := events.NewChannel()
	defer ch.Close()
	controller := r.newController(ledger, ch)

	if err := start(context.WithoutCancel(ctx), controller); err != nil {
		return err
	}

	failed := r.follow(ctx, ch, controller.Pause)
	controller.Wait()
	if failed != "" {
		return fmt.Errorf("%w: %s", shared.ErrFailed, failed)
	}
	return nil
}

// follow drains ch on a fixed tick until a [events.Complete] arrives and returns the last error text.
func (r *Runner) follow(ctx context.Context, ch *events.Channel, pause func()) string {
	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	done := ctx.Done()
	var failed string
	printer := &eventPrinter{out: r.output}
	for {
		select {
		case <-done:
			r.logger.Warn("interrupted, pausing")
			pause()
			done = nil
		case <-ticker.C:
		}

		for _, e := range ch.Drain() {
			if n, ok := e.(events.Notice); ok && n.Level == events.KindError {
				failed = n.Text
			}
			printer.print(e)
			if _, ok := e.(events.Complete); ok {
				return failed
			}
		}
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
