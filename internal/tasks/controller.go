package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/omarmustafa130/LoomAutomation/internal/events"
	"github.com/omarmustafa130/LoomAutomation/internal/models"
	"github.com/omarmustafa130/LoomAutomation/internal/services"
	"github.com/omarmustafa130/LoomAutomation/internal/shared"
)

// StorageFactory builds a storage client for a credentials file.
type StorageFactory func(ctx context.Context, credentialsFile string) (services.StorageLister, error)

// ControllerOpts contains the dependencies of a [Controller].
type ControllerOpts struct {
	Config     *shared.Config
	ConfigPath string // where the config is persisted after a successful fetch; empty disables saving
	Ledger     Ledger
	Browser    services.Browser
	Storage    StorageFactory
	Events     events.Publisher
	Clock      Clock
	Logger     *log.Logger
}

// Controller starts pipeline operations on worker goroutines.
type Controller struct {
	config     *shared.Config
	configPath string
	ledger     Ledger
	browser    services.Browser
	storage    StorageFactory
	events     events.Publisher
	clock      Clock
	logger     *log.Logger
	staging    Staging

	mu        sync.Mutex // guards config
	token     atomic.Pointer[PauseToken]
	uploading atomic.Bool
	wg        sync.WaitGroup
}

// NewController creates a Controller. Config defaults to [shared.DefaultConfig].
func NewController(opts ControllerOpts) *Controller {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.Events == nil {
		opts.Events = events.NewChannel()
	}

	return &Controller{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		ledger:     opts.Ledger,
		browser:    opts.Browser,
		storage:    opts.Storage,
		events:     opts.Events,
		clock:      opts.Clock,
		logger:     shared.WithLogger(opts.Logger, "component", "controller"),
		staging:    Staging{Dir: opts.Config.Paths.StagingDir},
	}
}

// Fetch downloads the videos of folderID into staging.
func (c *Controller) Fetch(ctx context.Context, folderID, credentialsFile string) error {
	if err := c.checkFetch(folderID, credentialsFile); err != nil {
		return err
	}

	c.spawn(ctx, "fetch", func(ctx context.Context) (string, error) {
		n, err := c.fetch(ctx, folderID, credentialsFile)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Download complete: %d videos", n), nil
	})
	return nil
}

// Upload uploads every staged file with a fresh pause token.
func (c *Controller) Upload(ctx context.Context) error {
	if err := c.checkSession(); err != nil {
		return err
	}
	items, err := c.staging.List()
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return shared.ErrNothingPending
	}
	if !c.uploading.CompareAndSwap(false, true) {
		return shared.ErrBusy
	}

	token := c.resetToken()
	c.spawn(ctx, "upload", func(ctx context.Context) (string, error) {
		defer c.uploading.Store(false)
		return c.upload(ctx, token)
	})
	return nil
}

// FetchThenUpload downloads folderID and uploads the result in one worker.
func (c *Controller) FetchThenUpload(ctx context.Context, folderID, credentialsFile string) error {
	if err := c.checkFetch(folderID, credentialsFile); err != nil {
		return err
	}
	if err := c.checkSession(); err != nil {
		return err
	}
	if !c.uploading.CompareAndSwap(false, true) {
		return shared.ErrBusy
	}

	token := c.resetToken()
	c.spawn(ctx, "fetch+upload", func(ctx context.Context) (string, error) {
		defer c.uploading.Store(false)
		if _, err := c.fetch(ctx, folderID, credentialsFile); err != nil {
			return "", err
		}
		return c.upload(ctx, token)
	})
	return nil
}

// GenerateEmbeds backfills missing embed snippets.
func (c *Controller) GenerateEmbeds(ctx context.Context, includeTerminal bool) error {
	if err := c.checkSession(); err != nil {
		return err
	}

	opts := EmbedOptsFromConfig(c.config.Embed)
	opts.IncludeTerminal = includeTerminal
	c.spawn(ctx, "embed", func(ctx context.Context) (string, error) {
		res, err := NewEmbedExtractor(c.browser, c.ledger, c.events, c.logger).Run(ctx, opts)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Embed generation complete: %d of %d extracted, %d failed", res.Succeeded, res.Total, res.Failed), nil
	})
	return nil
}

// Sync appends workspace videos missing from the ledger.
func (c *Controller) Sync(ctx context.Context) error {
	if err := c.checkSession(); err != nil {
		return err
	}

	opts := SyncOptsFromConfig(c.config.Sync)
	c.spawn(ctx, "sync", func(ctx context.Context) (string, error) {
		added, err := NewReconciler(c.browser, c.ledger, c.events, c.clock, c.logger).Run(ctx, opts)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Sync complete: %d new videos", len(added)), nil
	})
	return nil
}

// Pause stops the running upload batch at its next checkpoint.
func (c *Controller) Pause() {
	if t := c.token.Load(); t != nil {
		t.Pause()
		c.logger.Info("pause requested")
	}
}

// Rename renames a staged file, keeping its extension, and publishes the new listing.
func (c *Controller) Rename(oldName, newName string) (string, error) {
	if c.uploading.Load() {
		return "", shared.ErrBusy
	}
	renamed, err := c.staging.Rename(oldName, newName)
	if err != nil {
		return "", err
	}
	c.publishPending()
	return renamed, nil
}

// Pending lists the staged files.
func (c *Controller) Pending() ([]models.PendingItem, error) {
	return c.staging.List()
}

// Refresh publishes the current staging listing.
func (c *Controller) Refresh() {
	c.publishPending()
}

// Wait blocks until every started worker has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Config returns the live configuration.
func (c *Controller) Config() shared.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.config
}

func (c *Controller) checkFetch(folderID, credentialsFile string) error {
	if folderID == "" {
		return fmt.Errorf("%w: folder id is required", shared.ErrMissingConfig)
	}
	if credentialsFile == "" {
		return fmt.Errorf("%w: credentials file is required", shared.ErrMissingCredentials)
	}
	if _, err := os.Stat(credentialsFile); err != nil {
		return fmt.Errorf("%w: %s", shared.ErrMissingCredentials, credentialsFile)
	}
	if c.storage == nil {
		return fmt.Errorf("%w: no storage client", shared.ErrServiceUnavailable)
	}
	return nil
}

func (c *Controller) checkSession() error {
	if !shared.HasSession(c.config.Paths.Session) {
		return shared.ErrNoSession
	}
	if c.browser == nil {
		return fmt.Errorf("%w: no browser", shared.ErrServiceUnavailable)
	}
	return nil
}

func (c *Controller) resetToken() *PauseToken {
	token := NewPauseToken()
	c.token.Store(token)
	return token
}

func (c *Controller) fetch(ctx context.Context, folderID, credentialsFile string) (int, error) {
	lister, err := c.storage(ctx, credentialsFile)
	if err != nil {
		return 0, err
	}

	n, err := NewFetcher(lister, c.staging, c.events, c.logger).Run(ctx, folderID)
	if err != nil {
		return n, err
	}

	c.mu.Lock()
	c.config.FolderID = folderID
	c.config.CredentialsFile = credentialsFile
	snapshot := *c.config
	c.mu.Unlock()

	if c.configPath != "" {
		if err := shared.SaveConfig(c.configPath, &snapshot); err != nil {
			c.logger.Warn("failed to save config", "path", c.configPath, "err", err)
		}
	}
	return n, nil
}

func (c *Controller) upload(ctx context.Context, token *PauseToken) (string, error) {
	up := NewUploader(c.browser, c.ledger, c.staging, c.events, c.clock, c.logger, UploadOptsFromConfig(c.config.Upload))
	res, err := up.Run(ctx, token)
	c.publishPending()
	if err != nil {
		return "", err
	}
	if res.Paused {
		return fmt.Sprintf("Upload paused: %d uploaded, %d skipped", res.Uploaded, res.Abandoned), nil
	}
	return fmt.Sprintf("Upload complete: %d uploaded, %d skipped", res.Uploaded, res.Abandoned), nil
}

func (c *Controller) publishPending() {
	names, err := c.staging.Names()
	if err != nil {
		c.logger.Warn("failed to list staging", "err", err)
		return
	}
	c.events.Publish(pendingListUpdate(names))
}

// spawn runs fn on its own goroutine. The worker always ends with a Complete event.
func (c *Controller) spawn(ctx context.Context, name string, fn func(context.Context) (string, error)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		logger := shared.WithLogger(c.logger, "operation", name)
		logger.Info("started")

		msg, err := guard(ctx, fn)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Warn("cancelled")
			} else {
				logger.Error("failed", "err", err)
			}
			c.events.Publish(events.Error(fmt.Sprintf("%s failed: %v", name, err)))
			msg = fmt.Sprintf("%s stopped", name)
		} else {
			logger.Info("finished", "message", msg)
		}

		c.events.Publish(events.Complete{Message: msg})
	}()
}

// guard converts a panic in fn into an error.
func guard(ctx context.Context, fn func(context.Context) (string, error)) (msg string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
