package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/omarmustafa130/LoomAutomation/internal/events"
	"github.com/omarmustafa130/LoomAutomation/internal/models"
	"github.com/omarmustafa130/LoomAutomation/internal/services"
	"github.com/omarmustafa130/LoomAutomation/internal/shared"
)

// UploadState is the position of an item in the upload state machine.
type UploadState int

const (
	StateStaged UploadState = iota
	StateOpeningWorkspace
	StateSelectingUpload
	StateTransferring
	StateAwaitingProcessing
	StateExtractingReference
	StateExtractingEmbed
	StateRecorded
	StateAbandoned
)

func (s UploadState) String() string {
	switch s {
	case StateStaged:
		return "staged"
	case StateOpeningWorkspace:
		return "opening_workspace"
	case StateSelectingUpload:
		return "selecting_upload"
	case StateTransferring:
		return "transferring"
	case StateAwaitingProcessing:
		return "awaiting_processing"
	case StateExtractingReference:
		return "extracting_reference"
	case StateExtractingEmbed:
		return "extracting_embed"
	case StateRecorded:
		return "recorded"
	case StateAbandoned:
		return "abandoned"
	default:
		return ""
	}
}

// UploadOpts holds the per-item budgets.
type UploadOpts struct {
	MaxAttempts       int
	PollInterval      time.Duration
	StuckThreshold    time.Duration // inclusive
	AttemptCeiling    time.Duration
	ProcessingTimeout time.Duration
}

// UploadOptsFromConfig converts the [shared.UploadConfig] section.
func UploadOptsFromConfig(c shared.UploadConfig) UploadOpts {
	return UploadOpts{
		MaxAttempts:       c.MaxAttempts,
		PollInterval:      c.PollInterval(),
		StuckThreshold:    c.StuckThreshold(),
		AttemptCeiling:    c.AttemptCeiling(),
		ProcessingTimeout: c.ProcessingTimeout(),
	}
}

// UploadResult summarises one batch.
type UploadResult struct {
	Uploaded  int
	Abandoned int
	Paused    bool
}

// Uploader moves staged files to the platform, one at a time.
type Uploader struct {
	browser services.Browser
	ledger  Ledger
	staging Staging
	events  events.Publisher
	clock   Clock
	logger  *log.Logger
	opts    UploadOpts
}

func NewUploader(b services.Browser, l Ledger, s Staging, pub events.Publisher, clock Clock, logger *log.Logger, opts UploadOpts) *Uploader {
	if clock == nil {
		clock = RealClock{}
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &Uploader{
		browser: b,
		ledger:  l,
		staging: s,
		events:  pub,
		clock:   clock,
		logger:  shared.WithLogger(logger, "stage", "upload"),
		opts:    opts,
	}
}

// Run uploads every staged file. It returns early, without error, once token is paused.
func (u *Uploader) Run(ctx context.Context, token *PauseToken) (UploadResult, error) {
	var result UploadResult

	items, err := u.staging.List()
	if err != nil {
		return result, err
	}

	for i, item := range items {
		if token.Paused() {
			result.Paused = true
			u.events.Publish(pausingUpdate(len(items) - i))
			return result, nil
		}

		rec, err := u.uploadItem(ctx, token, item, i+1, len(items))
		switch {
		case err == nil:
			result.Uploaded++
			u.logger.Info("uploaded", "file", item.FileName, "url", rec.ReferenceURL)
		case errors.Is(err, shared.ErrPaused):
			result.Paused = true
			u.events.Publish(pausingUpdate(len(items) - i))
			return result, nil
		case errors.Is(err, shared.ErrRetryExhausted):
			result.Abandoned++
			if err := u.abandon(ctx, item); err != nil {
				return result, err
			}
		default:
			return result, err
		}
	}

	return result, nil
}

// uploadItem runs attempts until one succeeds or the budget is spent.
//
// Errors that end the batch (pause, cancellation, missing session, ledger failures) are
// returned as is; a spent budget is reported as [shared.ErrRetryExhausted].
func (u *Uploader) uploadItem(ctx context.Context, token *PauseToken, item models.PendingItem, step, total int) (*models.VideoRecord, error) {
	attempt := &models.UploadAttempt{Item: item, AttemptsRemaining: u.opts.MaxAttempts}
	logger := shared.WithLogger(u.logger, "file", item.FileName)

	for attempt.AttemptsRemaining > 0 {
		n := u.opts.MaxAttempts - attempt.AttemptsRemaining + 1
		u.events.Publish(uploadStartUpdate(step, total, item, n, u.opts.MaxAttempts))

		rec, err := u.attempt(ctx, token, attempt)
		attempt.AttemptsRemaining--
		if err == nil {
			return rec, nil
		}

		var lerr *ledgerError
		switch {
		case errors.Is(err, shared.ErrPaused), errors.Is(err, shared.ErrNoSession), errors.As(err, &lerr):
			return nil, err
		case token.Paused():
			return nil, shared.ErrPaused
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case isTransient(err):
			logger.Warn("upload attempt failed", "attempt", n, "err", err)
		default:
			logger.Error("unexpected upload failure", "attempt", n, "err", err)
		}
		u.events.Publish(attemptFailedUpdate(item, n, u.opts.MaxAttempts, err))
	}

	return nil, fmt.Errorf("%w: %s", shared.ErrRetryExhausted, item.FileName)
}

// attempt runs one pass of the state machine in a fresh session.
func (u *Uploader) attempt(ctx context.Context, token *PauseToken, attempt *models.UploadAttempt) (rec *models.VideoRecord, err error) {
	item := attempt.Item
	state := StateStaged
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", state, r)
		}
	}()

	sess, err := u.browser.NewSession(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	state = StateOpeningWorkspace
	if err := sess.OpenWorkspace(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", state, err)
	}

	state = StateSelectingUpload
	steps := []func(context.Context) error{
		sess.OpenUploadDialog,
		sess.SelectLocalUpload,
		func(ctx context.Context) error { return sess.ChooseFile(ctx, item.FilePath) },
		sess.StartTransfer,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", state, err)
		}
	}

	state = StateTransferring
	if err := u.monitor(ctx, token, sess, attempt); err != nil {
		return nil, fmt.Errorf("%s: %w", state, err)
	}

	state = StateAwaitingProcessing
	err = sess.AwaitProcessing(ctx, u.opts.ProcessingTimeout)
	var url string
	if err == nil {
		state = StateExtractingReference
		url, err = sess.ReferenceURL(ctx)
		if err == nil && url == "" {
			err = shared.ErrReferenceMissing
		}
	}
	if err != nil {
		if _, perr := u.ledger.RecordPartial(ctx, item.FileName); perr != nil {
			return nil, &ledgerError{perr}
		}
		return nil, fmt.Errorf("%s: %w", state, err)
	}

	state = StateExtractingEmbed
	snippet, err := sess.EmbedSnippet(ctx, url)
	if err != nil {
		u.logger.Warn("embed not available yet", "file", item.FileName, "err", err)
		snippet = ""
	}

	rec, err = u.ledger.Record(ctx, item.FileName, url, snippet)
	if err != nil {
		return nil, &ledgerError{err}
	}
	state = StateRecorded
	u.events.Publish(events.VideoAdded{Record: *rec})

	if err := u.staging.Remove(item); err != nil {
		u.logger.Error("failed to remove uploaded file", "file", item.FileName, "err", err)
	} else {
		u.events.Publish(events.FileRemoved{Name: item.FileName})
	}

	return rec, nil
}

// monitor polls the transfer status until the platform reports completion.
func (u *Uploader) monitor(ctx context.Context, token *PauseToken, sess services.TransferMonitor, attempt *models.UploadAttempt) error {
	now := u.clock.Now()
	attempt.StartedAt = now
	attempt.LastProgressAt = now
	attempt.LastPercentAt = now
	attempt.LastProgressPercent = 0
	attempt.LastProgressText = ""

	for {
		if token.Paused() {
			return shared.ErrPaused
		}

		st, err := sess.TransferStatus(ctx)
		if err != nil {
			return err
		}
		now := u.clock.Now()

		if st.Done {
			u.events.Publish(uploadProgressUpdate(attempt.Item, 100, 0))
			return nil
		}

		prevPercent, prevAt := attempt.LastProgressPercent, attempt.LastPercentAt
		if attempt.Observe(st.Percent, st.Known, st.Text, now) {
			u.events.Publish(uploadProgressUpdate(attempt.Item, st.Percent, transferRate(prevPercent, st.Percent, attempt.Item.SizeBytes, now.Sub(prevAt))))
		} else if attempt.Stalled(now, u.opts.StuckThreshold) {
			return fmt.Errorf("%w: %d%% for %s", shared.ErrTransferStuck, attempt.LastProgressPercent, now.Sub(attempt.LastProgressAt))
		}

		if attempt.Expired(now, u.opts.AttemptCeiling) {
			return fmt.Errorf("%w: %s", shared.ErrTransferTimeout, u.opts.AttemptCeiling)
		}

		if err := sleep(ctx, u.clock, u.opts.PollInterval); err != nil {
			return err
		}
	}
}

// abandon removes an item whose budget is spent and records the failure.
func (u *Uploader) abandon(ctx context.Context, item models.PendingItem) error {
	if err := u.staging.Remove(item); err != nil {
		u.logger.Error("failed to remove abandoned file", "file", item.FileName, "err", err)
	}

	if _, err := u.ledger.RecordFailure(ctx, item.FileName); err != nil {
		return &ledgerError{err}
	}

	u.logger.Warn("upload abandoned", "file", item.FileName, "attempts", u.opts.MaxAttempts)
	u.events.Publish(abandonedUpdate(item, u.opts.MaxAttempts))
	u.events.Publish(events.FileRemoved{Name: item.FileName})
	return nil
}

// transferRate estimates bytes per second from a percentage change.
// Elapsed time is floored at one second.
func transferRate(fromPercent, toPercent int, sizeBytes int64, elapsed time.Duration) float64 {
	delta := toPercent - fromPercent
	if delta <= 0 || sizeBytes <= 0 {
		return 0
	}
	seconds := max(elapsed.Seconds(), 1)
	return float64(delta) / 100 * float64(sizeBytes) / seconds
}

func isTransient(err error) bool {
	for _, target := range []error{
		shared.ErrTransferStuck,
		shared.ErrTransferTimeout,
		shared.ErrElementTimeout,
		shared.ErrNavigation,
		shared.ErrReferenceMissing,
		shared.ErrEmbedMissing,
		shared.ErrAPIRequest,
		shared.ErrServiceUnavailable,
		shared.ErrTimeout,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
