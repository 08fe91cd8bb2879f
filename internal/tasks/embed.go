package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/omarmustafa130/LoomAutomation/internal/events"
	"github.com/omarmustafa130/LoomAutomation/internal/models"
	"github.com/omarmustafa130/LoomAutomation/internal/services"
	"github.com/omarmustafa130/LoomAutomation/internal/shared"
)

// EmbedOpts holds the embed extraction budgets.
type EmbedOpts struct {
	MaxAttempts      int  // tries per row in one run
	LifetimeAttempts int  // tries per row across runs before it becomes terminal
	IncludeTerminal  bool // also revisit rows past their lifetime budget
}

// EmbedOptsFromConfig converts the [shared.EmbedConfig] section.
func EmbedOptsFromConfig(c shared.EmbedConfig) EmbedOpts {
	return EmbedOpts{MaxAttempts: c.MaxAttempts, LifetimeAttempts: c.LifetimeAttempts}
}

// EmbedResult summarises one backfill run.
type EmbedResult struct {
	Total     int
	Succeeded int
	Failed    int
}

// EmbedExtractor backfills embed snippets for ledger rows that lack one.
type EmbedExtractor struct {
	browser services.Browser
	ledger  Ledger
	events  events.Publisher
	logger  *log.Logger
}

func NewEmbedExtractor(b services.Browser, l Ledger, pub events.Publisher, logger *log.Logger) *EmbedExtractor {
	return &EmbedExtractor{browser: b, ledger: l, events: pub, logger: shared.WithLogger(logger, "stage", "embed")}
}

// Run visits every row needing an embed once, trying up to opts.MaxAttempts times each.
func (e *EmbedExtractor) Run(ctx context.Context, opts EmbedOpts) (EmbedResult, error) {
	var result EmbedResult
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.LifetimeAttempts < opts.MaxAttempts {
		opts.LifetimeAttempts = opts.MaxAttempts
	}

	rows, err := e.ledger.NeedingEmbed(ctx, opts.IncludeTerminal)
	if err != nil {
		return result, fmt.Errorf("failed to load ledger: %w", err)
	}

	result.Total = len(rows)
	e.events.Publish(events.ClearResults{})
	e.events.Publish(events.EmbedTotals{Total: len(rows)})

	for i, row := range rows {
		e.events.Publish(events.EmbedCurrent{Current: i + 1})

		snippet, tries, err := e.extract(ctx, row, opts.MaxAttempts)
		if errors.Is(err, shared.ErrNoSession) || ctx.Err() != nil {
			return result, errors.Join(err, ctx.Err())
		}

		if err == nil {
			rec, err := e.ledger.SetEmbed(ctx, row.ReferenceURL, snippet)
			if err != nil {
				return result, fmt.Errorf("failed to store embed: %w", err)
			}
			result.Succeeded++
			e.events.Publish(events.EmbedSucceeded{Record: *rec})
			continue
		}

		rec, lerr := e.ledger.MarkEmbedFailed(ctx, row.ReferenceURL, tries, opts.LifetimeAttempts)
		if lerr != nil {
			return result, fmt.Errorf("failed to record embed failure: %w", lerr)
		}
		result.Failed++
		e.logger.Warn("embed extraction failed", "url", row.ReferenceURL, "tries", tries, "status", rec.Status, "err", err)
		e.events.Publish(embedFailedUpdate(*rec, tries))
	}

	return result, nil
}

// extract tries up to attempts fresh sessions and returns the snippet and the number of tries used.
func (e *EmbedExtractor) extract(ctx context.Context, row models.VideoRecord, attempts int) (string, int, error) {
	var lastErr error
	for try := 1; try <= attempts; try++ {
		snippet, err := e.once(ctx, row.ReferenceURL)
		if err == nil {
			return snippet, try, nil
		}
		if errors.Is(err, shared.ErrNoSession) || ctx.Err() != nil {
			return "", try, err
		}
		e.logger.Debug("embed try failed", "url", row.ReferenceURL, "try", try, "err", err)
		lastErr = err
	}
	return "", attempts, lastErr
}

func (e *EmbedExtractor) once(ctx context.Context, url string) (snippet string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while extracting embed: %v", r)
		}
	}()

	sess, err := e.browser.NewSession(ctx)
	if err != nil {
		return "", err
	}
	defer sess.Close()

	return sess.EmbedSnippet(ctx, url)
}
