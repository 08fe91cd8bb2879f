package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/omarmustafa130/LoomAutomation/internal/events"
	"github.com/omarmustafa130/LoomAutomation/internal/models"
	"github.com/omarmustafa130/LoomAutomation/internal/services"
	"github.com/omarmustafa130/LoomAutomation/internal/shared"
)

// SyncOpts controls the listing crawl.
type SyncOpts struct {
	StaleScrollLimit int           // consecutive scrolls without new items before stopping
	ScrollSettle     time.Duration // wait after each scroll
}

// SyncOptsFromConfig converts the [shared.SyncConfig] section.
func SyncOptsFromConfig(c shared.SyncConfig) SyncOpts {
	return SyncOpts{StaleScrollLimit: c.StaleScrollLimit, ScrollSettle: c.ScrollSettle()}
}

// Reconciler appends videos found in the workspace but missing from the ledger.
type Reconciler struct {
	browser services.Browser
	ledger  Ledger
	events  events.Publisher
	clock   Clock
	logger  *log.Logger
}

func NewReconciler(b services.Browser, l Ledger, pub events.Publisher, clock Clock, logger *log.Logger) *Reconciler {
	if clock == nil {
		clock = RealClock{}
	}
	return &Reconciler{browser: b, ledger: l, events: pub, clock: clock, logger: shared.WithLogger(logger, "stage", "sync")}
}

// Run crawls the listing and returns the rows it added. Existing rows are never changed.
func (r *Reconciler) Run(ctx context.Context, opts SyncOpts) ([]models.VideoRecord, error) {
	if opts.StaleScrollLimit < 1 {
		opts.StaleScrollLimit = 1
	}

	sess, err := r.browser.NewSession(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	listed, err := r.crawl(ctx, sess, opts)
	if err != nil {
		return nil, err
	}

	known, err := r.ledger.URLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	var missing []models.ListedVideo
	for _, v := range listed {
		if _, ok := known[shared.NormalizeURL(v.URL)]; !ok {
			missing = append(missing, v)
		}
	}

	added, err := r.ledger.AppendMissing(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("failed to append videos: %w", err)
	}

	for _, rec := range added {
		r.events.Publish(events.VideoAdded{Record: rec})
	}
	r.logger.Info("sync finished", "listed", len(listed), "added", len(added))
	r.events.Publish(syncDoneUpdate(len(added), len(listed)))

	return added, nil
}

// crawl scrolls until the listing stops growing for opts.StaleScrollLimit scrolls in a row.
func (r *Reconciler) crawl(ctx context.Context, sess services.Crawler, opts SyncOpts) ([]models.ListedVideo, error) {
	if err := sess.OpenWorkspace(ctx); err != nil {
		return nil, err
	}

	count, err := sess.CountListed(ctx)
	if err != nil {
		return nil, err
	}
	r.events.Publish(syncFoundUpdate(count))

	for stale := 0; stale < opts.StaleScrollLimit; {
		if err := sess.ScrollListing(ctx); err != nil {
			return nil, err
		}
		if err := sleep(ctx, r.clock, opts.ScrollSettle); err != nil {
			return nil, err
		}

		n, err := sess.CountListed(ctx)
		if err != nil {
			return nil, err
		}
		if n > count {
			count, stale = n, 0
			r.events.Publish(syncFoundUpdate(count))
		} else {
			stale++
		}
	}

	return sess.ListedVideos(ctx)
}
