package tasks

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/omarmustafa130/LoomAutomation/internal/events"
	"github.com/omarmustafa130/LoomAutomation/internal/models"
	"github.com/omarmustafa130/LoomAutomation/internal/services"
	"github.com/omarmustafa130/LoomAutomation/internal/shared"
)

// Fetcher downloads the videos of a storage folder into staging.
type Fetcher struct {
	storage services.StorageLister
	staging Staging
	events  events.Publisher
	logger  *log.Logger
}

func NewFetcher(storage services.StorageLister, staging Staging, pub events.Publisher, logger *log.Logger) *Fetcher {
	return &Fetcher{storage: storage, staging: staging, events: pub, logger: shared.WithLogger(logger, "stage", "fetch")}
}

// Run downloads every video in folderID and returns how many were fetched.
// The first failed download aborts the batch.
func (f *Fetcher) Run(ctx context.Context, folderID string) (int, error) {
	if err := f.staging.Ensure(); err != nil {
		return 0, err
	}

	files, err := f.storage.ListFolder(ctx, folderID)
	if err != nil {
		return 0, fmt.Errorf("failed to list folder: %w", err)
	}

	var videos []models.RemoteFile
	for _, file := range files {
		if services.IsVideo(file) {
			videos = append(videos, file)
		}
	}

	f.logger.Info("listed folder", "folder", folderID, "files", len(files), "videos", len(videos))
	f.events.Publish(foundVideosUpdate(len(videos), len(files)))

	for i, file := range videos {
		if err := f.download(ctx, file); err != nil {
			return i, err
		}
		f.events.Publish(downloadBatchUpdate(i+1, len(videos)))
	}

	names, err := f.staging.Names()
	if err != nil {
		return len(videos), err
	}
	f.events.Publish(pendingListUpdate(names))

	return len(videos), nil
}

func (f *Fetcher) download(ctx context.Context, file models.RemoteFile) error {
	body, size, err := f.storage.Open(ctx, file)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", file.Name, err)
	}
	defer body.Close()

	dest := f.staging.Path(file.Name)
	name := filepath.Base(dest)
	last := -1
	report := func(written int64) {
		if size <= 0 {
			return
		}
		pct := int(written * 100 / size)
		if pct != last {
			last = pct
			f.events.Publish(downloadFileUpdate(name, min(pct, 100)))
		}
	}

	n, err := shared.CopyFileAtomic(dest, body, report)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", file.Name, err)
	}

	f.logger.Debug("downloaded", "file", name, "bytes", n)
	return nil
}
