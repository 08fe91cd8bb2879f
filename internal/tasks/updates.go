package tasks

import (
	"fmt"

	"github.com/omarmustafa130/LoomAutomation/internal/events"
	"github.com/omarmustafa130/LoomAutomation/internal/models"
)

func foundVideosUpdate(videos, listed int) events.Event {
	return events.Info(fmt.Sprintf("Found %d videos (%d files in folder)", videos, listed))
}

func downloadFileUpdate(name string, percent int) events.Event {
	return events.Progress{
		Stage:   events.KindDownload,
		Text:    fmt.Sprintf("Downloading %s: %d%%", name, percent),
		Percent: percent,
	}
}

func downloadBatchUpdate(step, total int) events.Event {
	return events.Progress{
		Stage:   events.KindDownload,
		Text:    fmt.Sprintf("Downloaded %d of %d", step, total),
		Percent: step * 100 / max(total, 1),
	}
}

func pendingListUpdate(names []string) events.Event {
	return events.PendingList{Files: names}
}

func uploadStartUpdate(step, total int, item models.PendingItem, attempt, attempts int) events.Event {
	return events.Status(fmt.Sprintf("[%d/%d] Uploading %s (attempt %d of %d)", step, total, item.FileName, attempt, attempts))
}

func uploadProgressUpdate(item models.PendingItem, percent int, bytesPerSecond float64) events.Event {
	return events.Progress{
		Stage:          events.KindUpload,
		Text:           fmt.Sprintf("Uploading %s: %d%%", item.FileName, percent),
		Percent:        percent,
		BytesPerSecond: bytesPerSecond,
	}
}

func attemptFailedUpdate(item models.PendingItem, attempt, attempts int, err error) events.Event {
	return events.Warning(fmt.Sprintf("Attempt %d of %d failed for %s: %v", attempt, attempts, item.FileName, err))
}

func abandonedUpdate(item models.PendingItem, attempts int) events.Event {
	return events.Warning(fmt.Sprintf("Skipping %s: upload failed after %d attempts", item.FileName, attempts))
}

func pausingUpdate(remaining int) events.Event {
	return events.Pausing(fmt.Sprintf("Upload paused, %d files left in staging", remaining))
}

func embedFailedUpdate(rec models.VideoRecord, tries int) events.Event {
	return events.EmbedError(fmt.Sprintf("Couldn't extract embed for %s after %d tries (%d total)", rec.Title, tries, rec.EmbedAttempts))
}

func syncFoundUpdate(count int) events.Event {
	return events.Status(fmt.Sprintf("Loading videos... %d found", count))
}

func syncDoneUpdate(added, listed int) events.Event {
	return events.Info(fmt.Sprintf("Sync complete: %d new videos added (%d listed)", added, listed))
}
