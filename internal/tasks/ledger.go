package tasks

import (
	"context"

	"github.com/omarmustafa130/LoomAutomation/internal/models"
)

// Ledger is the persistent record the stages write to.
// [repositories.LedgerRepository] implements it.
type Ledger interface {
	Record(ctx context.Context, title, url, snippet string) (*models.VideoRecord, error)
	RecordPartial(ctx context.Context, title string) (*models.VideoRecord, error)
	RecordFailure(ctx context.Context, title string) (*models.VideoRecord, error)
	AppendMissing(ctx context.Context, videos []models.ListedVideo) ([]models.VideoRecord, error)
	SetEmbed(ctx context.Context, url, snippet string) (*models.VideoRecord, error)
	MarkEmbedFailed(ctx context.Context, url string, tries, lifetime int) (*models.VideoRecord, error)
	NeedingEmbed(ctx context.Context, includeTerminal bool) ([]models.VideoRecord, error)
	URLs(ctx context.Context) (map[string]struct{}, error)
}

// ledgerError marks a failed ledger write. It aborts the batch instead of consuming an attempt.
type ledgerError struct {
	err error
}

func (e *ledgerError) Error() string { return "ledger write failed: " + e.err.Error() }
func (e *ledgerError) Unwrap() error { return e.err }
