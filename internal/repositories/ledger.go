package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/omarmustafa130/LoomAutomation/internal/models"
	"github.com/omarmustafa130/LoomAutomation/internal/shared"
)

const videoColumns = `id, sequence, title, reference_url, embed_snippet, status, embed_attempts, created_at, updated_at`

// LedgerRepository persists [models.VideoRecord] rows.
type LedgerRepository struct {
	db      *sql.DB
	section *CriticalSection
	now     func() time.Time
}

// NewLedgerRepository wraps an already migrated database. path keys the critical section.
func NewLedgerRepository(db *sql.DB, path string) *LedgerRepository {
	return &LedgerRepository{db: db, section: NewCriticalSection(path), now: time.Now}
}

// OpenLedger opens (creating if needed) and migrates the ledger database at path.
func OpenLedger(ctx context.Context, path string) (*LedgerRepository, error) {
	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, 1, 1)

	repo := NewLedgerRepository(db, path)
	err = repo.section.Do(ctx, func() error {
		_, err := shared.RunMigrations(ctx, db)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate ledger: %w", err)
	}

	return repo, nil
}

// Close releases the database handle.
func (r *LedgerRepository) Close() error {
	return r.db.Close()
}

// Record stores a successfully published video.
//
// An existing row with the same URL is updated in place; otherwise a row is appended.
// Url-less rows for the same title are removed so the item keeps a single row.
// An empty snippet never overwrites a stored one.
func (r *LedgerRepository) Record(ctx context.Context, title, url, snippet string) (*models.VideoRecord, error) {
	url = shared.NormalizeURL(url)
	if url == "" {
		return nil, fmt.Errorf("%w: reference url is required", shared.ErrInvalidArgument)
	}

	var out *models.VideoRecord
	err := r.write(ctx, func(tx *sql.Tx, now time.Time) error {
		existing, err := r.findByURL(ctx, tx, url)
		if err != nil {
			return err
		}

		if existing == nil {
			rec := &models.VideoRecord{
				Title:        title,
				ReferenceURL: url,
				EmbedSnippet: snippet,
				Status:       models.StatusRecorded,
			}
			if err := r.insert(ctx, tx, rec, now); err != nil {
				return err
			}
			existing = rec
		} else if snippet != "" {
			existing.EmbedSnippet = snippet
			existing.Status = models.StatusRecorded
			if err := r.update(ctx, tx, existing, now); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM videos WHERE title = ? AND reference_url = ''`, title); err != nil {
			return fmt.Errorf("failed to clear partial rows: %w", err)
		}

		out = existing
		return nil
	})
	return out, err
}

// RecordPartial keeps a row for a title whose reference could not be read.
func (r *LedgerRepository) RecordPartial(ctx context.Context, title string) (*models.VideoRecord, error) {
	return r.upsertByTitle(ctx, title, models.StatusPending, "")
}

// RecordFailure marks an abandoned upload for title.
func (r *LedgerRepository) RecordFailure(ctx context.Context, title string) (*models.VideoRecord, error) {
	return r.upsertByTitle(ctx, title, models.StatusFailedTerminal, "")
}

func (r *LedgerRepository) upsertByTitle(ctx context.Context, title string, status models.RecordStatus, snippet string) (*models.VideoRecord, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title is required", shared.ErrInvalidArgument)
	}

	var out *models.VideoRecord
	err := r.write(ctx, func(tx *sql.Tx, now time.Time) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+videoColumns+` FROM videos WHERE title = ? AND reference_url = '' ORDER BY sequence LIMIT 1`, title)
		existing, err := scanVideo(row)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		if existing == nil {
			rec := &models.VideoRecord{Title: title, Status: status, EmbedSnippet: snippet}
			if err := r.insert(ctx, tx, rec, now); err != nil {
				return err
			}
			out = rec
			return nil
		}

		existing.Status = status
		existing.EmbedSnippet = snippet
		if err := r.update(ctx, tx, existing, now); err != nil {
			return err
		}
		out = existing
		return nil
	})
	return out, err
}

// AppendMissing appends a recorded row for every listed video whose URL is not yet stored.
//
// Membership is checked inside the critical section, so concurrent callers never add a URL twice.
// The returned slice holds only the rows added by this call, in input order.
func (r *LedgerRepository) AppendMissing(ctx context.Context, videos []models.ListedVideo) ([]models.VideoRecord, error) {
	var added []models.VideoRecord
	err := r.write(ctx, func(tx *sql.Tx, now time.Time) error {
		seen, err := urlSet(ctx, tx)
		if err != nil {
			return err
		}

		for _, v := range videos {
			url := shared.NormalizeURL(v.URL)
			if url == "" {
				continue
			}
			if _, ok := seen[url]; ok {
				continue
			}
			seen[url] = struct{}{}

			rec := &models.VideoRecord{Title: v.Title, ReferenceURL: url, Status: models.StatusRecorded}
			if rec.Title == "" {
				rec.Title = url
			}
			if err := r.insert(ctx, tx, rec, now); err != nil {
				return err
			}
			added = append(added, *rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// SetEmbed stores the snippet for url and marks the row recorded.
func (r *LedgerRepository) SetEmbed(ctx context.Context, url, snippet string) (*models.VideoRecord, error) {
	if snippet == "" {
		return nil, fmt.Errorf("%w: embed snippet is required", shared.ErrInvalidArgument)
	}

	var out *models.VideoRecord
	err := r.write(ctx, func(tx *sql.Tx, now time.Time) error {
		rec, err := r.findByURL(ctx, tx, shared.NormalizeURL(url))
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("%w: no ledger row for %s", shared.ErrNotFound, url)
		}

		rec.EmbedSnippet = snippet
		rec.Status = models.StatusRecorded
		if err := r.update(ctx, tx, rec, now); err != nil {
			return err
		}
		out = rec
		return nil
	})
	return out, err
}

// MarkEmbedFailed adds tries to the lifetime embed counter of url.
//
// The row becomes [models.StatusFailedTerminal] once the counter reaches lifetime,
// otherwise [models.StatusFailedRetryable]. The snippet is set to the display sentinel.
func (r *LedgerRepository) MarkEmbedFailed(ctx context.Context, url string, tries, lifetime int) (*models.VideoRecord, error) {
	var out *models.VideoRecord
	err := r.write(ctx, func(tx *sql.Tx, now time.Time) error {
		rec, err := r.findByURL(ctx, tx, shared.NormalizeURL(url))
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("%w: no ledger row for %s", shared.ErrNotFound, url)
		}

		rec.EmbedAttempts += tries
		rec.EmbedSnippet = models.EmbedFailedSentinel
		if rec.EmbedAttempts >= lifetime {
			rec.Status = models.StatusFailedTerminal
		} else {
			rec.Status = models.StatusFailedRetryable
		}
		if err := r.update(ctx, tx, rec, now); err != nil {
			return err
		}
		out = rec
		return nil
	})
	return out, err
}

// NeedingEmbed lists rows with a URL that still lack a usable snippet.
//
// Rows past their lifetime budget are only included when includeTerminal is set.
func (r *LedgerRepository) NeedingEmbed(ctx context.Context, includeTerminal bool) ([]models.VideoRecord, error) {
	query := `SELECT ` + videoColumns + ` FROM videos
		WHERE reference_url <> '' AND (
			(status = ? AND embed_snippet = '') OR status = ?`
	args := []any{models.StatusRecorded, models.StatusFailedRetryable}
	if includeTerminal {
		query += ` OR status = ?`
		args = append(args, models.StatusFailedTerminal)
	}
	query += `) ORDER BY sequence ASC`

	return r.query(ctx, query, args...)
}

// URLs returns the set of stored reference URLs.
func (r *LedgerRepository) URLs(ctx context.Context) (map[string]struct{}, error) {
	return urlSet(ctx, r.db)
}

// List returns every row in insertion order.
func (r *LedgerRepository) List(ctx context.Context) ([]models.VideoRecord, error) {
	return r.query(ctx, `SELECT `+videoColumns+` FROM videos ORDER BY sequence ASC`)
}

// Get returns the row for url.
func (r *LedgerRepository) Get(ctx context.Context, url string) (*models.VideoRecord, error) {
	rec, err := scanVideo(r.db.QueryRowContext(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE reference_url = ?`, shared.NormalizeURL(url)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no ledger row for %s", shared.ErrNotFound, url)
	}
	return rec, err
}

// write runs fn in a transaction inside the critical section.
func (r *LedgerRepository) write(ctx context.Context, fn func(tx *sql.Tx, now time.Time) error) error {
	return r.section.Do(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		if err := fn(tx, r.now().UTC()); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit ledger write: %w", err)
		}
		return nil
	})
}

func (r *LedgerRepository) insert(ctx context.Context, tx *sql.Tx, rec *models.VideoRecord, now time.Time) error {
	sequence, err := NextSequence(ctx, tx, "videos")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	rec.RecordID = shared.GenerateID()
	rec.Sequence = sequence
	rec.Created = now
	rec.Updated = now
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO videos (`+videoColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.RecordID,
		rec.Sequence,
		rec.Title,
		rec.ReferenceURL,
		rec.EmbedSnippet,
		rec.Status,
		rec.EmbedAttempts,
		rec.Created,
		rec.Updated,
	)
	if err != nil {
		return fmt.Errorf("failed to insert video: %w", err)
	}
	return nil
}

func (r *LedgerRepository) update(ctx context.Context, tx *sql.Tx, rec *models.VideoRecord, now time.Time) error {
	rec.Updated = now
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE videos
		SET title = ?, embed_snippet = ?, status = ?, embed_attempts = ?, updated_at = ?
		WHERE id = ?
	`, rec.Title, rec.EmbedSnippet, rec.Status, rec.EmbedAttempts, rec.Updated, rec.RecordID)
	if err != nil {
		return fmt.Errorf("failed to update video: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: video %s", shared.ErrNotFound, rec.RecordID)
	}
	return nil
}

func (r *LedgerRepository) findByURL(ctx context.Context, tx *sql.Tx, url string) (*models.VideoRecord, error) {
	rec, err := scanVideo(tx.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE reference_url = ?`, url))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (r *LedgerRepository) query(ctx context.Context, query string, args ...any) ([]models.VideoRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	var records []models.VideoRecord
	for rows.Next() {
		rec, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return records, nil
}

type rowQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func urlSet(ctx context.Context, q rowQuerier) (map[string]struct{}, error) {
	rows, err := q.QueryContext(ctx, `SELECT reference_url FROM videos WHERE reference_url <> ''`)
	if err != nil {
		return nil, fmt.Errorf("failed to query urls: %w", err)
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan url: %w", err)
		}
		set[url] = struct{}{}
	}
	return set, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

// scanVideo scans one row selected with videoColumns. It returns [sql.ErrNoRows] unwrapped.
func scanVideo(s scanner) (*models.VideoRecord, error) {
	var (
		rec    models.VideoRecord
		status string
	)

	err := s.Scan(
		&rec.RecordID,
		&rec.Sequence,
		&rec.Title,
		&rec.ReferenceURL,
		&rec.EmbedSnippet,
		&status,
		&rec.EmbedAttempts,
		&rec.Created,
		&rec.Updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan video: %w", err)
	}

	if rec.Status, err = models.ParseRecordStatus(status); err != nil {
		return nil, err
	}
	return &rec, nil
}
