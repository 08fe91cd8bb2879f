package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Display strings for rows whose embed or upload could not be completed.
const (
	EmbedFailedSentinel  = "Couldn't Extract - Retry Failed"
	UploadFailedSentinel = "Upload Failed - Retry Exhausted"
)

// RecordStatus is the lifecycle state of a ledger row.
type RecordStatus string

const (
	// StatusPending marks a title whose reference could not be read yet.
	StatusPending RecordStatus = "pending"
	// StatusRecorded marks a row with a known URL. The snippet may still be empty.
	StatusRecorded RecordStatus = "recorded"
	// StatusFailedRetryable marks an embed that failed this run but is eligible next run.
	StatusFailedRetryable RecordStatus = "failed_retryable"
	// StatusFailedTerminal marks an abandoned upload or an embed past its lifetime budget.
	StatusFailedTerminal RecordStatus = "failed_terminal"
)

func (s RecordStatus) Valid() bool {
	switch s {
	case StatusPending, StatusRecorded, StatusFailedRetryable, StatusFailedTerminal:
		return true
	}
	return false
}

func (s RecordStatus) String() string { return string(s) }

// ParseRecordStatus converts a stored value back into a [RecordStatus].
func ParseRecordStatus(s string) (RecordStatus, error) {
	st := RecordStatus(strings.TrimSpace(s))
	if !st.Valid() {
		return "", fmt.Errorf("unknown record status %q", s)
	}
	return st, nil
}

// VideoRecord is one ledger row.
//
// ReferenceURL is the natural key once known. Rows without a URL are identified by Title.
type VideoRecord struct {
	RecordID      string       `json:"id"`
	Sequence      int64        `json:"sequence"`
	Title         string       `json:"title"`
	ReferenceURL  string       `json:"url"`
	EmbedSnippet  string       `json:"embed_code"`
	Status        RecordStatus `json:"status"`
	EmbedAttempts int          `json:"embed_attempts"`
	Created       time.Time    `json:"created_at"`
	Updated       time.Time    `json:"updated_at"`
}

func (v *VideoRecord) ID() string           { return v.RecordID }
func (v *VideoRecord) CreatedAt() time.Time { return v.Created }
func (v *VideoRecord) UpdatedAt() time.Time { return v.Updated }

// Validate checks the invariants the ledger relies on.
func (v *VideoRecord) Validate() error {
	if strings.TrimSpace(v.Title) == "" {
		return errors.New("title is required")
	}
	if !v.Status.Valid() {
		return fmt.Errorf("invalid status %q", v.Status)
	}
	if v.Status == StatusRecorded && v.ReferenceURL == "" {
		return errors.New("recorded rows need a reference url")
	}
	if v.EmbedAttempts < 0 {
		return errors.New("embed attempts cannot be negative")
	}
	return nil
}

// HasEmbed reports whether a usable snippet is stored.
func (v *VideoRecord) HasEmbed() bool {
	return v.EmbedSnippet != "" && v.EmbedSnippet != EmbedFailedSentinel
}

// DisplayURL is the URL cell shown to the operator.
func (v *VideoRecord) DisplayURL() string {
	if v.ReferenceURL == "" && v.Status == StatusFailedTerminal {
		return UploadFailedSentinel
	}
	return v.ReferenceURL
}

// DisplayEmbed is the embed cell shown to the operator.
func (v *VideoRecord) DisplayEmbed() string {
	switch {
	case v.ReferenceURL == "" && v.Status == StatusFailedTerminal:
		return UploadFailedSentinel
	case v.Status == StatusFailedRetryable || v.Status == StatusFailedTerminal:
		return EmbedFailedSentinel
	}
	return v.EmbedSnippet
}

// PendingItem is one regular, non-hidden file in the staging directory.
type PendingItem struct {
	FileName  string `json:"file_name"`
	FilePath  string `json:"file_path"`
	SizeBytes int64  `json:"size_bytes"`
}

// RemoteFile is one entry of the storage folder listing.
type RemoteFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size,string"`
}

// ListedVideo is one video found while crawling the workspace listing.
type ListedVideo struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// UploadAttempt tracks the item currently moving through the upload state machine.
//
// LastProgressAt moves on any new reading and drives the stuck check.
// LastPercentAt moves only with the percentage and drives the transfer rate.
type UploadAttempt struct {
	Item                PendingItem
	AttemptsRemaining   int
	LastProgressPercent int
	LastProgressText    string
	LastProgressAt      time.Time
	LastPercentAt       time.Time
	StartedAt           time.Time
}

// Observe records a status reading and reports whether the percentage moved.
//
// An unrecognized reading never touches the percentage, but a change in its
// text still resets the stuck timer.
func (a *UploadAttempt) Observe(percent int, known bool, text string, at time.Time) bool {
	if known && percent != a.LastProgressPercent {
		a.LastProgressPercent = percent
		a.LastProgressText = text
		a.LastProgressAt = at
		a.LastPercentAt = at
		return true
	}
	if text != a.LastProgressText {
		a.LastProgressText = text
		a.LastProgressAt = at
	}
	return false
}

// Stalled reports whether no progress has been seen for at least threshold.
func (a *UploadAttempt) Stalled(now time.Time, threshold time.Duration) bool {
	return now.Sub(a.LastProgressAt) >= threshold
}

// Expired reports whether the attempt has run for longer than ceiling.
func (a *UploadAttempt) Expired(now time.Time, ceiling time.Duration) bool {
	return now.Sub(a.StartedAt) > ceiling
}
