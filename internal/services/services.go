package services

import (
	"context"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/omarmustafa130/LoomAutomation/internal/models"
)

// StorageLister lists and downloads files of a remote folder.
type StorageLister interface {
	// ListFolder returns every non-trashed file directly inside folderID.
	ListFolder(ctx context.Context, folderID string) ([]models.RemoteFile, error)

	// Open starts a download. The returned size is -1 when unknown.
	Open(ctx context.Context, file models.RemoteFile) (io.ReadCloser, int64, error)
}

// Browser opens automated sessions on the video platform.
type Browser interface {
	// NewSession starts a fresh browser with the saved cookies. It fails with
	// [shared.ErrNoSession] when no session file exists.
	NewSession(ctx context.Context) (Session, error)
}

// Workspace drives the upload dialog.
type Workspace interface {
	OpenWorkspace(ctx context.Context) error
	OpenUploadDialog(ctx context.Context) error
	SelectLocalUpload(ctx context.Context) error
	ChooseFile(ctx context.Context, path string) error
	StartTransfer(ctx context.Context) error
}

// TransferMonitor reads the upload status shown by the platform.
type TransferMonitor interface {
	TransferStatus(ctx context.Context) (TransferStatus, error)
	AwaitProcessing(ctx context.Context, timeout time.Duration) error
}

// EmbedReader reads the published reference of a video.
type EmbedReader interface {
	// ReferenceURL returns the link of the video that just finished uploading.
	ReferenceURL(ctx context.Context) (string, error)
	// EmbedSnippet navigates to url and copies its embed code.
	EmbedSnippet(ctx context.Context, url string) (string, error)
}

// Crawler walks the workspace video listing.
type Crawler interface {
	OpenWorkspace(ctx context.Context) error
	ScrollListing(ctx context.Context) error
	CountListed(ctx context.Context) (int, error)
	ListedVideos(ctx context.Context) ([]models.ListedVideo, error)
}

// Session is one automated browser, closed after every attempt.
type Session interface {
	Workspace
	TransferMonitor
	EmbedReader
	Crawler
	Close() error
}

// TransferStatus is one reading of the upload status line.
type TransferStatus struct {
	Text    string // raw status text
	Percent int    // 0..100, meaningful when Known
	Known   bool   // a percentage or completion marker was found
	Done    bool   // the platform reports the transfer complete
}

var (
	percentPattern  = regexp.MustCompile(`(\d{1,3})\s*%`)
	completePattern = regexp.MustCompile(`\bcompleted?\b`)
)

// ParseTransferStatus interprets the status line, e.g. "Uploading: 42%" or "Complete".
func ParseTransferStatus(text string) TransferStatus {
	st := TransferStatus{Text: strings.TrimSpace(text)}
	lower := strings.ToLower(st.Text)

	if completePattern.MatchString(lower) {
		st.Known, st.Done, st.Percent = true, true, 100
		return st
	}

	if m := percentPattern.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n <= 100 {
			st.Known, st.Percent = true, n
			st.Done = n == 100 && !strings.Contains(lower, "uploading")
		}
	}
	return st
}

const nativeVideoMime = "application/vnd.google-apps.video"

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true, ".flv": true, ".wmv": true,
}

// IsVideo reports whether a listed file should be fetched.
func IsVideo(f models.RemoteFile) bool {
	if f.MimeType == nativeVideoMime {
		return true
	}
	ext := strings.ToLower(filepath.Ext(f.Name))
	return strings.HasPrefix(f.MimeType, "video/") && videoExtensions[ext]
}
