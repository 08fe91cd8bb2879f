// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/omarmustafa130/LoomAutomation/internal/models"
	"github.com/omarmustafa130/LoomAutomation/internal/services"
	"github.com/omarmustafa130/LoomAutomation/internal/shared"
)

// FakeClock is a manual clock. After advances the clock by d and fires immediately,
// so polling loops run without wall-clock sleeps.
type FakeClock struct {
	mu    sync.Mutex
	start time.Time
	now   time.Time
}

func NewFakeClock() *FakeClock {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &FakeClock{start: start, now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// Elapsed returns how far the clock has moved since it was created.
func (c *FakeClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Sub(c.start)
}

// Step names used as keys of [FakeSession.Errors].
const (
	StepOpenWorkspace    = "open_workspace"
	StepOpenUploadDialog = "open_upload_dialog"
	StepSelectLocal      = "select_local_upload"
	StepChooseFile       = "choose_file"
	StepStartTransfer    = "start_transfer"
	StepTransferStatus   = "transfer_status"
	StepAwaitProcessing  = "await_processing"
	StepReferenceURL     = "reference_url"
	StepScroll           = "scroll_listing"
)

// FakeBrowser hands out scripted sessions. Script receives the 1-based session number.
type FakeBrowser struct {
	Err    error
	Script func(n int) *FakeSession

	mu       sync.Mutex
	sessions []*FakeSession
}

func (b *FakeBrowser) NewSession(ctx context.Context) (services.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.Err != nil {
		return nil, b.Err
	}
	var s *FakeSession
	if b.Script != nil {
		s = b.Script(len(b.sessions) + 1)
	}
	if s == nil {
		s = &FakeSession{}
	}
	b.sessions = append(b.sessions, s)
	return s, nil
}

// Sessions returns every session opened so far.
func (b *FakeBrowser) Sessions() []*FakeSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*FakeSession(nil), b.sessions...)
}

// FakeSession is a scripted [services.Session].
//
// Transfer holds the status text returned by successive polls; the last entry repeats and an
// empty script reports completion straight away. OnPoll runs before each poll is answered.
type FakeSession struct {
	Errors   map[string]error
	Transfer []string
	OnPoll   func(n int)
	URL      string
	Embed    string
	EmbedErr error
	Counts   []int
	Listed   []models.ListedVideo

	mu       sync.Mutex
	polls    int
	counts   int
	chosen   string
	embedded []string
	closed   bool
}

func (s *FakeSession) step(name string) error {
	if s.Errors == nil {
		return nil
	}
	return s.Errors[name]
}

func (s *FakeSession) OpenWorkspace(ctx context.Context) error {
	return s.step(StepOpenWorkspace)
}

func (s *FakeSession) OpenUploadDialog(ctx context.Context) error {
	return s.step(StepOpenUploadDialog)
}

func (s *FakeSession) SelectLocalUpload(ctx context.Context) error {
	return s.step(StepSelectLocal)
}

func (s *FakeSession) ChooseFile(ctx context.Context, path string) error {
	s.mu.Lock()
	s.chosen = path
	s.mu.Unlock()
	return s.step(StepChooseFile)
}

func (s *FakeSession) StartTransfer(ctx context.Context) error {
	return s.step(StepStartTransfer)
}

func (s *FakeSession) TransferStatus(ctx context.Context) (services.TransferStatus, error) {
	if err := s.step(StepTransferStatus); err != nil {
		return services.TransferStatus{}, err
	}

	s.mu.Lock()
	n := s.polls
	s.polls++
	s.mu.Unlock()

	if s.OnPoll != nil {
		s.OnPoll(n)
	}
	if len(s.Transfer) == 0 {
		return services.ParseTransferStatus("Upload complete"), nil
	}
	return services.ParseTransferStatus(s.Transfer[min(n, len(s.Transfer)-1)]), nil
}

func (s *FakeSession) AwaitProcessing(ctx context.Context, timeout time.Duration) error {
	return s.step(StepAwaitProcessing)
}

func (s *FakeSession) ReferenceURL(ctx context.Context) (string, error) {
	if err := s.step(StepReferenceURL); err != nil {
		return "", err
	}
	return s.URL, nil
}

func (s *FakeSession) EmbedSnippet(ctx context.Context, url string) (string, error) {
	s.mu.Lock()
	s.embedded = append(s.embedded, url)
	s.mu.Unlock()

	if s.EmbedErr != nil {
		return "", s.EmbedErr
	}
	if s.Embed == "" {
		return "", shared.ErrEmbedMissing
	}
	return s.Embed, nil
}

func (s *FakeSession) ScrollListing(ctx context.Context) error {
	return s.step(StepScroll)
}

func (s *FakeSession) CountListed(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.Counts) == 0 {
		return len(s.Listed), nil
	}
	n := s.Counts[min(s.counts, len(s.Counts)-1)]
	s.counts++
	return n, nil
}

func (s *FakeSession) ListedVideos(ctx context.Context) ([]models.ListedVideo, error) {
	return s.Listed, nil
}

func (s *FakeSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Polls returns how many times the transfer status was read.
func (s *FakeSession) Polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

// Chosen returns the path handed to the file input.
func (s *FakeSession) Chosen() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chosen
}

// Embedded returns the URLs whose embed snippet was requested.
func (s *FakeSession) Embedded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.embedded...)
}

func (s *FakeSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// FakeStorage serves in-memory files as a [services.StorageLister].
type FakeStorage struct {
	Files    []models.RemoteFile
	Content  map[string][]byte        // keyed on file ID
	Bodies   map[string]io.ReadCloser // served instead of Content, with unknown size
	ListErr  error
	OpenErrs map[string]error // keyed on file ID

	mu     sync.Mutex
	opened []string
}

func (f *FakeStorage) ListFolder(ctx context.Context, folderID string) ([]models.RemoteFile, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.Files, nil
}

func (f *FakeStorage) Open(ctx context.Context, file models.RemoteFile) (io.ReadCloser, int64, error) {
	f.mu.Lock()
	f.opened = append(f.opened, file.ID)
	f.mu.Unlock()

	if err := f.OpenErrs[file.ID]; err != nil {
		return nil, 0, err
	}
	if body, ok := f.Bodies[file.ID]; ok {
		return body, -1, nil
	}
	data, ok := f.Content[file.ID]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", shared.ErrNotFound, file.ID)
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

// Opened returns the IDs of the files downloaded so far.
func (f *FakeStorage) Opened() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.opened...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// WriteFile creates path with content, failing the test on error.
func WriteFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertFileMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("File should not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
