// Google Drive v3 implementation of [StorageLister]
//
// API reference: https://developers.google.com/drive/api/reference/rest/v3/files
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"

	"github.com/omarmustafa130/LoomAutomation/internal/models"
	"github.com/omarmustafa130/LoomAutomation/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
)

const (
	driveBaseURL       = "https://www.googleapis.com/drive/v3"
	driveReadonlyScope = "https://www.googleapis.com/auth/drive.readonly"
	drivePageSize      = 1000
)

// driveFileList is one page of a files.list response.
type driveFileList struct {
	NextPageToken string              `json:"nextPageToken"`
	Files         []models.RemoteFile `json:"files"`
}

// DriveService implements [StorageLister] for Google Drive.
type DriveService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// DriveOpts configures a [DriveService].
type DriveOpts struct {
	BaseURL           string       // API root, defaults to the public v3 endpoint
	RequestsPerSecond float64      // defaults to 5
	HTTPClient        *http.Client // authenticated client; built from the credentials file when nil
}

// NewDriveService creates a Drive client authenticated with the service account key at credentialsFile.
func NewDriveService(ctx context.Context, credentialsFile string, opts DriveOpts) (*DriveService, error) {
	if opts.HTTPClient == nil {
		client, err := serviceAccountClient(ctx, credentialsFile)
		if err != nil {
			return nil, err
		}
		opts.HTTPClient = client
	}
	return NewDriveServiceWithClient(opts), nil
}

// NewDriveServiceWithClient creates a Drive client around an already authenticated [http.Client].
func NewDriveServiceWithClient(opts DriveOpts) *DriveService {
	if opts.BaseURL == "" {
		opts.BaseURL = driveBaseURL
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5.0
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &DriveService{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
	}
}

func serviceAccountClient(ctx context.Context, credentialsFile string) (*http.Client, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("%w: no service account file configured", shared.ErrMissingCredentials)
	}

	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", shared.ErrMissingCredentials, credentialsFile)
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, driveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
	}

	return oauth2.NewClient(ctx, creds.TokenSource), nil
}

// ListFolder returns every file in folderID, following pagination.
func (s *DriveService) ListFolder(ctx context.Context, folderID string) ([]models.RemoteFile, error) {
	if folderID == "" {
		return nil, fmt.Errorf("%w: folder id", shared.ErrMissingArgument)
	}

	var files []models.RemoteFile
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("q", fmt.Sprintf("'%s' in parents and trashed = false", folderID))
		params.Set("fields", "nextPageToken, files(id, name, mimeType, size)")
		params.Set("pageSize", fmt.Sprint(drivePageSize))
		params.Set("supportsAllDrives", "true")
		params.Set("includeItemsFromAllDrives", "true")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page driveFileList
		if err := s.getJSON(ctx, "/files?"+params.Encode(), &page); err != nil {
			return nil, err
		}
		files = append(files, page.Files...)

		if page.NextPageToken == "" {
			return files, nil
		}
		pageToken = page.NextPageToken
	}
}

// Open starts downloading the content of file.
func (s *DriveService) Open(ctx context.Context, file models.RemoteFile) (io.ReadCloser, int64, error) {
	endpoint := "/files/" + url.PathEscape(file.ID) + "?alt=media&supportsAllDrives=true"
	resp, err := s.do(ctx, endpoint)
	if err != nil {
		return nil, 0, err
	}

	size := resp.ContentLength
	if size < 0 && file.Size > 0 {
		size = file.Size
	}
	return resp.Body, size, nil
}

func (s *DriveService) getJSON(ctx context.Context, endpoint string, result any) error {
	resp, err := s.do(ctx, endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// do performs a rate limited GET. The caller closes the body of a successful response.
func (s *DriveService) do(ctx context.Context, endpoint string) (*http.Response, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: drive status %d", shared.ErrServiceUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: drive status %d: %s", shared.ErrAPIRequest, resp.StatusCode, body)
	}

	return resp, nil
}
