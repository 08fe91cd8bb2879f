package services_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/omarmustafa130/LoomAutomation/internal/models"
	"github.com/omarmustafa130/LoomAutomation/internal/services"
	"github.com/omarmustafa130/LoomAutomation/internal/shared"
	tu "github.com/omarmustafa130/LoomAutomation/internal/testing"
)

func driveWith(rt http.RoundTripper) *services.DriveService {
	return services.NewDriveServiceWithClient(services.DriveOpts{
		BaseURL:           "https://drive.test/v3",
		RequestsPerSecond: 1000,
		HTTPClient:        &http.Client{Transport: rt},
	})
}

func TestDriveTransport(t *testing.T) {
	ctx := context.Background()

	t.Run("transport failure", func(t *testing.T) {
		svc := driveWith(tu.NewMockRoundTripper(nil, errors.New("connection reset")))

		_, err := svc.ListFolder(ctx, "folder")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("unreadable listing body", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: http.Header{}}
		svc := driveWith(tu.NewMockRoundTripper(resp, nil))

		_, err := svc.ListFolder(ctx, "folder")
		if err == nil || !strings.Contains(err.Error(), "failed to decode response") {
			t.Errorf("expected decode error, got %v", err)
		}
	})

	t.Run("download size falls back to listing size", func(t *testing.T) {
		resp := &http.Response{
			StatusCode:    http.StatusOK,
			Body:          io.NopCloser(strings.NewReader("hello")),
			ContentLength: -1,
			Header:        http.Header{},
		}
		svc := driveWith(tu.NewMockRoundTripper(resp, nil))

		body, size, err := svc.Open(ctx, models.RemoteFile{ID: "1", Name: "clip1.mp4", Size: 5})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer body.Close()
		if size != 5 {
			t.Errorf("expected size 5, got %d", size)
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusTooManyRequests, Body: io.NopCloser(strings.NewReader("slow down")), Header: http.Header{}}
		svc := driveWith(tu.NewMockRoundTripper(resp, nil))

		_, _, err := svc.Open(ctx, models.RemoteFile{ID: "1"})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}
