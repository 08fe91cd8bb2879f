package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseCurlCommand(t *testing.T) {
	tt := []struct {
		name       string
		curlCmd    string
		wantURL    string
		wantCookie string
		wantHeader map[string]string
		wantErr    bool
	}{
		{
			name:       "cookie in -b flag with single quotes",
			curlCmd:    `curl 'https://www.loom.com/looms/videos' -b 'connect.sid=abc; loom_anon=1'`,
			wantURL:    "https://www.loom.com/looms/videos",
			wantCookie: "connect.sid=abc; loom_anon=1",
		},
		{
			name:       "cookie in --cookie flag with double quotes",
			curlCmd:    `curl "https://www.loom.com/" --cookie "connect.sid=abc"`,
			wantURL:    "https://www.loom.com/",
			wantCookie: "connect.sid=abc",
		},
		{
			name:       "cookie header fallback",
			curlCmd:    `curl 'https://www.loom.com/api' -H 'accept: */*' -H 'Cookie: connect.sid=xyz'`,
			wantURL:    "https://www.loom.com/api",
			wantCookie: "connect.sid=xyz",
			wantHeader: map[string]string{"accept": "*/*"},
		},
		{
			name: "multiline command",
			curlCmd: "curl 'https://www.loom.com/looms/videos' \\\n" +
				"  -H 'user-agent: Mozilla/5.0' \\\n" +
				"  -b 'connect.sid=multi'",
			wantURL:    "https://www.loom.com/looms/videos",
			wantCookie: "connect.sid=multi",
			wantHeader: map[string]string{"user-agent": "Mozilla/5.0"},
		},
		{
			name:    "no cookies",
			curlCmd: `curl -H 'Authorization: Bearer token' https://www.loom.com`,
			wantErr: true,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCurlCommand([]byte(tc.curlCmd))
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidCredentials) {
					t.Fatalf("expected ErrInvalidCredentials, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.URL != tc.wantURL {
				t.Errorf("URL = %q, want %q", got.URL, tc.wantURL)
			}
			if got.Cookie != tc.wantCookie {
				t.Errorf("Cookie = %q, want %q", got.Cookie, tc.wantCookie)
			}
			for k, v := range tc.wantHeader {
				if got.Headers[k] != v {
					t.Errorf("header %s = %q, want %q", k, got.Headers[k], v)
				}
			}
		})
	}
}

func TestCurlRequestCookies(t *testing.T) {
	req := &CurlRequest{Cookie: "a=1; b=two=2;  ; broken"}
	cookies := req.Cookies(".loom.com")

	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d: %+v", len(cookies), cookies)
	}
	if cookies[1].Name != "b" || cookies[1].Value != "two=2" {
		t.Errorf("unexpected cookie %+v", cookies[1])
	}
	if cookies[0].Domain != ".loom.com" || cookies[0].Path != "/" {
		t.Errorf("cookie not scoped: %+v", cookies[0])
	}
}

func TestSessionFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loom_cookies.json")

	if HasSession(path) {
		t.Fatal("no session expected before save")
	}
	if _, err := LoadSession(path); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if err := SaveSession(path, nil); err == nil {
		t.Error("saving an empty session should fail")
	}

	want := []Cookie{{Name: "connect.sid", Value: "abc", Domain: ".loom.com", Path: "/", Expires: 1900000000, Secure: true}}
	if err := SaveSession(path, want); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if !HasSession(path) {
		t.Fatal("session should exist after save")
	}

	got, err := LoadSession(path)
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("LoadSession = %+v, want %+v", got, want)
	}

	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSession(path); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for corrupt file, got %v", err)
	}

	other := filepath.Join(dir, "loomops.toml")
	os.WriteFile(other, []byte("x"), 0644)
	if err := RemoveFiles(path, other, filepath.Join(dir, "missing")); err != nil {
		t.Fatalf("RemoveFiles failed: %v", err)
	}
	if HasSession(path) {
		t.Error("session should be removed")
	}
}
