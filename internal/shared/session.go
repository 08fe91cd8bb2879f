package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Cookie is one browser cookie as stored in the session file.
//
// The JSON shape matches the storage state exported by common browser automation tools,
// so session files written elsewhere can be reused.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// HasSession reports whether a session file exists at path.
func HasSession(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// LoadSession reads the cookies saved at path.
func LoadSession(path string) ([]Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("%w: session file is not a cookie list: %v", ErrInvalidCredentials, err)
	}
	return cookies, nil
}

// SaveSession atomically replaces the session file with cookies.
func SaveSession(path string, cookies []Cookie) error {
	if len(cookies) == 0 {
		return fmt.Errorf("%w: no cookies to save", ErrInvalidCredentials)
	}

	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cookies: %w", err)
	}

	return WriteFileAtomic(path, data, 0600)
}

// RemoveFiles deletes each path, ignoring files that are already gone.
func RemoveFiles(paths ...string) error {
	var errs []error
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
