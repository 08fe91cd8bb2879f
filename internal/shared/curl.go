// Utilities for importing a browser session from a cURL command.
package shared

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	curlHeaderRegex = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	curlCookieRegex = regexp.MustCompile(`(?:-b|--cookie)\s+'([^']+)'|(?:-b|--cookie)\s+"([^"]+)"`)
	curlURLRegex    = regexp.MustCompile(`https?://[^\s'"]+`)
)

// CurlRequest is the part of a "Copy as cURL" command needed to rebuild a session.
type CurlRequest struct {
	URL     string
	Headers map[string]string
	Cookie  string
}

// ParseCurlFile reads a .sh file containing a cURL command.
func ParseCurlFile(path string) (*CurlRequest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(content)
}

// ParseCurlCommand extracts the URL, headers and cookie string from a cURL command.
//
// The cookie comes from -b/--cookie, falling back to a "Cookie:" header.
func ParseCurlCommand(data []byte) (*CurlRequest, error) {
	cmd := strings.ReplaceAll(string(data), "\\\n", " ")
	cmd = strings.ReplaceAll(cmd, "\\", "")

	req := &CurlRequest{Headers: make(map[string]string)}
	if u := curlURLRegex.FindString(cmd); u != "" {
		req.URL = u
	}

	for _, match := range curlHeaderRegex.FindAllStringSubmatch(cmd, -1) {
		line := match[1]
		if line == "" {
			line = match[2]
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if strings.EqualFold(key, "cookie") {
			if req.Cookie == "" {
				req.Cookie = value
			}
			continue
		}
		req.Headers[key] = value
	}

	if m := curlCookieRegex.FindStringSubmatch(cmd); len(m) > 2 {
		if m[1] != "" {
			req.Cookie = m[1]
		} else {
			req.Cookie = m[2]
		}
	}

	if req.Cookie == "" {
		return nil, fmt.Errorf("%w: no cookies found in curl command", ErrInvalidCredentials)
	}
	return req, nil
}

// Cookies converts the cookie header into session cookies scoped to domain.
func (c *CurlRequest) Cookies(domain string) []Cookie {
	var cookies []Cookie
	for pair := range strings.SplitSeq(c.Cookie, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" {
			continue
		}
		cookies = append(cookies, Cookie{
			Name:     name,
			Value:    value,
			Domain:   domain,
			Path:     "/",
			Expires:  -1,
			Secure:   true,
			SameSite: "Lax",
		})
	}
	return cookies
}
