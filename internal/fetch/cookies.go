package fetch

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const httpOnlyPrefix = "#HttpOnly_"

// LoadCookieFile reads a Netscape-format cookies.txt (the format wget and curl
// export) and returns its cookies.
func LoadCookieFile(path string) ([]*http.Cookie, error) {
	// #nosec G304 -- path is an operator-supplied CLI argument.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cookie file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	var cookies []*http.Cookie
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		cookie, err := parseCookieLine(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		if cookie != nil {
			cookies = append(cookies, cookie)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan cookie file: %w", err)
	}
	return cookies, nil
}

// parseCookieLine returns nil for blank and comment lines.
func parseCookieLine(line string) (*http.Cookie, error) {
	line = strings.TrimRight(line, "\r\n")
	httpOnly := false
	if strings.HasPrefix(line, httpOnlyPrefix) {
		httpOnly = true
		line = strings.TrimPrefix(line, httpOnlyPrefix)
	}
	if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}

	fields := strings.Split(line, "\t")
	if len(fields) != 7 {
		return nil, fmt.Errorf("expected 7 tab-separated fields, got %d", len(fields))
	}
	expiry, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse expiry %q: %w", fields[4], err)
	}

	cookie := &http.Cookie{
		Domain:   fields[0],
		Path:     fields[2],
		Secure:   strings.EqualFold(fields[3], "TRUE"),
		Name:     fields[5],
		Value:    fields[6],
		HttpOnly: httpOnly,
	}
	if expiry > 0 {
		cookie.Expires = time.Unix(expiry, 0)
	}
	return cookie, nil
}
