// Package update asks a mod's update server whether a newer version exists.
//
// An update server is a base URL serving two files: mod_version.ini, whose
// [Main] section carries VersionString and DownloadSizeString, and
// mod_files.txt, the list of files making up the new version. Downloading
// and installing those files is left to the caller.
package update

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jamesainslie/modloader/pkg/modloader/inifile"
	"github.com/jamesainslie/modloader/pkg/modloader/logging"
	"github.com/jamesainslie/modloader/pkg/modloader/mod"
)

const (
	// VersionFile is fetched relative to the update server.
	VersionFile = "mod_version.ini"
	// FilesFile lists the files of the latest version.
	FilesFile = "mod_files.txt"

	defaultTimeout = 30 * time.Second
	maxBodySize    = 1 << 20
)

// ErrBadResponse is returned when the update server answers with a non-200
// status or a version document without a version.
var ErrBadResponse = errors.New("bad update server response")

// Status classifies a check result.
type Status string

const (
	// UpToDate means the server offers nothing newer.
	UpToDate Status = "up-to-date"
	// Available means a newer version exists.
	Available Status = "available"
	// Manual means the mod has no update server but names a web page.
	Manual Status = "manual"
	// Unsupported means the mod names neither.
	Unsupported Status = "unsupported"
)

// Result is the outcome of one check.
type Result struct {
	Title        string   `json:"title" yaml:"title"`
	Status       Status   `json:"status" yaml:"status"`
	Current      string   `json:"current" yaml:"current"`
	Latest       string   `json:"latest,omitempty" yaml:"latest,omitempty"`
	DownloadSize string   `json:"download_size,omitempty" yaml:"download_size,omitempty"`
	Files        []string `json:"files,omitempty" yaml:"files,omitempty"`
	URL          string   `json:"url,omitempty" yaml:"url,omitempty"`
}

// Option configures a Checker.
type Option func(*Checker)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(ch *Checker) {
		ch.client = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(ch *Checker) {
		ch.userAgent = ua
	}
}

// Checker performs update checks.
type Checker struct {
	client    *http.Client
	userAgent string
}

// New returns a Checker.
func New(opts ...Option) *Checker {
	c := &Checker{
		client:    &http.Client{Timeout: defaultTimeout},
		userAgent: "modloader",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check compares m against its update server. The file list is only fetched
// when a newer version is available.
func (c *Checker) Check(ctx context.Context, m mod.Mod) (Result, error) {
	res := Result{Title: m.Title, Current: m.Version}

	if !m.HasUpdateServer() {
		if m.URL != "" {
			res.Status = Manual
			res.URL = m.URL
		} else {
			res.Status = Unsupported
		}
		return res, nil
	}

	log := logging.Get("update").With("title", m.Title)
	base := baseURL(m.UpdateServer)

	body, err := c.fetch(ctx, base+VersionFile)
	if err != nil {
		return res, err
	}

	doc, err := inifile.Parse(body)
	if err != nil {
		return res, fmt.Errorf("parsing %s: %w", VersionFile, err)
	}

	main := doc.Section("Main")
	res.Latest = strings.TrimSpace(main.Value("VersionString"))
	res.DownloadSize = strings.TrimSpace(main.Value("DownloadSizeString"))
	if res.Latest == "" {
		return res, fmt.Errorf("%w: %s has no VersionString", ErrBadResponse, VersionFile)
	}

	if !IsNewer(m.Version, res.Latest) {
		res.Status = UpToDate
		log.Info("mod is up to date", "version", m.Version)
		return res, nil
	}

	files, err := c.fetch(ctx, base+FilesFile)
	if err != nil {
		return res, err
	}
	res.Files, err = parseFileList(files)
	if err != nil {
		return res, fmt.Errorf("%w: %s: %w", ErrBadResponse, FilesFile, err)
	}
	res.Status = Available

	log.Info("update available", "current", m.Version, "latest", res.Latest, "files", len(res.Files))
	return res, nil
}

func (c *Checker) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrBadResponse, url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	return body, nil
}

// baseURL returns server with a trailing slash.
func baseURL(server string) string {
	server = strings.TrimSpace(server)
	if !strings.HasSuffix(server, "/") {
		server += "/"
	}
	return server
}

// parseFileList returns the non-empty, non-comment lines of a file list.
// A line too long to scan fails the whole list rather than truncating it.
func parseFileList(data []byte) ([]string, error) {
	var files []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxBodySize)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		files = append(files, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return files, nil
}
