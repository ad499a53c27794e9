package download

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/loonghao/vx/internal/checksum"
	vxErrors "github.com/loonghao/vx/internal/errors"
	"github.com/loonghao/vx/internal/provider"
)

const (
	defaultDialTimeout           = 10 * time.Second
	defaultResponseHeaderTimeout = 30 * time.Second
)

// Downloader defines the interface for downloading and verifying artifacts.
type Downloader interface {
	// Download downloads a file from the given URL to destPath.
	// Returns the path to the downloaded file.
	Download(ctx context.Context, url, destPath string) (string, error)

	// Verify verifies the checksum of a downloaded file.
	// checksum can be nil (skip verification), have a direct value, or a URL to fetch.
	Verify(ctx context.Context, filePath string, checksum *provider.Checksum) error
}

// httpDownloader implements Downloader using HTTP.
type httpDownloader struct {
	client *http.Client
}

// NewDownloader creates a new Downloader with the default transport: no
// overall timeout (artifacts can be large) but bounded dial/header phases
// so a stalled server doesn't hang EnsureStage forever.
func NewDownloader() Downloader {
	return NewDownloaderWithClient(nil)
}

// NewDownloaderWithClient creates a Downloader using client, falling back
// to the default-transport client when client is nil. Exposed for tests
// that need to mock the transport.
func NewDownloaderWithClient(client *http.Client) Downloader {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: defaultDialTimeout,
				}).DialContext,
				TLSHandshakeTimeout:   defaultDialTimeout,
				ResponseHeaderTimeout: defaultResponseHeaderTimeout,
			},
		}
	}
	return &httpDownloader{client: client}
}

// Download downloads a file from the given URL to destPath.
// Returns the path to the downloaded file.
func (d *httpDownloader) Download(ctx context.Context, url, destPath string) (string, error) {
	slog.Debug("downloading file", "url", url, "dest", destPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", vxErrors.NewNetworkError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", vxErrors.NewHTTPError(url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", fmt.Errorf("failed to rename file: %w", err)
	}

	slog.Debug("download completed", "path", destPath)
	return destPath, nil
}

// Verify verifies the checksum of a downloaded file.
// checksum can be nil (skip verification), have a direct value, or a URL to fetch.
func (d *httpDownloader) Verify(ctx context.Context, filePath string, cs *provider.Checksum) error {
	if cs == nil {
		slog.Debug("no checksum specified, skipping verification")
		return nil
	}

	slog.Debug("verifying checksum", "file", filePath)

	var expectedHash string
	var algorithm checksum.Algorithm

	switch {
	case cs.Value != "":
		alg, hash, err := checksum.Parse(cs.Value)
		if err != nil {
			return err
		}
		algorithm = alg
		expectedHash = hash
	case cs.URL != "":
		filename := filepath.Base(filePath)
		if cs.FilePattern != "" {
			filename = cs.FilePattern
		}

		alg, hash, err := d.fetchChecksumFromURL(ctx, cs.URL, filename)
		if err != nil {
			return err
		}
		algorithm = alg
		expectedHash = hash
	default:
		slog.Debug("no checksum value or URL specified, skipping verification")
		return nil
	}

	if err := checksum.Verify(filePath, algorithm, expectedHash); err != nil {
		return err
	}

	slog.Debug("checksum verified", "algorithm", algorithm)
	return nil
}

// fetchChecksumFromURL fetches a checksums file from url and extracts the
// hash for filename. Two formats are recognized: the GNU coreutils
// "<hash>  <filename>" style used by most GitHub release SHA256SUMS
// assets, and the Go download-index JSON style (go.dev/dl/?mode=json).
func (d *httpDownloader) fetchChecksumFromURL(ctx context.Context, url, filename string) (checksum.Algorithm, string, error) {
	slog.Debug("fetching checksum file", "url", url, "filename", filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch checksum file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("failed to fetch checksum file: %w", vxErrors.NewHTTPError(url, resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("failed to read checksum file: %w", err)
	}

	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		return parseGoJSONChecksums(body, filename)
	}

	if looksLikeGNUChecksums(trimmed) {
		return parseGNUChecksums(body, filename)
	}

	return "", "", fmt.Errorf("unknown or unsupported checksum file format at %s", url)
}

// looksLikeGNUChecksums reports whether body's first non-blank line has
// the "<hash> <filename>" shape, so a malformed/unrecognized file produces
// "unknown format" instead of a misleading "not found" error.
func looksLikeGNUChecksums(trimmed string) bool {
	scanner := bufio.NewScanner(strings.NewReader(trimmed))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		return len(strings.Fields(line)) >= 2
	}
	return false
}

// parseGNUChecksums scans a "<hash>  <filename>" (optionally BSD-style
// "*filename") checksums file for filename's line.
func parseGNUChecksums(body []byte, filename string) (checksum.Algorithm, string, error) {
	scanner := bufio.NewScanner(strings.NewReader(string(body)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		hash, file := parseChecksumLine(line)
		if file == "" {
			continue
		}
		if file == filename || filepath.Base(file) == filename {
			algorithm := checksum.DetectAlgorithm(hash)
			if algorithm == "" {
				continue
			}
			slog.Debug("found checksum for file", "file", file, "algorithm", algorithm)
			return algorithm, hash, nil
		}
	}
	return "", "", fmt.Errorf("%q not found in GNU checksums file", filename)
}

// parseChecksumLine parses a line from a checksums file.
// Supports formats:
// - "<hash>  <filename>"
// - "<hash> *<filename>"
// - "<hash>  *<filename>"
func parseChecksumLine(line string) (hash, filename string) {
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return "", ""
	}

	hash = parts[0]
	filename = parts[1]
	filename = strings.TrimPrefix(filename, "*")

	return hash, filename
}

// goDownloadFile and goDownloadRelease mirror the relevant subset of the
// JSON schema served by go.dev/dl/?mode=json.
type goDownloadFile struct {
	Filename string `json:"filename"`
	SHA256   string `json:"sha256"`
}

type goDownloadRelease struct {
	Version string           `json:"version"`
	Files   []goDownloadFile `json:"files"`
}

func parseGoJSONChecksums(body []byte, filename string) (checksum.Algorithm, string, error) {
	var releases []goDownloadRelease
	if err := json.Unmarshal(body, &releases); err != nil {
		return "", "", fmt.Errorf("unknown or unsupported checksum file format: %w", err)
	}

	for _, rel := range releases {
		for _, f := range rel.Files {
			if f.Filename == filename {
				if f.SHA256 == "" {
					return "", "", fmt.Errorf("%q not found in Go JSON checksums: empty sha256", filename)
				}
				return checksum.AlgorithmSHA256, f.SHA256, nil
			}
		}
	}

	return "", "", fmt.Errorf("%q not found in Go JSON checksums", filename)
}
