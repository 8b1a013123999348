// Package download fetches source data into the local cache directory.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	pb "gopkg.in/cheggaaa/pb.v1"

	"github.com/routrace/mapgen/internal/logger"
)

// ErrNotFound is returned when the server answers 404
var ErrNotFound = errors.New("remote file not found")

// Fetcher downloads files into a cache directory, reusing cached copies
type Fetcher struct {
	client     *http.Client
	cacheDir   string
	maxRetries int
	retryDelay time.Duration

	// Progress shows a progress bar on stderr while downloading
	Progress bool
}

// NewFetcher creates a fetcher writing to cacheDir
func NewFetcher(cacheDir string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			// the Japan extract is large, only bound connection setup
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: 60 * time.Second,
			},
		},
		cacheDir:   cacheDir,
		maxRetries: 3,
		retryDelay: 5 * time.Second,
	}
}

// CachePath returns where a file named name is cached
func (f *Fetcher) CachePath(name string) string {
	return filepath.Join(f.cacheDir, name)
}

// Fetch downloads url to the cache as name and returns its path. A cached
// copy is reused unless force is set.
func (f *Fetcher) Fetch(ctx context.Context, url, name string, force bool) (string, error) {
	log := logger.Named("download")
	cacheFile := f.CachePath(name)

	if err := os.MkdirAll(f.cacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	if !force {
		if info, err := os.Stat(cacheFile); err == nil {
			log.Info("Using cached file",
				zap.String("path", cacheFile),
				zap.String("size", humanize.IBytes(uint64(info.Size()))))
			return cacheFile, nil
		}
	}

	log.Info("Downloading", zap.String("url", url), zap.String("path", cacheFile))
	start := time.Now()

	resp, err := f.fetchWithRetry(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if f.Progress && resp.ContentLength > 0 {
		bar := pb.New64(resp.ContentLength).SetUnits(pb.U_BYTES)
		bar.Output = os.Stderr
		bar.Start()
		defer bar.Finish()
		body = bar.NewProxyReader(resp.Body)
	}

	// write to a temporary file so an interrupted download never looks cached
	tmpFile := cacheFile + ".tmp"
	out, err := os.Create(tmpFile)
	if err != nil {
		return "", fmt.Errorf("failed to create cache file: %w", err)
	}

	n, err := io.Copy(out, body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpFile)
		return "", fmt.Errorf("failed to write cache file: %w", err)
	}

	if err := os.Rename(tmpFile, cacheFile); err != nil {
		os.Remove(tmpFile)
		return "", fmt.Errorf("failed to rename cache file: %w", err)
	}

	log.Info("Download complete",
		zap.String("path", cacheFile),
		zap.String("size", humanize.IBytes(uint64(n))),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)))
	return cacheFile, nil
}

// Open returns a reader over a local path or, for http(s) URLs, the cached
// download of it
func (f *Fetcher) Open(ctx context.Context, source, name string) (io.ReadCloser, error) {
	if !isURL(source) {
		file, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", source, err)
		}
		return file, nil
	}
	path, err := f.Fetch(ctx, source, name, false)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// fetchWithRetry performs an HTTP GET with retries on transport and server
// errors
func (f *Fetcher) fetchWithRetry(ctx context.Context, url string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.retryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "mapgen/1.0")

		resp, err := f.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
