// Package download fetches artifact bytes over HTTP and places them in a
// directory atomically, verifying the content hash when one is known.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"

	"github.com/niterpack/niter/internal/cache"
	"github.com/niterpack/niter/internal/digest"
	"github.com/niterpack/niter/internal/sandbox"
)

var (
	// ErrDownloadFailed covers transport failures and non-200 responses.
	ErrDownloadFailed = errors.New("download failed")
	// ErrHashMismatch means the fetched bytes do not match the claimed hash.
	ErrHashMismatch = errors.New("hash mismatch after download")
	// ErrFilesystem covers create, write, and delete failures.
	ErrFilesystem = errors.New("filesystem error")
)

// HTTPClient abstracts HTTP operations for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Downloader fetches URLs into a directory.
type Downloader struct {
	Client    HTTPClient
	Cache     *cache.Cache  // optional
	MaxSize   int64         // max file size in bytes (0 = no limit)
	Timeout   time.Duration // per attempt (0 = context only)
	Retries   int           // extra attempts on transient failures
	UserAgent string
	Logger    *log.Logger
}

// Result describes a completed download.
type Result struct {
	Filename  string
	Hash      string
	Size      int64
	FromCache bool
}

// Download fetches url and writes it to filename inside dir. When
// expectedHash is non-empty the bytes are verified against it before
// anything is written, and a cached copy is used instead of the network
// if one exists. On error no file is left behind.
func (d *Downloader) Download(ctx context.Context, url string, dir sandbox.Dir, filename, expectedHash string) (*Result, error) {
	expectedHash = digest.Normalize(expectedHash)

	content, fromCache, err := d.cached(expectedHash)
	if err != nil {
		d.logger().Warn("ignoring unreadable cache entry", "file", filename, "err", err)
	}
	if !fromCache {
		content, err = d.fetch(ctx, url)
		if err != nil {
			return nil, err
		}
	}

	hash := digest.Bytes(content)
	if expectedHash != "" && hash != expectedHash {
		return nil, fmt.Errorf("%w: %s: expected %s, got %s", ErrHashMismatch, filename, expectedHash, hash)
	}

	if err := dir.Write(filename, content, 0644); err != nil {
		return nil, fmt.Errorf("%w: writing %s: %v", ErrFilesystem, filename, err)
	}

	if d.Cache != nil && !fromCache {
		if err := d.Cache.Put(hash, content); err != nil {
			d.logger().Warn("could not cache artifact", "file", filename, "err", err)
		}
	}

	return &Result{
		Filename:  filename,
		Hash:      hash,
		Size:      int64(len(content)),
		FromCache: fromCache,
	}, nil
}

func (d *Downloader) cached(hash string) ([]byte, bool, error) {
	if d.Cache == nil || hash == "" {
		return nil, false, nil
	}
	return d.Cache.Get(hash)
}

func (d *Downloader) fetch(ctx context.Context, url string) ([]byte, error) {
	b := backoff.WithContext(
		backoff.WithMaxRetries(newBackOff(), uint64(max(d.Retries, 0))),
		ctx,
	)

	var content []byte
	op := func() error {
		var err error
		content, err = d.fetchOnce(ctx, url)
		return err
	}
	notify := func(err error, wait time.Duration) {
		d.logger().Debug("retrying download", "url", url, "err", err, "wait", wait)
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		if !errors.Is(err, ErrDownloadFailed) {
			err = fmt.Errorf("%w: %v", ErrDownloadFailed, err)
		}
		return nil, err
	}
	return content, nil
}

func (d *Downloader) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: creating request: %v", ErrDownloadFailed, err))
	}
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}

	d.logger().Debug("downloading", "url", url)

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %v", ErrDownloadFailed, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w: HTTP %d from %s", ErrDownloadFailed, resp.StatusCode, url)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	var reader io.Reader = resp.Body
	if d.MaxSize > 0 {
		reader = io.LimitReader(resp.Body, d.MaxSize+1)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrDownloadFailed, err)
	}
	if d.MaxSize > 0 && int64(len(content)) > d.MaxSize {
		return nil, backoff.Permanent(fmt.Errorf("%w: file exceeds max size %d bytes", ErrDownloadFailed, d.MaxSize))
	}
	return content, nil
}

func (d *Downloader) logger() *log.Logger {
	if d.Logger == nil {
		return log.New(io.Discard)
	}
	return d.Logger
}

func newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	return b
}
