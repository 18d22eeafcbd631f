package release

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// OctetStream is the media type requested from and served for releases.
const OctetStream = "application/octet-stream"

// Source yields the bytes of a release bundle.
type Source interface {
	Bundle(ctx context.Context) ([]byte, error)
}

// Fetcher downloads a release bundle with a single GET. It never retries.
type Fetcher struct {
	url    string
	client *resty.Client
	logger *zap.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithLogger sets the fetcher's logger.
func WithLogger(logger *zap.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = logger }
}

// WithTimeout bounds each fetch.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.client.SetTimeout(d) }
}

// NewFetcher creates a fetcher for url.
func NewFetcher(url string, opts ...FetcherOption) *Fetcher {
	// Pooled transport from go-retryablehttp; retries stay disabled at
	// both layers.
	pooled := retryablehttp.NewClient()
	pooled.RetryMax = 0
	pooled.Logger = nil

	client := resty.New().
		SetTimeout(60*time.Second).
		SetRetryCount(0).
		SetHeader("Accept", OctetStream).
		SetHeader("User-Agent", "ncube-web/1.0")
	client.SetTransport(pooled.HTTPClient.Transport)

	f := &Fetcher{url: url, client: client, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// URL returns the address the fetcher downloads from.
func (f *Fetcher) URL() string { return f.url }

// Fetch downloads the bundle. Any failure is a *NetworkError.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()
	resp, err := f.client.R().SetContext(ctx).Get(f.url)
	if err != nil {
		f.logger.Warn("release fetch failed", zap.String("url", f.url), zap.Error(err))
		return nil, &NetworkError{URL: f.url, Err: err}
	}

	if !resp.IsSuccess() {
		f.logger.Warn("release fetch rejected",
			zap.String("url", f.url),
			zap.Int("status", resp.StatusCode()))
		return nil, &NetworkError{
			URL:        f.url,
			StatusCode: resp.StatusCode(),
			Err:        errors.New(http.StatusText(resp.StatusCode())),
		}
	}

	body := resp.Body()
	if declared := resp.Header().Get("Content-Length"); declared != "" {
		if n, err := strconv.Atoi(declared); err == nil && len(body) < n {
			return nil, &NetworkError{
				URL: f.url,
				Err: fmt.Errorf("short body: got %d of %d bytes", len(body), n),
			}
		}
	}

	f.logger.Debug("release fetched",
		zap.String("url", f.url),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)))
	return body, nil
}

// Bundle implements Source.
func (f *Fetcher) Bundle(ctx context.Context) ([]byte, error) {
	return f.Fetch(ctx)
}
