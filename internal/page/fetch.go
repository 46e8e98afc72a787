package page

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	giscoerrors "gisco/internal/errors"
	"gisco/internal/logging"
)

const (
	fetchTimeout  = 20 * time.Second
	maxBodyBytes  = 2 << 20 // 2 MiB is plenty for a <head>
	maxRedirects  = 5
	fetchCacheLen = 128
	userAgent     = "gisco-page-fetcher/1.0"
)

// Fetcher downloads host pages and extracts their metadata. Results are
// cached per address so repeated resolutions of the same page stay cheap.
type Fetcher struct {
	client *http.Client
	cache  *lru.Cache[string, Info]
	retry  giscoerrors.RetryConfig
	logger logging.Logger
}

// NewFetcher builds a fetcher with an LRU metadata cache.
func NewFetcher(logger logging.Logger) (*Fetcher, error) {
	cache, err := lru.New[string, Info](fetchCacheLen)
	if err != nil {
		return nil, fmt.Errorf("create page cache: %w", err)
	}

	client := &http.Client{
		Timeout: fetchTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	return &Fetcher{
		client: client,
		cache:  cache,
		retry:  giscoerrors.DefaultRetryConfig(),
		logger: logging.OrNop(logger),
	}, nil
}

// Fetch returns the metadata snapshot for pageURL, downloading it when the
// cache has no entry. Transient failures are retried with backoff.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (Info, error) {
	if cached, ok := f.cache.Get(pageURL); ok {
		f.logger.Debug("page cache hit: %s", pageURL)
		return cached, nil
	}

	var info Info
	err := giscoerrors.RetryWithLog(ctx, f.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return &giscoerrors.PermanentError{Err: err, Message: fmt.Sprintf("build request for %s: %v", pageURL, err)}
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "text/html")

		resp, err := f.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", pageURL, err)
		}
		defer func() { _ = resp.Body.Close() }()

		if err := giscoerrors.FromHTTPStatus(resp.StatusCode, "fetch "+pageURL); err != nil {
			return err
		}

		// Extract from the post-redirect address so pathname mapping sees
		// the page's real location.
		finalURL := pageURL
		if resp.Request != nil && resp.Request.URL != nil {
			finalURL = resp.Request.URL.String()
		}

		parsed, err := Extract(finalURL, io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return &giscoerrors.PermanentError{Err: err, Message: err.Error()}
		}
		info = parsed
		return nil
	}, f.logger)
	if err != nil {
		return Info{}, err
	}

	f.cache.Add(pageURL, info)
	return info, nil
}

// Forget drops a cached entry, forcing the next Fetch to re-download.
func (f *Fetcher) Forget(pageURL string) {
	f.cache.Remove(pageURL)
}
