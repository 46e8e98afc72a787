package page

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	giscoerrors "gisco/internal/errors"
	"gisco/internal/logging"
)

func TestFetcherCachesResults(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`<html><head><title>Cached</title></head></html>`))
	}))
	defer srv.Close()

	fetcher, err := NewFetcher(logging.Nop())
	require.NoError(t, err)

	first, err := fetcher.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	second, err := fetcher.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)

	assert.Equal(t, "Cached", first.Title)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load())

	fetcher.Forget(srv.URL + "/page")
	_, err = fetcher.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetcherRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`<html><head><title>Recovered</title></head></html>`))
	}))
	defer srv.Close()

	fetcher, err := NewFetcher(logging.Nop())
	require.NoError(t, err)
	fetcher.retry = giscoerrors.RetryConfig{MaxAttempts: 2, BaseDelay: 1}

	info, err := fetcher.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Recovered", info.Title)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetcherDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	fetcher, err := NewFetcher(logging.Nop())
	require.NoError(t, err)
	fetcher.retry = giscoerrors.RetryConfig{MaxAttempts: 3, BaseDelay: 1}

	_, err = fetcher.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, giscoerrors.IsPermanent(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetcherUsesPostRedirectAddress(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/posts/new.html", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/posts/new.html", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Moved</title></head></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	fetcher, err := NewFetcher(logging.Nop())
	require.NoError(t, err)

	info, err := fetcher.Fetch(context.Background(), srv.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, "/posts/new.html", info.Pathname)
	assert.Equal(t, srv.URL+"/posts/new.html", info.URL)
}
