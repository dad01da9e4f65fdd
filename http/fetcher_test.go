package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fwojciec/docmirror"
	dmhttp "github.com/fwojciec/docmirror/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("returns HTML body from server", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><body>Hello World</body></html>"))
		}))
		defer server.Close()

		fetcher := dmhttp.NewFetcher()
		defer fetcher.Close()

		html, err := fetcher.Fetch(context.Background(), server.URL)

		require.NoError(t, err)
		assert.Equal(t, "<html><body>Hello World</body></html>", html)
	})

	t.Run("sends configured user agent", func(t *testing.T) {
		t.Parallel()

		got := make(chan string, 1)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got <- r.UserAgent()
			w.Header().Set("Content-Type", "text/html")
		}))
		defer server.Close()

		_, err := dmhttp.NewFetcher(dmhttp.WithUserAgent("test-agent")).Fetch(context.Background(), server.URL)

		require.NoError(t, err)
		assert.Equal(t, "test-agent", <-got)
	})

	t.Run("truncates body at max size", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>0123456789</html>"))
		}))
		defer server.Close()

		html, err := dmhttp.NewFetcher(dmhttp.WithMaxBodySize(6)).Fetch(context.Background(), server.URL)

		require.NoError(t, err)
		assert.Equal(t, "<html>", html)
	})

	t.Run("rejects client errors without retry hint", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer server.Close()

		_, err := dmhttp.NewFetcher().Fetch(context.Background(), server.URL)

		assert.Equal(t, docmirror.EREJECTED, docmirror.ErrorCode(err))
		assert.Contains(t, docmirror.ErrorMessage(err), "404")
		assert.False(t, docmirror.IsRetryable(err))
	})

	t.Run("reports server errors as unavailable", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := dmhttp.NewFetcher().Fetch(context.Background(), server.URL)

		assert.Equal(t, docmirror.EUNAVAILABLE, docmirror.ErrorCode(err))
		assert.True(t, docmirror.IsRetryable(err))
	})

	t.Run("reports rate limiting as unavailable", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		_, err := dmhttp.NewFetcher().Fetch(context.Background(), server.URL)

		assert.Equal(t, docmirror.EUNAVAILABLE, docmirror.ErrorCode(err))
	})

	t.Run("rejects non-HTML content", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.4"))
		}))
		defer server.Close()

		_, err := dmhttp.NewFetcher().Fetch(context.Background(), server.URL)

		assert.Equal(t, docmirror.EREJECTED, docmirror.ErrorCode(err))
	})

	t.Run("reports timeout as unavailable", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			_, _ = w.Write([]byte("response"))
		}))
		defer server.Close()

		_, err := dmhttp.NewFetcher(dmhttp.WithTimeout(10*time.Millisecond)).Fetch(context.Background(), server.URL)

		assert.Equal(t, docmirror.EUNAVAILABLE, docmirror.ErrorCode(err))
	})

	t.Run("returns context error when canceled", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("response"))
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := dmhttp.NewFetcher().Fetch(ctx, server.URL)

		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("reports unknown host as unavailable", func(t *testing.T) {
		t.Parallel()

		fetcher := dmhttp.NewFetcher(dmhttp.WithTimeout(100 * time.Millisecond))

		_, err := fetcher.Fetch(context.Background(), "http://non-existent-host.invalid/page")

		assert.Equal(t, docmirror.EUNAVAILABLE, docmirror.ErrorCode(err))
	})
}
