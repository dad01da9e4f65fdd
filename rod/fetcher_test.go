//go:build integration

package rod_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/docmirror"
	"github.com/fwojciec/docmirror/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, body string) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func newFetcher(t *testing.T, opts ...rod.Option) *rod.Fetcher {
	t.Helper()

	f, err := rod.NewFetcher(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("returns HTML after scripts ran", func(t *testing.T) {
		t.Parallel()

		url := serve(t, `<!DOCTYPE html><html><body>
<div id="content">Loading...</div>
<script>document.getElementById('content').textContent = 'Rendered by script';</script>
</body></html>`)

		html, err := newFetcher(t).Fetch(context.Background(), url)

		require.NoError(t, err)
		assert.Contains(t, html, "Rendered by script")
		assert.NotContains(t, html, "Loading...")
	})

	t.Run("inlines open shadow roots", func(t *testing.T) {
		t.Parallel()

		url := serve(t, `<!DOCTYPE html><html><body>
<side-nav></side-nav>
<script>
customElements.define('side-nav', class extends HTMLElement {
  constructor() {
    super();
    this.attachShadow({mode: 'open'}).innerHTML = '<a href="/guide" data-shadow="1">Guide</a>';
  }
});
</script>
</body></html>`)

		html, err := newFetcher(t).Fetch(context.Background(), url)

		require.NoError(t, err)
		assert.Greater(t, strings.Count(html, `data-shadow="1"`), 1)
	})

	t.Run("returns context error when canceled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newFetcher(t).Fetch(ctx, "http://127.0.0.1:1")

		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("times out on slow pages", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(500 * time.Millisecond)
			_, _ = w.Write([]byte(`<html><body>late</body></html>`))
		}))
		t.Cleanup(srv.Close)

		_, err := newFetcher(t, rod.WithFetchTimeout(100*time.Millisecond)).Fetch(context.Background(), srv.URL)

		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("replaces the browser after max pages", func(t *testing.T) {
		t.Parallel()

		url := serve(t, `<html><body>ok</body></html>`)
		f := newFetcher(t, rod.WithMaxPages(2))
		first := f.LauncherPID()

		for range 3 {
			_, err := f.Fetch(context.Background(), url)
			require.NoError(t, err)
		}

		assert.NotEqual(t, first, f.LauncherPID())
	})
}

func TestFetcher_Close(t *testing.T) {
	t.Parallel()

	f, err := rod.NewFetcher()
	require.NoError(t, err)

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	assert.Zero(t, f.LauncherPID())

	_, err = f.Fetch(context.Background(), "http://example.com")
	assert.Equal(t, docmirror.EINVALID, docmirror.ErrorCode(err))
}
