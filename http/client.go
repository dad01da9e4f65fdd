// Package http fetches documentation over plain HTTP. It provides the page
// Fetcher for static sites and a SitemapService that reads robots.txt and
// sitemap XML.
package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fwojciec/docmirror"
)

// DefaultUserAgent identifies the crawler to documentation hosts.
const DefaultUserAgent = "docmirror/1.0 (+https://github.com/fwojciec/docmirror)"

// get issues a GET request and maps failures onto application error codes:
// transport errors, 429 and 5xx responses are EUNAVAILABLE; any other
// non-2xx status is EREJECTED. The caller closes the body on success.
func get(ctx context.Context, client *http.Client, userAgent, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, docmirror.Errorf(docmirror.EINVALID, "invalid request URL %q", url)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, docmirror.Errorf(docmirror.EUNAVAILABLE, "GET %s: %v", url, err)
	}

	if err := statusError(resp.StatusCode, url); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func statusError(code int, url string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests || code >= 500:
		return docmirror.Errorf(docmirror.EUNAVAILABLE, "HTTP %d for %s", code, url)
	default:
		return docmirror.Errorf(docmirror.EREJECTED, "HTTP %d for %s", code, url)
	}
}

func describe(code int) string {
	return fmt.Sprintf("%d %s", code, http.StatusText(code))
}
