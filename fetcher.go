package docmirror

import "context"

// Fetcher retrieves HTML from URLs.
//
// Implementations report a non-2xx status or a non-HTML response as
// EREJECTED and transport failures as EUNAVAILABLE, so callers can tell
// permanent failures from ones worth retrying.
type Fetcher interface {
	// Fetch returns the HTML served at url.
	// The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (html string, err error)

	// Close releases resources held by the fetcher.
	Close() error
}
