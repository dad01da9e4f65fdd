// Package rod renders JavaScript-heavy documentation pages in headless
// Chrome.
package rod

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fwojciec/docmirror"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Defaults for NewFetcher.
const (
	DefaultFetchTimeout = 30 * time.Second
	DefaultMaxPages     = 75
)

var _ docmirror.Fetcher = (*Fetcher)(nil)

// serializeJS returns the document HTML with open shadow roots inlined as
// declarative shadow DOM, so links inside web components survive.
const serializeJS = `() => {
	const roots = [];
	const walk = (node) => {
		for (const el of node.querySelectorAll('*')) {
			if (el.shadowRoot) {
				roots.push(el.shadowRoot);
				walk(el.shadowRoot);
			}
		}
	};
	walk(document);
	const html = document.documentElement;
	if (typeof html.getHTML === 'function') {
		return '<!DOCTYPE html>' + html.getHTML({serializableShadowRoots: true, shadowRoots: roots});
	}
	return '<!DOCTYPE html>' + html.outerHTML;
}`

// Fetcher renders pages in a headless browser. The browser is recycled
// every MaxPages pages because Chrome's memory use only grows.
//
// Fetcher is safe for concurrent use.
type Fetcher struct {
	timeout  time.Duration
	maxPages int

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	pages    int
	closed   bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithFetchTimeout bounds a single page render.
func WithFetchTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

// WithMaxPages sets how many pages a browser renders before it is replaced.
func WithMaxPages(n int) Option {
	return func(f *Fetcher) { f.maxPages = n }
}

// NewFetcher launches a headless browser. Close must be called when the
// Fetcher is no longer needed. Returns EUNAVAILABLE if Chrome cannot be
// found or started.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		timeout:  DefaultFetchTimeout,
		maxPages: DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(f)
	}
	browser, l, err := launch()
	if err != nil {
		return nil, err
	}
	f.browser, f.launcher = browser, l
	return f, nil
}

// Fetch navigates to url, waits for the page to load and returns the
// rendered HTML.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	browser, err := f.acquire()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", docmirror.Errorf(docmirror.EUNAVAILABLE, "open page: %v", err)
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := page.Navigate(url); err != nil {
		return "", classify(ctx, url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", classify(ctx, url, err)
	}
	res, err := page.Eval(serializeJS)
	if err != nil {
		return "", classify(ctx, url, err)
	}
	html := res.Value.Str()
	if html == "" {
		return "", docmirror.Errorf(docmirror.EREJECTED, "empty document at %s", url)
	}
	return html, nil
}

// acquire returns the current browser, replacing it first when it has
// rendered maxPages pages. A failed relaunch keeps the old browser.
func (f *Fetcher) acquire() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, docmirror.Errorf(docmirror.EINVALID, "fetcher is closed")
	}
	if f.maxPages > 0 && f.pages >= f.maxPages {
		if browser, l, err := launch(); err == nil {
			_ = f.browser.Close()
			f.launcher.Kill()
			f.browser, f.launcher = browser, l
			f.pages = 0
		}
	}
	f.pages++
	return f.browser, nil
}

// Close shuts the browser down. Close is safe to call more than once.
func (f *Fetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	err := f.browser.Close()
	f.launcher.Kill()
	return err
}

// LauncherPID returns the browser process ID, or 0 after Close.
func (f *Fetcher) LauncherPID() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0
	}
	return f.launcher.PID()
}

func launch() (*rod.Browser, *launcher.Launcher, error) {
	l := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Leakless(true).
		Headless(true)

	u, err := l.Launch()
	if err != nil {
		return nil, nil, docmirror.Errorf(docmirror.EUNAVAILABLE, "launch browser: %v", err)
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, nil, docmirror.Errorf(docmirror.EUNAVAILABLE, "connect to browser: %v", err)
	}
	return browser, l, nil
}

// classify keeps context errors intact and reports everything else as a
// transient render failure.
func classify(ctx context.Context, url string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("render %s: %w", url, ctxErr)
	}
	return docmirror.Errorf(docmirror.EUNAVAILABLE, "render %s: %v", url, err)
}
