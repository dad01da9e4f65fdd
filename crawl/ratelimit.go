package crawl

import (
	"context"
	"sync"

	"github.com/fwojciec/docmirror"
	"golang.org/x/time/rate"
)

var _ docmirror.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter rate limits requests per host with one token bucket each,
// so a crawl touching several hosts is only throttled within each host.
type DomainLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
}

// NewDomainLimiter creates a DomainLimiter allowing rps requests per second
// to each host, without bursting. A non-positive rps disables limiting.
func NewDomainLimiter(rps float64) *DomainLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
	}
}

// Wait blocks until a request to domain is allowed.
// Returns an error if the context is canceled first.
func (d *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return d.limiter(domain).Wait(ctx)
}

// Restrict lowers the rate for domain to rps requests per second when that
// is stricter than its current rate. Crawls of several sources on one host
// share the strictest rate any of them asked for. A non-positive rps is
// ignored.
func (d *DomainLimiter) Restrict(domain string, rps float64) {
	if rps <= 0 {
		return
	}
	limit := rate.Limit(rps)
	if l := d.limiter(domain); l.Limit() > limit {
		l.SetLimit(limit)
	}
}

func (d *DomainLimiter) limiter(domain string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.limiters[domain]
	if !ok {
		l = rate.NewLimiter(d.limit, 1)
		d.limiters[domain] = l
	}
	return l
}
