package crawl

import (
	"context"
	"sync"
	"time"

	"github.com/fwojciec/docmirror"
)

// drainTimeout bounds how long the coordinator waits for in-flight workers
// after it stops dispatching.
const drainTimeout = 5 * time.Second

// walkResult is the outcome of processing one link.
type walkResult struct {
	link     docmirror.DiscoveredLink
	page     *docmirror.Page
	links    []docmirror.DiscoveredLink
	attempts int
	stage    docmirror.Stage
	err      error
}

// walkProcessor fetches and extracts a single link. It runs on a worker
// goroutine.
type walkProcessor func(ctx context.Context, link docmirror.DiscoveredLink) walkResult

// walkHandler consumes a result and may push new links onto the frontier.
// It runs on the coordinator goroutine only, so it needs no locking.
type walkHandler func(res *walkResult)

// walkFrontier drains frontier through a pool of concurrency workers,
// dispatching at most limit links. Cancellation is checked before every
// dispatch; links already dispatched are allowed to finish.
// It returns the number of links dispatched.
func walkFrontier(
	ctx context.Context,
	frontier *Frontier,
	concurrency int,
	limit int,
	process walkProcessor,
	handle walkHandler,
) int {
	if concurrency <= 0 {
		concurrency = docmirror.DefaultConcurrency
	}

	workCh := make(chan docmirror.DiscoveredLink, concurrency)
	resultCh := make(chan walkResult)

	var wg sync.WaitGroup
	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for link := range workCh {
				res := process(ctx, link)
				select {
				case resultCh <- res:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	dispatched := 0
	pending := 0
	next := func() *docmirror.DiscoveredLink {
		if dispatched >= limit {
			return nil
		}
		if link, ok := frontier.Pop(); ok {
			return &link
		}
		return nil
	}
	nextLink := next()

loop:
	for nextLink != nil || pending > 0 {
		if ctx.Err() != nil {
			break
		}

		if nextLink != nil {
			select {
			case <-ctx.Done():
				break loop
			case workCh <- *nextLink:
				dispatched++
				pending++
				nextLink = nil
			case res := <-resultCh:
				pending--
				handle(&res)
			}
		} else {
			select {
			case <-ctx.Done():
				break loop
			case res, ok := <-resultCh:
				if !ok {
					break loop
				}
				pending--
				handle(&res)
			}
		}

		if nextLink == nil {
			nextLink = next()
		}
	}

	close(workCh)

	timeout := time.After(drainTimeout)
	for {
		select {
		case res, ok := <-resultCh:
			if !ok {
				return dispatched
			}
			handle(&res)
		case <-timeout:
			return dispatched
		}
	}
}
