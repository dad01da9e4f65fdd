package crawl

import (
	"container/heap"
	"sync"

	"github.com/fwojciec/docmirror"
	"github.com/fwojciec/docmirror/bloom"
)

var _ docmirror.URLFrontier = (*Frontier)(nil)

// Frontier is an in-memory crawl queue ordered by depth and then priority,
// deduplicated by canonical URL through a Bloom filter.
// It is safe for concurrent use.
type Frontier struct {
	mu    sync.Mutex
	seen  *bloom.Filter
	queue *linkHeap
	seq   int
}

// NewFrontier creates a Frontier sized for n expected URLs with the given
// false positive rate for deduplication.
func NewFrontier(n uint, fpRate float64) *Frontier {
	h := &linkHeap{}
	heap.Init(h)
	return &Frontier{
		seen:  bloom.NewFilter(n, fpRate),
		queue: h,
	}
}

// Push adds a link to the frontier under its canonical URL.
// Returns false if the URL was already seen or cannot be canonicalized.
func (f *Frontier) Push(link docmirror.DiscoveredLink) bool {
	canonical, err := docmirror.CanonicalURL(link.URL)
	if err != nil {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.seen.Mark(canonical) {
		return false
	}
	link.URL = canonical
	heap.Push(f.queue, queuedLink{link: link, seq: f.seq})
	f.seq++
	return true
}

// Pop returns the shallowest link, highest priority first within a depth
// and in insertion order among equals.
func (f *Frontier) Pop() (docmirror.DiscoveredLink, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.queue.Len() == 0 {
		return docmirror.DiscoveredLink{}, false
	}
	q, _ := heap.Pop(f.queue).(queuedLink)
	return q.link, true
}

// Len returns the number of queued links.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queue.Len()
}

// Seen reports whether the URL was queued at some point.
func (f *Frontier) Seen(rawURL string) bool {
	canonical, err := docmirror.CanonicalURL(rawURL)
	if err != nil {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen.Contains(canonical)
}

type queuedLink struct {
	link docmirror.DiscoveredLink
	seq  int
}

type linkHeap []queuedLink

func (h linkHeap) Len() int { return len(h) }

func (h linkHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.link.Depth != b.link.Depth {
		return a.link.Depth < b.link.Depth
	}
	if a.link.Priority != b.link.Priority {
		return a.link.Priority > b.link.Priority
	}
	return a.seq < b.seq
}

func (h linkHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *linkHeap) Push(x any) {
	q, _ := x.(queuedLink)
	*h = append(*h, q)
}

func (h *linkHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}
