// Package bloom provides probabilistic URL membership for crawl frontiers.
package bloom

import "github.com/bits-and-blooms/bloom/v3"

// Filter records URLs a crawl has already queued. False positives are
// possible and cause a URL to be skipped; false negatives are not.
type Filter struct {
	f        *bloom.BloomFilter
	capacity uint
}

// NewFilter creates a filter sized for n expected URLs at the given false
// positive rate.
func NewFilter(n uint, fpRate float64) *Filter {
	return &Filter{
		f:        bloom.NewWithEstimates(n, fpRate),
		capacity: n,
	}
}

// Mark records url and reports whether it was probably recorded before.
func (f *Filter) Mark(url string) bool {
	return f.f.TestAndAddString(url)
}

// Contains reports whether url was probably recorded.
func (f *Filter) Contains(url string) bool {
	return f.f.TestString(url)
}

// Count returns the approximate number of recorded URLs.
func (f *Filter) Count() uint {
	return uint(f.f.ApproximatedSize())
}

// Saturated reports whether more URLs were recorded than the filter was
// sized for, after which the false positive rate climbs quickly.
func (f *Filter) Saturated() bool {
	return f.Count() > f.capacity
}
