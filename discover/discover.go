// Package discover turns configured source candidates into validated,
// deduplicated and prioritized sources.
package discover

import (
	"cmp"
	"slices"
	"strings"

	"github.com/fwojciec/docmirror"
	"github.com/google/uuid"
)

// DefaultPriority is assigned to candidates with neither a priority hint
// nor a known category.
const DefaultPriority = 10

// Rejection reasons.
const (
	ReasonDuplicate = "duplicate"
	ReasonInvalid   = "invalid"
)

// namespace scopes source IDs derived from source names.
var namespace = uuid.MustParse("5f0b6b9e-8c1a-4e55-9a57-0d3c2f7d1e21")

// SourceID returns the stable ID of the source called name.
func SourceID(name string) string {
	return uuid.NewSHA1(namespace, []byte(name)).String()
}

// Rejection explains why a candidate did not become a source.
type Rejection struct {
	Candidate docmirror.SourceCandidate
	Reason    string
	Err       error
}

// Discoverer resolves source candidates.
type Discoverer struct {
	// Priorities maps categories to priority tiers.
	Priorities map[string]int

	// DefaultPriority applies when neither the candidate nor its category
	// sets one. Zero means DefaultPriority.
	DefaultPriority int
}

// Resolve validates and deduplicates candidates. The first candidate for a
// canonical URL or name wins; later ones are rejected as duplicates.
// Sources are ordered by priority descending, then name.
func (d *Discoverer) Resolve(candidates []docmirror.SourceCandidate) ([]*docmirror.Source, []Rejection) {
	var (
		sources    []*docmirror.Source
		rejections []Rejection
	)
	seenURL := make(map[string]bool)
	seenName := make(map[string]bool)

	for _, c := range candidates {
		src, err := d.source(c)
		if err != nil {
			rejections = append(rejections, Rejection{Candidate: c, Reason: ReasonInvalid, Err: err})
			continue
		}
		if seenURL[src.BaseURL] {
			rejections = append(rejections, Rejection{
				Candidate: c,
				Reason:    ReasonDuplicate,
				Err:       docmirror.Errorf(docmirror.ECONFLICT, "base URL %s already configured", src.BaseURL),
			})
			continue
		}
		if seenName[src.Name] {
			rejections = append(rejections, Rejection{
				Candidate: c,
				Reason:    ReasonDuplicate,
				Err:       docmirror.Errorf(docmirror.ECONFLICT, "source name %q already configured", src.Name),
			})
			continue
		}
		seenURL[src.BaseURL] = true
		seenName[src.Name] = true
		sources = append(sources, src)
	}

	slices.SortStableFunc(sources, func(a, b *docmirror.Source) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return sources, rejections
}

func (d *Discoverer) source(c docmirror.SourceCandidate) (*docmirror.Source, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return nil, docmirror.Errorf(docmirror.EINVALID, "source name required")
	}
	baseURL, err := docmirror.CanonicalURL(c.URL)
	if err != nil {
		return nil, err
	}
	s := &docmirror.Source{
		ID:       SourceID(name),
		Name:     name,
		BaseURL:  baseURL,
		Category: c.Category,
		Priority: d.priority(c),
		Policy:   c.Policy.WithDefaults(),
		Schema:   c.Schema,
		Render:   c.Render,
		Status:   docmirror.SourceDiscovered,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (d *Discoverer) priority(c docmirror.SourceCandidate) int {
	if c.Priority > 0 {
		return c.Priority
	}
	if p, ok := d.Priorities[c.Category]; ok {
		return p
	}
	if d.DefaultPriority > 0 {
		return d.DefaultPriority
	}
	return DefaultPriority
}
