package docmirror

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// SourceStatus tracks where a source is in the update pipeline.
type SourceStatus string

// Source statuses. A source moves Discovered → Fetching → Normalizing →
// Indexing → Indexed on a successful run, or to Failed from any stage.
const (
	SourceDiscovered  SourceStatus = "discovered"
	SourceFetching    SourceStatus = "fetching"
	SourceNormalizing SourceStatus = "normalizing"
	SourceIndexing    SourceStatus = "indexing"
	SourceIndexed     SourceStatus = "indexed"
	SourceFailed      SourceStatus = "failed"
)

// Default crawl policy values.
const (
	DefaultMaxDepth    = 3
	DefaultMaxPages    = 500
	DefaultRateLimit   = 2.0
	DefaultConcurrency = 4
)

// Source is a configured documentation origin. Sources are never deleted,
// only disabled, so run history and snapshots stay attributable.
type Source struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	BaseURL   string       `json:"baseUrl"`
	Category  string       `json:"category"`
	Priority  int          `json:"priority"`
	Policy    CrawlPolicy  `json:"policy"`
	Schema    string       `json:"schema,omitempty"`
	Render    bool         `json:"render"`
	Status    SourceStatus `json:"status"`
	Disabled  bool         `json:"disabled"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Validate returns an error if the source contains invalid fields.
func (s *Source) Validate() error {
	if s.Name == "" {
		return Errorf(EINVALID, "source name required")
	}
	if s.BaseURL == "" {
		return Errorf(EINVALID, "source base URL required")
	}
	if _, err := CanonicalURL(s.BaseURL); err != nil {
		return err
	}
	return s.Policy.Validate()
}

// CrawlPolicy bounds how a source is crawled.
type CrawlPolicy struct {
	MaxDepth    int      `json:"maxDepth" toml:"max_depth"`
	MaxPages    int      `json:"maxPages" toml:"max_pages"`
	Include     []string `json:"include,omitempty" toml:"include"`
	Exclude     []string `json:"exclude,omitempty" toml:"exclude"`
	RateLimit   float64  `json:"rateLimit" toml:"rate_limit"`
	Concurrency int      `json:"concurrency" toml:"concurrency"`
	UseSitemap  bool     `json:"useSitemap" toml:"use_sitemap"`
}

// DefaultCrawlPolicy returns the policy applied to sources that do not
// configure their own limits.
func DefaultCrawlPolicy() CrawlPolicy {
	return CrawlPolicy{
		MaxDepth:    DefaultMaxDepth,
		MaxPages:    DefaultMaxPages,
		RateLimit:   DefaultRateLimit,
		Concurrency: DefaultConcurrency,
	}
}

// WithDefaults returns a copy of p with zero-valued limits replaced by defaults.
func (p CrawlPolicy) WithDefaults() CrawlPolicy {
	d := DefaultCrawlPolicy()
	if p.MaxDepth == 0 {
		p.MaxDepth = d.MaxDepth
	}
	if p.MaxPages == 0 {
		p.MaxPages = d.MaxPages
	}
	if p.RateLimit == 0 {
		p.RateLimit = d.RateLimit
	}
	if p.Concurrency == 0 {
		p.Concurrency = d.Concurrency
	}
	return p
}

// Validate returns an EINVALID error if the policy cannot be applied.
func (p CrawlPolicy) Validate() error {
	if p.MaxDepth < 0 {
		return Errorf(EINVALID, "max depth must not be negative")
	}
	if p.MaxPages < 0 {
		return Errorf(EINVALID, "max pages must not be negative")
	}
	if p.RateLimit < 0 {
		return Errorf(EINVALID, "rate limit must not be negative")
	}
	if p.Concurrency < 0 {
		return Errorf(EINVALID, "concurrency must not be negative")
	}
	_, err := p.Filter()
	return err
}

// Filter compiles the include and exclude patterns into a URLFilter.
// Returns nil when the policy has no patterns.
func (p CrawlPolicy) Filter() (*URLFilter, error) {
	return NewURLFilter(p.Include, p.Exclude)
}

// SourceCandidate is a source as declared in configuration, before it has
// been validated and deduplicated by discovery.
type SourceCandidate struct {
	Name     string      `toml:"name"`
	URL      string      `toml:"url"`
	Category string      `toml:"category"`
	Priority int         `toml:"priority"`
	Schema   string      `toml:"schema"`
	Render   bool        `toml:"render"`
	Policy   CrawlPolicy `toml:"policy"`
}

// SourceService represents a service for managing sources.
type SourceService interface {
	// CreateSource creates a new source.
	// Returns ECONFLICT if the name or canonical base URL is already taken.
	CreateSource(ctx context.Context, source *Source) error

	// FindSourceByID retrieves a source by ID.
	// Returns ENOTFOUND if source does not exist.
	FindSourceByID(ctx context.Context, id string) (*Source, error)

	// FindSources retrieves sources matching the filter.
	FindSources(ctx context.Context, filter SourceFilter) ([]*Source, error)

	// UpdateSource updates an existing source.
	// Returns ENOTFOUND if source does not exist.
	UpdateSource(ctx context.Context, id string, upd SourceUpdate) (*Source, error)
}

// SourceFilter represents a filter for FindSources.
type SourceFilter struct {
	ID       *string `json:"id"`
	Name     *string `json:"name"`
	Disabled *bool   `json:"disabled"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// SourceUpdate represents fields that can be updated on a source.
type SourceUpdate struct {
	Name     *string       `json:"name"`
	BaseURL  *string       `json:"baseUrl"`
	Category *string       `json:"category"`
	Priority *int          `json:"priority"`
	Policy   *CrawlPolicy  `json:"policy"`
	Schema   *string       `json:"schema"`
	Render   *bool         `json:"render"`
	Status   *SourceStatus `json:"status"`
	Disabled *bool         `json:"disabled"`
}

// FindSourceByName returns the source with the given name.
// Returns ENOTFOUND if no source has that name.
func FindSourceByName(ctx context.Context, svc SourceService, name string) (*Source, error) {
	sources, err := svc.FindSources(ctx, SourceFilter{Name: &name, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, Errorf(ENOTFOUND, "source %q not found", name)
	}
	return sources[0], nil
}

// CanonicalURL normalizes a source or page URL so equal documents compare
// equal: scheme and host are lowercased, query and fragment are dropped and
// a trailing slash is trimmed from any path other than the root.
func CanonicalURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", Errorf(EINVALID, "malformed URL %q", raw)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", Errorf(EINVALID, "unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", Errorf(EINVALID, "URL %q has no host", raw)
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return scheme + "://" + strings.ToLower(u.Host) + path, nil
}

// NewURLFilter compiles include and exclude patterns.
// Returns nil, nil when both lists are empty.
func NewURLFilter(include, exclude []string) (*URLFilter, error) {
	if len(include) == 0 && len(exclude) == 0 {
		return nil, nil
	}
	f := &URLFilter{}
	for _, pattern := range include {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, Errorf(EINVALID, "invalid include pattern %q: %v", pattern, err)
		}
		f.Include = append(f.Include, re)
	}
	for _, pattern := range exclude {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, Errorf(EINVALID, "invalid exclude pattern %q: %v", pattern, err)
		}
		f.Exclude = append(f.Exclude, re)
	}
	return f, nil
}
