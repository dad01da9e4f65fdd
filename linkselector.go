package docmirror

// LinkPriority represents crawl priority (higher = more important).
type LinkPriority int

// Link priority levels for crawl ordering.
const (
	PriorityIgnore     LinkPriority = 0
	PriorityFallback   LinkPriority = 10
	PriorityFooter     LinkPriority = 20
	PriorityContent    LinkPriority = 50
	PriorityNavigation LinkPriority = 100
	PriorityTOC        LinkPriority = 110
)

// DiscoveredLink is a URL found on a page, with the link depth from the
// source's base URL and a priority derived from where on the page it sat.
type DiscoveredLink struct {
	URL      string
	Depth    int
	Priority LinkPriority
	Text     string
	Source   string // "nav", "sidebar", "content", "footer", "sitemap"
}

// Framework identifies a documentation framework.
type Framework string

// Recognized documentation frameworks.
const (
	FrameworkUnknown    Framework = ""
	FrameworkDocusaurus Framework = "docusaurus"
	FrameworkMkDocs     Framework = "mkdocs"
	FrameworkSphinx     Framework = "sphinx"
	FrameworkVuePress   Framework = "vuepress"
	FrameworkVitePress  Framework = "vitepress"
	FrameworkGitBook    Framework = "gitbook"
	FrameworkNextra     Framework = "nextra"
)

// LinkSelector extracts prioritized links from HTML.
type LinkSelector interface {
	// ExtractLinks parses HTML and returns discovered links with priority.
	// The baseURL is used to resolve relative URLs.
	ExtractLinks(html string, baseURL string) ([]DiscoveredLink, error)

	// Name returns the selector's identifier (e.g., "docusaurus", "generic").
	Name() string
}

// FrameworkDetector identifies documentation frameworks from HTML.
type FrameworkDetector interface {
	// Detect returns FrameworkUnknown if the framework cannot be determined.
	Detect(html string) Framework
}

// LinkSelectorRegistry manages framework-specific selectors.
type LinkSelectorRegistry interface {
	// Get returns the selector for a specific framework, or nil.
	Get(framework Framework) LinkSelector

	// GetForHTML detects the framework from HTML and returns the appropriate
	// selector, falling back to a generic selector.
	GetForHTML(html string) LinkSelector

	// Register adds a selector for a framework.
	Register(framework Framework, selector LinkSelector)

	// List returns all registered frameworks.
	List() []Framework
}
