package docmirror

// Converter converts HTML to Markdown.
type Converter interface {
	// Convert transforms clean HTML (e.g., from an Extractor) into Markdown.
	// Relative links are resolved against pageURL when it is not empty.
	Convert(html string, pageURL string) (string, error)
}

// Cleaner strips non-content markup (scripts, styles, navigation chrome)
// from HTML before conversion.
type Cleaner interface {
	Clean(html string) (string, error)
}
