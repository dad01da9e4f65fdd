package docmirror

import (
	"fmt"
	"strings"
)

// FormatResults renders search results for display. Each result shows its
// rank, source, title (or URL when untitled) and score, then the URL and
// snippet. Results are separated by blank lines.
func FormatResults(results []SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	parts := make([]string, 0, len(results))
	for i, r := range results {
		parts = append(parts, fmt.Sprintf("%d. [%s] %s (%.3f)\n   %s\n   %s",
			i+1, r.SourceName, resultTitle(r), r.Score, r.URL, indent(r.Snippet, "   ")))
	}
	return strings.Join(parts, "\n\n")
}

func resultTitle(r SearchResult) string {
	title := r.Title
	if title == "" {
		title = r.URL
	}
	if r.Heading != "" && r.Heading != title {
		title += " > " + r.Heading
	}
	return title
}

func indent(s, prefix string) string {
	return strings.ReplaceAll(s, "\n", "\n"+prefix)
}
