// Package fs stores versioned document snapshots as markdown files with
// YAML frontmatter.
package fs

import (
	"net/url"
	"path"
	"strings"
)

// URLToPath converts a documentation URL to a relative file path.
// Example: https://example.com/docs/api/users → docs/api/users.md
// Dot segments are resolved so the result never escapes its directory.
func URLToPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	p := u.Path
	dir := p == "" || strings.HasSuffix(p, "/")
	p = strings.TrimPrefix(path.Clean("/"+p), "/")

	switch {
	case p == "":
		return "index.md", nil
	case dir:
		return p + "/index.md", nil
	}
	return p + ".md", nil
}
