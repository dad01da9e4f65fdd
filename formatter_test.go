package docmirror_test

import (
	"testing"

	"github.com/fwojciec/docmirror"
	"github.com/stretchr/testify/assert"
)

func TestFormatResults(t *testing.T) {
	t.Parallel()

	t.Run("formats single result with rank, source and score", func(t *testing.T) {
		t.Parallel()

		results := []docmirror.SearchResult{
			{Title: "Install", SourceName: "go", URL: "https://go.dev/doc/install", Snippet: "Download Go.", Score: 0.91},
		}

		got := docmirror.FormatResults(results)

		assert.Equal(t, "1. [go] Install (0.910)\n   https://go.dev/doc/install\n   Download Go.", got)
	})

	t.Run("uses URL when title is empty", func(t *testing.T) {
		t.Parallel()

		results := []docmirror.SearchResult{
			{URL: "https://example.com/docs", SourceName: "ex", Snippet: "text"},
		}

		got := docmirror.FormatResults(results)

		assert.Contains(t, got, "1. [ex] https://example.com/docs")
	})

	t.Run("appends heading path to title", func(t *testing.T) {
		t.Parallel()

		results := []docmirror.SearchResult{
			{Title: "Guide", Heading: "Setup > Linux", SourceName: "ex"},
		}

		got := docmirror.FormatResults(results)

		assert.Contains(t, got, "Guide > Setup > Linux")
	})

	t.Run("separates results with blank line and indents snippets", func(t *testing.T) {
		t.Parallel()

		results := []docmirror.SearchResult{
			{Title: "A", Snippet: "line one\nline two"},
			{Title: "B"},
		}

		got := docmirror.FormatResults(results)

		assert.Contains(t, got, "line one\n   line two")
		assert.Contains(t, got, "\n\n2. B")
	})

	t.Run("skips a heading equal to the title", func(t *testing.T) {
		t.Parallel()

		results := []docmirror.SearchResult{
			{Title: "Channels", Heading: "Channels", SourceName: "ex"},
		}

		got := docmirror.FormatResults(results)

		assert.Contains(t, got, "1. [ex] Channels (0.000)")
	})

	t.Run("returns empty string for no results", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, docmirror.FormatResults(nil))
	})
}
