package goldmark_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/fwojciec/docmirror"
	"github.com/fwojciec/docmirror/goldmark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunker_Split(t *testing.T) {
	t.Parallel()

	t.Run("splits on headings and records heading paths", func(t *testing.T) {
		t.Parallel()

		md := "# Install\n\nIntro.\n\n## Linux\n\nUse apt.\n\n## macOS\n\nUse brew.\n"

		passages, err := goldmark.NewChunker(1000, 0).Split(md)

		require.NoError(t, err)
		assert.Equal(t, []docmirror.Passage{
			{Heading: "Install", Content: "# Install\n\nIntro."},
			{Heading: "Install > Linux", Content: "## Linux\n\nUse apt."},
			{Heading: "Install > macOS", Content: "## macOS\n\nUse brew."},
		}, passages)
	})

	t.Run("keeps text before the first heading without a heading path", func(t *testing.T) {
		t.Parallel()

		passages, err := goldmark.NewChunker(1000, 0).Split("Preface.\n\n# Guide\n\nBody.\n")

		require.NoError(t, err)
		require.Len(t, passages, 2)
		assert.Equal(t, docmirror.Passage{Content: "Preface."}, passages[0])
		assert.Equal(t, "Guide", passages[1].Heading)
	})

	t.Run("ignores headings inside fenced code", func(t *testing.T) {
		t.Parallel()

		md := "# Setup\n\n```sh\n# install deps\n\nmake\n```\n"

		passages, err := goldmark.NewChunker(1000, 0).Split(md)

		require.NoError(t, err)
		require.Len(t, passages, 1)
		assert.Equal(t, "Setup", passages[0].Heading)
		assert.Contains(t, passages[0].Content, "# install deps\n\nmake")
	})

	t.Run("skips sections with only a heading", func(t *testing.T) {
		t.Parallel()

		passages, err := goldmark.NewChunker(1000, 0).Split("# API\n\n## Client\n\nCreate a client.\n")

		require.NoError(t, err)
		require.Len(t, passages, 1)
		assert.Equal(t, "API > Client", passages[0].Heading)
	})

	t.Run("never exceeds the maximum size", func(t *testing.T) {
		t.Parallel()

		var sb strings.Builder
		sb.WriteString("# Reference\n\n")
		for range 30 {
			sb.WriteString("Each paragraph describes one option in some detail.\n\n")
		}
		sb.WriteString(strings.Repeat("x", 450) + "\n")

		passages, err := goldmark.NewChunker(200, 40).Split(sb.String())

		require.NoError(t, err)
		require.Greater(t, len(passages), 5)
		for _, p := range passages {
			assert.LessOrEqual(t, utf8.RuneCountInString(p.Content), 200)
			assert.NotEmpty(t, strings.TrimSpace(p.Content))
		}
	})

	t.Run("hard splits an oversized block at word boundaries", func(t *testing.T) {
		t.Parallel()

		block := strings.TrimSpace(strings.Repeat("wörd ", 60))

		passages, err := goldmark.NewChunker(100, 0).Split(block)

		require.NoError(t, err)
		require.Len(t, passages, 3)
		var words int
		for _, p := range passages {
			assert.LessOrEqual(t, utf8.RuneCountInString(p.Content), 100)
			words += len(strings.Fields(p.Content))
		}
		assert.Equal(t, 60, words)
	})

	t.Run("carries the tail of the previous passage into the next", func(t *testing.T) {
		t.Parallel()

		md := "The quick brown fox jumps over the lazy dog.\n\nSecond paragraph is here.\n"

		passages, err := goldmark.NewChunker(60, 15).Split(md)

		require.NoError(t, err)
		require.Len(t, passages, 2)
		assert.Equal(t, "The quick brown fox jumps over the lazy dog.", passages[0].Content)
		assert.Equal(t, "the lazy dog.\n\nSecond paragraph is here.", passages[1].Content)
	})

	t.Run("returns nothing for empty input", func(t *testing.T) {
		t.Parallel()

		passages, err := goldmark.NewChunker(100, 10).Split("  \n\n ")

		require.NoError(t, err)
		assert.Empty(t, passages)
	})
}

func TestNewChunker(t *testing.T) {
	t.Parallel()

	t.Run("falls back to default size", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, goldmark.DefaultMaxSize, goldmark.NewChunker(0, 0).MaxSize())
	})
}
