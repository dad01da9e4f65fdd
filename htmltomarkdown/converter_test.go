package htmltomarkdown_test

import (
	"testing"

	"github.com/fwojciec/docmirror"
	"github.com/fwojciec/docmirror/htmltomarkdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConverter_Convert(t *testing.T) {
	t.Parallel()

	conv := htmltomarkdown.NewConverter()

	tests := []struct {
		name string
		html string
		want []string
	}{
		{"headings use ATX style", `<h1>Title</h1><h2>Subtitle</h2>`, []string{"# Title", "## Subtitle"}},
		{"lists", `<ul><li>First</li><li>Second</li></ul>`, []string{"- First", "- Second"}},
		{"inline code", `<p>Run <code>go test</code>.</p>`, []string{"`go test`"}},
		{"fenced code with language", `<pre><code class="language-go">fmt.Println("hi")</code></pre>`, []string{"```go", `fmt.Println("hi")`}},
		{"tables", `<table><thead><tr><th>Flag</th><th>Use</th></tr></thead><tbody><tr><td>-v</td><td>verbose</td></tr></tbody></table>`, []string{"| Flag", "| -v"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			md, err := conv.Convert(tt.html, "")

			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, md, want)
			}
		})
	}

	t.Run("resolves relative links against the page host", func(t *testing.T) {
		t.Parallel()

		md, err := conv.Convert(`<p>See <a href="/docs/install">install</a>.</p>`, "https://example.com/docs/intro")

		require.NoError(t, err)
		assert.Contains(t, md, "[install](https://example.com/docs/install)")
	})

	t.Run("keeps relative links without a page URL", func(t *testing.T) {
		t.Parallel()

		md, err := conv.Convert(`<a href="/docs/install">install</a>`, "")

		require.NoError(t, err)
		assert.Contains(t, md, "(/docs/install)")
	})

	t.Run("returns EINVALID for empty input", func(t *testing.T) {
		t.Parallel()

		_, err := conv.Convert("  ", "")

		assert.Equal(t, docmirror.EINVALID, docmirror.ErrorCode(err))
	})

	t.Run("returns EINVALID when nothing converts", func(t *testing.T) {
		t.Parallel()

		_, err := conv.Convert(`<div></div>`, "")

		assert.Equal(t, docmirror.EINVALID, docmirror.ErrorCode(err))
	})
}
