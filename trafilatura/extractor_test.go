package trafilatura_test

import (
	"testing"

	"github.com/fwojciec/docmirror"
	"github.com/fwojciec/docmirror/trafilatura"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const docPage = `<!DOCTYPE html>
<html>
<head>
<title>Configuration - Widget Docs</title>
<meta property="og:title" content="Configuration">
</head>
<body>
<nav class="main-nav"><a href="/">Home</a><a href="/docs">Docs</a><a href="/blog">Blog</a></nav>
<article>
<h1>Configuration</h1>
<p>Widget reads its configuration from a TOML file in the working directory. Every key has a default, so an empty file is a valid configuration.</p>
<h2>Listening address</h2>
<p>The server listens on port 8080 unless the listen key names another address. Use an explicit host to bind to a single interface.</p>
<pre><code>listen = "127.0.0.1:9090"</code></pre>
<p>Restart the server after changing the file. Configuration is read once at startup and never reloaded while running.</p>
</article>
<footer>Copyright 2026 Widget Corp. All rights reserved.</footer>
</body>
</html>`

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()

	t.Run("extracts title and article body", func(t *testing.T) {
		t.Parallel()

		res, err := trafilatura.NewExtractor().Extract(docPage)

		require.NoError(t, err)
		assert.Contains(t, res.Title, "Configuration")
		assert.Contains(t, res.ContentHTML, "reads its configuration from a TOML file")
		assert.Contains(t, res.ContentHTML, "127.0.0.1:9090")
	})

	t.Run("drops navigation and footer", func(t *testing.T) {
		t.Parallel()

		res, err := trafilatura.NewExtractor().Extract(docPage)

		require.NoError(t, err)
		assert.NotContains(t, res.ContentHTML, "main-nav")
		assert.NotContains(t, res.ContentHTML, "All rights reserved")
	})

	t.Run("precision mode still keeps the article", func(t *testing.T) {
		t.Parallel()

		res, err := (&trafilatura.Extractor{Precision: true}).Extract(docPage)

		require.NoError(t, err)
		assert.Contains(t, res.ContentHTML, "Restart the server")
	})

	t.Run("rejects empty input as invalid", func(t *testing.T) {
		t.Parallel()

		_, err := trafilatura.NewExtractor().Extract("  ")

		assert.Equal(t, docmirror.EINVALID, docmirror.ErrorCode(err))
	})
}
