package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/docmirror"
	"github.com/fwojciec/docmirror/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLToPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/docs/api/users", "docs/api/users.md"},
		{"https://example.com/docs/", "docs/index.md"},
		{"https://example.com/", "index.md"},
		{"https://example.com", "index.md"},
		{"https://example.com/docs/api?version=2#x", "docs/api.md"},
		{"https://example.com/a/../../../etc/passwd", "etc/passwd.md"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()

			got, err := fs.URLToPath(tt.url)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newDocument(url, body string) *docmirror.Document {
	return &docmirror.Document{
		ID:          "doc-" + url,
		SourceID:    "src",
		URL:         url,
		Title:       "Install: Go",
		Sections:    docmirror.ExtractSections(body),
		Body:        body,
		ContentHash: "abc123",
		FetchedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func commit(t *testing.T, store *fs.SnapshotStore, version string, docs ...*docmirror.Document) {
	t.Helper()
	ctx := context.Background()

	w, err := store.Begin(ctx, "src", version)
	require.NoError(t, err)
	m := &docmirror.Manifest{SourceID: "src", Version: version}
	for _, d := range docs {
		require.NoError(t, w.Save(ctx, d))
		m.Pages = append(m.Pages, docmirror.ManifestPage{URL: d.URL, DocumentID: d.ID, ContentHash: d.ContentHash})
	}
	require.NoError(t, w.Commit(ctx, m))
}

func TestSnapshotStore(t *testing.T) {
	t.Parallel()

	t.Run("round-trips documents through a committed version", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		store := fs.NewSnapshotStore(t.TempDir())
		doc := newDocument("https://go.dev/doc/install", "# Install\n\n```sh\nmake\n```")

		commit(t, store, "20260301T120000.000Z", doc)

		got, err := store.ReadDocument(ctx, "src", "20260301T120000.000Z", doc.URL)
		require.NoError(t, err)
		assert.Equal(t, doc.ID, got.ID)
		assert.Equal(t, doc.Title, got.Title)
		assert.Equal(t, doc.Body, got.Body)
		assert.Equal(t, doc.Sections, got.Sections)
		assert.Equal(t, doc.ContentHash, got.ContentHash)
		assert.True(t, doc.FetchedAt.Equal(got.FetchedAt))
		assert.Equal(t, []docmirror.CodeBlock{{Language: "sh", Code: "make"}}, got.CodeBlocks)
	})

	t.Run("returns latest manifest", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		store := fs.NewSnapshotStore(t.TempDir())

		commit(t, store, "20260301T120000.000Z", newDocument("https://a.dev/1", "one"))
		commit(t, store, "20260302T120000.000Z", newDocument("https://a.dev/2", "two"))

		m, err := store.Latest(ctx, "src")

		require.NoError(t, err)
		assert.Equal(t, "20260302T120000.000Z", m.Version)
		require.Len(t, m.Pages, 1)
		assert.Equal(t, "https://a.dev/2", m.Pages[0].URL)
	})

	t.Run("hides uncommitted and aborted versions", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		dir := t.TempDir()
		store := fs.NewSnapshotStore(dir)

		pending, err := store.Begin(ctx, "src", "20260301T120000.000Z")
		require.NoError(t, err)
		require.NoError(t, pending.Save(ctx, newDocument("https://a.dev/1", "one")))

		aborted, err := store.Begin(ctx, "src", "20260302T120000.000Z")
		require.NoError(t, err)
		require.NoError(t, aborted.Abort())

		versions, err := store.Versions(ctx, "src")
		require.NoError(t, err)
		assert.Empty(t, versions)

		_, err = store.Latest(ctx, "src")
		assert.Equal(t, docmirror.ENOTFOUND, docmirror.ErrorCode(err))

		_, err = os.Stat(filepath.Join(dir, "src", "20260302T120000.000Z.tmp"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("rejects existing version", func(t *testing.T) {
		t.Parallel()
		store := fs.NewSnapshotStore(t.TempDir())
		commit(t, store, "v1", newDocument("https://a.dev/1", "one"))

		_, err := store.Begin(context.Background(), "src", "v1")

		assert.Equal(t, docmirror.ECONFLICT, docmirror.ErrorCode(err))
	})

	t.Run("returns ENOTFOUND for missing document", func(t *testing.T) {
		t.Parallel()
		store := fs.NewSnapshotStore(t.TempDir())
		commit(t, store, "v1", newDocument("https://a.dev/1", "one"))

		_, err := store.ReadDocument(context.Background(), "src", "v1", "https://a.dev/2")

		assert.Equal(t, docmirror.ENOTFOUND, docmirror.ErrorCode(err))
	})

	t.Run("prunes oldest versions", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		store := fs.NewSnapshotStore(t.TempDir())
		for _, v := range []string{"v1", "v2", "v3"} {
			commit(t, store, v, newDocument("https://a.dev/1", v))
		}

		removed, err := store.Prune(ctx, "src", 2)

		require.NoError(t, err)
		assert.Equal(t, []string{"v1"}, removed)
		versions, err := store.Versions(ctx, "src")
		require.NoError(t, err)
		assert.Equal(t, []string{"v2", "v3"}, versions)
	})

	t.Run("rejects invalid documents", func(t *testing.T) {
		t.Parallel()
		store := fs.NewSnapshotStore(t.TempDir())
		w, err := store.Begin(context.Background(), "src", "v1")
		require.NoError(t, err)

		err = w.Save(context.Background(), &docmirror.Document{SourceID: "src", URL: "https://a.dev/1"})

		assert.Equal(t, docmirror.EINVALID, docmirror.ErrorCode(err))
	})
}
