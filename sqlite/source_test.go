package sqlite_test

import (
	"context"
	"testing"

	"github.com/fwojciec/docmirror"
	"github.com/fwojciec/docmirror/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createSource(t *testing.T, svc *sqlite.SourceService, name, url string) *docmirror.Source {
	t.Helper()
	s := &docmirror.Source{Name: name, BaseURL: url, Policy: docmirror.DefaultCrawlPolicy()}
	require.NoError(t, svc.CreateSource(context.Background(), s))
	return s
}

func TestSourceService_CreateSource(t *testing.T) {
	t.Parallel()

	t.Run("creates source with generated ID and canonical URL", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSourceService(setupTestDB(t))
		ctx := context.Background()
		s := &docmirror.Source{
			Name:     "go",
			BaseURL:  "https://Go.dev/doc/",
			Category: "language",
			Priority: 50,
			Schema:   "godoc",
			Render:   true,
			Policy:   docmirror.CrawlPolicy{MaxPages: 10, Include: []string{"/doc/"}},
		}

		require.NoError(t, svc.CreateSource(ctx, s))

		assert.NotEmpty(t, s.ID)
		assert.Equal(t, docmirror.SourceDiscovered, s.Status)
		got, err := svc.FindSourceByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "https://go.dev/doc", got.BaseURL)
		assert.Equal(t, s.Policy, got.Policy)
		assert.Equal(t, "godoc", got.Schema)
		assert.True(t, got.Render)
		assert.Equal(t, 50, got.Priority)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("keeps provided ID", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSourceService(setupTestDB(t))
		s := &docmirror.Source{ID: "fixed", Name: "go", BaseURL: "https://go.dev"}

		require.NoError(t, svc.CreateSource(context.Background(), s))

		assert.Equal(t, "fixed", s.ID)
	})

	t.Run("returns ECONFLICT for duplicate canonical URL", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSourceService(setupTestDB(t))
		createSource(t, svc, "go", "https://go.dev/doc")

		err := svc.CreateSource(context.Background(), &docmirror.Source{Name: "golang", BaseURL: "https://GO.dev/doc/"})

		assert.Equal(t, docmirror.ECONFLICT, docmirror.ErrorCode(err))
	})

	t.Run("returns ECONFLICT for duplicate name", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSourceService(setupTestDB(t))
		createSource(t, svc, "go", "https://go.dev/doc")

		err := svc.CreateSource(context.Background(), &docmirror.Source{Name: "go", BaseURL: "https://golang.org"})

		assert.Equal(t, docmirror.ECONFLICT, docmirror.ErrorCode(err))
	})

	t.Run("returns EINVALID for invalid source", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSourceService(setupTestDB(t))

		err := svc.CreateSource(context.Background(), &docmirror.Source{Name: "go"})

		assert.Equal(t, docmirror.EINVALID, docmirror.ErrorCode(err))
	})
}

func TestSourceService_FindSources(t *testing.T) {
	t.Parallel()

	t.Run("filters by name and disabled flag", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSourceService(setupTestDB(t))
		ctx := context.Background()
		createSource(t, svc, "go", "https://go.dev")
		old := createSource(t, svc, "old", "https://old.example.com")
		disabled := true
		_, err := svc.UpdateSource(ctx, old.ID, docmirror.SourceUpdate{Disabled: &disabled})
		require.NoError(t, err)

		name := "go"
		byName, err := svc.FindSources(ctx, docmirror.SourceFilter{Name: &name})
		require.NoError(t, err)
		require.Len(t, byName, 1)
		assert.Equal(t, "go", byName[0].Name)

		enabled := false
		active, err := svc.FindSources(ctx, docmirror.SourceFilter{Disabled: &enabled})
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "go", active[0].Name)
	})

	t.Run("orders by priority then name", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSourceService(setupTestDB(t))
		ctx := context.Background()
		for _, s := range []*docmirror.Source{
			{Name: "b", BaseURL: "https://b.dev", Priority: 10},
			{Name: "a", BaseURL: "https://a.dev", Priority: 10},
			{Name: "z", BaseURL: "https://z.dev", Priority: 90},
		} {
			require.NoError(t, svc.CreateSource(ctx, s))
		}

		sources, err := svc.FindSources(ctx, docmirror.SourceFilter{})

		require.NoError(t, err)
		require.Len(t, sources, 3)
		assert.Equal(t, []string{"z", "a", "b"}, []string{sources[0].Name, sources[1].Name, sources[2].Name})
	})

	t.Run("applies offset without limit", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSourceService(setupTestDB(t))
		createSource(t, svc, "a", "https://a.dev")
		createSource(t, svc, "b", "https://b.dev")

		sources, err := svc.FindSources(context.Background(), docmirror.SourceFilter{Offset: 1})

		require.NoError(t, err)
		require.Len(t, sources, 1)
		assert.Equal(t, "b", sources[0].Name)
	})
}

func TestSourceService_UpdateSource(t *testing.T) {
	t.Parallel()

	t.Run("updates status and policy", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSourceService(setupTestDB(t))
		ctx := context.Background()
		s := createSource(t, svc, "go", "https://go.dev")
		status := docmirror.SourceIndexed
		policy := docmirror.CrawlPolicy{MaxDepth: 1, MaxPages: 5, RateLimit: 1, Concurrency: 1}

		updated, err := svc.UpdateSource(ctx, s.ID, docmirror.SourceUpdate{Status: &status, Policy: &policy})

		require.NoError(t, err)
		assert.Equal(t, docmirror.SourceIndexed, updated.Status)
		got, err := svc.FindSourceByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, docmirror.SourceIndexed, got.Status)
		assert.Equal(t, policy, got.Policy)
	})

	t.Run("renames a source and keeps its ID", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSourceService(setupTestDB(t))
		ctx := context.Background()
		s := createSource(t, svc, "go", "https://go.dev")
		name := "golang"

		_, err := svc.UpdateSource(ctx, s.ID, docmirror.SourceUpdate{Name: &name})

		require.NoError(t, err)
		got, err := docmirror.FindSourceByName(ctx, svc, "golang")
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.ID)
	})

	t.Run("returns ENOTFOUND for missing source", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSourceService(setupTestDB(t))

		_, err := svc.UpdateSource(context.Background(), "missing", docmirror.SourceUpdate{})

		assert.Equal(t, docmirror.ENOTFOUND, docmirror.ErrorCode(err))
	})

	t.Run("returns ECONFLICT when moving onto another source's URL", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSourceService(setupTestDB(t))
		createSource(t, svc, "go", "https://go.dev")
		other := createSource(t, svc, "other", "https://other.dev")
		url := "https://go.dev/"

		_, err := svc.UpdateSource(context.Background(), other.ID, docmirror.SourceUpdate{BaseURL: &url})

		assert.Equal(t, docmirror.ECONFLICT, docmirror.ErrorCode(err))
	})
}
