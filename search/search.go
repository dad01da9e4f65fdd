// Package search answers free-text queries from the vector store with
// ranked, attributed results.
package search

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fwojciec/docmirror"
)

// Defaults.
const (
	DefaultLimit           = 10
	MaxLimit               = 100
	DefaultCandidateFactor = 4
	DefaultSnippetLength   = 300
)

var _ docmirror.SearchService = (*Searcher)(nil)

// Searcher implements docmirror.SearchService. It only reads the store and
// is safe for concurrent use.
type Searcher struct {
	Store    docmirror.VectorStore
	Embedder docmirror.Embedder

	// Sources resolves source name filters and priorities.
	Sources docmirror.SourceService

	// Score ranks candidates. Defaults to SimilarityOnly.
	Score ScoreFunc

	// CandidateFactor multiplies the limit to size the candidate pool
	// that is re-ranked.
	CandidateFactor int

	// SnippetLength bounds result snippets, in runes.
	SnippetLength int
}

// Search implements docmirror.SearchService. Results from disabled sources
// are dropped unless those sources are named explicitly.
// Returns EINVALID for an empty query and ENOTFOUND for an unknown source.
func (s *Searcher) Search(ctx context.Context, query string, opts docmirror.SearchOptions) ([]docmirror.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, docmirror.Errorf(docmirror.EINVALID, "query required")
	}
	limit := opts.Limit
	switch {
	case limit < 0:
		return nil, docmirror.Errorf(docmirror.EINVALID, "limit must not be negative")
	case limit == 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	sources, filter, err := s.resolveSources(ctx, opts.Sources)
	if err != nil {
		return nil, err
	}

	vectors, err := s.Embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, docmirror.Errorf(docmirror.EINTERNAL, "embedder returned %d vectors for the query", len(vectors))
	}

	matches, err := s.Store.Query(ctx, vectors[0], limit*s.candidateFactor(), filter)
	if err != nil {
		return nil, fmt.Errorf("query vector store: %w", err)
	}

	score := s.Score
	if score == nil {
		score = SimilarityOnly
	}
	type ranked struct {
		match docmirror.VectorMatch
		score float32
	}
	var candidates []ranked
	for _, m := range matches {
		src, known := sources[m.Entry.Metadata.SourceID]
		if len(opts.Sources) == 0 && known && src.Disabled {
			continue
		}
		c := Candidate{Query: query, Entry: m.Entry, Similarity: m.Score}
		if known {
			c.Priority = src.Priority
		}
		sc := score(c)
		if sc < opts.MinScore {
			continue
		}
		candidates = append(candidates, ranked{match: m, score: sc})
	}
	slices.SortStableFunc(candidates, func(a, b ranked) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		if c := cmp.Compare(b.match.Score, a.match.Score); c != 0 {
			return c
		}
		return strings.Compare(a.match.Entry.ChunkID, b.match.Entry.ChunkID)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]docmirror.SearchResult, len(candidates))
	for i, c := range candidates {
		meta := c.match.Entry.Metadata
		results[i] = docmirror.SearchResult{
			ChunkID:    c.match.Entry.ChunkID,
			DocumentID: meta.DocumentID,
			SourceName: meta.SourceName,
			Title:      meta.Title,
			URL:        meta.URL,
			Heading:    meta.Heading,
			Snippet:    Snippet(meta.Content, s.snippetLength()),
			Version:    meta.Version,
			Score:      c.score,
			Similarity: c.match.Score,
		}
	}
	return results, nil
}

// resolveSources loads sources by ID and turns the requested names into a
// store filter.
func (s *Searcher) resolveSources(ctx context.Context, names []string) (map[string]*docmirror.Source, docmirror.VectorFilter, error) {
	var filter docmirror.VectorFilter
	byID := make(map[string]*docmirror.Source)
	if s.Sources == nil {
		if len(names) > 0 {
			return nil, filter, docmirror.Errorf(docmirror.EINVALID, "source filter requires a source service")
		}
		return byID, filter, nil
	}

	all, err := s.Sources.FindSources(ctx, docmirror.SourceFilter{})
	if err != nil {
		return nil, filter, fmt.Errorf("find sources: %w", err)
	}
	byName := make(map[string]*docmirror.Source, len(all))
	for _, src := range all {
		byID[src.ID] = src
		byName[src.Name] = src
	}
	for _, name := range names {
		src, ok := byName[name]
		if !ok {
			return nil, filter, docmirror.Errorf(docmirror.ENOTFOUND, "source %q not found", name)
		}
		filter.SourceIDs = append(filter.SourceIDs, src.ID)
	}
	return byID, filter, nil
}

func (s *Searcher) candidateFactor() int {
	if s.CandidateFactor > 0 {
		return s.CandidateFactor
	}
	return DefaultCandidateFactor
}

func (s *Searcher) snippetLength() int {
	if s.SnippetLength > 0 {
		return s.SnippetLength
	}
	return DefaultSnippetLength
}

// Snippet shortens text to at most n runes, cutting at the last word
// boundary and marking the cut with an ellipsis.
func Snippet(text string, n int) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	cut := n - 1
	for i := cut; i > n/2; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	return strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace) + "…"
}
