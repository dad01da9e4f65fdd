// Package normalize turns fetched pages into documents and chunks.
package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/docmirror"
	"github.com/google/uuid"
)

// namespace scopes document and chunk IDs.
var namespace = uuid.MustParse("0b9d4d1e-55c2-4a8e-9f6b-3c7e2a91d0f4")

// DocumentID returns the stable ID of the document at url in a source.
func DocumentID(sourceID, url string) string {
	return uuid.NewSHA1(namespace, []byte(sourceID+"\n"+url)).String()
}

// ChunkID returns the stable ID of the chunk at ordinal in a document.
func ChunkID(documentID string, ordinal int) string {
	return uuid.NewSHA1(namespace, []byte(documentID+"#"+strconv.Itoa(ordinal))).String()
}

// Hash returns the hex xxhash64 of the given parts separated by NUL bytes.
func Hash(parts ...string) string {
	d := xxhash.New()
	for i, p := range parts {
		if i > 0 {
			_, _ = d.Write([]byte{0})
		}
		_, _ = d.WriteString(p)
	}
	return fmt.Sprintf("%016x", d.Sum64())
}

// Result is the outcome of normalizing one page.
type Result struct {
	Document *docmirror.Document
	Chunks   []*docmirror.Chunk

	// Unchanged is true when the page body hashes the same as the previous
	// version, in which case Document is the previous document.
	Unchanged bool
}

// Normalizer cleans, converts and chunks pages.
type Normalizer struct {
	Cleaner   docmirror.Cleaner
	Converter docmirror.Converter
	Chunker   docmirror.Chunker
}

// Normalize converts page into a document and its chunks. previous is the
// last stored version of the same document, or nil.
// Returns EINVALID if the page has no usable content.
func (n *Normalizer) Normalize(page *docmirror.Page, previous *docmirror.Document) (*Result, error) {
	html := page.ContentHTML
	if n.Cleaner != nil {
		cleaned, err := n.Cleaner.Clean(html)
		if err != nil {
			return nil, err
		}
		html = cleaned
	}

	md, err := n.Converter.Convert(html, page.URL)
	if err != nil {
		return nil, err
	}
	body := CollapseWhitespace(md)
	if body == "" {
		return nil, docmirror.Errorf(docmirror.EINVALID, "page %s has no content", page.URL)
	}
	sections := docmirror.ExtractSections(body)
	docTitle := title(page, sections)
	hash := Hash(docTitle, body)

	if previous != nil && previous.ContentHash == hash {
		chunks, err := n.Chunks(previous)
		if err != nil {
			return nil, err
		}
		return &Result{Document: previous, Chunks: chunks, Unchanged: true}, nil
	}

	doc := &docmirror.Document{
		ID:          DocumentID(page.SourceID, page.URL),
		SourceID:    page.SourceID,
		URL:         page.URL,
		Title:       docTitle,
		Sections:    sections,
		CodeBlocks:  docmirror.ExtractCodeBlocks(body),
		Body:        body,
		ContentHash: hash,
		FetchedAt:   page.FetchedAt,
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	chunks, err := n.Chunks(doc)
	if err != nil {
		return nil, err
	}
	return &Result{Document: doc, Chunks: chunks}, nil
}

// Chunks splits the body of an already normalized document. Chunk IDs and
// hashes are stable for identical documents.
func (n *Normalizer) Chunks(doc *docmirror.Document) ([]*docmirror.Chunk, error) {
	passages, err := n.Chunker.Split(doc.Body)
	if err != nil {
		return nil, docmirror.Errorf(docmirror.EINVALID, "chunk %s: %v", doc.URL, err)
	}
	if len(passages) == 0 {
		return nil, docmirror.Errorf(docmirror.EINVALID, "page %s produced no chunks", doc.URL)
	}

	chunks := make([]*docmirror.Chunk, len(passages))
	for i, p := range passages {
		chunks[i] = &docmirror.Chunk{
			ID:          ChunkID(doc.ID, i),
			DocumentID:  doc.ID,
			SourceID:    doc.SourceID,
			Ordinal:     i,
			Heading:     p.Heading,
			Content:     p.Content,
			ContentHash: Hash(doc.Title, doc.URL, p.Heading, p.Content),
		}
	}
	return chunks, nil
}

func title(page *docmirror.Page, sections []docmirror.Section) string {
	if t := strings.TrimSpace(page.Title); t != "" {
		return t
	}
	for _, s := range sections {
		if s.Level == 1 {
			return s.Title
		}
	}
	if len(sections) > 0 {
		return sections[0].Title
	}
	return page.URL
}

// CollapseWhitespace trims trailing spaces, replaces non-breaking spaces
// and collapses runs of blank lines outside fenced code.
func CollapseWhitespace(md string) string {
	md = strings.ReplaceAll(md, "\r\n", "\n")

	var (
		out     []string
		inFence bool
		blank   bool
	)
	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		fence := strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
		if inFence && !fence {
			out = append(out, line)
			continue
		}
		if fence {
			inFence = !inFence
		}

		line = strings.TrimRight(strings.ReplaceAll(line, "\u00a0", " "), " \t")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
