package docmirror

import (
	"regexp"
	"strings"
	"time"
)

// Document is a page normalized into structured text. Body holds the
// cleaned markdown; Sections and CodeBlocks are derived from it.
type Document struct {
	ID          string      `json:"id" yaml:"id"`
	SourceID    string      `json:"sourceId" yaml:"source_id"`
	URL         string      `json:"url" yaml:"url"`
	Title       string      `json:"title" yaml:"title"`
	Sections    []Section   `json:"sections,omitempty" yaml:"sections,omitempty"`
	CodeBlocks  []CodeBlock `json:"codeBlocks,omitempty" yaml:"-"`
	Body        string      `json:"body" yaml:"-"`
	ContentHash string      `json:"contentHash" yaml:"content_hash"`
	FetchedAt   time.Time   `json:"fetchedAt" yaml:"fetched_at"`
}

// Validate returns an error if the document contains invalid fields.
func (d *Document) Validate() error {
	if d.SourceID == "" {
		return Errorf(EINVALID, "document source ID required")
	}
	if d.URL == "" {
		return Errorf(EINVALID, "document URL required")
	}
	if strings.TrimSpace(d.Body) == "" {
		return Errorf(EINVALID, "document body required")
	}
	return nil
}

// CodeBlock is a fenced code block found in a document body.
type CodeBlock struct {
	Language string `json:"language,omitempty"`
	Code     string `json:"code"`
}

var fencedCodeRe = regexp.MustCompile("(?s)```([^\\n`]*)\\n(.*?)```")

// ExtractCodeBlocks returns the fenced code blocks in markdown, in order.
func ExtractCodeBlocks(markdown string) []CodeBlock {
	matches := fencedCodeRe.FindAllStringSubmatch(markdown, -1)
	if len(matches) == 0 {
		return nil
	}
	blocks := make([]CodeBlock, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, CodeBlock{
			Language: strings.TrimSpace(m[1]),
			Code:     strings.TrimSuffix(m[2], "\n"),
		})
	}
	return blocks
}
