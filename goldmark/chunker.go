// Package goldmark splits markdown into bounded passages using the goldmark
// parser to find section boundaries.
package goldmark

import (
	"strings"
	"unicode/utf8"

	"github.com/fwojciec/docmirror"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var _ docmirror.Chunker = (*Chunker)(nil)

// Default chunking limits, in runes.
const (
	DefaultMaxSize = 1500
	DefaultOverlap = 150
)

// Chunker splits markdown into passages no longer than MaxSize runes.
// Passages follow heading sections, then blank-line separated blocks
// within a section. Blocks longer than MaxSize are split hard.
type Chunker struct {
	md      goldmark.Markdown
	maxSize int
	overlap int
}

// NewChunker creates a Chunker. Non-positive sizes fall back to the
// defaults and overlap is clamped below a quarter of maxSize.
func NewChunker(maxSize, overlap int) *Chunker {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap > maxSize/4 {
		overlap = maxSize / 4
	}
	return &Chunker{
		md:      goldmark.New(goldmark.WithExtensions(extension.Table)),
		maxSize: maxSize,
		overlap: overlap,
	}
}

// MaxSize returns the maximum passage length in runes.
func (c *Chunker) MaxSize() int {
	return c.maxSize
}

// Split returns the passages of markdown in document order.
func (c *Chunker) Split(markdown string) ([]docmirror.Passage, error) {
	src := []byte(markdown)
	doc := c.md.Parser().Parse(text.NewReader(src))

	var passages []docmirror.Passage
	for _, s := range sections(doc, src) {
		passages = append(passages, c.pack(s)...)
	}
	return passages, nil
}

// section is the source text between two top-level headings.
type section struct {
	path    string
	text    string
	heading bool
}

type headingInfo struct {
	level int
	text  string
}

func sections(doc ast.Node, src []byte) []section {
	var (
		out   []section
		stack []headingInfo
		path  string
		start int
		head  bool
	)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		at := lineStart(src, h.Lines().At(0).Start)
		out = append(out, section{path: path, text: string(src[start:at]), heading: head})

		for len(stack) > 0 && stack[len(stack)-1].level >= h.Level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, headingInfo{level: h.Level, text: nodeText(h, src)})
		path = headingPath(stack)
		start = at
		head = true
	}
	return append(out, section{path: path, text: string(src[start:]), heading: head})
}

func lineStart(src []byte, pos int) int {
	for pos > 0 && src[pos-1] != '\n' {
		pos--
	}
	return pos
}

func headingPath(stack []headingInfo) string {
	parts := make([]string, len(stack))
	for i, h := range stack {
		parts[i] = h.text
	}
	return strings.Join(parts, " > ")
}

func nodeText(n ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			sb.Write(v.Segment.Value(src))
			if v.SoftLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

// pack groups the blocks of a section into passages, carrying the tail of
// each full passage into the next when it fits.
func (c *Chunker) pack(s section) []docmirror.Passage {
	blocks := splitBlocks(s.text)
	if len(blocks) == 0 || (s.heading && len(blocks) == 1 && isHeadingOnly(blocks[0])) {
		return nil
	}

	var (
		out []docmirror.Passage
		cur string
	)
	emit := func(content string) {
		out = append(out, docmirror.Passage{Heading: s.path, Content: content})
	}
	for _, b := range blocks {
		if runeLen(b) > c.maxSize {
			if cur != "" {
				emit(cur)
			}
			pieces := hardSplit(b, c.maxSize)
			for _, p := range pieces[:len(pieces)-1] {
				emit(p)
			}
			cur = pieces[len(pieces)-1]
			continue
		}
		if cur == "" {
			cur = b
			continue
		}
		if runeLen(cur)+2+runeLen(b) <= c.maxSize {
			cur += "\n\n" + b
			continue
		}
		emit(cur)
		next := b
		if tail := tailRunes(cur, c.overlap); tail != "" && runeLen(tail)+2+runeLen(b) <= c.maxSize {
			next = tail + "\n\n" + b
		}
		cur = next
	}
	if cur != "" {
		emit(cur)
	}
	return out
}

func isHeadingOnly(block string) bool {
	return !strings.Contains(block, "\n") && strings.HasPrefix(block, "#")
}

// splitBlocks splits text on blank lines outside fenced code.
func splitBlocks(text string) []string {
	var (
		blocks  []string
		cur     []string
		inFence bool
		fence   string
	)
	flush := func() {
		if b := strings.TrimSpace(strings.Join(cur, "\n")); b != "" {
			blocks = append(blocks, b)
		}
		cur = cur[:0]
	}
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case inFence:
			if strings.HasPrefix(trimmed, fence) {
				inFence = false
			}
		case strings.HasPrefix(trimmed, "```"), strings.HasPrefix(trimmed, "~~~"):
			inFence = true
			fence = trimmed[:3]
		case trimmed == "":
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return blocks
}

// hardSplit cuts s into pieces of at most size runes, preferring to break
// after a newline or space in the second half of each window.
func hardSplit(s string, size int) []string {
	r := []rune(s)
	half := size / 2
	var out []string
	for len(r) > size {
		cut := size
		if i := lastIndexRune(r[half:size], '\n'); i >= 0 {
			cut = half + i + 1
		} else if i := lastIndexRune(r[half:size], ' '); i >= 0 {
			cut = half + i + 1
		}
		if piece := strings.TrimSpace(string(r[:cut])); piece != "" {
			out = append(out, piece)
		}
		r = r[cut:]
	}
	if rest := strings.TrimSpace(string(r)); rest != "" || len(out) == 0 {
		out = append(out, rest)
	}
	return out
}

func lastIndexRune(r []rune, target rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] == target {
			return i
		}
	}
	return -1
}

func tailRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return ""
	}
	tail := r[len(r)-n:]
	// Start the tail at a word boundary when one exists.
	if i := indexRune(tail, ' '); i >= 0 && i < len(tail)-1 {
		tail = tail[i+1:]
	}
	return strings.TrimSpace(string(tail))
}

func indexRune(r []rune, target rune) int {
	for i, c := range r {
		if c == target {
			return i
		}
	}
	return -1
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
