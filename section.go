package docmirror

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Section represents a heading in a markdown document.
type Section struct {
	Level  int    `json:"level" yaml:"level"`
	Title  string `json:"title" yaml:"title"`
	Anchor string `json:"anchor" yaml:"anchor"`
}

var (
	headingRe   = regexp.MustCompile(`(?m)^(#{1,6})[ \t]+(.+?)(?:[ \t]+#+)?[ \t]*$`)
	codeFenceRe = regexp.MustCompile("(?s)```.*?```")
)

// ExtractSections parses markdown and returns all ATX headings (H1-H6) in
// document order. Headings inside fenced code are ignored. Anchors are
// URL-safe and duplicates get numeric suffixes.
func ExtractSections(markdown string) []Section {
	if markdown == "" {
		return nil
	}

	matches := headingRe.FindAllStringSubmatch(codeFenceRe.ReplaceAllString(markdown, ""), -1)
	if len(matches) == 0 {
		return nil
	}

	sections := make([]Section, 0, len(matches))
	anchorCounts := make(map[string]int)
	for _, m := range matches {
		title := strings.TrimSpace(m[2])
		anchor := generateAnchor(title)
		if n, ok := anchorCounts[anchor]; ok {
			anchorCounts[anchor]++
			anchor += "-" + strconv.Itoa(n)
		} else {
			anchorCounts[anchor] = 1
		}
		sections = append(sections, Section{
			Level:  len(m[1]),
			Title:  title,
			Anchor: anchor,
		})
	}
	return sections
}

// generateAnchor lowercases a title, turns whitespace runs into single
// hyphens and drops everything that is not a letter or digit.
func generateAnchor(title string) string {
	var sb strings.Builder
	prevHyphen := false
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			prevHyphen = false
		case (unicode.IsSpace(r) || r == '-') && !prevHyphen && sb.Len() > 0:
			sb.WriteRune('-')
			prevHyphen = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
