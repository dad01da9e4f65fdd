package search

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/fwojciec/docmirror"
)

// Candidate is a vector match being ranked.
type Candidate struct {
	Query      string
	Entry      docmirror.IndexEntry
	Similarity float32

	// Priority is the priority tier of the entry's source.
	Priority int
}

// ScoreFunc computes the final ranking score of a candidate.
type ScoreFunc func(c Candidate) float32

// SimilarityOnly ranks by vector similarity alone.
func SimilarityOnly(c Candidate) float32 {
	return c.Similarity
}

// Weights configures Blend. Each signal lies in [0, 1] except Lexical,
// which is capped at MaxLexicalScore.
type Weights struct {
	Similarity float32 `toml:"similarity" json:"similarity"`
	Lexical    float32 `toml:"lexical" json:"lexical"`
	Priority   float32 `toml:"priority" json:"priority"`
	Freshness  float32 `toml:"freshness" json:"freshness"`

	// HalfLifeDays is the age at which the freshness signal halves.
	HalfLifeDays float64 `toml:"half_life_days" json:"halfLifeDays"`
}

// DefaultWeights favors similarity, adds lexical overlap with the query and
// breaks near ties by source priority.
func DefaultWeights() Weights {
	return Weights{
		Similarity:   1,
		Lexical:      1,
		Priority:     0.05,
		HalfLifeDays: 30,
	}
}

// Lexical scoring constants.
const (
	lexicalLengthScale = float32(10)
	MaxLexicalScore    = float32(0.4)
	headingMatchBonus  = float32(0.1)
	maxPriority        = 100
)

// Blend returns a ScoreFunc that adds the weighted signals. now is used for
// freshness and defaults to time.Now.
func Blend(w Weights, now func() time.Time) ScoreFunc {
	if now == nil {
		now = time.Now
	}
	return func(c Candidate) float32 {
		score := w.Similarity * c.Similarity
		if w.Lexical != 0 {
			score += w.Lexical * LexicalScore(c.Query, c.Entry.Metadata.Content, c.Entry.Metadata.Heading)
		}
		if w.Priority != 0 {
			score += w.Priority * prioritySignal(c.Priority)
		}
		if w.Freshness != 0 {
			score += w.Freshness * freshness(now().Sub(c.Entry.Metadata.IndexedAt), w.HalfLifeDays)
		}
		return score
	}
}

func prioritySignal(p int) float32 {
	if p <= 0 {
		return 0
	}
	return float32(min(p, maxPriority)) / maxPriority
}

// freshness decays from 1 by half every halfLifeDays.
func freshness(age time.Duration, halfLifeDays float64) float32 {
	if halfLifeDays <= 0 {
		return 0
	}
	if age < 0 {
		age = 0
	}
	days := age.Hours() / 24
	return float32(math.Exp(-math.Ln2 * days / halfLifeDays))
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {},
	"or": {}, "the": {}, "to": {}, "was": {}, "were": {}, "with": {},
}

// LexicalScore measures how often the query's non-stopword terms occur in
// text relative to its length, plus a bonus per term found in the heading.
// The result is in [0, MaxLexicalScore].
func LexicalScore(query, text, heading string) float32 {
	var terms []string
	for _, t := range tokenize(query) {
		if _, stop := stopwords[t]; !stop {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return 0
	}
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0
	}

	freq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freq[t]++
	}
	var matches int
	for _, t := range terms {
		matches += freq[t]
	}
	score := float32(matches) / float32(1+len(tokens)) * lexicalLengthScale

	if heading != "" {
		inHeading := make(map[string]struct{})
		for _, t := range tokenize(heading) {
			inHeading[t] = struct{}{}
		}
		for _, t := range terms {
			if _, ok := inHeading[t]; ok {
				score += headingMatchBonus
			}
		}
	}
	return min(score, MaxLexicalScore)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
