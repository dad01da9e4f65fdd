// Package xxhash implements an offline docmirror.Embedder that hashes words
// and word pairs into a fixed number of buckets.
package xxhash

import (
	"context"
	"math"
	"strings"
	"unicode"

	xxh "github.com/cespare/xxhash/v2"
	"github.com/fwojciec/docmirror"
)

// DefaultDimensions is the vector size used when zero is given.
const DefaultDimensions = 512

var _ docmirror.Embedder = (*Embedder)(nil)

// Embedder produces L2-normalized feature-hashing vectors. Texts sharing
// vocabulary get high cosine similarity; it needs no network or model.
type Embedder struct {
	dims int
}

// NewEmbedder creates an Embedder with dims buckets.
func NewEmbedder(dims int) *Embedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dims: dims}
}

// Dimensions implements docmirror.Embedder.
func (e *Embedder) Dimensions() int {
	return e.dims
}

// Embed implements docmirror.Embedder.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = e.vector(text)
	}
	return vectors, nil
}

func (e *Embedder) vector(text string) []float32 {
	counts := make(map[string]int)
	words := Tokenize(text)
	for i, w := range words {
		counts[w]++
		if i > 0 {
			counts[words[i-1]+" "+w]++
		}
	}

	v := make([]float64, e.dims)
	for feature, n := range counts {
		h := xxh.Sum64String(feature)
		weight := 1 + math.Log(float64(n))
		// The top bit picks the sign so collisions cancel rather than pile up.
		if h>>63 == 1 {
			weight = -weight
		}
		v[h%uint64(e.dims)] += weight
	}

	var norm float64
	for _, x := range v {
		norm += x * x
	}
	out := make([]float32, e.dims)
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, x := range v {
		out[i] = float32(x / norm)
	}
	return out
}

// Tokenize lowercases text and splits it into runs of letters and digits.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
