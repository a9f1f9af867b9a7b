/*
Package embeddings provides a deterministic, local, fixed-dimension
text embedding. No network call and no model file: the embedding is a
signed feature-hashing projection (the "hashing trick"), a standard
dimensionality-reduction technique for bag-of-words vectors that needs
nothing more than a hash function.
*/
package embeddings

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultDimension is the vector width used across the index unless a
// model explicitly overrides it. Chosen small enough to keep the
// vector index cheap while leaving enough buckets that unrelated
// tokens rarely collide with the same sign.
const DefaultDimension = 128

// Model is a stateless, deterministic embedder. The zero value is not
// usable; construct with New.
type Model struct {
	dim int
}

// New creates a Model producing vectors of the given dimension. A
// non-positive dim falls back to DefaultDimension.
func New(dim int) *Model {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &Model{dim: dim}
}

// Dimension reports the fixed output width of Embed.
func (m *Model) Dimension() int { return m.dim }

// Embed maps text to an L2-normalized vector of m.Dimension() floats.
// The mapping is a pure function of (text, m.dim): calling it twice
// with the same inputs always yields the same vector.
func (m *Model) Embed(text string) []float32 {
	vec := make([]float64, m.dim)

	for _, tok := range tokenize(text) {
		bucket, sign := hashToken(tok, m.dim)
		vec[bucket] += sign
	}

	return normalize(vec)
}

// tokenize lowercases and splits on runs of non-alphanumeric runes.
func tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// hashToken derives a bucket index in [0, dim) and a sign in {-1, +1}
// from two independent FNV hashes of the token, so that unrelated
// tokens landing in the same bucket partially cancel rather than
// always reinforce.
func hashToken(tok string, dim int) (bucket int, sign float64) {
	h1 := fnv.New64a()
	h1.Write([]byte(tok))
	bucket = int(h1.Sum64() % uint64(dim))

	h2 := fnv.New64a()
	h2.Write([]byte("sign:" + tok))
	if h2.Sum64()%2 == 0 {
		sign = 1
	} else {
		sign = -1
	}
	return bucket, sign
}

func normalize(vec []float64) []float32 {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += v * v
	}
	norm := math.Sqrt(sumSquares)

	out := make([]float32, len(vec))
	if norm == 0 {
		return out
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}
