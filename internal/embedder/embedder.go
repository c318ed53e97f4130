package embedder

import (
	"math"
	"regexp"
	"strings"
)

// Dimension is the fixed output dimension of every embedding this package
// produces.
const Dimension = 384

var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Embedder projects canonicalised text into a unit vector by hashing its
// tokens. It has no internal state and cannot fail: Embed always returns
// a valid []float32 of length Dimension (the zero vector for text with no
// tokens, which callers must treat as "no embedding" rather than store).
type Embedder struct{}

// New returns an Embedder. There is no configuration: dimension, hash
// function, and stop-list are fixed by the canonicalisation contract.
func New() *Embedder { return &Embedder{} }

func (e *Embedder) Dimensions() int { return Dimension }

// Embed hashes the tokens of text (already assumed canonicalised by the
// caller) into a 384-lane vector and L2-normalises it. Embed itself never
// rejects text; low-signal rejection happens earlier, during
// canonicalisation (CanonicalizeForEmbedding).
func (e *Embedder) Embed(text string) []float32 {
	v := make([]float32, Dimension)
	tokens := wordRe.FindAllString(strings.ToLower(text), -1)
	for _, tok := range tokens {
		h := fnv1a64(tok)
		lane := h % Dimension
		if h>>63 == 0 {
			v[lane]++
		} else {
			v[lane]--
		}
	}
	normalizeL2(v)
	return v
}

// EmbedBatch embeds each text independently. The embedder is pure, so
// this is safe to parallelise; callers that want concurrency should split
// the slice and call Embed per goroutine themselves. (internal/indexer
// calls Embed sequentially, one record at a time.)
func (e *Embedder) EmbedBatch(texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.Embed(t)
	}
	return out
}

const (
	fnvOffsetBasis64 uint64 = 0xcbf29ce484222325
	fnvPrime64       uint64 = 0x100000001b3
)

// fnv1a64 is FNV-1a with the standard 64-bit offset basis and prime
// (equivalent to hash/fnv's New64a, inlined to keep the constants next to
// the projection they drive).
func fnv1a64(s string) uint64 {
	hv := fnvOffsetBasis64
	for i := 0; i < len(s); i++ {
		hv ^= uint64(s[i])
		hv *= fnvPrime64
	}
	return hv
}

func normalizeL2(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return
	}
	norm := math.Sqrt(sumSq)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}
