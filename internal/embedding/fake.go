package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

// FakeEmbedder deterministically maps text to a unit vector by hashing,
// so ingestion tests can exercise dedup/ordering behavior without a real
// model. Same text always produces the same vector.
type FakeEmbedder struct {
	dimension int
}

// NewFakeEmbedder builds a FakeEmbedder producing vectors of dimension d.
func NewFakeEmbedder(d int) *FakeEmbedder {
	return &FakeEmbedder{dimension: d}
}

func (f *FakeEmbedder) Dimension() int { return f.dimension }

func (f *FakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, f.dimension)
	h := fnv.New64a()
	seed := text
	for i := range vec {
		h.Reset()
		_, _ = h.Write([]byte(seed))
		sum := h.Sum64()
		vec[i] = float64(sum%1000) / 1000.0
		seed = seed + string(rune('a'+i%26))
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec, nil
	}
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}
