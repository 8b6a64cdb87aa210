package minhash

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Signature is a fixed-length vector of per-seed minimum hashes. An empty
// signature is the sentinel for text with no shingles; its similarity to
// anything is 0.
type Signature []uint64

// Engine converts text into MinHash signatures and estimates Jaccard
// similarity between them. Signatures are only comparable to signatures
// produced by an engine with the same hash count.
type Engine struct {
	seeds      []uint64
	shingleLen int
}

// New creates an engine with hashCount independent hash functions and
// character n-grams of length shingleLen. Seeds are derived deterministically
// so signatures stay comparable across runs.
func New(hashCount, shingleLen int) *Engine {
	if hashCount <= 0 {
		hashCount = 20
	}
	if shingleLen <= 0 {
		shingleLen = 3
	}

	seeds := make([]uint64, hashCount)
	for i := range seeds {
		// splitmix64 of the function index
		z := (uint64(i) + 1) * 0x9e3779b97f4a7c15
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		seeds[i] = z ^ (z >> 31)
	}

	return &Engine{seeds: seeds, shingleLen: shingleLen}
}

// Normalize collapses runs of whitespace (including full-width spaces) to
// single ASCII spaces and trims the ends.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		b.WriteRune(r)
	}

	return b.String()
}

// Shingles splits text into overlapping character n-grams after
// normalization. Text shorter than the shingle length yields a single
// shingle equal to the whole normalized text; empty text yields none.
func (e *Engine) Shingles(text string) []string {
	norm := Normalize(text)
	if norm == "" {
		return nil
	}

	runes := []rune(norm)
	if len(runes) <= e.shingleLen {
		return []string{norm}
	}

	shingles := make([]string, 0, len(runes)-e.shingleLen+1)
	for i := 0; i+e.shingleLen <= len(runes); i++ {
		shingles = append(shingles, string(runes[i:i+e.shingleLen]))
	}
	return shingles
}

// Signature computes the MinHash signature of text. Returns the empty
// sentinel signature when the text has no shingles.
func (e *Engine) Signature(text string) Signature {
	shingles := e.Shingles(text)
	if len(shingles) == 0 {
		return nil
	}

	sig := make(Signature, len(e.seeds))
	for i, seed := range e.seeds {
		min := ^uint64(0)
		for _, s := range shingles {
			if h := hashShingle(s, seed); h < min {
				min = h
			}
		}
		sig[i] = min
	}
	return sig
}

// hashShingle is an order-dependent polynomial rolling hash with wrapping
// arithmetic, seeded per hash function.
func hashShingle(s string, seed uint64) uint64 {
	h := seed
	for _, r := range s {
		h = h*31 + uint64(r)
	}
	return h
}

// Similarity returns the fraction of positions at which two signatures
// agree, an unbiased estimator of Jaccard similarity between the underlying
// shingle sets. Empty or mismatched signatures score 0.
func Similarity(a, b Signature) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	matches := 0
	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(a))
}

// IsSimilar reports whether two texts exceed the similarity threshold.
// A cheap length-ratio pre-filter rejects pairs whose relative length
// difference exceeds 50% before any signatures are computed; it exists
// purely for performance, not accuracy.
func (e *Engine) IsSimilar(a, b string, threshold float64) bool {
	if !LengthComparable(a, b) {
		return false
	}
	return Similarity(e.Signature(a), e.Signature(b)) >= threshold
}

// LengthComparable is the pre-filter used before signature comparison.
func LengthComparable(a, b string) bool {
	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	max := la
	if lb > max {
		max = lb
	}
	if max == 0 {
		return true
	}

	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	return float64(diff)/float64(max) <= 0.5
}
