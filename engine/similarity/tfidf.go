package similarity

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// tokenRe matches runs of two or more word characters: letters, digits
// and underscore. Combining marks are separators, so a decomposed accent
// splits the word.
var tokenRe = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Tokenize lowercases text and splits it into terms of two or more word
// characters. Single-character words and punctuation are dropped.
func Tokenize(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}

// term is one non-zero component of a document vector.
type term struct {
	idx    int
	weight float64
}

// vector is a sparse document vector ordered by vocabulary index.
type vector []term

// vectorizer holds the vocabulary and smoothed idf of one corpus.
type vectorizer struct {
	vocab map[string]int
	idf   []float64
}

// fit builds the vocabulary in first-seen order and computes
// idf = ln((1+n)/(1+df)) + 1 for every term.
func fit(docs [][]string) *vectorizer {
	v := &vectorizer{vocab: make(map[string]int)}
	var df []int
	for _, doc := range docs {
		seen := make(map[int]bool, len(doc))
		for _, tok := range doc {
			idx, ok := v.vocab[tok]
			if !ok {
				idx = len(df)
				v.vocab[tok] = idx
				df = append(df, 0)
			}
			if !seen[idx] {
				seen[idx] = true
				df[idx]++
			}
		}
	}
	n := float64(len(docs))
	v.idf = make([]float64, len(df))
	for i, d := range df {
		v.idf[i] = math.Log((1+n)/(1+float64(d))) + 1
	}
	return v
}

// transform weights raw term counts by idf and L2-normalises the result.
// A document with no known terms yields an empty vector.
func (v *vectorizer) transform(doc []string) vector {
	counts := make(map[int]int, len(doc))
	for _, tok := range doc {
		if idx, ok := v.vocab[tok]; ok {
			counts[idx]++
		}
	}
	vec := make(vector, 0, len(counts))
	for idx, c := range counts {
		vec = append(vec, term{idx: idx, weight: float64(c) * v.idf[idx]})
	}
	sort.Slice(vec, func(i, j int) bool { return vec[i].idx < vec[j].idx })

	var sum float64
	for _, t := range vec {
		sum += t.weight * t.weight
	}
	if sum == 0 {
		return nil
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i].weight /= norm
	}
	return vec
}

// cosine returns the cosine similarity of two normalised vectors, clamped to
// [0,1]. It is 0 when either vector is empty.
func cosine(a, b vector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].idx == b[j].idx:
			dot += a[i].weight * b[j].weight
			i++
			j++
		case a[i].idx < b[j].idx:
			i++
		default:
			j++
		}
	}
	return math.Max(0, math.Min(1, dot))
}
