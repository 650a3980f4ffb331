// Package similarity ranks the title and abstract fragments of papers
// against a question by TF-IDF cosine similarity.
//
// The vectoriser is fitted on each call over the question plus the
// candidate fragments, so scores are only comparable within one ranking.
// When the question shares no term with any fragment every score is 0 and
// the result is simply the first fragments in paper order.
package similarity

import (
	"sort"

	"github.com/WessleyAI/researchdesk/engine/domain"
)

// DefaultTopK is the number of results returned when the caller does not ask
// for a specific count.
const DefaultTopK = 5

// Candidate is a title or abstract fragment tagged with its paper.
type Candidate struct {
	Text  string
	Paper domain.Paper
}

// Result is a ranked candidate. Score is in [0,1].
type Result struct {
	Sentence string
	Paper    domain.Paper
	Score    float64
}

// Candidates enumerates fragments in paper order: the title, then the
// abstract, skipping empty ones.
func Candidates(papers []domain.Paper) []Candidate {
	out := make([]Candidate, 0, 2*len(papers))
	for _, p := range papers {
		if p.Title != "" {
			out = append(out, Candidate{Text: p.Title, Paper: p})
		}
		if p.Abstract != "" {
			out = append(out, Candidate{Text: p.Abstract, Paper: p})
		}
	}
	return out
}

// Rank scores every candidate fragment of papers against question and
// returns at most topK results by descending score. Ties keep enumeration
// order. topK must be positive.
func Rank(question string, papers []domain.Paper, topK int) ([]Result, error) {
	if topK <= 0 {
		return nil, domain.InvalidArgument("similarity: rank", "top_k must be positive, got %d", topK)
	}
	cands := Candidates(papers)
	if len(cands) == 0 {
		return []Result{}, nil
	}

	docs := make([][]string, 0, len(cands)+1)
	docs = append(docs, Tokenize(question))
	for _, c := range cands {
		docs = append(docs, Tokenize(c.Text))
	}
	vz := fit(docs)
	q := vz.transform(docs[0])

	results := make([]Result, len(cands))
	for i, c := range cands {
		results[i] = Result{
			Sentence: c.Text,
			Paper:    c.Paper,
			Score:    cosine(q, vz.transform(docs[i+1])),
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}
