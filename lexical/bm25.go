// Package lexical implements the term-overlap signal of the hybrid scorer.
//
// BM25 follows the Okapi variant: documents are token lists, term frequencies
// are saturated by K1 and length-normalized by B, and terms whose inverse
// document frequency would be negative are floored at Epsilon times the
// average IDF of the corpus.
package lexical

import (
	"context"
	"math"
	"regexp"
	"strings"
)

// Default Okapi parameters.
const (
	DefaultK1      = 1.5
	DefaultB       = 0.75
	DefaultEpsilon = 0.25
)

var wordRe = regexp.MustCompile(`[a-zA-Z][a-zA-Z\-']+`)

// Tokenize lowercases maximal runs of letters, hyphens and apostrophes that
// start with a letter and are at least two characters long.
func Tokenize(text string) []string {
	words := wordRe.FindAllString(text, -1)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return words
}

// BM25 scores a query against a corpus built per call.
// The zero value is not usable; use NewBM25.
type BM25 struct {
	K1      float64
	B       float64
	Epsilon float64
}

// NewBM25 returns a scorer with the default Okapi parameters.
func NewBM25() *BM25 {
	return &BM25{K1: DefaultK1, B: DefaultB, Epsilon: DefaultEpsilon}
}

// Score returns one score per corpus document, in corpus order.
func (s *BM25) Score(ctx context.Context, corpus [][]string, query []string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scores := make([]float64, len(corpus))
	if len(corpus) == 0 || len(query) == 0 {
		return scores, nil
	}

	totalLen := 0
	freqs := make([]map[string]int, len(corpus))
	docFreq := make(map[string]int)
	for i, doc := range corpus {
		totalLen += len(doc)
		f := make(map[string]int, len(doc))
		for _, term := range doc {
			f[term]++
		}
		for term := range f {
			docFreq[term]++
		}
		freqs[i] = f
	}
	if totalLen == 0 {
		return scores, nil
	}
	avgLen := float64(totalLen) / float64(len(corpus))

	idf := s.idf(docFreq, len(corpus))
	for _, term := range query {
		weight, ok := idf[term]
		if !ok {
			continue
		}
		for i, doc := range corpus {
			tf := float64(freqs[i][term])
			if tf == 0 {
				continue
			}
			norm := s.K1 * (1 - s.B + s.B*float64(len(doc))/avgLen)
			scores[i] += weight * (tf * (s.K1 + 1)) / (tf + norm)
		}
	}
	return scores, nil
}

func (s *BM25) idf(docFreq map[string]int, n int) map[string]float64 {
	idf := make(map[string]float64, len(docFreq))
	var sum float64
	var negative []string
	for term, df := range docFreq {
		v := math.Log(float64(n)-float64(df)+0.5) - math.Log(float64(df)+0.5)
		idf[term] = v
		sum += v
		if v < 0 {
			negative = append(negative, term)
		}
	}
	floor := s.Epsilon * sum / float64(len(idf))
	for _, term := range negative {
		idf[term] = floor
	}
	return idf
}
