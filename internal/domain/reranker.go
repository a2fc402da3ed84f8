package domain

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Weights for the six rerank signals. They sum to 1.0, so the composite
// score is a convex combination of components each in [0,1].
const (
	SemanticWeight       = 0.50
	PositionWeight       = 0.15
	PageWeight           = 0.10
	RecencyWeight        = 0.10
	LengthWeight         = 0.05
	QueryTermMatchWeight = 0.10
)

// Rerank recombines multiple relevance signals into a final ordering. It is
// a pure function of (candidates, query): no state is kept between calls and
// the input slice is not modified. The returned chunks carry the composite
// score in Similarity, the retrieval score in OriginalSimilarity, and the
// full signal breakdown in Components. Ties in composite score keep the
// original candidate order.
func Rerank(candidates []ScoredChunk, query string) []ScoredChunk {
	if len(candidates) == 0 {
		return nil
	}

	queryTerms := splitQueryTerms(query)

	// Statistics for normalization across the candidate set. Absent page and
	// created_at metadata contribute zero to the stats, matching the scoring
	// rule that absent values score zero.
	maxChunkIndex := 0
	pages := make([]float64, len(candidates))
	timestamps := make([]float64, len(candidates))
	lengths := make([]float64, len(candidates))
	for i, c := range candidates {
		if c.ChunkIndex > maxChunkIndex {
			maxChunkIndex = c.ChunkIndex
		}
		if page, ok := c.Metadata.Page(); ok {
			pages[i] = float64(page)
		}
		if ts, ok := c.Metadata.CreatedAt(); ok {
			timestamps[i] = float64(ts.UnixMilli())
		}
		lengths[i] = float64(len(c.Text))
	}
	pageMin, pageMax := minMax(pages)
	tsMin, tsMax := minMax(timestamps)
	lenMin, lenMax := minMax(lengths)

	denominator := float64(maxChunkIndex)
	if denominator == 0 {
		denominator = 1
	}

	ranked := make([]ScoredChunk, len(candidates))
	for i, c := range candidates {
		semantic := c.Similarity

		position := 1 - float64(c.ChunkIndex)/denominator

		pageScore := 0.0
		if _, ok := c.Metadata.Page(); ok {
			pageScore = 1 - normalize(pages[i], pageMin, pageMax)
		}

		recency := 0.0
		if _, ok := c.Metadata.CreatedAt(); ok {
			recency = normalize(timestamps[i], tsMin, tsMax)
		}

		// Triangular length preference: peak at the median normalized
		// length, penalizing both very short and very long chunks.
		normLength := normalize(lengths[i], lenMin, lenMax)
		lengthScore := normLength * 2
		if normLength > 0.5 {
			lengthScore = 1 - (normLength-0.5)*2
		}

		termMatch := queryTermMatch(c.Text, queryTerms)

		composite := semantic*SemanticWeight +
			position*PositionWeight +
			pageScore*PageWeight +
			recency*RecencyWeight +
			lengthScore*LengthWeight +
			termMatch*QueryTermMatchWeight

		ranked[i] = c
		ranked[i].Similarity = composite
		ranked[i].OriginalSimilarity = semantic
		ranked[i].Components = &ScoreBreakdown{
			Semantic:       semantic,
			Position:       position,
			Page:           pageScore,
			Recency:        recency,
			Length:         lengthScore,
			QueryTermMatch: termMatch,
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})
	return ranked
}

// normalize maps value into [0,1] over [min,max]. A degenerate range pins
// the value at 0.5 to avoid division by zero.
func normalize(value, min, max float64) float64 {
	if min == max {
		return 0.5
	}
	return (value - min) / (max - min)
}

func minMax(values []float64) (float64, float64) {
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// splitQueryTerms lower-cases the query, splits on non-word boundaries and
// keeps terms longer than two characters. Length is counted in runes so
// multi-byte scripts get the same cutoff as ASCII.
func splitQueryTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	terms := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 2 {
			terms = append(terms, f)
		}
	}
	return terms
}

// queryTermMatch is the fraction of query terms literally present as
// substrings in the chunk text.
func queryTermMatch(text string, terms []string) float64 {
	if len(terms) == 0 || text == "" {
		return 0
	}
	lower := strings.ToLower(text)
	matched := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}
