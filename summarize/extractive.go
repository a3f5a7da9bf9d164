// ABOUTME: This file implements extractive summarization used when no LLM provider is reachable
// ABOUTME: Scores sentences by term frequency and keeps the top ones in document order
package summarize

import (
	"sort"
	"strings"

	"github.com/ikawaha/kagome/v2/tokenizer"

	"rss-digest/tokenize"
)

// Extractor builds summaries without an LLM. It is language aware: CJK text
// is segmented morphologically before term scoring.
type Extractor struct {
	tokenizer *tokenizer.Tokenizer
}

func NewExtractor(t *tokenizer.Tokenizer) *Extractor {
	return &Extractor{tokenizer: t}
}

// Summarize returns up to maxSentences sentences from text, chosen by term
// frequency score and emitted in their original order. Empty input yields an
// empty string.
func (e *Extractor) Summarize(text string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = 3
	}

	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return ""
	}
	if len(sentences) <= maxSentences {
		return strings.Join(sentences, " ")
	}

	freq := make(map[string]int)
	sentenceTerms := make([][]string, len(sentences))
	for i, s := range sentences {
		terms := tokenize.Terms(e.tokenizer, s)
		sentenceTerms[i] = terms
		for _, term := range terms {
			freq[term]++
		}
	}

	type scored struct {
		index int
		score float64
	}

	ranked := make([]scored, 0, len(sentences))
	for i, terms := range sentenceTerms {
		if len(terms) == 0 {
			continue
		}
		total := 0
		for _, term := range terms {
			total += freq[term]
		}
		// Normalize by length so long sentences do not win by volume alone.
		ranked = append(ranked, scored{index: i, score: float64(total) / float64(len(terms))})
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
	})

	if len(ranked) > maxSentences {
		ranked = ranked[:maxSentences]
	}

	sort.Slice(ranked, func(a, b int) bool {
		return ranked[a].index < ranked[b].index
	})

	picked := make([]string, 0, len(ranked))
	for _, r := range ranked {
		picked = append(picked, sentences[r.index])
	}
	return strings.Join(picked, " ")
}

// Keywords returns the topN most frequent terms across the given texts,
// most frequent first. Ties break alphabetically so output is stable.
func (e *Extractor) Keywords(texts []string, topN int) []string {
	if topN <= 0 {
		topN = 10
	}

	freq := make(map[string]int)
	for _, text := range texts {
		for _, term := range tokenize.Terms(e.tokenizer, text) {
			freq[term]++
		}
	}

	terms := make([]string, 0, len(freq))
	for term := range freq {
		terms = append(terms, term)
	}

	sort.Slice(terms, func(a, b int) bool {
		if freq[terms[a]] != freq[terms[b]] {
			return freq[terms[a]] > freq[terms[b]]
		}
		return terms[a] < terms[b]
	})

	if len(terms) > topN {
		terms = terms[:topN]
	}
	return terms
}

var sentenceEnders = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true,
}

// SplitSentences breaks text on sentence-ending punctuation, keeping the
// terminator attached. Handles both ASCII and CJK full-width terminators.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if sentenceEnders[r] {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
