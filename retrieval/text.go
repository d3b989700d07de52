package retrieval

import (
	"math"
	"strings"
	"unicode"

	"github.com/orsinium-labs/stopwords"
)

var english = stopwords.MustGet("en")

// tokenize splits text into lowercase words, trims punctuation and removes
// English stop words.
func tokenize(text string) []string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == '/' || r == ',' || r == ';'
	})
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		}))
		if cleaned != "" && !english.Contains(cleaned) {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

// termFrequencies counts the tokens of text.
func termFrequencies(text string) map[string]float64 {
	tf := make(map[string]float64)
	for _, w := range tokenize(text) {
		tf[w]++
	}
	return tf
}

// lexicalSimilarity is the cosine similarity of two term-frequency vectors.
func lexicalSimilarity(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) < len(a) {
		a, b = b, a
	}

	var dot float64
	for term, x := range a {
		dot += x * b[term]
	}
	if dot == 0 {
		return 0
	}
	return dot / (norm(a) * norm(b))
}

func norm(tf map[string]float64) float64 {
	var sum float64
	for _, x := range tf {
		sum += x * x
	}
	return math.Sqrt(sum)
}
