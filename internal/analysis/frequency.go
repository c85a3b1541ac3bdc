package analysis

import (
	"cmp"
	"slices"
	"strings"

	"pdfsum/internal/domain"
)

const (
	DefaultTopN = 10
	// WordCloudTopN bounds how many tokens the word cloud tries to place.
	WordCloudTopN = 100
)

// TopFrequencies counts whitespace-separated tokens case-sensitively and
// returns the n most frequent ones. Equal counts keep first-seen order.
func TopFrequencies(text string, n int) domain.FrequencyTable {
	if n <= 0 {
		return domain.FrequencyTable{}
	}

	tokens := strings.Fields(text)
	counts := make(map[string]int, len(tokens))
	var order []string

	for _, token := range tokens {
		if _, ok := counts[token]; !ok {
			order = append(order, token)
		}
		counts[token]++
	}

	table := make(domain.FrequencyTable, 0, len(order))
	for _, token := range order {
		table = append(table, domain.WordCount{Token: token, Count: counts[token]})
	}

	slices.SortStableFunc(table, func(a, b domain.WordCount) int {
		return cmp.Compare(b.Count, a.Count)
	})

	if len(table) > n {
		table = table[:n]
	}

	return table
}
