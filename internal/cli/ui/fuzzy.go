package ui

import (
	"sort"
	"strings"

	"github.com/conduit-lang/entitymeta/internal/orm/schema"
)

const (
	// MaxSuggestionDistance is the largest edit distance still suggested
	MaxSuggestionDistance = 3
	// MaxSuggestions caps the "Did you mean" list
	MaxSuggestions = 3
)

type suggestion struct {
	value    string
	distance int
}

// SuggestNames returns the candidates closest to target. Qualified names are
// compared by short name and case is ignored. Ties keep candidate order.
//
// Example:
//
//	SuggestNames("Ordr", []string{"Order:#Northwind", "Region:#Northwind"})
//	// Returns: ["Order:#Northwind"]
func SuggestNames(target string, candidates []string) []string {
	short, _ := schema.ParseQualifiedName(target)
	want := strings.ToLower(short)

	var found []suggestion
	for _, candidate := range candidates {
		name, _ := schema.ParseQualifiedName(candidate)
		dist := LevenshteinDistance(want, strings.ToLower(name))
		if dist <= MaxSuggestionDistance {
			found = append(found, suggestion{value: candidate, distance: dist})
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].distance < found[j].distance
	})

	result := make([]string, 0, MaxSuggestions)
	for i := 0; i < len(found) && i < MaxSuggestions; i++ {
		result = append(result, found[i].value)
	}
	return result
}

// LevenshteinDistance is the minimum number of single-rune insertions,
// deletions or substitutions that turn s1 into s2
func LevenshteinDistance(s1, s2 string) int {
	a, b := []rune(s1), []rune(s2)
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
