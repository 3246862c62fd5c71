package query

import (
	"sort"
	"strings"

	"github.com/MonsieurBarti/codegraph/pkg/graph"
)

// fuzzyCandidates ranks symbol names by trigram Jaccard similarity to the
// pattern and returns up to limit names at or above threshold.
func fuzzyCandidates(g *graph.Graph, pattern string, threshold float64, limit int) []string {
	want := trigrams(pattern)
	if len(want) == 0 {
		return nil
	}

	type scored struct {
		name  string
		score float64
	}
	var candidates []scored
	for name := range g.BySymbol {
		score := jaccard(want, trigrams(name))
		if score >= threshold {
			candidates = append(candidates, scored{name: name, score: score})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].name < candidates[j].name
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.name
	}
	return names
}

// trigrams returns the lowercase character trigram set of s, padded so
// short names still produce grams.
func trigrams(s string) map[string]bool {
	s = "  " + strings.ToLower(s) + " "
	grams := make(map[string]bool, len(s))
	for i := 0; i+3 <= len(s); i++ {
		grams[s[i:i+3]] = true
	}
	return grams
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for g := range a {
		if b[g] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
