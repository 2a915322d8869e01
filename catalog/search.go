package catalog

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Search returns clubs whose names fuzzily match query, closest first.
// Ties keep catalog order. A non-positive limit returns every match.
func (c *Catalog) Search(query string, limit int) []Club {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	var names []string
	for _, cat := range c.categories {
		for _, club := range cat.clubs {
			names = append(names, club.name)
		}
	}
	ranks := fuzzy.RankFindNormalizedFold(query, names)
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})
	if limit > 0 && len(ranks) > limit {
		ranks = ranks[:limit]
	}
	out := make([]Club, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, c.clubs[r.Target])
	}
	return out
}
