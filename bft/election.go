package bft

import "sort"

/*
	CANDIDATE RANKING:

	Delegates are ordered by descending vote tally. Ties keep registration order so that every
	participant ranking the same tallies over the same registration order derives the same set.
	The top n are the round's candidates; if fewer than n delegates exist, all of them are.
*/

// RankCandidates() returns the top n delegates by tally
func RankCandidates(delegates []string, tallies map[string]int, n int) []string {
	ranked := append([]string(nil), delegates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return tallies[ranked[i]] > tallies[ranked[j]]
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}
