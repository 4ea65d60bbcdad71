package consensus

import (
	"github.com/rchasman/dominion-maker-sub001/move"
)

// Select picks the group to commit. A legal early winner is binding.
// Otherwise groups are ranked by count, ties by first vote, and the first
// legal one wins. It reports false when no group is legal.
func Select(groups []VoteGroup, legal []move.Legal, early *VoteGroup) (VoteGroup, bool) {
	if early != nil && move.Permitted(legal, early.Representative.Move) {
		return *early, true
	}
	ranked := append([]VoteGroup(nil), groups...)
	rank(ranked)
	for _, g := range ranked {
		if move.Permitted(legal, g.Representative.Move) {
			return g, true
		}
	}
	return VoteGroup{}, false
}

// strength is the winner's share of the votes considered.
func strength(winner VoteGroup, considered int) float64 {
	if considered <= 0 {
		return 0
	}
	return float64(winner.Count()) / float64(considered)
}
