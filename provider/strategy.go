package provider

import (
	"slices"

	"github.com/rchasman/dominion-maker-sub001/domain/poker"
)

// Reference hands the styles compare against.
var (
	scoreAceHigh  = mustScore("Ah", "9d", "7c", "4s", "2h")
	scoreLowPair  = mustScore("2h", "2d", "4c", "7s", "9h")
	scoreJacks    = mustScore("Jh", "Jd", "2c", "4s", "7h")
	scoreTwoPair  = mustScore("9h", "9d", "4c", "4s", "2h")
	scoreStraight = mustScore("5h", "6d", "7c", "8s", "9h")
)

func mustScore(codes ...string) int16 {
	s, err := poker.ScoreCodes(codes)
	if err != nil {
		panic(err)
	}
	return s
}

// thresholds decide how a style plays a hand of a given score.
type thresholds struct {
	raise int16 // bet or raise at or above
	call  int16 // call at or above
	// cheap calls below call when the price is at most this many minimum bets
	cheap uint
}

var styleThresholds = map[Style]thresholds{
	Tight:   {raise: scoreTwoPair, call: scoreJacks},
	Loose:   {raise: scoreLowPair, call: scoreAceHigh, cheap: 2},
	Station: {raise: maxScore, call: minScore},
}

const (
	minScore int16 = -1 << 15
	maxScore int16 = 1<<15 - 1
)

// handScore scores the codes in view, or returns minScore if the hand is not
// a complete five-card hand.
func handScore(codes []string) int16 {
	if len(codes) != poker.HandSize {
		return minScore
	}
	s, err := poker.ScoreCodes(codes)
	if err != nil {
		return minScore
	}
	return s
}

// value orders ranks with the ace high.
func value(c poker.Card) int {
	if c.Rank() == poker.Ace {
		return 14
	}
	return int(c.Rank())
}

// discardPlan returns the hand positions worth replacing, at most limit of
// them. Made hands from a straight up stand pat; four to a flush draws one;
// otherwise paired cards are kept and the lowest unpaired cards go, keeping
// the two best cards of an unpaired hand.
func discardPlan(codes []string, limit int) []int {
	if limit <= 0 || handScore(codes) >= scoreStraight {
		return nil
	}
	cards, err := poker.ParseCards(codes)
	if err != nil {
		return nil
	}

	suits := map[uint8][]int{}
	ranks := map[uint8]int{}
	for pos, c := range cards {
		suits[c.Suit()] = append(suits[c.Suit()], pos)
		ranks[c.Rank()]++
	}
	for _, positions := range suits {
		if len(positions) == len(cards)-1 {
			for pos, c := range cards {
				if len(suits[c.Suit()]) == 1 {
					return []int{pos}
				}
			}
		}
	}

	var loose []int
	paired := false
	for pos, c := range cards {
		if ranks[c.Rank()] > 1 {
			paired = true
			continue
		}
		loose = append(loose, pos)
	}
	slices.SortStableFunc(loose, func(a, b int) int { return value(cards[a]) - value(cards[b]) })
	if !paired && len(loose) > 2 {
		loose = loose[:len(loose)-2]
	}
	if len(loose) > limit {
		loose = loose[:limit]
	}
	slices.Sort(loose)
	return loose
}
