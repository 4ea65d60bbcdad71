package poker

import (
	"fmt"
	"sort"

	"github.com/paulhankin/poker"
)

// showdown evaluates every hand still in, pays each pot and closes the hand.
func (s *Session) showdown() error {
	s.recalculatePots()
	results, err := s.winnerEval()
	if err != nil {
		return err
	}
	for idx, amount := range results {
		s.Players[idx].Stack += amount
	}
	s.Winnings = results
	s.finishHand()
	return nil
}

// winnerEval scores the hands eligible for each pot and splits every pot among
// its best hands. Odd chips go to the first winner after the dealer. Returns
// a map of seat to winnings.
func (s *Session) winnerEval() (map[int]uint, error) {
	results := make(map[int]uint)

	scores := make(map[int]int16)
	for idx, p := range s.Players {
		if !p.InHand() {
			continue
		}
		score, err := Score(p.Hand)
		if err != nil {
			return nil, fmt.Errorf("seat %d: %w", idx, err)
		}
		scores[idx] = score
	}

	for _, pot := range s.Pots {
		type scored struct {
			idx   int
			score int16
		}
		var ranked []scored
		for _, idx := range pot.Eligible {
			if score, ok := scores[idx]; ok {
				ranked = append(ranked, scored{idx: idx, score: score})
			}
		}
		if len(ranked) == 0 {
			continue
		}

		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].score > ranked[j].score
		})
		winners := []int{ranked[0].idx}
		for _, r := range ranked[1:] {
			if r.score != ranked[0].score {
				break
			}
			winners = append(winners, r.idx)
		}
		sort.Slice(winners, func(i, j int) bool {
			return s.seatDistance(winners[i]) < s.seatDistance(winners[j])
		})

		share := pot.Amount / uint(len(winners))
		odd := pot.Amount % uint(len(winners))
		for i, w := range winners {
			results[s.Players[w].Id] += share
			if uint(i) < odd {
				results[s.Players[w].Id]++
			}
		}
	}
	return results, nil
}

// seatDistance counts seats clockwise from the dealer, dealer last.
func (s *Session) seatDistance(idx int) int {
	n := len(s.Players)
	d := ((idx-s.Dealer)%n + n) % n
	if d == 0 {
		return n
	}
	return d
}

func toEvalCards(cards []Card) ([5]poker.Card, error) {
	var out [5]poker.Card
	if len(cards) != HandSize {
		return out, fmt.Errorf("need %d cards, got %d", HandSize, len(cards))
	}
	for i, c := range cards {
		card, err := poker.MakeCard(poker.Suit(c.suit), poker.Rank(c.rank))
		if err != nil {
			return out, fmt.Errorf("invalid card at idx %d: %w", i, err)
		}
		out[i] = card
	}
	return out, nil
}

// Score ranks a five-card hand. Higher scores win.
func Score(cards []Card) (int16, error) {
	hand, err := toEvalCards(cards)
	if err != nil {
		return 0, err
	}
	return poker.Eval5(&hand), nil
}

// ScoreCodes is Score over card codes.
func ScoreCodes(codes []string) (int16, error) {
	cards, err := ParseCards(codes)
	if err != nil {
		return 0, err
	}
	return Score(cards)
}

// DescribeHand names a five-card hand, e.g. "pair of jacks".
func DescribeHand(cards []Card) (string, error) {
	hand, err := toEvalCards(cards)
	if err != nil {
		return "", err
	}
	return poker.Describe(hand[:])
}
