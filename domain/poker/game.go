package poker

import (
	"fmt"
)

// recalculatePots rebuilds the pot structure from what every player put in
// during the hand. It creates a main pot for the smallest contribution and
// side pots for the excess, eligible to players still in the hand. Chips from
// a layer nobody can win roll into the next winnable one.
func (s *Session) recalculatePots() {
	s.Pots = nil

	contrib := make([]uint, len(s.Players))
	for i, p := range s.Players {
		contrib[i] = p.Contributed
	}

	var carry uint
	for {
		contributors := []int{}
		for i, c := range contrib {
			if c > 0 {
				contributors = append(contributors, i)
			}
		}
		if len(contributors) == 0 {
			break
		}

		level := contrib[contributors[0]]
		for _, idx := range contributors {
			level = min(level, contrib[idx])
		}

		amount := uint(0)
		eligible := []int{}
		for _, idx := range contributors {
			amount += level
			contrib[idx] -= level
			if s.Players[idx].InHand() {
				eligible = append(eligible, idx)
			}
		}

		if len(eligible) == 0 {
			carry += amount
			continue
		}
		s.Pots = append(s.Pots, Pot{Amount: amount + carry, Eligible: eligible})
		carry = 0
	}
	if carry > 0 && len(s.Pots) > 0 {
		s.Pots[len(s.Pots)-1].Amount += carry
	}

	if len(s.Pots) > 1 && onePlayerRemained(s.Pots) {
		total := uint(0)
		for _, p := range s.Pots {
			total += p.Amount
		}
		s.Pots = []Pot{{Amount: total, Eligible: []int{s.Pots[0].Eligible[0]}}}
	}
}

// onePlayerRemained checks if all pots have the same single eligible player.
func onePlayerRemained(pots []Pot) bool {
	for _, pot := range pots {
		if len(pot.Eligible) != 1 || pot.Eligible[0] != pots[0].Eligible[0] {
			return false
		}
	}
	return true
}

// TotalPot is every chip committed during the hand.
func (s *Session) TotalPot() uint {
	total := uint(0)
	for _, p := range s.Players {
		total += p.Contributed
	}
	return total
}

// commit moves amount chips from the player's stack into the pot.
func (s *Session) commit(idx int, amount uint) {
	p := &s.Players[idx]
	amount = min(amount, p.Stack)
	p.Stack -= amount
	p.Bet += amount
	p.Contributed += amount
}

// reopen marks every other player as owing an action after an aggressive
// move by idx.
func (s *Session) reopen(idx int) {
	for i := range s.Players {
		if i != idx {
			s.Players[i].Acted = false
		}
	}
}

// applyAction applies a validated command for the player at idx and moves the
// hand forward.
func (s *Session) applyAction(pa PokerAction, idx int) error {
	if s.Phase == Draw {
		return s.applyDraw(pa, idx)
	}
	p := &s.Players[idx]

	switch pa.Type {
	case ActionFold:
		p.HasFolded = true
	case ActionCheck:
	case ActionCall:
		s.commit(idx, s.toCall(idx))
	case ActionBet, ActionRaise:
		s.commit(idx, pa.Amount)
		s.HighestBet = p.Bet
		s.reopen(idx)
	case ActionAllIn:
		s.commit(idx, p.Stack)
		if p.Bet > s.HighestBet {
			s.HighestBet = p.Bet
			s.reopen(idx)
		}
	default:
		return fmt.Errorf("unknown action %s", pa.Type)
	}
	p.Acted = true
	s.recalculatePots()

	if s.inHandCount() == 1 {
		s.awardUncontested()
		return nil
	}
	if s.bettingDone() {
		return s.advancePhase()
	}
	s.advanceTurn()
	s.newDecision()
	return nil
}

// awardUncontested gives everything to the last player standing.
func (s *Session) awardUncontested() {
	for i, p := range s.Players {
		if p.InHand() {
			total := s.TotalPot()
			s.Players[i].Stack += total
			s.Winnings = map[int]uint{p.Id: total}
			break
		}
	}
	s.finishHand()
}

func (s *Session) finishHand() {
	s.Phase = Complete
	s.DecisionID = ""
	s.CurrentTurn = -1
}
