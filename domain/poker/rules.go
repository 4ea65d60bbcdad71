package poker

import (
	"fmt"

	"github.com/rchasman/dominion-maker-sub001/move"
)

// toCall is how many chips the player at idx needs to match the highest bet.
func (s *Session) toCall(idx int) uint {
	p := s.Players[idx]
	if p.Bet >= s.HighestBet {
		return 0
	}
	return s.HighestBet - p.Bet
}

// checkPokerLogic verifies that pa is allowed for the player at idx in the
// current phase. Turn order and decision ids are checked by the caller.
func checkPokerLogic(pa PokerAction, s *Session, idx int) error {
	p := s.Players[idx]
	if s.Phase.Betting() {
		return checkBetting(pa, s, idx)
	}
	if s.Phase != Draw {
		return fmt.Errorf("no action expected in phase %s", s.Phase)
	}
	if p.HasDrawn {
		return fmt.Errorf("player %d already drew", p.Id)
	}

	switch pa.Type {
	case ActionStandPat:
		return nil
	case ActionDiscard, ActionKeep:
	default:
		return fmt.Errorf("action %s not allowed during the draw", pa.Type)
	}

	if s.Rules.DrawStyle == DrawPerItem {
		if pa.Index != p.DrawCursor {
			return fmt.Errorf("expected card #%d, got #%d", p.DrawCursor, pa.Index)
		}
		if pa.Index >= len(p.Hand) || p.Hand[pa.Index].Code() != pa.Card {
			return fmt.Errorf("card %s is not at position %d", pa.Card, pa.Index)
		}
		if pa.Type == ActionDiscard && len(p.Discards) >= s.Rules.MaxDiscards {
			return fmt.Errorf("cannot discard more than %d cards", s.Rules.MaxDiscards)
		}
		return nil
	}

	if pa.Type == ActionKeep {
		return fmt.Errorf("keep is only offered card by card")
	}
	if len(p.Discards) >= s.Rules.MaxDiscards {
		return fmt.Errorf("cannot discard more than %d cards", s.Rules.MaxDiscards)
	}
	if pos := findCard(p, pa.Card); pos < 0 {
		return fmt.Errorf("card %s not in hand", pa.Card)
	}
	return nil
}

func checkBetting(pa PokerAction, s *Session, idx int) error {
	p := s.Players[idx]
	toCall := s.toCall(idx)
	switch pa.Type {
	case ActionFold:
		return nil
	case ActionCheck:
		if toCall != 0 {
			return fmt.Errorf("cannot check, must call, raise or fold")
		}
	case ActionCall:
		if toCall == 0 {
			return fmt.Errorf("nothing to call")
		}
		if toCall > p.Stack {
			return fmt.Errorf("insufficient funds to call")
		}
	case ActionBet:
		if s.HighestBet != 0 {
			return fmt.Errorf("cannot bet after a bet, raise instead")
		}
		if pa.Amount < s.Rules.MinBet {
			return fmt.Errorf("bet %d below minimum %d", pa.Amount, s.Rules.MinBet)
		}
		if pa.Amount > p.Stack {
			return fmt.Errorf("insufficient funds")
		}
	case ActionRaise:
		if s.HighestBet == 0 {
			return fmt.Errorf("nothing to raise, bet instead")
		}
		if pa.Amount < toCall+s.Rules.MinBet {
			return fmt.Errorf("raise must add at least %d", toCall+s.Rules.MinBet)
		}
		if pa.Amount > p.Stack {
			return fmt.Errorf("insufficient funds")
		}
	case ActionAllIn:
		if p.Stack == 0 {
			return fmt.Errorf("no chips left")
		}
	default:
		return fmt.Errorf("action %s not allowed while betting", pa.Type)
	}
	return nil
}

// legalMoves lists what the player at idx may do. It agrees with
// checkPokerLogic.
func (s *Session) legalMoves(idx int) []move.Legal {
	p := s.Players[idx]
	switch {
	case s.Phase.Betting():
		toCall := s.toCall(idx)
		legal := []move.Legal{{Kind: move.KindFold}}
		if toCall == 0 {
			legal = append(legal, move.Legal{Kind: move.KindCheck})
		}
		if toCall > 0 && p.Stack >= toCall {
			legal = append(legal, move.Legal{Kind: move.KindCall})
		}
		if s.HighestBet == 0 && p.Stack >= s.Rules.MinBet {
			legal = append(legal, move.Legal{Kind: move.KindBet, Min: s.Rules.MinBet, Max: p.Stack})
		}
		if s.HighestBet > 0 && p.Stack >= toCall+s.Rules.MinBet {
			legal = append(legal, move.Legal{Kind: move.KindRaise, Min: toCall + s.Rules.MinBet, Max: p.Stack})
		}
		if p.Stack > 0 {
			legal = append(legal, move.Legal{Kind: move.KindAllIn})
		}
		return legal

	case s.Phase == Draw && !p.HasDrawn:
		legal := []move.Legal{{Kind: move.KindSkip}}
		canDiscard := len(p.Discards) < s.Rules.MaxDiscards
		if s.Rules.DrawStyle == DrawPerItem {
			if p.DrawCursor < len(p.Hand) {
				code := p.Hand[p.DrawCursor].Code()
				legal = append(legal, move.Legal{Kind: move.KindResolve, Index: p.DrawCursor, Item: code, Sub: SubKeep})
				if canDiscard {
					legal = append(legal, move.Legal{Kind: move.KindResolve, Index: p.DrawCursor, Item: code, Sub: SubDiscard})
				}
			}
			return legal
		}
		if canDiscard {
			for pos, c := range p.Hand {
				if !p.discarded(pos) {
					legal = append(legal, move.Legal{Kind: move.KindPick, Item: c.Code()})
				}
			}
		}
		return legal
	}
	return nil
}

// findCard returns the position of the first undiscarded card with code in
// the player's hand, or -1.
func findCard(p Player, code string) int {
	for pos, c := range p.Hand {
		if c.Code() == code && !p.discarded(pos) {
			return pos
		}
	}
	return -1
}
