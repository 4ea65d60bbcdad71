package poker

import (
	"fmt"

	"github.com/rchasman/dominion-maker-sub001/domain/deck"
)

// applyDraw records one draw command for the player at idx. The player's draw
// ends on stand pat, once the discard cap is reached, or after the last card
// of a per-item draw was resolved.
func (s *Session) applyDraw(pa PokerAction, idx int) error {
	p := &s.Players[idx]
	switch pa.Type {
	case ActionStandPat:
		return s.finishDraw(idx)
	case ActionDiscard:
		pos := pa.Index
		if s.Rules.DrawStyle != DrawPerItem {
			pos = findCard(*p, pa.Card)
		}
		if pos < 0 || pos >= len(p.Hand) {
			return fmt.Errorf("card %s not in hand", pa.Card)
		}
		p.Discards = append(p.Discards, pos)
		if s.Rules.DrawStyle == DrawPerItem {
			p.DrawCursor++
		}
	case ActionKeep:
		p.DrawCursor++
	default:
		return fmt.Errorf("unknown action %s", pa.Type)
	}

	if len(p.Discards) >= s.Rules.MaxDiscards || len(p.Discards) == len(p.Hand) {
		return s.finishDraw(idx)
	}
	if s.Rules.DrawStyle == DrawPerItem && p.DrawCursor >= len(p.Hand) {
		return s.finishDraw(idx)
	}
	return nil
}

// finishDraw replaces the discarded cards in place and passes the draw to the
// next player still in the hand.
func (s *Session) finishDraw(idx int) error {
	p := &s.Players[idx]
	if len(p.Discards) > 0 {
		fresh, err := s.dealCards(len(p.Discards))
		if err != nil {
			return err
		}
		for i, pos := range p.Discards {
			s.muck = append(s.muck, p.Hand[pos])
			p.Hand[pos] = fresh[i]
		}
	}
	p.HasDrawn = true

	next := s.getNextInHand(idx, func(p Player) bool { return p.HasDrawn })
	if next == -1 {
		return s.advancePhase()
	}
	s.CurrentTurn = next
	s.newDecision()
	return nil
}

// dealCards draws n cards, reshuffling the muck under the deck when it runs
// short.
func (s *Session) dealCards(n int) ([]Card, error) {
	if s.deck == nil {
		return nil, fmt.Errorf("no deck")
	}
	if s.deck.Remaining() < n && len(s.muck) > 0 {
		raw := make([]int, len(s.muck))
		for i, c := range s.muck {
			raw[i] = CardToInt(c)
		}
		s.deck.Refill(raw)
		s.muck = nil
	}
	raw, err := s.deck.Draw(n)
	if err != nil {
		return nil, err
	}
	cards := make([]Card, n)
	for i, r := range raw {
		c, err := IntToCard(r)
		if err != nil {
			return nil, err
		}
		cards[i] = c
	}
	return cards, nil
}

// deal starts a hand with a fresh deck: antes, five cards each, predraw
// betting.
func (s *Session) deal(d *deck.Deck) error {
	s.deck = d
	s.muck = nil
	s.Pots = nil
	s.Winnings = nil
	for i := range s.Players {
		p := &s.Players[i]
		p.Out = p.Stack == 0
		p.HasFolded = false
		p.Hand = nil
		p.Bet, p.Contributed = 0, 0
		p.Acted = false
		p.Discards, p.DrawCursor, p.HasDrawn = nil, 0, false
	}

	for i := range s.Players {
		if s.Players[i].Out {
			continue
		}
		hand, err := s.dealCards(HandSize)
		if err != nil {
			return err
		}
		s.Players[i].Hand = hand
		s.commit(i, s.Rules.Ante)
	}
	s.recalculatePots()

	s.Phase = PreDraw
	s.startBetting()
	if s.bettingDone() {
		return s.advancePhase()
	}
	s.newDecision()
	return nil
}
