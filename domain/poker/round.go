package poker

// phaseOrder is the sequence of phases of a hand.
var phaseOrder = []Phase{PreDraw, Draw, PostDraw, Showdown, Complete}

// nextPhase returns the phase after current. Complete is terminal.
func nextPhase(current Phase) Phase {
	for i, p := range phaseOrder {
		if p == current && i < len(phaseOrder)-1 {
			return phaseOrder[i+1]
		}
	}
	return Complete
}

// advanceTurn moves the current turn to the next player who can still bet.
func (s *Session) advanceTurn() {
	if next := s.getNextActivePlayer(s.CurrentTurn); next != -1 {
		s.CurrentTurn = next
	}
}

// getNextActivePlayer returns the index of the next player after currentIdx
// who is in the hand and has chips, or -1.
func (s *Session) getNextActivePlayer(currentIdx int) int {
	n := len(s.Players)
	for i := 1; i <= n; i++ {
		next := ((currentIdx+i)%n + n) % n
		if s.Players[next].CanAct() {
			return next
		}
	}
	return -1
}

// getNextInHand returns the index of the next player after currentIdx who has
// not folded, chips or not, or -1.
func (s *Session) getNextInHand(currentIdx int, skip func(Player) bool) int {
	n := len(s.Players)
	for i := 1; i <= n; i++ {
		next := ((currentIdx+i)%n + n) % n
		p := s.Players[next]
		if p.InHand() && (skip == nil || !skip(p)) {
			return next
		}
	}
	return -1
}

func (s *Session) inHandCount() int {
	n := 0
	for _, p := range s.Players {
		if p.InHand() {
			n++
		}
	}
	return n
}

// bettingDone verifies if the current betting round is finished: every player
// who can still bet has acted since the last aggression and matched the
// highest bet. A lone player with chips who already matched has nothing left
// to decide.
func (s *Session) bettingDone() bool {
	canAct := 0
	pending := false
	for _, p := range s.Players {
		if !p.CanAct() {
			continue
		}
		canAct++
		if !p.Acted || p.Bet < s.HighestBet {
			pending = true
		}
	}
	if canAct == 0 {
		return true
	}
	if canAct == 1 {
		for _, p := range s.Players {
			if p.CanAct() {
				return p.Bet >= s.HighestBet
			}
		}
	}
	return !pending
}

// startBetting resets the per-round betting state and hands the turn to the
// first player with chips after the dealer.
func (s *Session) startBetting() {
	s.HighestBet = 0
	for i := range s.Players {
		s.Players[i].Bet = 0
		s.Players[i].Acted = false
	}
	s.CurrentTurn = s.getNextActivePlayer(s.Dealer)
}

// advancePhase closes the current phase and opens the next one, skipping
// betting rounds nobody can take part in.
func (s *Session) advancePhase() error {
	for {
		s.Phase = nextPhase(s.Phase)
		switch s.Phase {
		case Draw:
			s.CurrentTurn = s.getNextInHand(s.Dealer, nil)
			s.newDecision()
			return nil
		case PostDraw:
			s.startBetting()
			if s.bettingDone() {
				continue
			}
			s.newDecision()
			return nil
		case Showdown:
			return s.showdown()
		default:
			s.finishHand()
			return nil
		}
	}
}

func (s *Session) newDecision() {
	if s.ids != nil {
		s.DecisionID = s.ids()
	}
}
