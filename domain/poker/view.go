package poker

// SeatView is the public part of a seat.
type SeatView struct {
	Seat      int    `json:"seat"`
	Name      string `json:"name"`
	Stack     uint   `json:"stack"`
	Bet       uint   `json:"bet"`
	Folded    bool   `json:"folded,omitempty"`
	AllIn     bool   `json:"all_in,omitempty"`
	Out       bool   `json:"out,omitempty"`
	Discarded int    `json:"discarded,omitempty"`
	Drawn     bool   `json:"drawn,omitempty"`
}

// View is the table as one seat sees it: public state plus that seat's cards.
type View struct {
	HandID      string     `json:"hand_id"`
	HandNo      int        `json:"hand_no"`
	Phase       Phase      `json:"phase"`
	Seat        int        `json:"seat"`
	Hand        []string   `json:"hand,omitempty"`
	HandRank    string     `json:"hand_rank,omitempty"`
	Marked      []int      `json:"marked,omitempty"`
	Stack       uint       `json:"stack"`
	ToCall      uint       `json:"to_call"`
	HighestBet  uint       `json:"highest_bet"`
	Pot         uint       `json:"pot"`
	MinBet      uint       `json:"min_bet"`
	MaxDiscards int        `json:"max_discards"`
	DrawStyle   DrawStyle  `json:"draw_style"`
	Dealer      int        `json:"dealer"`
	CurrentTurn int        `json:"current_turn"`
	Seats       []SeatView `json:"seats"`
}

func (s *Session) view(seat int) View {
	v := View{
		HandID:      s.HandID,
		HandNo:      s.HandNo,
		Phase:       s.Phase,
		Seat:        seat,
		HighestBet:  s.HighestBet,
		Pot:         s.TotalPot(),
		MinBet:      s.Rules.MinBet,
		MaxDiscards: s.Rules.MaxDiscards,
		DrawStyle:   s.Rules.DrawStyle,
		Dealer:      s.Dealer,
		CurrentTurn: s.CurrentTurn,
	}
	for i, p := range s.Players {
		v.Seats = append(v.Seats, SeatView{
			Seat:      p.Id,
			Name:      p.Name,
			Stack:     p.Stack,
			Bet:       p.Bet,
			Folded:    p.HasFolded,
			AllIn:     p.InHand() && p.Stack == 0,
			Out:       p.Out,
			Discarded: len(p.Discards),
			Drawn:     p.HasDrawn,
		})
		if i != seat {
			continue
		}
		v.Stack = p.Stack
		v.ToCall = s.toCall(i)
		if len(p.Hand) > 0 {
			v.Hand = Codes(p.Hand)
			v.Marked = append([]int(nil), p.Discards...)
			if desc, err := DescribeHand(p.Hand); err == nil {
				v.HandRank = desc
			}
		}
	}
	return v
}
