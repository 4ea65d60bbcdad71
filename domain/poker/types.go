package poker

import (
	"github.com/rchasman/dominion-maker-sub001/domain/deck"
)

// HandSize is the number of cards dealt to every player.
const HandSize = 5

// Phase is the stage of the current hand.
type Phase string

const (
	PreDraw  Phase = "predraw"
	Draw     Phase = "draw"
	PostDraw Phase = "postdraw"
	Showdown Phase = "showdown"
	Complete Phase = "complete"
)

// Betting reports whether chips move during the phase.
func (p Phase) Betting() bool {
	return p == PreDraw || p == PostDraw
}

// DrawStyle selects how the draw is offered to a player.
type DrawStyle string

const (
	// DrawBatch offers one "choose up to N cards to discard" decision.
	DrawBatch DrawStyle = "batch"
	// DrawPerItem asks keep or discard for every card in order.
	DrawPerItem DrawStyle = "per-item"
)

// Draw sub-actions of a per-item decision.
const (
	SubKeep    = "keep"
	SubDiscard = "discard"
)

type Player struct {
	Name        string
	Id          int // seat
	Hand        []Card
	HasFolded   bool
	Out         bool // no chips left at the start of the hand
	Bet         uint // chips put in during the current betting round
	Contributed uint // chips put in during the whole hand, ante included
	Stack       uint
	Acted       bool // acted since the last bet or raise

	Discards   []int // hand positions marked for discard
	DrawCursor int   // next hand position of a per-item draw
	HasDrawn   bool
}

// InHand reports whether the player can still win the pot.
func (p Player) InHand() bool {
	return !p.Out && !p.HasFolded
}

// CanAct reports whether the player can still put chips in.
func (p Player) CanAct() bool {
	return p.InHand() && p.Stack > 0
}

func (p Player) discarded(pos int) bool {
	for _, d := range p.Discards {
		if d == pos {
			return true
		}
	}
	return false
}

// PokerAction is the command the table understands.
type PokerAction struct {
	DecisionID string     `json:"decision_id,omitempty"`
	PlayerID   int        `json:"player_id"`
	Type       ActionType `json:"type"`
	Amount     uint       `json:"amount,omitempty"`
	Card       string     `json:"card,omitempty"`
	Index      int        `json:"index"`
}

type ActionType string

const (
	ActionBet      ActionType = "bet"
	ActionCall     ActionType = "call"
	ActionRaise    ActionType = "raise"
	ActionAllIn    ActionType = "allin"
	ActionFold     ActionType = "fold"
	ActionCheck    ActionType = "check"
	ActionDiscard  ActionType = "discard"
	ActionKeep     ActionType = "keep"
	ActionStandPat ActionType = "standpat"
)

// Rules are the fixed parameters of a table.
type Rules struct {
	Ante        uint
	MinBet      uint
	MaxDiscards int
	DrawStyle   DrawStyle
}

// Session is the state of the table.
type Session struct {
	Players     []Player
	Pots        []Pot
	HighestBet  uint
	Dealer      int
	CurrentTurn int // index into Players for who must act
	Phase       Phase
	HandID      string
	HandNo      int
	DecisionID  string
	Winnings    map[int]uint
	Rules       Rules

	deck *deck.Deck
	muck []Card
	ids  func() string
}

type Pot struct {
	Amount   uint
	Eligible []int // seats that can win this pot
}
