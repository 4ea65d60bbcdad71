package move

import (
	"fmt"
	"strconv"
)

// Kind identifies the variant of an atomic move.
type Kind string

const (
	KindFold    Kind = "fold"
	KindCheck   Kind = "check"
	KindCall    Kind = "call"
	KindBet     Kind = "bet"
	KindRaise   Kind = "raise"
	KindAllIn   Kind = "allin"
	KindPick    Kind = "pick"
	KindResolve Kind = "resolve"
	KindSkip    Kind = "skip"
)

// Move is the smallest unit of choice a committee can vote on.
//
// The set of implementations is closed: every variant lives in this package and
// implements the unexported params method, so type switches over Move can list
// every case.
type Move interface {
	Kind() Kind
	params() []param
}

// param is one identifying parameter of a move, in a fixed order per kind.
type param struct {
	key   string
	value string
}

// Fold gives up the hand.
type Fold struct{}

// Check passes without adding chips.
type Check struct{}

// Call matches the highest bet.
type Call struct{}

// AllIn pushes the whole stack.
type AllIn struct{}

// Bet opens the betting with Amount chips.
type Bet struct {
	Amount uint
}

// Raise adds Amount chips on top of the current bet, call included.
type Raise struct {
	Amount uint
}

// Pick selects one item of a batch decision.
type Pick struct {
	Item string
}

// Resolve applies sub-action Sub to the item at position Index of a per-item
// decision.
type Resolve struct {
	Index int
	Item  string
	Sub   string
}

// Skip declines the remaining choices of a decision.
type Skip struct{}

func (Fold) Kind() Kind    { return KindFold }
func (Check) Kind() Kind   { return KindCheck }
func (Call) Kind() Kind    { return KindCall }
func (AllIn) Kind() Kind   { return KindAllIn }
func (Bet) Kind() Kind     { return KindBet }
func (Raise) Kind() Kind   { return KindRaise }
func (Pick) Kind() Kind    { return KindPick }
func (Resolve) Kind() Kind { return KindResolve }
func (Skip) Kind() Kind    { return KindSkip }

func (Fold) params() []param  { return nil }
func (Check) params() []param { return nil }
func (Call) params() []param  { return nil }
func (AllIn) params() []param { return nil }
func (Skip) params() []param  { return nil }

func (b Bet) params() []param {
	return []param{{"amount", strconv.FormatUint(uint64(b.Amount), 10)}}
}

func (r Raise) params() []param {
	return []param{{"amount", strconv.FormatUint(uint64(r.Amount), 10)}}
}

func (p Pick) params() []param {
	return []param{{"item", p.Item}}
}

func (r Resolve) params() []param {
	return []param{
		{"index", strconv.Itoa(r.Index)},
		{"item", r.Item},
		{"sub", r.Sub},
	}
}

// Action is a proposed move together with the proposer's free-text rationale.
// The rationale is informational only and never takes part in comparisons.
type Action struct {
	Move      Move
	Rationale string
}

// Describe renders a move for humans.
func Describe(m Move) string {
	switch v := m.(type) {
	case nil:
		return "none"
	case Fold, Check, Call, AllIn, Skip:
		return string(v.Kind())
	case Bet:
		return fmt.Sprintf("bet %d", v.Amount)
	case Raise:
		return fmt.Sprintf("raise %d", v.Amount)
	case Pick:
		return fmt.Sprintf("pick %s", v.Item)
	case Resolve:
		return fmt.Sprintf("%s #%d %s", v.Sub, v.Index, v.Item)
	default:
		return string(m.Kind())
	}
}
