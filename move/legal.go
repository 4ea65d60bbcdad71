package move

// Legal describes one move the rule engine currently permits. Bet and raise
// entries carry an inclusive amount range; other kinds are matched on their
// exact parameters.
type Legal struct {
	Kind  Kind   `json:"kind"`
	Min   uint   `json:"min,omitempty"`
	Max   uint   `json:"max,omitempty"`
	Item  string `json:"item,omitempty"`
	Index int    `json:"index"`
	Sub   string `json:"sub,omitempty"`
}

// Permits reports whether m is the move described by l, comparing kind and
// parameters.
func (l Legal) Permits(m Move) bool {
	if m == nil || m.Kind() != l.Kind {
		return false
	}
	switch v := m.(type) {
	case Fold, Check, Call, AllIn, Skip:
		return true
	case Bet:
		return v.Amount >= l.Min && v.Amount <= l.Max
	case Raise:
		return v.Amount >= l.Min && v.Amount <= l.Max
	case Pick:
		return v.Item == l.Item
	case Resolve:
		return v.Index == l.Index && v.Item == l.Item && v.Sub == l.Sub
	default:
		return false
	}
}

// Exactly returns the legal entry matching m and nothing else.
func Exactly(m Move) Legal {
	switch v := m.(type) {
	case Bet:
		return Legal{Kind: KindBet, Min: v.Amount, Max: v.Amount}
	case Raise:
		return Legal{Kind: KindRaise, Min: v.Amount, Max: v.Amount}
	case Pick:
		return Legal{Kind: KindPick, Item: v.Item}
	case Resolve:
		return Legal{Kind: KindResolve, Index: v.Index, Item: v.Item, Sub: v.Sub}
	case nil:
		return Legal{}
	default:
		return Legal{Kind: m.Kind()}
	}
}

// Permitted reports whether any entry of legal permits m.
func Permitted(legal []Legal, m Move) bool {
	for _, l := range legal {
		if l.Permits(m) {
			return true
		}
	}
	return false
}

// Restrict keeps the candidates that the legal list permits, preserving order.
func Restrict(candidates []Move, legal []Legal) []Legal {
	out := make([]Legal, 0, len(candidates))
	for _, c := range candidates {
		if Permitted(legal, c) {
			out = append(out, Exactly(c))
		}
	}
	return out
}

// Instance returns the move l describes. Bet and raise take the smallest
// amount of the range.
func (l Legal) Instance() Move {
	switch l.Kind {
	case KindFold:
		return Fold{}
	case KindCheck:
		return Check{}
	case KindCall:
		return Call{}
	case KindAllIn:
		return AllIn{}
	case KindBet:
		return Bet{Amount: l.Min}
	case KindRaise:
		return Raise{Amount: l.Min}
	case KindPick:
		return Pick{Item: l.Item}
	case KindResolve:
		return Resolve{Index: l.Index, Item: l.Item, Sub: l.Sub}
	case KindSkip:
		return Skip{}
	default:
		return nil
	}
}
