package move

import (
	"encoding/json"
	"fmt"
)

// Wire is the JSON shape of an action exchanged with remote proposers.
type Wire struct {
	Kind      Kind   `json:"kind"`
	Amount    uint   `json:"amount,omitempty"`
	Item      string `json:"item,omitempty"`
	Index     int    `json:"index,omitempty"`
	Sub       string `json:"sub,omitempty"`
	Rationale string `json:"rationale,omitempty"`
}

// ToWire flattens an action.
func ToWire(a Action) Wire {
	w := Wire{Rationale: a.Rationale}
	switch v := a.Move.(type) {
	case nil:
		return w
	case Bet:
		w.Amount = v.Amount
	case Raise:
		w.Amount = v.Amount
	case Pick:
		w.Item = v.Item
	case Resolve:
		w.Index, w.Item, w.Sub = v.Index, v.Item, v.Sub
	}
	w.Kind = a.Move.Kind()
	return w
}

// FromWire rebuilds the action described by w.
func FromWire(w Wire) (Action, error) {
	var m Move
	switch w.Kind {
	case KindFold:
		m = Fold{}
	case KindCheck:
		m = Check{}
	case KindCall:
		m = Call{}
	case KindAllIn:
		m = AllIn{}
	case KindSkip:
		m = Skip{}
	case KindBet:
		m = Bet{Amount: w.Amount}
	case KindRaise:
		m = Raise{Amount: w.Amount}
	case KindPick:
		if w.Item == "" {
			return Action{}, fmt.Errorf("pick without item")
		}
		m = Pick{Item: w.Item}
	case KindResolve:
		if w.Item == "" || w.Sub == "" {
			return Action{}, fmt.Errorf("resolve needs item and sub")
		}
		m = Resolve{Index: w.Index, Item: w.Item, Sub: w.Sub}
	default:
		return Action{}, fmt.Errorf("unknown move kind %q", w.Kind)
	}
	return Action{Move: m, Rationale: w.Rationale}, nil
}

// MarshalJSON encodes the action in its wire shape.
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToWire(a))
}

// UnmarshalJSON decodes the wire shape.
func (a *Action) UnmarshalJSON(data []byte) error {
	var w Wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	decoded, err := FromWire(w)
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}
