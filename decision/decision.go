package decision

import "fmt"

// Category names the shape of a pending decision.
type Category string

const (
	// CategoryAtomic is a single choice among the legal moves.
	CategoryAtomic Category = "atomic"
	// CategoryChooseCards selects between Min and Max items of Items (batch mode).
	CategoryChooseCards Category = "choose-cards"
	// CategoryResolveEach applies one of SubActions to every item in order (per-item mode).
	CategoryResolveEach Category = "resolve-each"
)

// Sub-actions that carry no choice of their own.
const (
	SubConfirm = "confirm"
	SubSkip    = "skip"
)

// Decision is the prompt the rule engine is currently waiting on for an actor.
// It is read-only input for the decomposer.
type Decision struct {
	ID         string   `json:"id"`
	Category   Category `json:"category"`
	Prompt     string   `json:"prompt,omitempty"`
	Items      []string `json:"items,omitempty"`
	Min        int      `json:"min"`
	Max        int      `json:"max"`
	SubActions []string `json:"sub_actions,omitempty"`
	// Start is the first unresolved item of a resolve-each decision. Items
	// before it were already answered.
	Start int `json:"start,omitempty"`
}

// UnknownCategoryError is returned for a decision shape the decomposer does
// not recognize. It must reach the caller: answering the wrong shape would
// desynchronize the rule engine.
type UnknownCategoryError struct {
	Category Category
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown decision category %q", e.Category)
}

// Validate checks that the category is known.
func (d Decision) Validate() error {
	switch d.Category {
	case CategoryAtomic, CategoryChooseCards, CategoryResolveEach:
		return nil
	default:
		return &UnknownCategoryError{Category: d.Category}
	}
}

// Compound reports whether d must be split into several voted rounds.
func (d Decision) Compound() bool {
	switch d.Category {
	case CategoryChooseCards:
		return d.Max > 1
	case CategoryResolveEach:
		return !d.trivialSubActions()
	default:
		return false
	}
}

// Decomposable reports whether the decomposer drives d. Unlike Compound it
// includes single-pick batch decisions, which take one round.
func (d Decision) Decomposable() bool {
	switch d.Category {
	case CategoryChooseCards:
		return true
	case CategoryResolveEach:
		return !d.trivialSubActions()
	default:
		return false
	}
}

// trivialSubActions is true when the only sub-actions offered are confirm and
// skip, which leaves nothing to vote on per item.
func (d Decision) trivialSubActions() bool {
	for _, s := range d.SubActions {
		if s != SubConfirm && s != SubSkip {
			return false
		}
	}
	return true
}

func (d Decision) clone() Decision {
	c := d
	c.Items = append([]string(nil), d.Items...)
	c.SubActions = append([]string(nil), d.SubActions...)
	return c
}
