package decision

import (
	"github.com/rchasman/dominion-maker-sub001/move"
)

// Round is one atomic step of a decomposed decision. When Forced is set the
// round needs no vote and Forced is the move to commit.
type Round struct {
	Index      int
	Candidates []move.Move
	Forced     move.Move
}

// Decomposer splits a compound decision into a sequence of atomic rounds.
//
// It works on a private snapshot of the decision: the batch pool shrinks as
// picks are recorded and the per-item cursor advances, but nothing here is
// ever written back to the rule engine. Callers pull the engine's current
// decision before every round and pass it to Next, so a decision that changed
// or vanished after a dispatch ends the sequence.
type Decomposer struct {
	decision  Decision
	maxRounds int

	pool   []string
	cursor int
	chosen []move.Move
	rounds int
	done   bool
}

// NewDecomposer snapshots d. maxRounds <= 0 means no cap beyond the shape of
// the decision itself.
func NewDecomposer(d Decision, maxRounds int) (*Decomposer, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	snap := d.clone()
	dc := &Decomposer{
		decision:  snap,
		maxRounds: maxRounds,
		pool:      append([]string(nil), snap.Items...),
	}
	if snap.Category == CategoryResolveEach {
		dc.cursor = min(max(snap.Start, 0), len(snap.Items))
	}
	if !snap.Decomposable() || (snap.Category == CategoryChooseCards && snap.Max <= 0) {
		dc.done = true
	}
	return dc, nil
}

// Decision returns the snapshot being decomposed.
func (dc *Decomposer) Decision() Decision {
	return dc.decision.clone()
}

// Next returns the next round given the decision the engine is currently
// waiting on. The second result is false once the sequence is over.
func (dc *Decomposer) Next(current Decision, present bool) (Round, bool) {
	if dc.done {
		return Round{}, false
	}
	if !present || current.ID != dc.decision.ID {
		dc.done = true
		return Round{}, false
	}
	if dc.maxRounds > 0 && dc.rounds >= dc.maxRounds {
		dc.done = true
		return Round{}, false
	}

	var r Round
	var ok bool
	switch dc.decision.Category {
	case CategoryChooseCards:
		r, ok = dc.nextBatch()
	case CategoryResolveEach:
		r, ok = dc.nextPerItem()
	}
	if !ok {
		dc.done = true
		return Round{}, false
	}
	r.Index = dc.rounds
	return r, true
}

func (dc *Decomposer) nextBatch() (Round, bool) {
	d := dc.decision
	if len(d.Items) == 0 {
		return Round{Forced: move.Skip{}}, true
	}
	if len(dc.pool) == 0 || len(dc.chosen) >= d.Max {
		return Round{}, false
	}
	seen := make(map[string]bool, len(dc.pool))
	candidates := make([]move.Move, 0, len(dc.pool)+1)
	for _, item := range dc.pool {
		if seen[item] {
			continue
		}
		seen[item] = true
		candidates = append(candidates, move.Pick{Item: item})
	}
	if len(dc.chosen) >= d.Min {
		candidates = append(candidates, move.Skip{})
	}
	return Round{Candidates: candidates}, true
}

func (dc *Decomposer) nextPerItem() (Round, bool) {
	d := dc.decision
	if dc.cursor >= len(d.Items) {
		return Round{Forced: move.Skip{}}, true
	}
	item := d.Items[dc.cursor]
	candidates := make([]move.Move, 0, len(d.SubActions)+1)
	for _, sub := range d.SubActions {
		candidates = append(candidates, move.Resolve{Index: dc.cursor, Item: item, Sub: sub})
	}
	if d.Min == 0 {
		candidates = append(candidates, move.Skip{})
	}
	return Round{Candidates: candidates}, true
}

// Record applies the move committed for the last round to the simulated
// state. A skip, or a move the round did not offer, ends the sequence. Past
// the last item of a resolve-each decision the next round is a forced skip.
func (dc *Decomposer) Record(m move.Move) {
	if dc.done {
		return
	}
	dc.rounds++
	dc.chosen = append(dc.chosen, m)
	switch v := m.(type) {
	case move.Pick:
		for i, item := range dc.pool {
			if item == v.Item {
				dc.pool = append(dc.pool[:i:i], dc.pool[i+1:]...)
				return
			}
		}
		dc.done = true
	case move.Resolve:
		if v.Index != dc.cursor {
			dc.done = true
			return
		}
		dc.cursor++
	default:
		dc.done = true
	}
}

// Pool returns the simulated items still available to a batch decision.
func (dc *Decomposer) Pool() []string {
	return append([]string(nil), dc.pool...)
}

// Chosen returns the moves recorded so far, in order.
func (dc *Decomposer) Chosen() []move.Move {
	return append([]move.Move(nil), dc.chosen...)
}

// Rounds returns how many rounds were recorded.
func (dc *Decomposer) Rounds() int { return dc.rounds }

// Done reports whether the sequence has ended.
func (dc *Decomposer) Done() bool { return dc.done }
