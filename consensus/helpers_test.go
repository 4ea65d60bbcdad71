package consensus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rchasman/dominion-maker-sub001/decision"
	"github.com/rchasman/dominion-maker-sub001/domain/poker"
	"github.com/rchasman/dominion-maker-sub001/move"
)

// fakeEngine is a scriptable RuleEngine. Hooks run under its lock.
type fakeEngine struct {
	mu sync.Mutex

	decision decision.Decision
	present  bool
	legal    func(d decision.Decision) []move.Legal
	apply    func(e *fakeEngine, cmd poker.PokerAction) error

	dispatched []poker.PokerAction
}

func atomicEngine(legal ...move.Legal) *fakeEngine {
	return &fakeEngine{
		decision: decision.Decision{ID: "bet-1", Category: decision.CategoryAtomic},
		present:  true,
		legal:    func(decision.Decision) []move.Legal { return legal },
		apply: func(e *fakeEngine, cmd poker.PokerAction) error {
			e.present = false
			return nil
		},
	}
}

// perItemEngine asks keep or discard for every item, in order, and closes
// the decision after the last one.
func perItemEngine(items ...string) *fakeEngine {
	return newPerItemEngine(false, items)
}

// openPerItemEngine keeps the decision open after the last item until it is
// answered with a stand pat.
func openPerItemEngine(items ...string) *fakeEngine {
	return newPerItemEngine(true, items)
}

func newPerItemEngine(holdOpen bool, items []string) *fakeEngine {
	cursor := 0
	return &fakeEngine{
		decision: decision.Decision{
			ID:         "draw-1",
			Category:   decision.CategoryResolveEach,
			Items:      items,
			SubActions: []string{poker.SubKeep, poker.SubDiscard},
		},
		present: true,
		legal: func(d decision.Decision) []move.Legal {
			legal := []move.Legal{{Kind: move.KindSkip}}
			if cursor >= len(d.Items) {
				return legal
			}
			for _, sub := range d.SubActions {
				legal = append(legal, move.Legal{Kind: move.KindResolve, Index: cursor, Item: d.Items[cursor], Sub: sub})
			}
			return legal
		},
		apply: func(e *fakeEngine, cmd poker.PokerAction) error {
			if cmd.Type == poker.ActionStandPat {
				e.present = false
				return nil
			}
			if cmd.Index != cursor {
				return fmt.Errorf("expected item %d, got %d", cursor, cmd.Index)
			}
			cursor++
			e.decision.Start = cursor
			if cursor == len(items) && !holdOpen {
				e.present = false
			}
			return nil
		},
	}
}

func (e *fakeEngine) Dispatch(cmd poker.PokerAction, actor int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.present {
		return fmt.Errorf("no decision pending")
	}
	if cmd.DecisionID != e.decision.ID {
		return fmt.Errorf("stale decision %s", cmd.DecisionID)
	}
	if err := e.apply(e, cmd); err != nil {
		return err
	}
	e.dispatched = append(e.dispatched, cmd)
	return nil
}

func (e *fakeEngine) LegalMoves(actor int) []move.Legal {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.present {
		return nil
	}
	return e.legal(e.decision)
}

func (e *fakeEngine) View(actor int) poker.View {
	return poker.View{Seat: actor}
}

func (e *fakeEngine) CurrentDecision(actor int) (decision.Decision, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.decision, e.present
}

func (e *fakeEngine) commands() []poker.PokerAction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]poker.PokerAction(nil), e.dispatched...)
}

// stub is a Proposer answering from a script. A non-nil gate holds the answer
// until it is closed or the call is cancelled.
type stub struct {
	id     string
	gate   <-chan struct{}
	delay  time.Duration
	action move.Action
	err    error
	decide func(req Request) (move.Action, error)
}

func (s *stub) ID() string { return s.id }

func (s *stub) Propose(ctx context.Context, req Request) (move.Action, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return move.Action{}, ctx.Err()
		}
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return move.Action{}, ctx.Err()
		}
	}
	if s.decide != nil {
		return s.decide(req)
	}
	return s.action, s.err
}

func voter(id string, m move.Move) *stub {
	return &stub{id: id, action: move.Action{Move: m, Rationale: "because " + id}}
}

func failing(id string) *stub {
	return &stub{id: id, err: fmt.Errorf("%s is down", id)}
}

// blocked never answers on its own.
func blocked(id string) *stub {
	return &stub{id: id, gate: make(chan struct{})}
}

// firstLegal proposes the first legal move carrying sub, or the first legal
// move at all.
func firstLegal(id, sub string) *stub {
	return &stub{id: id, decide: func(req Request) (move.Action, error) {
		for _, l := range req.Legal {
			if l.Sub == sub {
				return move.Action{Move: l.Instance()}, nil
			}
		}
		if len(req.Legal) == 0 {
			return move.Action{}, fmt.Errorf("nothing legal")
		}
		return move.Action{Move: req.Legal[0].Instance()}, nil
	}}
}

func committee(ps ...*stub) []Proposer {
	out := make([]Proposer, len(ps))
	for i, p := range ps {
		out[i] = p
	}
	return out
}

func countStatus(votes []Vote, status Status) int {
	n := 0
	for _, v := range votes {
		if v.Status == status {
			n++
		}
	}
	return n
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("round-%d", n)
	}
}
