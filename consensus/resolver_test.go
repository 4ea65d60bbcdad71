package consensus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rchasman/dominion-maker-sub001/decision"
	"github.com/rchasman/dominion-maker-sub001/domain/poker"
	"github.com/rchasman/dominion-maker-sub001/move"
)

var checkOrFold = FallbackFunc(func(int) move.Move { return move.Check{} })

func newTestResolver(e RuleEngine, opts ...Option) *Resolver {
	opts = append([]Option{WithIDs(sequentialIDs()), WithCallTimeout(2 * time.Second)}, opts...)
	return NewResolver(e, checkOrFold, opts...)
}

func TestEarlyStopAbortsPendingProviders(t *testing.T) {
	e := atomicEngine(move.Legal{Kind: move.KindFold}, move.Legal{Kind: move.KindCall})
	sink := NewChannelSink(64)
	r := newTestResolver(e, WithSink(sink))

	res, err := r.ResolveOneDecision(context.Background(), 0, committee(
		voter("p1", move.Call{}),
		blocked("p2"),
		voter("p3", move.Call{}),
		blocked("p4"),
		voter("p5", move.Call{}),
	))
	require.NoError(t, err)
	require.Len(t, res.Rounds, 1)

	rr := res.Rounds[0]
	assert.Equal(t, ResolvedEarly, rr.Resolution)
	assert.Equal(t, move.Move(move.Call{}), rr.Move)
	assert.Equal(t, 3, countStatus(rr.Votes, StatusCompleted))
	assert.Equal(t, 2, countStatus(rr.Votes, StatusAborted))
	assert.Zero(t, countStatus(rr.Votes, StatusFailed))
	assert.Equal(t, StatusAborted, rr.Votes[1].Status)
	assert.InDelta(t, 1.0, rr.Strength, 1e-9)

	cmds := e.commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, poker.ActionCall, cmds[0].Type)
	assert.Equal(t, "bet-1", cmds[0].DecisionID)

	kinds := map[EventKind]int{}
	for len(sink.Events()) > 0 {
		kinds[(<-sink.Events()).Kind]++
	}
	assert.Equal(t, 5, kinds[EventProviderPending])
	assert.Equal(t, 1, kinds[EventEarlyStop])
	assert.Equal(t, 2, kinds[EventProviderAborted])
	assert.Equal(t, 1, kinds[EventDispatched])
}

func TestTotalFailureFallsBack(t *testing.T) {
	e := atomicEngine(move.Legal{Kind: move.KindFold}, move.Legal{Kind: move.KindCheck})
	r := newTestResolver(e)

	res, err := r.ResolveOneDecision(context.Background(), 0, committee(
		failing("p1"), failing("p2"), failing("p3"), failing("p4"),
	))
	require.NoError(t, err)
	rr := res.Rounds[0]
	assert.Equal(t, ResolvedFallback, rr.Resolution)
	assert.Equal(t, 4, countStatus(rr.Votes, StatusFailed))

	var total *TotalFailureError
	require.True(t, errors.As(rr.Recovered, &total))
	assert.Len(t, total.Providers, 4)

	cmds := e.commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, poker.ActionCheck, cmds[0].Type)
}

func TestIllegalConsensusFallsBack(t *testing.T) {
	e := atomicEngine(move.Legal{Kind: move.KindFold}, move.Legal{Kind: move.KindCheck})
	r := newTestResolver(e)

	res, err := r.ResolveOneDecision(context.Background(), 0, committee(
		voter("p1", move.Raise{Amount: 500}),
		voter("p2", move.Raise{Amount: 500}),
		voter("p3", move.Call{}),
	))
	require.NoError(t, err)
	rr := res.Rounds[0]
	assert.Equal(t, ResolvedFallback, rr.Resolution)

	var illegal *IllegalConsensusError
	require.True(t, errors.As(rr.Recovered, &illegal))
	assert.Equal(t, move.Encode(move.Action{Move: move.Raise{Amount: 500}}), illegal.Signature)
	assert.Equal(t, poker.ActionCheck, e.commands()[0].Type)
}

func TestSoleLegalMoveWinsWithOneVote(t *testing.T) {
	e := atomicEngine(move.Legal{Kind: move.KindFold})
	gate := make(chan struct{})
	var once sync.Once
	sink := SinkFunc(func(ev Event) {
		if ev.Kind == EventProviderCompleted && ev.Provider == "folder" {
			once.Do(func() { close(gate) })
		}
	})
	r := newTestResolver(e, WithSink(sink))

	providers := []*stub{voter("folder", move.Fold{})}
	for _, id := range []string{"r1", "r2", "r3", "r4", "r5"} {
		s := voter(id, move.Raise{Amount: 40})
		s.gate = gate
		providers = append(providers, s)
	}
	res, err := r.ResolveOneDecision(context.Background(), 0, committee(providers...))
	require.NoError(t, err)
	assert.Equal(t, move.Move(move.Fold{}), res.Rounds[0].Move)
	assert.Nil(t, res.Rounds[0].Recovered)
	assert.Equal(t, poker.ActionFold, e.commands()[0].Type)
}

func TestEarlyWinnerIsBinding(t *testing.T) {
	e := atomicEngine(move.Legal{Kind: move.KindCheck}, move.Legal{Kind: move.KindCall})
	r := newTestResolver(e, WithMargin(Margin(2, 3, false)))

	gate := make(chan struct{})
	defer close(gate)
	providers := []*stub{voter("c1", move.Check{}), voter("c2", move.Check{})}
	for _, id := range []string{"k1", "k2", "k3", "k4"} {
		s := voter(id, move.Call{})
		s.gate = gate
		providers = append(providers, s)
	}

	res, err := r.ResolveOneDecision(context.Background(), 0, committee(providers...))
	require.NoError(t, err)
	rr := res.Rounds[0]
	assert.Equal(t, ResolvedEarly, rr.Resolution)
	assert.Equal(t, move.Move(move.Check{}), rr.Move)
	assert.Equal(t, 4, countStatus(rr.Votes, StatusAborted))
	assert.InDelta(t, 1.0, rr.Strength, 1e-9)
}

func TestAbortInFlight(t *testing.T) {
	e := atomicEngine(move.Legal{Kind: move.KindFold}, move.Legal{Kind: move.KindCall})

	var r *Resolver
	var pending atomic.Int32
	sink := SinkFunc(func(ev Event) {
		if ev.Kind == EventProviderPending && pending.Add(1) == 3 {
			r.AbortInFlight()
		}
	})
	r = newTestResolver(e, WithSink(sink))

	late := &stub{id: "late", decide: func(Request) (move.Action, error) {
		time.Sleep(50 * time.Millisecond)
		return move.Action{Move: move.Call{}}, nil
	}}
	res, err := r.ResolveOneDecision(context.Background(), 0, committee(blocked("p1"), blocked("p2"), late))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAborted))
	require.Len(t, res.Rounds, 1)
	assert.Equal(t, ResolvedAborted, res.Rounds[0].Resolution)
	assert.Nil(t, res.Rounds[0].Move)
	assert.Equal(t, 3, countStatus(res.Rounds[0].Votes, StatusAborted))

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, e.commands(), "a late proposal must not be dispatched")

	// Idle abort is a no-op and does not leak into the next resolution.
	r.AbortInFlight()
	pending.Store(100)
	res, err = r.ResolveOneDecision(context.Background(), 0, committee(voter("p1", move.Call{}), voter("p2", move.Call{})))
	require.NoError(t, err)
	assert.Equal(t, move.Move(move.Call{}), res.Rounds[0].Move)
	assert.Len(t, e.commands(), 1)
}

func TestCallerCancellationAborts(t *testing.T) {
	e := atomicEngine(move.Legal{Kind: move.KindFold})
	r := newTestResolver(e)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := r.ResolveOneDecision(ctx, 0, committee(blocked("p1"), blocked("p2")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAborted))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Empty(t, e.commands())
}

func TestCallTimeoutIsAFailure(t *testing.T) {
	e := atomicEngine(move.Legal{Kind: move.KindCheck})
	r := newTestResolver(e, WithCallTimeout(20*time.Millisecond), WithMargin(never))

	res, err := r.ResolveOneDecision(context.Background(), 0, committee(
		blocked("slow"), voter("p2", move.Check{}), voter("p3", move.Check{}),
	))
	require.NoError(t, err)
	rr := res.Rounds[0]
	assert.Equal(t, ResolvedExhaustive, rr.Resolution)
	assert.Equal(t, StatusFailed, rr.Votes[0].Status)

	var perr *ProviderError
	require.True(t, errors.As(rr.Votes[0].Err, &perr))
	assert.Equal(t, "slow", perr.Provider)
	assert.True(t, errors.Is(rr.Votes[0].Err, context.DeadlineExceeded))
	assert.InDelta(t, 1.0, rr.Strength, 1e-9)
}

func TestPanickingProviderFails(t *testing.T) {
	e := atomicEngine(move.Legal{Kind: move.KindCheck})
	r := newTestResolver(e, WithMargin(never))

	boom := &stub{id: "boom", decide: func(Request) (move.Action, error) { panic("kaboom") }}
	empty := &stub{id: "empty"}
	res, err := r.ResolveOneDecision(context.Background(), 0, committee(boom, empty, voter("p3", move.Check{})))
	require.NoError(t, err)
	rr := res.Rounds[0]
	assert.Equal(t, StatusFailed, rr.Votes[0].Status)
	assert.Contains(t, rr.Votes[0].Err.Error(), "kaboom")
	assert.Equal(t, StatusFailed, rr.Votes[1].Status)
	assert.Equal(t, move.Move(move.Check{}), rr.Move)
}

func TestPerItemDispatchesInIndexOrder(t *testing.T) {
	e := perItemEngine("As", "7d", "2c")
	r := newTestResolver(e)

	res, err := r.ResolveOneDecision(context.Background(), 2, committee(
		firstLegal("p1", poker.SubKeep), firstLegal("p2", poker.SubKeep), firstLegal("p3", poker.SubKeep),
	))
	require.NoError(t, err)
	require.Len(t, res.Rounds, 3)

	cmds := e.commands()
	require.Len(t, cmds, 3)
	for i, cmd := range cmds {
		assert.Equal(t, i, cmd.Index)
		assert.Equal(t, poker.ActionKeep, cmd.Type)
		assert.Equal(t, 2, cmd.PlayerID)
		assert.Equal(t, []string{"As", "7d", "2c"}[i], cmd.Card)
	}
	for i, rr := range res.Rounds {
		assert.Equal(t, i, rr.Index)
	}
}

func TestPerItemSkipEndsTheSequence(t *testing.T) {
	e := perItemEngine("As", "7d", "2c")
	r := newTestResolver(e)

	res, err := r.ResolveOneDecision(context.Background(), 0, committee(
		voter("p1", move.Skip{}), voter("p2", move.Skip{}), voter("p3", move.Skip{}),
	))
	require.NoError(t, err)
	assert.Len(t, res.Rounds, 1)
	cmds := e.commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, poker.ActionStandPat, cmds[0].Type)
}

func TestPerItemClosesDecisionAfterLastItem(t *testing.T) {
	e := openPerItemEngine("As", "7d")
	r := newTestResolver(e)

	res, err := r.ResolveOneDecision(context.Background(), 0, committee(
		firstLegal("p1", poker.SubKeep), firstLegal("p2", poker.SubKeep),
	))
	require.NoError(t, err)
	require.Len(t, res.Rounds, 3)
	assert.Equal(t, ResolvedForced, res.Rounds[2].Resolution)

	cmds := e.commands()
	require.Len(t, cmds, 3)
	assert.Equal(t, poker.ActionStandPat, cmds[2].Type)
	_, waiting := e.CurrentDecision(0)
	assert.False(t, waiting)
}

func TestPerItemResumesAfterRoundCap(t *testing.T) {
	e := perItemEngine("As", "7d", "2c")
	r := newTestResolver(e, WithMaxRounds(1))
	keepers := committee(firstLegal("p1", poker.SubKeep), firstLegal("p2", poker.SubKeep))

	for i := 0; i < 3; i++ {
		res, err := r.ResolveOneDecision(context.Background(), 0, keepers)
		require.NoError(t, err)
		require.Len(t, res.Rounds, 1)
	}

	cmds := e.commands()
	require.Len(t, cmds, 3)
	for i, cmd := range cmds {
		assert.Equal(t, poker.ActionKeep, cmd.Type)
		assert.Equal(t, i, cmd.Index)
	}
	_, waiting := e.CurrentDecision(0)
	assert.False(t, waiting)
}

func TestDispatchErrorStopsDecomposition(t *testing.T) {
	e := perItemEngine("As", "7d", "2c")
	inner := e.apply
	e.apply = func(e *fakeEngine, cmd poker.PokerAction) error {
		if cmd.Index == 1 {
			return errors.New("table on fire")
		}
		return inner(e, cmd)
	}
	r := newTestResolver(e)

	res, err := r.ResolveOneDecision(context.Background(), 0, committee(
		firstLegal("p1", poker.SubDiscard), firstLegal("p2", poker.SubDiscard),
	))
	require.Error(t, err)
	var derr *DispatchError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, move.Move(move.Resolve{Index: 1, Item: "7d", Sub: poker.SubDiscard}), derr.Move)
	assert.Len(t, res.Rounds, 2)
	assert.Len(t, e.commands(), 1)
}

func TestUnknownCategoryPropagates(t *testing.T) {
	e := atomicEngine()
	e.decision.Category = "reorder"
	var calls atomic.Int32
	counting := &stub{id: "p1", decide: func(Request) (move.Action, error) {
		calls.Add(1)
		return move.Action{Move: move.Skip{}}, nil
	}}
	r := newTestResolver(e)

	_, err := r.ResolveOneDecision(context.Background(), 0, committee(counting))
	require.Error(t, err)
	var unknown *UnknownDecisionCategoryError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, decision.Category("reorder"), unknown.Category)
	assert.Zero(t, calls.Load())
	assert.Empty(t, e.commands())
}

func TestNoPendingDecision(t *testing.T) {
	e := atomicEngine()
	e.present = false
	_, err := newTestResolver(e).ResolveOneDecision(context.Background(), 0, nil)
	assert.ErrorIs(t, err, ErrNoDecision)
}

func TestForcedSkipIsDispatchedWithoutVoting(t *testing.T) {
	e := &fakeEngine{
		decision: decision.Decision{ID: "draw-9", Category: decision.CategoryChooseCards, Max: 3},
		present:  true,
		legal:    func(decision.Decision) []move.Legal { return []move.Legal{{Kind: move.KindSkip}} },
		apply: func(e *fakeEngine, cmd poker.PokerAction) error {
			e.present = false
			return nil
		},
	}
	var calls atomic.Int32
	counting := &stub{id: "p1", decide: func(Request) (move.Action, error) {
		calls.Add(1)
		return move.Action{Move: move.Skip{}}, nil
	}}
	res, err := newTestResolver(e).ResolveOneDecision(context.Background(), 0, committee(counting))
	require.NoError(t, err)
	require.Len(t, res.Rounds, 1)
	assert.Equal(t, ResolvedForced, res.Rounds[0].Resolution)
	assert.Zero(t, calls.Load())
	assert.Equal(t, poker.ActionStandPat, e.commands()[0].Type)
}

func TestProposersOnlySeeTheRoundCandidates(t *testing.T) {
	e := perItemEngine("As", "7d")
	var seen [][]move.Legal
	var mu sync.Mutex
	recording := &stub{id: "rec", decide: func(req Request) (move.Action, error) {
		mu.Lock()
		seen = append(seen, req.Legal)
		mu.Unlock()
		return move.Action{Move: req.Legal[0].Instance()}, nil
	}}
	_, err := newTestResolver(e).ResolveOneDecision(context.Background(), 0, committee(recording))
	require.NoError(t, err)
	require.Len(t, seen, 2)
	for i, legal := range seen {
		for _, l := range legal {
			if l.Kind == move.KindResolve {
				assert.Equal(t, i, l.Index)
			}
		}
	}
}
