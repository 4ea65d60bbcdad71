package consensus

import (
	"errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rchasman/dominion-maker-sub001/move"
)

func vote(id string, m move.Move) Proposal {
	return Proposal{ProviderID: id, Action: &move.Action{Move: m, Rationale: "r-" + id}}
}

func fail(id string) Proposal {
	return Proposal{ProviderID: id, Err: errors.New("down")}
}

var never = Margin(1000, 1, false)

func TestMargin(t *testing.T) {
	tests := []struct {
		name    string
		policy  MarginPolicy
		total   int
		pending int
		want    int
	}{
		{"floor", DefaultMargin, 3, 0, 2},
		{"third of six", DefaultMargin, 6, 0, 2},
		{"third of seven", DefaultMargin, 7, 0, 3},
		{"guard raises to pending", DefaultMargin, 5, 3, 3},
		{"guard below heuristic", DefaultMargin, 9, 1, 3},
		{"unguarded ignores pending", Margin(2, 3, false), 5, 3, 2},
		{"bad parameters are clamped", Margin(0, 0, false), 4, 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy(tt.total, tt.pending))
		})
	}
}

func TestAggregatorGroupsBySignature(t *testing.T) {
	a := NewAggregator(4, never)
	a.Add(vote("p1", move.Raise{Amount: 10}))
	a.Add(vote("p2", move.Call{}))
	a.Add(vote("p3", move.Raise{Amount: 10}))
	a.Add(fail("p4"))

	groups := a.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, move.Encode(move.Action{Move: move.Raise{Amount: 10}}), groups[0].Signature)
	assert.Equal(t, []string{"p1", "p3"}, groups[0].Voters)
	assert.Equal(t, "r-p1", groups[0].Representative.Rationale, "the first action represents the group")
	assert.Equal(t, 4, a.Settled())
	assert.Equal(t, 3, a.Valid())
}

func TestAggregatorTiesKeepFirstObserved(t *testing.T) {
	a := NewAggregator(4, never)
	a.Add(vote("p1", move.Fold{}))
	a.Add(vote("p2", move.Check{}))
	a.Add(vote("p3", move.Check{}))
	a.Add(vote("p4", move.Fold{}))

	groups := a.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, move.KindFold, groups[0].Representative.Move.Kind())
}

func TestAggregatorIgnoresDuplicatesAndCancelled(t *testing.T) {
	a := NewAggregator(3, never)
	a.Add(vote("p1", move.Fold{}))
	a.Add(vote("p1", move.Fold{}))
	assert.Equal(t, 1, a.Groups()[0].Count())

	a.Cancel()
	a.Cancel()
	_, early := a.Add(vote("p2", move.Fold{}))
	assert.False(t, early)
	assert.True(t, a.Cancelled())
	assert.Equal(t, 1, a.Settled())
}

func TestAggregatorEarlyStop(t *testing.T) {
	a := NewAggregator(5, DefaultMargin)
	for i, id := range []string{"p1", "p2"} {
		_, early := a.Add(vote(id, move.Call{}))
		assert.False(t, early, "vote %d", i)
	}
	winner, early := a.Add(vote("p3", move.Call{}))
	require.True(t, early)
	assert.Equal(t, 3, winner.Count())
}

func TestUnguardedMarginIsTheCommitteeThird(t *testing.T) {
	third := Margin(2, 3, false)
	tests := []struct {
		total     int
		wantK     int
		stopAfter int
	}{
		{total: 6, wantK: 2, stopAfter: 2},
		{total: 9, wantK: 3, stopAfter: 3},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.total, " providers"), func(t *testing.T) {
			for pending := 0; pending <= tt.total; pending++ {
				assert.Equal(t, tt.wantK, third(tt.total, pending))
			}

			a := NewAggregator(tt.total, third)
			guarded := NewAggregator(tt.total, DefaultMargin)
			for i := 1; i <= tt.stopAfter; i++ {
				id := fmt.Sprint("p", i)
				_, early := a.Add(vote(id, move.Call{}))
				assert.Equal(t, i == tt.stopAfter, early, "unguarded after %d votes", i)
				_, early = guarded.Add(vote(id, move.Call{}))
				assert.False(t, early, "guarded after %d votes", i)
			}
		})
	}
}

func TestAggregatorFailuresCanSettleTheRound(t *testing.T) {
	a := NewAggregator(5, DefaultMargin)
	a.Add(vote("p1", move.Check{}))
	_, early := a.Add(vote("p2", move.Check{}))
	require.False(t, early)
	_, early = a.Add(fail("p3"))
	assert.True(t, early, "two pending votes cannot overtake a lead of two")
}

// TestAggregatorCountsEveryVote checks that groups account for every
// successful proposal exactly once.
func TestAggregatorCountsEveryVote(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	moves := []move.Move{move.Fold{}, move.Check{}, move.Call{}, move.Raise{Amount: 4}, move.Raise{Amount: 8}}
	properties.Property("sum of group counts equals successful proposals", prop.ForAll(
		func(choices []int) bool {
			a := NewAggregator(len(choices), never)
			for i, c := range choices {
				a.Add(vote(fmt.Sprintf("p%d", i), moves[c]))
			}
			sum := 0
			seen := map[string]bool{}
			for _, g := range a.Groups() {
				sum += g.Count()
				for _, v := range g.Voters {
					if seen[v] {
						return false
					}
					seen[v] = true
				}
			}
			return sum == len(choices) && a.Valid() == len(choices)
		},
		gen.SliceOf(gen.IntRange(0, len(moves)-1)),
	))

	properties.TestingRun(t)
}

func TestSelect(t *testing.T) {
	raise := VoteGroup{Signature: "raise", Representative: move.Action{Move: move.Raise{Amount: 500}}, Voters: []string{"a", "b", "c", "d", "e"}, order: 0}
	fold := VoteGroup{Signature: "fold", Representative: move.Action{Move: move.Fold{}}, Voters: []string{"f"}, order: 1}
	call := VoteGroup{Signature: "call", Representative: move.Action{Move: move.Call{}}, Voters: []string{"g", "h"}, order: 2}

	t.Run("sole legal move wins with one vote", func(t *testing.T) {
		got, ok := Select([]VoteGroup{raise, fold}, []move.Legal{{Kind: move.KindFold}}, nil)
		require.True(t, ok)
		assert.Equal(t, fold.Signature, got.Signature)
	})
	t.Run("early winner is binding", func(t *testing.T) {
		legal := []move.Legal{{Kind: move.KindFold}, {Kind: move.KindCall}}
		got, ok := Select([]VoteGroup{call, fold}, legal, &fold)
		require.True(t, ok)
		assert.Equal(t, fold.Signature, got.Signature)
	})
	t.Run("illegal early winner falls back to ranking", func(t *testing.T) {
		legal := []move.Legal{{Kind: move.KindFold}, {Kind: move.KindCall}}
		got, ok := Select([]VoteGroup{raise, fold, call}, legal, &raise)
		require.True(t, ok)
		assert.Equal(t, call.Signature, got.Signature)
	})
	t.Run("amount outside the legal range", func(t *testing.T) {
		_, ok := Select([]VoteGroup{raise}, []move.Legal{{Kind: move.KindRaise, Min: 4, Max: 100}}, nil)
		assert.False(t, ok)
	})
	t.Run("nothing to select", func(t *testing.T) {
		_, ok := Select(nil, []move.Legal{{Kind: move.KindFold}}, nil)
		assert.False(t, ok)
	})
}
