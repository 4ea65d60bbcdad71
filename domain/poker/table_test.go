package poker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rchasman/dominion-maker-sub001/decision"
	"github.com/rchasman/dominion-maker-sub001/move"
)

func newTestTable(t *testing.T, style DrawStyle, players ...string) *Table {
	t.Helper()
	tbl, err := NewTable(TableConfig{
		Players:       players,
		StartingStack: 100,
		Ante:          1,
		MinBet:        2,
		MaxDiscards:   3,
		DrawStyle:     style,
	}, WithSeed(7), WithIDs(sequentialIDs()))
	require.NoError(t, err)
	require.NoError(t, tbl.NewHand())
	return tbl
}

func dispatch(t *testing.T, tbl *Table, actor int, typ ActionType, mutate ...func(*PokerAction)) {
	t.Helper()
	seat, ok := tbl.CurrentPlayer()
	require.True(t, ok, "no player to act")
	require.Equal(t, actor, seat, "wrong seat to act")
	d, ok := tbl.CurrentDecision(actor)
	require.True(t, ok)
	cmd := PokerAction{DecisionID: d.ID, PlayerID: actor, Type: typ}
	for _, m := range mutate {
		m(&cmd)
	}
	require.NoError(t, tbl.Dispatch(cmd, actor))
}

func totalChips(tbl *Table) uint {
	total := uint(0)
	for _, s := range tbl.Seats() {
		total += s.Stack
	}
	return total
}

// TestFullHandBatchDraw plays a three-handed hand from the deal to showdown
// and checks chip conservation and the command log.
func TestFullHandBatchDraw(t *testing.T) {
	tbl := newTestTable(t, DrawBatch, "alice", "bob", "carol")

	v := tbl.View(1)
	assert.Equal(t, PreDraw, v.Phase)
	assert.Equal(t, uint(3), v.Pot)
	assert.Len(t, v.Hand, HandSize)

	dispatch(t, tbl, 1, ActionCheck)
	dispatch(t, tbl, 2, ActionCheck)
	dispatch(t, tbl, 0, ActionCheck)

	d, ok := tbl.CurrentDecision(1)
	require.True(t, ok)
	assert.Equal(t, decision.CategoryChooseCards, d.Category)
	assert.Equal(t, 3, d.Max)
	assert.Len(t, d.Items, HandSize)

	before := tbl.View(1).Hand
	dispatch(t, tbl, 1, ActionDiscard, func(c *PokerAction) { c.Card = before[0] })

	d2, ok := tbl.CurrentDecision(1)
	require.True(t, ok)
	assert.Equal(t, d.ID, d2.ID, "the draw decision survives a single discard")
	assert.Equal(t, 2, d2.Max)
	assert.NotContains(t, d2.Items, before[0])

	dispatch(t, tbl, 1, ActionStandPat)
	after := tbl.View(1).Hand
	assert.NotEqual(t, before[0], after[0])
	assert.Equal(t, before[1:], after[1:])

	dispatch(t, tbl, 2, ActionStandPat)
	dispatch(t, tbl, 0, ActionStandPat)
	assert.Equal(t, PostDraw, tbl.View(0).Phase)

	dispatch(t, tbl, 1, ActionBet, func(c *PokerAction) { c.Amount = 10 })
	dispatch(t, tbl, 2, ActionCall)
	dispatch(t, tbl, 0, ActionFold)

	require.True(t, tbl.HandOver())
	winnings := tbl.Winnings()
	sum := uint(0)
	for _, w := range winnings {
		sum += w
	}
	assert.Equal(t, uint(23), sum)
	assert.Equal(t, uint(300), totalChips(tbl))

	bc := tbl.Ledger()
	require.NoError(t, bc.Verify())
	assert.Equal(t, 12, bc.Len())
}

func TestPerItemDrawWalksCardsInOrder(t *testing.T) {
	tbl := newTestTable(t, DrawPerItem, "alice", "bob")
	dispatch(t, tbl, 1, ActionCheck)
	dispatch(t, tbl, 0, ActionCheck)

	d, ok := tbl.CurrentDecision(1)
	require.True(t, ok)
	assert.Equal(t, decision.CategoryResolveEach, d.Category)
	assert.Equal(t, []string{SubKeep, SubDiscard}, d.SubActions)
	assert.True(t, d.Compound())

	hand := tbl.View(1).Hand
	for i := 0; i < HandSize; i++ {
		cur, ok := tbl.CurrentDecision(1)
		require.True(t, ok)
		assert.Equal(t, i, cur.Start, "unresolved cards start at %d", i)
		legal := tbl.LegalMoves(1)
		assert.True(t, move.Permitted(legal, move.Resolve{Index: i, Item: hand[i], Sub: SubKeep}), "card %d", i)
		if i+1 < HandSize {
			assert.False(t, move.Permitted(legal, move.Resolve{Index: i + 1, Item: hand[i+1], Sub: SubKeep}))
		}
		typ := ActionKeep
		if i == 1 {
			typ = ActionDiscard
		}
		dispatch(t, tbl, 1, typ, func(c *PokerAction) { c.Card, c.Index = hand[i], i })
	}

	after := tbl.View(1).Hand
	assert.NotEqual(t, hand[1], after[1])
	assert.Equal(t, hand[0], after[0])
	assert.Equal(t, hand[2:], after[2:])

	seat, ok := tbl.CurrentPlayer()
	require.True(t, ok)
	assert.Equal(t, 0, seat)
}

func TestUncontestedPot(t *testing.T) {
	tbl := newTestTable(t, DrawBatch, "alice", "bob")
	dispatch(t, tbl, 1, ActionBet, func(c *PokerAction) { c.Amount = 10 })
	dispatch(t, tbl, 0, ActionFold)

	require.True(t, tbl.HandOver())
	assert.Equal(t, map[int]uint{1: 12}, tbl.Winnings())
	seats := tbl.Seats()
	assert.Equal(t, uint(99), seats[0].Stack)
	assert.Equal(t, uint(101), seats[1].Stack)

	require.NoError(t, tbl.NewHand())
	assert.Equal(t, 1, tbl.View(0).Dealer)
}

func TestDispatchRejections(t *testing.T) {
	tbl := newTestTable(t, DrawBatch, "alice", "bob", "carol")
	d, ok := tbl.CurrentDecision(1)
	require.True(t, ok)

	tests := []struct {
		name  string
		cmd   PokerAction
		actor int
	}{
		{"wrong turn", PokerAction{PlayerID: 2, Type: ActionCheck}, 2},
		{"actor mismatch", PokerAction{PlayerID: 2, Type: ActionCheck}, 1},
		{"stale decision", PokerAction{DecisionID: "bogus", PlayerID: 1, Type: ActionCheck}, 1},
		{"call with nothing to call", PokerAction{DecisionID: d.ID, PlayerID: 1, Type: ActionCall}, 1},
		{"bet below minimum", PokerAction{DecisionID: d.ID, PlayerID: 1, Type: ActionBet, Amount: 1}, 1},
		{"bet above stack", PokerAction{DecisionID: d.ID, PlayerID: 1, Type: ActionBet, Amount: 500}, 1},
		{"draw during betting", PokerAction{DecisionID: d.ID, PlayerID: 1, Type: ActionStandPat}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tbl.Dispatch(tt.cmd, tt.actor))
		})
	}
	assert.Equal(t, 2, tbl.Ledger().Len(), "rejected commands are not logged")
}

// TestLegalMovesAgreeWithValidation dispatches every legal move on a fresh
// table and expects each to be accepted.
func TestLegalMovesAgreeWithValidation(t *testing.T) {
	probe := newTestTable(t, DrawBatch, "alice", "bob")
	legal := probe.LegalMoves(1)
	require.NotEmpty(t, legal)
	assert.Nil(t, probe.LegalMoves(0))

	for _, l := range legal {
		t.Run(string(l.Kind), func(t *testing.T) {
			tbl := newTestTable(t, DrawBatch, "alice", "bob")
			d, _ := tbl.CurrentDecision(1)
			cmd := PokerAction{DecisionID: d.ID, PlayerID: 1}
			switch l.Kind {
			case move.KindFold:
				cmd.Type = ActionFold
			case move.KindCheck:
				cmd.Type = ActionCheck
			case move.KindBet:
				cmd.Type, cmd.Amount = ActionBet, l.Max
			case move.KindAllIn:
				cmd.Type = ActionAllIn
			default:
				t.Fatalf("unexpected legal kind %s", l.Kind)
			}
			assert.NoError(t, tbl.Dispatch(cmd, 1))
		})
	}
}

func TestDefaultMove(t *testing.T) {
	tbl := newTestTable(t, DrawBatch, "alice", "bob")
	assert.Equal(t, move.Check{}, tbl.DefaultMove(1))

	dispatch(t, tbl, 1, ActionBet, func(c *PokerAction) { c.Amount = 4 })
	assert.Equal(t, move.Fold{}, tbl.DefaultMove(0))

	dispatch(t, tbl, 0, ActionCall)
	assert.Equal(t, Draw, tbl.View(0).Phase)
	assert.Equal(t, move.Skip{}, tbl.DefaultMove(1))
}

func TestGameOver(t *testing.T) {
	tbl, err := NewTable(TableConfig{
		Players:       []string{"a", "b"},
		StartingStack: 10,
		MinBet:        1,
		MaxDiscards:   3,
		DrawStyle:     DrawBatch,
		MaxHands:      1,
	}, WithSeed(3))
	require.NoError(t, err)
	require.NoError(t, tbl.NewHand())
	assert.False(t, tbl.GameOver())
	require.Error(t, tbl.NewHand(), "hand still running")

	d, _ := tbl.CurrentDecision(1)
	require.NoError(t, tbl.Dispatch(PokerAction{DecisionID: d.ID, PlayerID: 1, Type: ActionFold}, 1))
	assert.True(t, tbl.GameOver())
	assert.Error(t, tbl.NewHand())
}

func TestTableConfigValidate(t *testing.T) {
	base := TableConfig{Players: []string{"a", "b"}, StartingStack: 10, MinBet: 1, MaxDiscards: 3, DrawStyle: DrawBatch}
	require.NoError(t, base.Validate())

	bad := []func(*TableConfig){
		func(c *TableConfig) { c.Players = []string{"a"} },
		func(c *TableConfig) { c.StartingStack = 0 },
		func(c *TableConfig) { c.MinBet = 0 },
		func(c *TableConfig) { c.MaxDiscards = 0 },
		func(c *TableConfig) { c.DrawStyle = "sideways" },
	}
	for i, mutate := range bad {
		c := base
		mutate(&c)
		assert.Error(t, c.Validate(), "case %d", i)
	}
}
