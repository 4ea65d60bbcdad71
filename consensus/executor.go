package consensus

import (
	"fmt"

	"github.com/rchasman/dominion-maker-sub001/domain/poker"
	"github.com/rchasman/dominion-maker-sub001/move"
)

// toCommand translates a committed move into the engine command for actor.
func toCommand(m move.Move, actor int, decisionID string) (poker.PokerAction, error) {
	cmd := poker.PokerAction{DecisionID: decisionID, PlayerID: actor, Index: -1}
	switch v := m.(type) {
	case move.Fold:
		cmd.Type = poker.ActionFold
	case move.Check:
		cmd.Type = poker.ActionCheck
	case move.Call:
		cmd.Type = poker.ActionCall
	case move.AllIn:
		cmd.Type = poker.ActionAllIn
	case move.Bet:
		cmd.Type = poker.ActionBet
		cmd.Amount = v.Amount
	case move.Raise:
		cmd.Type = poker.ActionRaise
		cmd.Amount = v.Amount
	case move.Pick:
		cmd.Type = poker.ActionDiscard
		cmd.Card = v.Item
	case move.Resolve:
		cmd.Type = poker.ActionType(v.Sub)
		cmd.Card = v.Item
		cmd.Index = v.Index
	case move.Skip:
		cmd.Type = poker.ActionStandPat
	case nil:
		return cmd, fmt.Errorf("no move to dispatch")
	default:
		return cmd, fmt.Errorf("unsupported move %s", m.Kind())
	}
	return cmd, nil
}
