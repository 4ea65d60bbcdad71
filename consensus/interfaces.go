package consensus

import (
	"context"

	"github.com/rchasman/dominion-maker-sub001/decision"
	"github.com/rchasman/dominion-maker-sub001/domain/poker"
	"github.com/rchasman/dominion-maker-sub001/move"
)

// RuleEngine is the authoritative game the resolver plays against.
// Implementations must be safe for concurrent use.
type RuleEngine interface {
	// Dispatch validates and applies cmd on behalf of actor.
	// Returns an error if the command was rejected; the game state is then
	// unchanged.
	Dispatch(cmd poker.PokerAction, actor int) error

	// LegalMoves lists the moves actor may make in the current state.
	// It is empty when the engine is not waiting on actor.
	LegalMoves(actor int) []move.Legal

	// View returns the game state as actor is allowed to see it.
	View(actor int) poker.View

	// CurrentDecision returns the decision the engine waits on from actor,
	// or false when there is none.
	CurrentDecision(actor int) (decision.Decision, bool)
}

// Proposer is one member of a committee.
type Proposer interface {
	// ID returns a stable identifier, unique within a committee.
	ID() string

	// Propose returns the move the proposer would make for req.
	// Implementations must return promptly once ctx is done.
	Propose(ctx context.Context, req Request) (move.Action, error)
}

// FallbackPolicy supplies the move used when no proposal can be committed.
type FallbackPolicy interface {
	// DefaultMove returns a move that is legal for actor in the current state.
	DefaultMove(actor int) move.Move
}

// FallbackFunc adapts a function to FallbackPolicy.
type FallbackFunc func(actor int) move.Move

func (f FallbackFunc) DefaultMove(actor int) move.Move { return f(actor) }

// Request is what a proposer is asked to decide. Legal holds exactly the
// moves that may be proposed this round.
type Request struct {
	RoundID  string            `json:"round_id"`
	Actor    int               `json:"actor"`
	Decision decision.Decision `json:"decision"`
	Round    int               `json:"round"`
	View     poker.View        `json:"view"`
	Legal    []move.Legal      `json:"legal"`
}
