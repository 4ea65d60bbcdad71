package consensus

import (
	"time"

	"github.com/rchasman/dominion-maker-sub001/move"
)

// Status is the lifecycle state of one provider call.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusAborted   Status = "aborted"
)

// Proposal is the settled outcome of one provider call. Exactly one of
// Action and Err is set.
type Proposal struct {
	ProviderID string
	Action     *move.Action
	Err        error
	Duration   time.Duration
}

// VoteGroup collects the providers that proposed the same move.
type VoteGroup struct {
	Signature      move.Signature
	Representative move.Action // first action observed with this signature
	Voters         []string

	order int // position of the first vote among all groups
}

// Count returns the number of votes in the group.
func (g *VoteGroup) Count() int { return len(g.Voters) }

// Resolution says how a round's move was chosen.
type Resolution string

const (
	// ResolvedEarly means the leader was unbeatable before every provider settled.
	ResolvedEarly Resolution = "early"
	// ResolvedExhaustive means every provider settled and the best legal group won.
	ResolvedExhaustive Resolution = "exhaustive"
	// ResolvedFallback means no group could be committed.
	ResolvedFallback Resolution = "fallback"
	// ResolvedForced means the round offered a single forced move and nobody was asked.
	ResolvedForced Resolution = "forced"
	// ResolvedAborted means the round was cancelled and nothing was dispatched.
	ResolvedAborted Resolution = "aborted"
)

// Vote is what a single provider did in a round.
type Vote struct {
	ProviderID string
	Status     Status
	Move       move.Move
	Rationale  string
	Err        error
	Duration   time.Duration
}

// RoundResult is the outcome of one voted (or forced) round.
type RoundResult struct {
	RoundID    string
	Index      int
	DecisionID string
	Move       move.Move
	Resolution Resolution
	Strength   float64 // winner votes over the votes considered, 0 for fallback and forced
	Votes      []Vote  // in provider order
	Groups     []VoteGroup
	Recovered  error // IllegalConsensusError or TotalFailureError when the fallback was used
}

// Result is the outcome of resolving one decision.
type Result struct {
	Actor      int
	DecisionID string
	Rounds     []RoundResult
}

// Moves returns the committed move of every round, in order.
func (r Result) Moves() []move.Move {
	out := make([]move.Move, 0, len(r.Rounds))
	for _, rr := range r.Rounds {
		if rr.Move != nil {
			out = append(out, rr.Move)
		}
	}
	return out
}
