package consensus

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rchasman/dominion-maker-sub001/decision"
	"github.com/rchasman/dominion-maker-sub001/move"
)

// ErrAborted is the cause of a round cancelled by AbortInFlight.
var ErrAborted = errors.New("consensus: round aborted")

// ErrNoDecision is returned when the engine is not waiting on the actor.
var ErrNoDecision = errors.New("consensus: no pending decision")

// errEarlyStop cancels the pending calls of a round that already has a winner.
var errEarlyStop = errors.New("consensus: early stop")

// UnknownDecisionCategoryError is returned for a decision shape the resolver
// cannot answer. It is never recovered.
type UnknownDecisionCategoryError = decision.UnknownCategoryError

// ProviderError wraps the failure of a single provider call.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IllegalConsensusError reports that proposals were made but none of them
// was legal.
type IllegalConsensusError struct {
	Signature move.Signature // the most voted signature
}

func (e *IllegalConsensusError) Error() string {
	return fmt.Sprintf("no legal proposal, most voted %s", e.Signature)
}

// TotalFailureError reports that every provider failed.
type TotalFailureError struct {
	Providers []string
}

func (e *TotalFailureError) Error() string {
	return fmt.Sprintf("all %d providers failed: %s", len(e.Providers), strings.Join(e.Providers, ", "))
}

// DispatchError reports that the engine rejected the winning move.
type DispatchError struct {
	Move move.Move
	Err  error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s: %v", move.Describe(e.Move), e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
