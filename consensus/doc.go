// Package consensus decides automated turns by committee. Every member of the
// committee (a Proposer) is asked for a move concurrently; the proposed moves
// are treated as votes and the winning, rule-legal move is dispatched to the
// rule engine.
//
// # Core Components
//
// Resolver: drives one pending decision of one actor to completion, splitting
// compound decisions into atomic rounds with the decision package.
//
// Aggregator: groups proposals by move signature and judges when the leading
// group can no longer be caught.
//
// Select: filters the vote groups against the legal moves and picks the winner.
//
// RuleEngine, Proposer, FallbackPolicy: the collaborators the resolver needs.
//
// # Round Protocol
//
// A round follows these steps:
//  1. The resolver fetches the decision the engine waits on and its legal moves
//  2. Every proposer is called concurrently under a shared round context
//  3. Each settled proposal is merged in arrival order by a single goroutine
//  4. Once the leader's margin over the runner-up reaches the policy margin the
//     round stops early and the pending calls are cancelled
//  5. The winner is checked for legality; if no group is legal the fallback
//     move is used instead
//  6. The winning move is translated into an engine command and dispatched
//
// # Cancellation
//
// Each round owns a fresh context. Stopping it blocks further merges and
// reaches every pending provider call. AbortInFlight cancels the round in
// flight, if any; nothing is dispatched for an aborted round.
package consensus
