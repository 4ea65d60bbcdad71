// Package poker implements a five-card draw table used as the authoritative
// rule engine for consensus-driven turns.
//
// # Core Types
//
// Table: the engine. It validates and applies PokerAction commands, lists the
// legal moves of the seat to act, exposes the pending decision and a per-seat
// View, and logs every accepted command to a ledger.
//
// Session: the complete state of the table including players, pots and the
// current phase.
//
// Card: a playing card with suit and rank, identified in decisions by its
// two-letter code.
//
// # Game Flow
//
// A hand progresses through PreDraw betting → Draw → PostDraw betting →
// Showdown. During the draw each player still in the hand discards up to
// MaxDiscards cards, offered either as one batch decision or card by card,
// and receives replacements. A hand also ends as soon as all but one player
// folded.
//
// # Hand Evaluation
//
// Showdown ranks five-card hands with github.com/paulhankin/poker. Side pots
// are built from what each player put in during the hand; ties split a pot
// equally with odd chips going to the first winner after the dealer.
package poker
