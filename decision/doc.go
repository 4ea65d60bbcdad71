// Package decision describes the prompts a rule engine waits on and splits
// compound prompts into sequences of atomic, independently voted rounds.
//
// Two compound shapes are supported. A batch decision (choose-cards) picks
// between Min and Max items of a pool; each round offers one Pick per distinct
// remaining value and removes a single instance of the winner. A per-item
// decision (resolve-each) walks the items in order and offers one Resolve per
// sub-action for the current item.
package decision
