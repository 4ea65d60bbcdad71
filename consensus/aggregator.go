package consensus

import (
	"cmp"
	"slices"

	"github.com/rchasman/dominion-maker-sub001/move"
)

// MarginPolicy returns the lead over the runner-up that makes the leading
// group the early winner, given the committee size and the number of
// providers that have not settled yet.
type MarginPolicy func(total, pending int) int

// Margin builds the policy max(floor, ceil(total/divisor)). With guard set
// the margin is also raised to the number of pending providers, so the
// remaining votes can never overturn the call.
func Margin(floor, divisor int, guard bool) MarginPolicy {
	if floor < 1 {
		floor = 1
	}
	if divisor < 1 {
		divisor = 1
	}
	return func(total, pending int) int {
		k := max(floor, (total+divisor-1)/divisor)
		if guard {
			k = max(k, pending)
		}
		return k
	}
}

// DefaultMargin is max(2, ceil(total/3)), guarded by the pending count.
var DefaultMargin = Margin(2, 3, true)

// Aggregator merges the proposals of one round into vote groups. It is not
// safe for concurrent use: a single goroutine feeds it in settlement order.
type Aggregator struct {
	total  int
	margin MarginPolicy

	groups map[move.Signature]*VoteGroup
	order  []*VoteGroup
	seen   map[string]bool

	settled   int
	valid     int
	cancelled bool
}

// NewAggregator prepares a round of total providers. A nil margin uses
// DefaultMargin.
func NewAggregator(total int, margin MarginPolicy) *Aggregator {
	if margin == nil {
		margin = DefaultMargin
	}
	return &Aggregator{
		total:  total,
		margin: margin,
		groups: make(map[move.Signature]*VoteGroup),
		seen:   make(map[string]bool),
	}
}

// Add merges p and reports the early winner once the leader's margin over the
// runner-up reaches the policy margin. Failed proposals only count as
// settled. Proposals arriving after Cancel, or from a provider that already
// settled, are ignored.
func (a *Aggregator) Add(p Proposal) (*VoteGroup, bool) {
	if a.cancelled || a.seen[p.ProviderID] {
		return nil, false
	}
	a.seen[p.ProviderID] = true
	a.settled++

	if p.Err == nil && p.Action != nil {
		sig := move.Encode(*p.Action)
		g, ok := a.groups[sig]
		if !ok {
			g = &VoteGroup{Signature: sig, Representative: *p.Action, order: len(a.order)}
			a.groups[sig] = g
			a.order = append(a.order, g)
		}
		g.Voters = append(g.Voters, p.ProviderID)
		a.valid++
	}
	return a.judge()
}

func (a *Aggregator) judge() (*VoteGroup, bool) {
	var leader *VoteGroup
	runnerUp := 0
	for _, g := range a.order {
		switch {
		case leader == nil:
			leader = g
		case g.Count() > leader.Count():
			runnerUp = leader.Count()
			leader = g
		case g.Count() > runnerUp:
			runnerUp = g.Count()
		}
	}
	if leader == nil {
		return nil, false
	}
	pending := max(a.total-a.settled, 0)
	if leader.Count()-runnerUp >= a.margin(a.total, pending) {
		return leader, true
	}
	return nil, false
}

// Cancel stops the aggregator from merging anything else. It is idempotent.
func (a *Aggregator) Cancel() { a.cancelled = true }

// Cancelled reports whether Cancel was called.
func (a *Aggregator) Cancelled() bool { return a.cancelled }

// Settled returns how many proposals were merged, failures included.
func (a *Aggregator) Settled() int { return a.settled }

// Valid returns how many merged proposals carried a move.
func (a *Aggregator) Valid() int { return a.valid }

// Groups returns a copy of the vote groups ranked by count, ties broken by
// the order in which each group received its first vote.
func (a *Aggregator) Groups() []VoteGroup {
	out := make([]VoteGroup, 0, len(a.order))
	for _, g := range a.order {
		c := *g
		c.Voters = append([]string(nil), g.Voters...)
		out = append(out, c)
	}
	rank(out)
	return out
}

func rank(groups []VoteGroup) {
	slices.SortStableFunc(groups, func(a, b VoteGroup) int {
		if c := cmp.Compare(b.Count(), a.Count()); c != 0 {
			return c
		}
		return cmp.Compare(a.order, b.order)
	})
}
