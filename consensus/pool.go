package consensus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rchasman/dominion-maker-sub001/move"
)

type settled struct {
	index    int
	proposal Proposal
}

// pollOutcome is what the pool runner observed for one round.
type pollOutcome struct {
	votes         []Vote
	early         *VoteGroup
	settledAtStop int
	aborted       bool
	cause         error
}

// poll calls every provider concurrently and feeds the settled proposals to
// agg in arrival order. It returns once every provider settled, once agg
// reports an early winner, or once ctx is cancelled.
func (r *Resolver) poll(ctx context.Context, base Event, req Request, providers []Proposer, agg *Aggregator) pollOutcome {
	roundCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	out := pollOutcome{votes: make([]Vote, len(providers))}
	results := make(chan settled, len(providers))
	for i, p := range providers {
		out.votes[i] = Vote{ProviderID: p.ID(), Status: StatusPending}
		r.emitVote(base, EventProviderPending, out.votes[i])
		go func(i int, p Proposer) {
			results <- settled{index: i, proposal: r.call(roundCtx, p, req)}
		}(i, p)
	}

	stop := func(status Status) {
		agg.Cancel()
		for i := range out.votes {
			if out.votes[i].Status != StatusPending {
				continue
			}
			out.votes[i].Status = status
			r.metrics.recordCall(ctx, out.votes[i].ProviderID, status, 0)
			r.emitVote(base, EventProviderAborted, out.votes[i])
		}
	}

	for remaining := len(providers); remaining > 0; remaining-- {
		var s settled
		select {
		case <-roundCtx.Done():
			out.aborted, out.cause = true, context.Cause(roundCtx)
			stop(StatusAborted)
			return out
		case s = <-results:
		}
		if roundCtx.Err() != nil {
			out.aborted, out.cause = true, context.Cause(roundCtx)
			stop(StatusAborted)
			return out
		}

		v := &out.votes[s.index]
		v.Duration = s.proposal.Duration
		if s.proposal.Err != nil {
			v.Status, v.Err = StatusFailed, s.proposal.Err
			r.emitVote(base, EventProviderFailed, *v)
		} else {
			v.Status, v.Move, v.Rationale = StatusCompleted, s.proposal.Action.Move, s.proposal.Action.Rationale
			r.emitVote(base, EventProviderCompleted, *v)
		}
		r.metrics.recordCall(ctx, v.ProviderID, v.Status, v.Duration)

		if winner, ok := agg.Add(s.proposal); ok {
			early := *winner
			early.Voters = append([]string(nil), winner.Voters...)
			out.early = &early
			out.settledAtStop = agg.Settled()
			cancel(errEarlyStop)
			stop(StatusAborted)

			e := base
			e.Kind = EventEarlyStop
			e.Move = move.Describe(early.Representative.Move)
			r.emit(e)
			return out
		}
	}
	return out
}

// call runs one provider under the round context and the per-call timeout.
// A panic, a timeout or an empty move all settle as a failed proposal.
func (r *Resolver) call(ctx context.Context, p Proposer, req Request) (prop Proposal) {
	id := p.ID()
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "consensus.propose", trace.WithAttributes(attribute.String("provider", id)))
	defer span.End()

	if r.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.callTimeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			prop = Proposal{ProviderID: id, Err: &ProviderError{Provider: id, Err: fmt.Errorf("panic: %v", rec)}}
		}
		prop.Duration = time.Since(start)
		if prop.Err != nil {
			span.RecordError(prop.Err)
			span.SetStatus(codes.Error, prop.Err.Error())
		}
	}()

	action, err := p.Propose(ctx, req)
	if err == nil && action.Move == nil {
		err = errors.New("no move proposed")
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		return Proposal{ProviderID: id, Err: &ProviderError{Provider: id, Err: err}}
	}
	span.SetAttributes(attribute.String("move", move.Describe(action.Move)))
	return Proposal{ProviderID: id, Action: &action}
}

func (r *Resolver) emitVote(base Event, kind EventKind, v Vote) {
	e := base
	e.Kind = kind
	e.Provider = v.ProviderID
	e.Duration = v.Duration
	e.Err = v.Err
	if v.Move != nil {
		e.Move = move.Describe(v.Move)
		e.Rationale = v.Rationale
	}
	r.emit(e)
}
