package consensus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/rchasman/dominion-maker-sub001/decision"
	"github.com/rchasman/dominion-maker-sub001/move"
)

// DefaultCallTimeout bounds a single provider call.
const DefaultCallTimeout = 30 * time.Second

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

// WithSink sets where lifecycle events go.
func WithSink(s Sink) Option {
	return func(r *Resolver) { r.sink = s }
}

// WithCallTimeout bounds every provider call. Zero disables the bound.
func WithCallTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.callTimeout = d }
}

// WithMargin replaces the early-stopping margin policy.
func WithMargin(m MarginPolicy) Option {
	return func(r *Resolver) { r.margin = m }
}

// WithMaxRounds caps the rounds of a decomposed decision. Zero means no cap.
func WithMaxRounds(n int) Option {
	return func(r *Resolver) { r.maxRounds = n }
}

// WithIDs replaces the round id generator.
func WithIDs(next func() string) Option {
	return func(r *Resolver) { r.ids = next }
}

// WithTracerProvider sets the provider of the round and call spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Resolver) { r.tracer = tp.Tracer(instrumentationName) }
}

// WithMeterProvider sets the provider of the resolver metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(r *Resolver) { r.meter = mp.Meter(instrumentationName) }
}

// Resolver turns committee votes into engine commands. It resolves one
// decision at a time; concurrent calls to ResolveOneDecision are serialized.
type Resolver struct {
	engine   RuleEngine
	fallback FallbackPolicy

	log         *slog.Logger
	sink        Sink
	callTimeout time.Duration
	margin      MarginPolicy
	maxRounds   int
	ids         func() string
	tracer      trace.Tracer
	meter       metric.Meter
	metrics     *instruments

	mu sync.Mutex

	abortMu sync.Mutex
	abort   context.CancelCauseFunc
}

// NewResolver builds a resolver playing against engine.
func NewResolver(engine RuleEngine, fallback FallbackPolicy, opts ...Option) *Resolver {
	r := &Resolver{
		engine:      engine,
		fallback:    fallback,
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		sink:        discardSink{},
		callTimeout: DefaultCallTimeout,
		margin:      DefaultMargin,
		ids:         uuid.NewString,
		tracer:      otel.Tracer(instrumentationName),
		meter:       otel.Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.metrics = newInstruments(r.meter)
	return r
}

// AbortInFlight cancels the resolution in flight, if any. Providers still
// pending are reported aborted and nothing more is dispatched.
func (r *Resolver) AbortInFlight() {
	r.abortMu.Lock()
	defer r.abortMu.Unlock()
	if r.abort != nil {
		r.abort(ErrAborted)
	}
}

func (r *Resolver) setAbort(f context.CancelCauseFunc) {
	r.abortMu.Lock()
	r.abort = f
	r.abortMu.Unlock()
}

// ResolveOneDecision resolves the decision the engine waits on from actor.
// Atomic decisions take one voted round. Compound decisions are split into
// rounds; the engine's current decision is fetched again before every round
// and the sequence ends when it changed or is gone.
//
// Unknown decision categories, dispatch errors and aborts are returned. Total
// failure and illegal consensus are recovered with the fallback move and
// reported in RoundResult.Recovered.
func (r *Resolver) ResolveOneDecision(ctx context.Context, actor int, providers []Proposer) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, abort := context.WithCancelCause(ctx)
	defer abort(nil)
	r.setAbort(abort)
	defer r.setAbort(nil)

	ctx, span := r.tracer.Start(ctx, "consensus.resolve", trace.WithAttributes(attribute.Int("actor", actor)))
	defer span.End()

	res := Result{Actor: actor}
	d, ok := r.engine.CurrentDecision(actor)
	if !ok {
		return res, ErrNoDecision
	}
	res.DecisionID = d.ID
	span.SetAttributes(attribute.String("decision.id", d.ID), attribute.String("decision.category", string(d.Category)))

	err := r.resolve(ctx, actor, d, providers, &res)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (r *Resolver) resolve(ctx context.Context, actor int, d decision.Decision, providers []Proposer, res *Result) error {
	if err := d.Validate(); err != nil {
		r.log.Error("cannot answer decision", "actor", actor, "decision", d.ID, "err", err)
		return err
	}
	if !d.Decomposable() {
		rr, err := r.round(ctx, actor, d, decision.Round{}, false, providers)
		res.Rounds = append(res.Rounds, rr)
		return err
	}

	dc, err := decision.NewDecomposer(d, r.maxRounds)
	if err != nil {
		return err
	}
	r.emit(Event{Kind: EventDecompositionStart, Actor: actor, DecisionID: d.ID})
	for {
		if ctx.Err() != nil {
			return abortError(context.Cause(ctx))
		}
		current, present := r.engine.CurrentDecision(actor)
		step, more := dc.Next(current, present)
		if !more {
			break
		}
		rr, err := r.round(ctx, actor, current, step, true, providers)
		res.Rounds = append(res.Rounds, rr)
		if err != nil {
			return err
		}
		dc.Record(rr.Move)
	}
	r.emit(Event{Kind: EventDecompositionEnd, Actor: actor, DecisionID: d.ID, Round: dc.Rounds()})
	return nil
}

// round votes on one atomic step of d and dispatches the result. For a
// decomposed step the proposers may only choose among the step's candidates
// the engine still permits.
func (r *Resolver) round(ctx context.Context, actor int, d decision.Decision, step decision.Round, decomposed bool, providers []Proposer) (RoundResult, error) {
	rr := RoundResult{RoundID: r.ids(), Index: step.Index, DecisionID: d.ID}
	base := Event{Actor: actor, DecisionID: d.ID, RoundID: rr.RoundID, Round: step.Index}

	ctx, span := r.tracer.Start(ctx, "consensus.round", trace.WithAttributes(
		attribute.String("round.id", rr.RoundID),
		attribute.Int("round.index", step.Index),
	))
	defer span.End()

	if step.Forced != nil {
		rr.Move, rr.Resolution = step.Forced, ResolvedForced
		return rr, r.dispatch(ctx, actor, base, &rr)
	}

	legal := r.engine.LegalMoves(actor)
	if decomposed {
		legal = move.Restrict(step.Candidates, legal)
	}
	req := Request{
		RoundID:  rr.RoundID,
		Actor:    actor,
		Decision: d,
		Round:    step.Index,
		View:     r.engine.View(actor),
		Legal:    legal,
	}
	start := base
	start.Kind = EventRoundStart
	r.emit(start)

	agg := NewAggregator(len(providers), r.margin)
	out := r.poll(ctx, base, req, providers, agg)
	rr.Votes = out.votes
	rr.Groups = agg.Groups()
	if out.aborted {
		return r.aborted(base, rr, out.cause)
	}

	winner, ok := Select(rr.Groups, legal, out.early)
	switch {
	case ok && out.early != nil && winner.Signature == out.early.Signature:
		rr.Move, rr.Resolution = winner.Representative.Move, ResolvedEarly
		rr.Strength = strength(winner, out.settledAtStop)
	case ok:
		rr.Move, rr.Resolution = winner.Representative.Move, ResolvedExhaustive
		rr.Strength = strength(winner, agg.Valid())
	default:
		rr.Recovered = r.failure(rr)
		rr.Move, rr.Resolution = r.fallback.DefaultMove(actor), ResolvedFallback
		r.log.Warn("falling back", "actor", actor, "decision", d.ID, "round", step.Index, "reason", rr.Recovered, "move", move.Describe(rr.Move))
		e := base
		e.Kind, e.Move, e.Err = EventFallback, move.Describe(rr.Move), rr.Recovered
		r.emit(e)
	}
	span.SetAttributes(attribute.String("resolution", string(rr.Resolution)))

	tally := base
	tally.Kind = EventTally
	tally.Move = move.Describe(rr.Move)
	tally.Resolution = rr.Resolution
	tally.Strength = rr.Strength
	tally.Votes = append([]Vote(nil), rr.Votes...)
	r.emit(tally)

	if ctx.Err() != nil {
		return r.aborted(base, rr, context.Cause(ctx))
	}
	return rr, r.dispatch(ctx, actor, base, &rr)
}

// failure explains why no group could be committed.
func (r *Resolver) failure(rr RoundResult) error {
	if len(rr.Groups) == 0 {
		ids := make([]string, 0, len(rr.Votes))
		for _, v := range rr.Votes {
			ids = append(ids, v.ProviderID)
		}
		return &TotalFailureError{Providers: ids}
	}
	return &IllegalConsensusError{Signature: rr.Groups[0].Signature}
}

func (r *Resolver) aborted(base Event, rr RoundResult, cause error) (RoundResult, error) {
	rr.Move, rr.Resolution = nil, ResolvedAborted
	err := abortError(cause)
	e := base
	e.Kind, e.Err = EventAborted, err
	e.Votes = append([]Vote(nil), rr.Votes...)
	r.emit(e)
	r.log.Info("round aborted", "actor", base.Actor, "decision", base.DecisionID, "round", base.Round)
	return rr, err
}

func (r *Resolver) dispatch(ctx context.Context, actor int, base Event, rr *RoundResult) error {
	cmd, err := toCommand(rr.Move, actor, rr.DecisionID)
	if err == nil {
		err = r.engine.Dispatch(cmd, actor)
	}
	e := base
	e.Move = move.Describe(rr.Move)
	e.Resolution = rr.Resolution
	if err != nil {
		derr := &DispatchError{Move: rr.Move, Err: err}
		r.log.Error("dispatch rejected", "actor", actor, "decision", rr.DecisionID, "move", e.Move, "err", err)
		r.metrics.recordDispatchError(ctx)
		e.Kind, e.Err = EventDispatchFailed, derr
		r.emit(e)
		return derr
	}
	r.metrics.recordRound(ctx, rr.Resolution)
	r.log.Debug("move dispatched", "actor", actor, "decision", rr.DecisionID, "move", e.Move, "resolution", rr.Resolution, "strength", rr.Strength)
	e.Kind = EventDispatched
	e.Strength = rr.Strength
	r.emit(e)
	return nil
}

func (r *Resolver) emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	r.sink.Emit(e)
}

func abortError(cause error) error {
	if cause == nil || errors.Is(cause, ErrAborted) {
		return ErrAborted
	}
	return fmt.Errorf("%w: %w", ErrAborted, cause)
}
