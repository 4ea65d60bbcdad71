package consensus

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/rchasman/dominion-maker-sub001/consensus"

// instruments holds the resolver metrics. A nil instrument is skipped.
type instruments struct {
	rounds     metric.Int64Counter
	calls      metric.Int64Counter
	callTime   metric.Float64Histogram
	dispatches metric.Int64Counter
}

func newInstruments(meter metric.Meter) *instruments {
	in := &instruments{}
	var err error
	if in.rounds, err = meter.Int64Counter("consensus.rounds.total",
		metric.WithDescription("Committed rounds by resolution"),
		metric.WithUnit("{round}"),
	); err != nil {
		in.rounds = nil
	}
	if in.calls, err = meter.Int64Counter("consensus.provider.calls.total",
		metric.WithDescription("Provider calls by final status"),
		metric.WithUnit("{call}"),
	); err != nil {
		in.calls = nil
	}
	if in.callTime, err = meter.Float64Histogram("consensus.provider.duration",
		metric.WithDescription("Provider call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30),
	); err != nil {
		in.callTime = nil
	}
	if in.dispatches, err = meter.Int64Counter("consensus.dispatch.errors.total",
		metric.WithDescription("Winning moves rejected by the rule engine"),
		metric.WithUnit("{error}"),
	); err != nil {
		in.dispatches = nil
	}
	return in
}

func (in *instruments) recordRound(ctx context.Context, res Resolution) {
	if in.rounds != nil {
		in.rounds.Add(ctx, 1, metric.WithAttributes(attribute.String("resolution", string(res))))
	}
}

func (in *instruments) recordCall(ctx context.Context, provider string, status Status, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("provider", provider), attribute.String("status", string(status)))
	if in.calls != nil {
		in.calls.Add(ctx, 1, attrs)
	}
	if in.callTime != nil && status != StatusAborted {
		in.callTime.Record(ctx, d.Seconds(), attrs)
	}
}

func (in *instruments) recordDispatchError(ctx context.Context) {
	if in.dispatches != nil {
		in.dispatches.Add(ctx, 1)
	}
}
