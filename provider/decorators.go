package provider

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"

	"github.com/rchasman/dominion-maker-sub001/consensus"
	"github.com/rchasman/dominion-maker-sub001/move"
)

type delayed struct {
	consensus.Proposer
	latency time.Duration
	jitter  time.Duration
}

// WithLatency delays every answer of p by latency plus up to jitter. The
// delay ends early when the call is cancelled.
func WithLatency(p consensus.Proposer, latency, jitter time.Duration) consensus.Proposer {
	if latency <= 0 && jitter <= 0 {
		return p
	}
	return &delayed{Proposer: p, latency: latency, jitter: jitter}
}

func (d *delayed) Propose(ctx context.Context, req consensus.Request) (move.Action, error) {
	wait := d.latency
	if d.jitter > 0 {
		wait += rand.N(d.jitter)
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
		return move.Action{}, ctx.Err()
	}
	return d.Proposer.Propose(ctx, req)
}

type limited struct {
	consensus.Proposer
	limiter *rate.Limiter
}

// RateLimited lets at most perSecond calls a second through to p, with the
// given burst. Waiting for a token honours the call context.
func RateLimited(p consensus.Proposer, perSecond float64, burst int) consensus.Proposer {
	if perSecond <= 0 {
		return p
	}
	if burst < 1 {
		burst = 1
	}
	return &limited{Proposer: p, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (l *limited) Propose(ctx context.Context, req consensus.Request) (move.Action, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return move.Action{}, fmt.Errorf("rate limit: %w", err)
	}
	return l.Proposer.Propose(ctx, req)
}
