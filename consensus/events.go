package consensus

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// EventKind names a point in the life of a round.
type EventKind string

const (
	EventRoundStart         EventKind = "round_start"
	EventProviderPending    EventKind = "provider_pending"
	EventProviderCompleted  EventKind = "provider_completed"
	EventProviderFailed     EventKind = "provider_failed"
	EventProviderAborted    EventKind = "provider_aborted"
	EventEarlyStop          EventKind = "early_stop"
	EventTally              EventKind = "tally"
	EventFallback           EventKind = "fallback"
	EventDecompositionStart EventKind = "decomposition_start"
	EventDecompositionEnd   EventKind = "decomposition_end"
	EventDispatched         EventKind = "dispatched"
	EventDispatchFailed     EventKind = "dispatch_failed"
	EventAborted            EventKind = "aborted"
)

// Event is one observation emitted by the resolver. Only the fields relevant
// to Kind are set.
type Event struct {
	Kind       EventKind
	Time       time.Time
	Actor      int
	DecisionID string
	RoundID    string
	Round      int
	Provider   string
	Move       string
	Rationale  string
	Err        error
	Duration   time.Duration
	Resolution Resolution
	Strength   float64
	Votes      []Vote
}

// Sink receives events. Emit must not block.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

type discardSink struct{}

func (discardSink) Emit(Event) {}

// ChannelSink buffers events on a channel and drops them when it is full.
type ChannelSink struct {
	ch      chan Event
	dropped atomic.Int64
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan Event, buffer)}
}

func (s *ChannelSink) Emit(e Event) {
	select {
	case s.ch <- e:
	default:
		s.dropped.Add(1)
	}
}

// Events returns the receiving side of the sink.
func (s *ChannelSink) Events() <-chan Event { return s.ch }

// Dropped returns how many events did not fit in the buffer.
func (s *ChannelSink) Dropped() int64 { return s.dropped.Load() }

// LogSink writes every event to a logger at debug level.
type LogSink struct {
	Log *slog.Logger
}

func (s LogSink) Emit(e Event) {
	attrs := []any{"actor", e.Actor, "round", e.Round}
	if e.RoundID != "" {
		attrs = append(attrs, "round_id", e.RoundID)
	}
	if e.Provider != "" {
		attrs = append(attrs, "provider", e.Provider)
	}
	if e.Move != "" {
		attrs = append(attrs, "move", e.Move)
	}
	if e.Resolution != "" {
		attrs = append(attrs, "resolution", e.Resolution, "strength", e.Strength)
	}
	if e.Duration > 0 {
		attrs = append(attrs, "duration", e.Duration)
	}
	if e.Err != nil {
		attrs = append(attrs, "err", e.Err)
	}
	s.Log.Debug(string(e.Kind), attrs...)
}

// MultiSink fans every event out to all of its sinks.
type MultiSink []Sink

func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}
