package provider

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"

	"github.com/rchasman/dominion-maker-sub001/consensus"
	"github.com/rchasman/dominion-maker-sub001/decision"
	"github.com/rchasman/dominion-maker-sub001/domain/poker"
	"github.com/rchasman/dominion-maker-sub001/move"
)

// Style is the temperament of a heuristic bot.
type Style string

const (
	// Tight bets two pair or better and calls with jacks or better.
	Tight Style = "tight"
	// Loose bets any pair and calls with ace high, or cheaply with less.
	Loose Style = "loose"
	// Station checks and calls everything and never draws.
	Station Style = "station"
	// Random picks uniformly among the legal moves.
	Random Style = "random"
)

// ParseStyle validates s.
func ParseStyle(s string) (Style, error) {
	switch st := Style(s); st {
	case Tight, Loose, Station, Random:
		return st, nil
	default:
		return "", fmt.Errorf("unknown bot style %q", s)
	}
}

var errNothingLegal = errors.New("no legal move offered")

// Bot is a deterministic local proposer. The random style is seeded by the
// bot id and the round id, so a replayed round gets the same answer.
type Bot struct {
	id    string
	style Style
	seed  uint64
}

// NewBot returns a bot of the given style.
func NewBot(id string, style Style) *Bot {
	return &Bot{id: id, style: style}
}

// WithSeed returns a copy of b whose random choices also depend on seed.
func (b *Bot) WithSeed(seed int64) *Bot {
	c := *b
	c.seed = uint64(seed)
	return &c
}

func (b *Bot) ID() string { return b.id }

func (b *Bot) Style() Style { return b.style }

func (b *Bot) Propose(ctx context.Context, req consensus.Request) (move.Action, error) {
	if err := ctx.Err(); err != nil {
		return move.Action{}, err
	}
	if len(req.Legal) == 0 {
		return move.Action{}, errNothingLegal
	}
	if b.style == Random {
		return b.random(req), nil
	}
	switch req.Decision.Category {
	case decision.CategoryChooseCards:
		return b.pick(req), nil
	case decision.CategoryResolveEach:
		return b.resolve(req), nil
	default:
		return b.bet(req), nil
	}
}

func find(legal []move.Legal, kind move.Kind) (move.Legal, bool) {
	for _, l := range legal {
		if l.Kind == kind {
			return l, true
		}
	}
	return move.Legal{}, false
}

func (b *Bot) bet(req consensus.Request) move.Action {
	th := styleThresholds[b.style]
	v := req.View
	score := handScore(v.Hand)

	if score >= th.raise {
		if l, ok := find(req.Legal, move.KindBet); ok {
			return move.Action{Move: move.Bet{Amount: clamp(2*v.MinBet, l)}, Rationale: "value bet"}
		}
		if l, ok := find(req.Legal, move.KindRaise); ok {
			return move.Action{Move: move.Raise{Amount: clamp(l.Min, l)}, Rationale: "raise for value"}
		}
	}
	if _, ok := find(req.Legal, move.KindCheck); ok {
		return move.Action{Move: move.Check{}, Rationale: "free card"}
	}
	if _, ok := find(req.Legal, move.KindCall); ok {
		if score >= th.call || (th.cheap > 0 && v.ToCall <= th.cheap*v.MinBet) {
			return move.Action{Move: move.Call{}, Rationale: fmt.Sprintf("calling %d", v.ToCall)}
		}
	}
	if b.style == Station {
		if _, ok := find(req.Legal, move.KindAllIn); ok {
			return move.Action{Move: move.AllIn{}, Rationale: "cannot cover the call"}
		}
	}
	return move.Action{Move: move.Fold{}, Rationale: "not worth the price"}
}

func clamp(amount uint, l move.Legal) uint {
	return max(l.Min, min(amount, l.Max))
}

// plan is the set of card codes the bot wants to replace.
func (b *Bot) plan(req consensus.Request) map[string]bool {
	out := map[string]bool{}
	if b.style == Station {
		return out
	}
	for _, pos := range discardPlan(req.View.Hand, req.View.MaxDiscards) {
		out[req.View.Hand[pos]] = true
	}
	return out
}

func (b *Bot) pick(req consensus.Request) move.Action {
	want := b.plan(req)
	for _, l := range req.Legal {
		if l.Kind == move.KindPick && want[l.Item] {
			return move.Action{Move: move.Pick{Item: l.Item}, Rationale: "drawing to improve"}
		}
	}
	return skipOr(req.Legal, "standing pat")
}

func (b *Bot) resolve(req consensus.Request) move.Action {
	want := b.plan(req)
	sub := poker.SubKeep
	for _, l := range req.Legal {
		if l.Kind == move.KindResolve && want[l.Item] {
			sub = poker.SubDiscard
			break
		}
	}
	for _, l := range req.Legal {
		if l.Kind == move.KindResolve && l.Sub == sub {
			return move.Action{Move: l.Instance(), Rationale: sub + " " + l.Item}
		}
	}
	for _, l := range req.Legal {
		if l.Kind == move.KindResolve {
			return move.Action{Move: l.Instance(), Rationale: l.Sub + " " + l.Item}
		}
	}
	return skipOr(req.Legal, "nothing to resolve")
}

func skipOr(legal []move.Legal, why string) move.Action {
	if _, ok := find(legal, move.KindSkip); ok {
		return move.Action{Move: move.Skip{}, Rationale: why}
	}
	return move.Action{Move: legal[0].Instance(), Rationale: why}
}

func (b *Bot) random(req consensus.Request) move.Action {
	h := fnv.New64a()
	h.Write([]byte(b.id))
	h.Write([]byte{0})
	h.Write([]byte(req.RoundID))
	rng := rand.New(rand.NewPCG(h.Sum64(), b.seed))

	l := req.Legal[rng.IntN(len(req.Legal))]
	m := l.Instance()
	if (l.Kind == move.KindBet || l.Kind == move.KindRaise) && l.Max > l.Min {
		amount := l.Min + uint(rng.UintN(l.Max-l.Min+1))
		if l.Kind == move.KindBet {
			m = move.Bet{Amount: amount}
		} else {
			m = move.Raise{Amount: amount}
		}
	}
	return move.Action{Move: m, Rationale: "dice roll"}
}
