package provider

import (
	"fmt"

	"github.com/rchasman/dominion-maker-sub001/config"
	"github.com/rchasman/dominion-maker-sub001/consensus"
	"github.com/rchasman/dominion-maker-sub001/network"
)

// Build creates the committee described by cfg, in configuration order.
// Latency and rate limits wrap the proposer they are configured on.
func Build(cfg config.Config) ([]consensus.Proposer, error) {
	out := make([]consensus.Proposer, 0, len(cfg.Committee))
	for _, pc := range cfg.Committee {
		p, err := build(cfg, pc)
		if err != nil {
			return nil, fmt.Errorf("committee member %q: %w", pc.ID, err)
		}
		p = WithLatency(p, pc.Latency, pc.Jitter)
		p = RateLimited(p, pc.RatePerSecond, pc.Burst)
		out = append(out, p)
	}
	return out, nil
}

func build(cfg config.Config, pc config.Provider) (consensus.Proposer, error) {
	switch pc.Kind {
	case config.KindBot:
		style, err := ParseStyle(pc.Style)
		if err != nil {
			return nil, err
		}
		return NewBot(pc.ID, style).WithSeed(cfg.Seed), nil
	case config.KindLLM:
		model := cfg.LLM.Model
		if pc.Model != "" {
			model = pc.Model
		}
		opts := []llmOption{WithModel(model), WithTemperature(cfg.LLM.Temperature)}
		if cfg.LLM.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.LLM.BaseURL))
		}
		return NewLLM(pc.ID, cfg.LLM.APIKey, opts...), nil
	case config.KindRemote:
		var opts []network.ClientOption
		if pc.Insecure {
			opts = append(opts, network.WithInsecureSkipVerify())
		}
		return network.NewClient(pc.ID, pc.Address, opts...)
	default:
		return nil, fmt.Errorf("unknown kind %q", pc.Kind)
	}
}
