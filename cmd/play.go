package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/rchasman/dominion-maker-sub001/config"
	"github.com/rchasman/dominion-maker-sub001/consensus"
	"github.com/rchasman/dominion-maker-sub001/discovery"
	"github.com/rchasman/dominion-maker-sub001/domain/poker"
	"github.com/rchasman/dominion-maker-sub001/network"
	"github.com/rchasman/dominion-maker-sub001/provider"
	"github.com/rchasman/dominion-maker-sub001/telemetry"
)

type playFlags struct {
	discover      time.Duration
	ports         []uint
	peers         []string
	insecurePeers bool
	quiet         bool
}

func newPlayCommand(g *globalFlags) *cobra.Command {
	f := &playFlags{}
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Run a table where every seat is played by the committee",
		Long: "Run hands until the game is over. Every decision is put to the committee and its\n" +
			"tally is printed. Ctrl-C aborts the round in flight and stops; a second Ctrl-C\n" +
			"cancels immediately.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			return play(cmd.Context(), cfg, logger, f)
		},
	}
	cmd.Flags().DurationVar(&f.discover, "discover", 0, "search local proposer servers for this long before playing")
	cmd.Flags().UintSliceVar(&f.ports, "discover-ports", []uint{9000, 9010}, "first and last discovery port")
	cmd.Flags().StringSliceVar(&f.peers, "peer", nil, "remote proposer address; a partial IPv4 host is completed from the local address")
	cmd.Flags().BoolVar(&f.insecurePeers, "insecure-peers", false, "dial --peer proposers over TLS without verification")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "print hand results only")
	return cmd
}

func play(ctx context.Context, cfg config.Config, logger *slog.Logger, f *playFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tp, shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	committee, err := provider.Build(cfg)
	if err != nil {
		return err
	}
	remote, err := remoteProposers(ctx, logger, f)
	if err != nil {
		return err
	}
	committee = append(committee, remote...)
	if err := uniqueIDs(committee); err != nil {
		return err
	}

	opts := []poker.TableOption{poker.WithLogger(logger)}
	if cfg.Seed != 0 {
		opts = append(opts, poker.WithSeed(cfg.Seed))
	}
	tbl, err := poker.NewTable(poker.TableConfig{
		Players:       cfg.Table.Players,
		StartingStack: cfg.Table.StartingStack,
		Ante:          cfg.Table.Ante,
		MinBet:        cfg.Table.MinBet,
		MaxDiscards:   cfg.Table.MaxDiscards,
		DrawStyle:     poker.DrawStyle(cfg.Table.DrawStyle),
		MaxHands:      cfg.Table.MaxHands,
	}, opts...)
	if err != nil {
		return fmt.Errorf("table: %w", err)
	}

	sinks := consensus.MultiSink{consensus.LogSink{Log: logger}}
	if !f.quiet {
		sinks = append(sinks, progressSink(cfg.Table.Players))
	}
	resolver := consensus.NewResolver(tbl, tbl,
		consensus.WithLogger(logger),
		consensus.WithSink(sinks),
		consensus.WithCallTimeout(cfg.Consensus.CallTimeout),
		consensus.WithMargin(consensus.Margin(cfg.Consensus.MarginFloor, cfg.Consensus.MarginDivisor, cfg.Consensus.MarginGuard)),
		consensus.WithMaxRounds(cfg.Consensus.MaxRounds),
		consensus.WithTracerProvider(tp),
	)

	var stopping atomic.Bool
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)
	go func() {
		for {
			select {
			case <-sig:
				if stopping.Swap(true) {
					cancel()
					return
				}
				pterm.Warning.Println("aborting the round in flight")
				resolver.AbortInFlight()
			case <-ctx.Done():
				return
			}
		}
	}()

	if !f.quiet {
		renderBanner()
	}
	pterm.Info.Printfln("%d seats, committee of %d", len(cfg.Table.Players), len(committee))

	for !tbl.GameOver() && !stopping.Load() {
		if err := tbl.NewHand(); err != nil {
			return err
		}
		for !tbl.HandOver() {
			if stopping.Load() {
				pterm.Warning.Println("stopped")
				return nil
			}
			seat, ok := tbl.CurrentPlayer()
			if !ok {
				break
			}
			name := cfg.Table.Players[seat]
			res, err := resolver.ResolveOneDecision(ctx, seat, committee)
			if !f.quiet {
				renderResult(name, res)
			}
			switch {
			case errors.Is(err, consensus.ErrAborted) && stopping.Load():
				pterm.Warning.Println("stopped")
				return nil
			case errors.Is(err, consensus.ErrAborted):
				// aborted for another reason; ask again
				continue
			case err != nil:
				return err
			case len(res.Rounds) == 0:
				return fmt.Errorf("no progress on %s's decision %s", name, res.DecisionID)
			}
		}
		renderHandEnd(tbl)
	}

	if err := tbl.Ledger().Verify(); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	logger.Info("game over", "commands", tbl.Ledger().Len())
	return nil
}

func remoteProposers(ctx context.Context, logger *slog.Logger, f *playFlags) ([]consensus.Proposer, error) {
	var out []consensus.Proposer
	local := localIPv4()
	for i, p := range f.peers {
		addr, err := resolvePeer(local, p, 9000)
		if err != nil {
			return nil, err
		}
		var opts []network.ClientOption
		if f.insecurePeers {
			opts = append(opts, network.WithInsecureSkipVerify())
		}
		c, err := network.NewClient(fmt.Sprint("peer-", i), addr, opts...)
		if err != nil {
			return nil, err
		}
		hctx, hcancel := context.WithTimeout(ctx, 3*time.Second)
		id, err := c.Health(hctx)
		hcancel()
		if err != nil {
			logger.Warn("peer not healthy", "address", addr, "error", err)
		} else {
			logger.Info("peer", "address", addr, "id", id)
		}
		out = append(out, c)
	}

	if f.discover <= 0 {
		return out, nil
	}
	if len(f.ports) != 2 {
		return nil, fmt.Errorf("--discover-ports takes the first and the last port")
	}
	// A driver announces itself without an address so other drivers skip it.
	d, err := discovery.NewWithOptions(
		discovery.Entry{ID: "driver-" + uuid.NewString()},
		discovery.WithPortRange(uint16(f.ports[0]), uint16(f.ports[1])),
		discovery.WithAttempts(2),
		discovery.WithInterval(f.discover/2),
		discovery.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = d.Close() }()

	spinner, _ := pterm.DefaultSpinner.Start("Searching for proposer servers ...")
	dctx, cancel := context.WithTimeout(ctx, f.discover+time.Second)
	defer cancel()
	entries := d.Collect(dctx)
	spinner.Success(fmt.Sprintf("found %d proposer servers", len(entries)))

	for _, e := range entries {
		var opts []network.ClientOption
		if e.TLS {
			opts = append(opts, network.WithInsecureSkipVerify())
		}
		c, err := network.NewClient(e.ID, e.Address, opts...)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func uniqueIDs(committee []consensus.Proposer) error {
	seen := make(map[string]bool, len(committee))
	for _, p := range committee {
		if seen[p.ID()] {
			return fmt.Errorf("two committee members named %q", p.ID())
		}
		seen[p.ID()] = true
	}
	return nil
}
