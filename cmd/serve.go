package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rchasman/dominion-maker-sub001/consensus"
	"github.com/rchasman/dominion-maker-sub001/discovery"
	"github.com/rchasman/dominion-maker-sub001/network"
	"github.com/rchasman/dominion-maker-sub001/provider"
)

type serveFlags struct {
	id       string
	style    string
	addr     string
	tls      bool
	announce bool
	ports    []uint
	latency  time.Duration
}

func newServeCommand(g *globalFlags) *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a bot as a remote proposer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			style, err := provider.ParseStyle(f.style)
			if err != nil {
				return err
			}
			id := f.id
			if id == "" {
				id = fmt.Sprint("remote-", f.style)
			}
			var p consensus.Proposer = provider.NewBot(id, style).WithSeed(cfg.Seed)
			p = provider.WithLatency(p, f.latency, 0)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, p, logger, f)
		},
	}
	cmd.Flags().StringVar(&f.id, "id", "", "proposer id (default remote-<style>)")
	cmd.Flags().StringVar(&f.style, "style", string(provider.Tight), "bot style: tight, loose, station or random")
	cmd.Flags().StringVar(&f.addr, "addr", ":0", "listen address")
	cmd.Flags().BoolVar(&f.tls, "tls", false, "serve over TLS with a self-signed certificate")
	cmd.Flags().BoolVar(&f.announce, "announce", false, "announce the server to local drivers")
	cmd.Flags().UintSliceVar(&f.ports, "discover-ports", []uint{9000, 9010}, "first and last discovery port")
	cmd.Flags().DurationVar(&f.latency, "latency", 0, "delay every answer")
	return cmd
}

// serve runs the proposer server, and the announcer when asked, until ctx
// is done.
func serve(ctx context.Context, p consensus.Proposer, logger *slog.Logger, f *serveFlags) error {
	l, err := net.Listen("tcp", f.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", f.addr, err)
	}
	addr, err := announceAddress(l)
	if err != nil {
		_ = l.Close()
		return err
	}

	opts := []network.ServerOption{network.WithLogger(logger)}
	if f.tls {
		cert, _, err := network.GenerateSelfSignedCert(addr)
		if err != nil {
			_ = l.Close()
			return fmt.Errorf("certificate: %w", err)
		}
		opts = append(opts, network.WithCertificate(cert))
	}
	srv := network.NewServer(p, opts...)

	var announcer *discovery.Discover
	if f.announce {
		if len(f.ports) != 2 {
			_ = l.Close()
			return fmt.Errorf("--discover-ports takes the first and the last port")
		}
		announcer, err = discovery.NewWithOptions(
			discovery.Entry{ID: p.ID(), Address: addr, TLS: f.tls},
			discovery.WithPortRange(uint16(f.ports[0]), uint16(f.ports[1])),
			discovery.WithAttempts(0),
			discovery.WithLogger(logger),
		)
		if err != nil {
			_ = l.Close()
			return fmt.Errorf("announce: %w", err)
		}
		pterm.Info.Printfln("announcing on port %d", announcer.Port())
	}

	pterm.Success.Printfln("%s serving on %s", p.ID(), addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(l)
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Close(sctx)
		if announcer != nil {
			if cerr := announcer.Close(); err == nil {
				err = cerr
			}
		}
		return err
	})
	return g.Wait()
}
