package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gisco/internal/observability"
	"gisco/internal/relay"
)

// newRelayCommand creates the relay subcommand
func newRelayCommand(cli *CLI) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run the relay and embedder without the preview site",
		Long: `Run only the relay endpoint and the embedder. Use this when the pages
live somewhere else and already load the shim script themselves. With
--watch, a live feed of widget signals is shown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.initialize(cmd); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return cli.runRelay(ctx, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Show a live feed of widget signals")
	return cmd
}

func (cli *CLI) runRelay(ctx context.Context, watch bool) error {
	wcfg := cli.cfg.WidgetConfig()
	if err := wcfg.Validate(); err != nil {
		return fmt.Errorf("widget configuration: %w (run `gisco init` first)", err)
	}
	if watch && !isTTY() {
		cli.logger.Warn("not a terminal, ignoring --watch")
		watch = false
	}

	metrics, err := observability.NewMetricsCollector(cli.obs.Metrics)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	tracer, err := observability.NewTracerProvider(cli.obs.Tracing)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	endpoint := relay.New(cli.cfg.RelayConfig(), cli.logger, metrics)
	if err := endpoint.Start(); err != nil {
		return fmt.Errorf("relay: %w", err)
	}

	if cli.obs.Metrics.Enabled {
		if err := metrics.StartPrometheusServer(cli.obs.Metrics.PrometheusPort); err != nil {
			cli.logger.Warn("metrics server failed to start: %v", err)
		}
	}

	if !watch {
		fmt.Printf("\n%s relay listening on %s\n", green("●"), bold("ws://"+endpoint.Addr()+"/ws"))
		fmt.Printf("%s\n\n", gray("Point the page shim at this endpoint. Ctrl+C stops."))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cli.runEmbedder(gctx, endpoint, metrics, tracer)
	})
	if watch {
		g.Go(func() error {
			model := newWatchModel(endpoint, "ws://"+endpoint.Addr()+"/ws")
			program := tea.NewProgram(model, tea.WithContext(gctx))
			_, err := program.Run()
			if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return err
			}
			// Quitting the watch view stops the whole command.
			return context.Canceled
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		endpoint.Close(shutdownCtx)
		metrics.Shutdown(shutdownCtx)
		tracer.Shutdown(shutdownCtx)
		return nil
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
