package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gisco/internal/host"
	"gisco/internal/observability"
	"gisco/internal/preview"
	"gisco/internal/relay"
	"gisco/internal/session"
)

// newServeCommand creates the serve subcommand
func newServeCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the relay, the preview site and the embedder",
		Long: `Start the relay endpoint and the local preview site, then embed the
configured widget into every page that connects. This is the everything
mode: open the printed preview URL in a browser and comments appear.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.initialize(cmd); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return cli.runServe(ctx)
		},
	}
}

func (cli *CLI) runServe(ctx context.Context) error {
	wcfg := cli.cfg.WidgetConfig()
	if err := wcfg.Validate(); err != nil {
		return fmt.Errorf("widget configuration: %w (run `gisco init` first)", err)
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

	site := preview.DefaultSite()
	if cli.cfg.PreviewSitePath != "" {
		site, err = preview.LoadSite(cli.cfg.PreviewSitePath)
		if err != nil {
			endpoint.Close(context.Background())
			return fmt.Errorf("site: %w", err)
		}
	}
	previewSrv, err := preview.New(preview.Options{
		ListenAddr:     cli.cfg.PreviewListenAddr,
		Site:           site,
		AllowedOrigins: cli.cfg.PreviewAllowedOrigins,
		RelayEndpoint:  "ws://" + endpoint.Addr() + "/ws",
		RelayToken:     cli.cfg.RelayToken,
		Logger:         cli.logger,
		Metrics:        metrics,
	})
	if err != nil {
		endpoint.Close(context.Background())
		return fmt.Errorf("preview: %w", err)
	}
	if err := previewSrv.Start(); err != nil {
		endpoint.Close(context.Background())
		return fmt.Errorf("preview: %w", err)
	}

	if cli.obs.Metrics.Enabled {
		if err := metrics.StartPrometheusServer(cli.obs.Metrics.PrometheusPort); err != nil {
			cli.logger.Warn("metrics server failed to start: %v", err)
		}
	}

	fmt.Printf("\n%s gisco is up\n", green("●"))
	fmt.Printf("  %s  %s\n", gray("preview"), bold("http://"+previewSrv.Addr()+"/"))
	fmt.Printf("  %s  %s\n", gray("relay  "), "ws://"+endpoint.Addr()+"/ws")
	fmt.Printf("  %s  %s %s\n\n", gray("widget "), cyan(wcfg.Repo), gray("("+string(wcfg.Mapping)+" mapping)"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cli.runEmbedder(gctx, endpoint, metrics, tracer)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		previewSrv.Close(shutdownCtx)
		endpoint.Close(shutdownCtx)
		metrics.Shutdown(shutdownCtx)
		tracer.Shutdown(shutdownCtx)
		return nil
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		fmt.Printf("%s gisco stopped\n", gray("●"))
		return nil
	}
	return err
}

// runEmbedder attaches a widget host to each shim connection in turn. One
// connection means one page, so the host lives exactly as long as the shim.
func (cli *CLI) runEmbedder(ctx context.Context, endpoint *relay.Endpoint, metrics *observability.MetricsCollector, tracer *observability.TracerProvider) error {
	wcfg := cli.cfg.WidgetConfig()
	storage := session.NewFileStorage(cli.cfg.StorageDir)

	for {
		if err := endpoint.WaitForConnected(ctx, time.Hour); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		opts := host.Options{
			Surface:      endpoint,
			Sessions:     session.NewStore(storage, cli.logger),
			RemoteOrigin: cli.cfg.RemoteOrigin,
			ElementID:    cli.cfg.ElementID,
			Logger:       cli.logger,
			Metrics:      metrics,
			Tracer:       tracer,
		}
		if wcfg.EmitMetadata {
			opts.OnMetadata = func(raw json.RawMessage) {
				cli.logger.Info("discussion metadata: %s", raw)
			}
		}

		h, err := host.New(ctx, opts)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			cli.logger.Error("embedder setup failed: %v", err)
			waitOut(ctx, endpoint)
			continue
		}
		if err := h.ApplyConfig(ctx, wcfg); err != nil {
			cli.logger.Error("widget attach failed: %v", err)
		}

		waitOut(ctx, endpoint)
		h.Close(context.Background())
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// waitOut blocks until the shim goes away or the context ends.
func waitOut(ctx context.Context, endpoint *relay.Endpoint) {
	_ = endpoint.WaitForDisconnected(ctx)
}
