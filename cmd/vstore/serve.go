package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/vstore/internal/dev"
	"github.com/vango-dev/vstore/internal/errors"
	"github.com/vango-dev/vstore/pkg/devtools"
	"github.com/vango-dev/vstore/pkg/middleware"
	"github.com/vango-dev/vstore/pkg/store"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		addr  string
		watch string
	)

	cmd := &cobra.Command{
		Use:   "serve [scenario.yaml]",
		Short: "Serve the scenario's store over HTTP",
		Long: `Start the devtools server over the scenario's initial state.

The server exposes the state, accepts JSON Patch and merge patch
updates, streams watched paths over a websocket and serves Prometheus
metrics. With --watch, a YAML or JSON state file is published to the
store every time it changes; only the changed keys are written.

Examples:
  vstore serve
  vstore serve --addr=:7070 cart.yaml
  vstore serve --watch=state.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadScenario(args)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Devtools.Addr = addr
			}

			logger := flags.logger()
			s, err := store.New(cfg.InitialState(),
				store.WithName(cfg.Name),
				store.WithLogger(logger),
				store.WithMiddleware(
					middleware.OpenTelemetry(),
					middleware.Prometheus(),
					middleware.Logging(logger, slog.LevelWarn),
				),
			)
			if err != nil {
				return errors.New("E102").Wrap(err).WithDetail(err.Error())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Reload once before the server starts.
			var w *dev.StateWatcher
			if watch != "" {
				w = dev.NewStateWatcher(s, dev.WatcherConfig{
					Path:   watch,
					Logger: logger,
					OnReload: func(r dev.ReloadResult) {
						if r.Changed {
							info("reloaded %s (v%d)", watch, r.Version)
						}
					},
				})
				if r := w.Reload(ctx); r.Err != nil {
					return r.Err
				}
			}

			srv := devtools.New(s, devtools.WithLogger(logger))
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				if err := srv.ListenAndServe(gctx, cfg.Devtools.Addr); err != nil {
					return errors.New("E160").Wrap(err).WithDetail(err.Error())
				}
				return nil
			})
			if w != nil {
				g.Go(func() error { return w.Run(gctx) })
			}

			success("devtools for %q on http://%s", cfg.Name, cfg.Devtools.Addr)
			info("GET /state  POST /patch  GET /watch?path=$.key  GET /metrics")
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from the scenario)")
	cmd.Flags().StringVar(&watch, "watch", "", "Publish this YAML or JSON state file on every change")
	return cmd
}
