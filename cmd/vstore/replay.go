package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vstore/internal/config"
	"github.com/vango-dev/vstore/internal/replay"
	"github.com/vango-dev/vstore/pkg/middleware"
	"github.com/vango-dev/vstore/pkg/store"
)

func replayCmd(flags *globalFlags) *cobra.Command {
	var realtime bool

	cmd := &cobra.Command{
		Use:   "replay [scenario.yaml]",
		Short: "Run a scenario and show what each binding rendered",
		Long: `Run the steps of a scenario and print, per step, which bindings
re-rendered and what they read. Deferred bindings show when a change
becomes pending and when it is adopted.

Wait steps advance a simulated clock unless --realtime is set.

Examples:
  vstore replay
  vstore replay examples/cart.yaml
  vstore replay --realtime cart.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadScenario(args)
			if err != nil {
				return err
			}
			logger := flags.logger()
			report, err := replay.Run(cmd.Context(), cfg, replay.Options{
				Realtime:   realtime,
				Logger:     logger,
				Middleware: []store.Middleware{middleware.Logging(logger, slog.LevelWarn)},
			})
			if err != nil {
				return err
			}
			replay.Print(cmd.OutOrStdout(), report)
			return report.Err()
		},
	}

	cmd.Flags().BoolVar(&realtime, "realtime", false, "Sleep on wait steps and use real timers")
	return cmd
}

// loadScenario loads the file named in args, or vstore.yaml from the
// working directory or one of its parents.
func loadScenario(args []string) (*config.Config, error) {
	if len(args) == 1 {
		return config.LoadFile(args[0])
	}
	dir, err := config.FindScenario(".")
	if err != nil {
		return nil, err
	}
	return config.Load(dir)
}
