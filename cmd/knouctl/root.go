package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/knou-assistant/internal/config"
	"github.com/kirillkom/knou-assistant/internal/observability/logging"
)

// cli carries state shared by subcommands. Config is loaded once per run.
type cli struct {
	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "knouctl",
		Short:         "Prepare, index and query KNOU notices",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			c.cfg = config.Load()
			c.logger = logging.NewJSONLoggerTo(os.Stderr, "knouctl", c.cfg.LogLevel)
		},
	}
	root.AddCommand(
		newPrepareCmd(c),
		newFetchScheduleCmd(c),
		newIndexCmd(c),
		newPublishCmd(c),
		newSearchCmd(c),
	)
	return root
}
