package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forPelevin/notereel/internal/logging"
	"github.com/forPelevin/notereel/internal/pipeline"
	"github.com/forPelevin/notereel/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run API and progress websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			if bind == "" {
				bind = cfg.Server.Bind
			}
			store := ctx.openHistory(logger)
			defer closeStore(store, logger)

			srv := server.New(server.Options{
				Base:           pipeline.FromConfig(cfg, ""),
				NotesDir:       cfg.Paths.NotesDir,
				Store:          store,
				Logger:         logging.Component(logger, "server"),
				OriginPatterns: cfg.Server.AllowedOrigins,
			})

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(sigCtx, bind)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (default: server.bind)")
	return cmd
}
