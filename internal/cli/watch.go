package cli

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forPelevin/notereel/internal/logging"
	"github.com/forPelevin/notereel/internal/pipeline"
	"github.com/forPelevin/notereel/internal/watcher"
)

// watchQueue bounds how many saved notes may wait behind the current render.
const watchQueue = 16

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]",
		Short: "Render notes as they are saved",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			dir := cfg.Paths.NotesDir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return errors.New("no notes directory given and paths.notes_dir is not set")
			}

			store := ctx.openHistory(logger)
			defer closeStore(store, logger)

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			queue := make(chan string, watchQueue)
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				for path := range queue {
					if sigCtx.Err() != nil {
						continue
					}
					rc := pipeline.FromConfig(cfg, path)
					rc.Logger = logger
					rc.History = store
					rep, err := pipeline.Run(sigCtx, rc)
					if err != nil {
						logger.Warn("render failed", slog.String("document", path), logging.Error(err))
						continue
					}
					logger.Info("render complete",
						slog.String("document", path),
						slog.String("output", rep.Result.FinalPath),
						slog.Int("rendered", rep.Result.Rendered()),
					)
				}
			}()

			w := watcher.New(dir, watcher.DefaultDebounce, logging.Component(logger, "watcher"), func(path string) {
				select {
				case queue <- path:
				default:
					logger.Warn("render queue full, dropping change", slog.String("document", path))
				}
			})
			err = w.Run(sigCtx)
			// Run returns only after in-flight callbacks have, so nothing sends
			// on queue past this point.
			close(queue)
			wg.Wait()
			return err
		},
	}
}
