package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/forPelevin/notereel/internal/pipeline"
	"github.com/forPelevin/notereel/internal/progress"
	"github.com/forPelevin/notereel/internal/types"
)

const runTimeout = 3 * time.Hour

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var (
		out       string
		layout    string
		audio     string
		onFailure string
		keep      bool
	)

	cmd := &cobra.Command{
		Use:   "render <document>",
		Short: "Render a note into a narrated video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}

			doc, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			rc := pipeline.FromConfig(cfg, doc)
			rc.Logger = logger
			if out != "" {
				if rc.OutPath, err = filepath.Abs(out); err != nil {
					return err
				}
			}
			if layout != "" {
				rc.Layout = layout
			}
			if audio != "" {
				rc.AudioRef = audio
			}
			if onFailure != "" {
				rc.FailurePolicy = onFailure
			}
			if keep {
				rc.Cleanup = false
			}
			if err := rc.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}

			if isTerminal(cmd.ErrOrStderr()) {
				rc.Sink = progress.NewBar(cmd.ErrOrStderr())
			}
			store := ctx.openHistory(logger)
			defer closeStore(store, logger)
			rc.History = store

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			runCtx, cancel := context.WithTimeout(runCtx, runTimeout)
			defer cancel()

			rep, runErr := pipeline.Run(runCtx, rc)
			printRenderSummary(cmd.OutOrStdout(), rep, runErr == nil)
			return runErr
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Final video path (default: <output_dir>/<note>-<timestamp>.mp4)")
	cmd.Flags().StringVar(&layout, "layout", "", "Subtitle layout: bottom or centered")
	cmd.Flags().StringVar(&audio, "audio", "", "Narration URL or local file, overriding the note's frontmatter")
	cmd.Flags().StringVar(&onFailure, "on-failure", "", "What a failed segment does: skip or abort")
	cmd.Flags().BoolVar(&keep, "keep", false, "Keep intermediate files in the scratch directory")
	return cmd
}

func printRenderSummary(w io.Writer, rep pipeline.Report, ok bool) {
	res := rep.Result
	if skipped := skippedRows(res.Outcomes); len(skipped) > 0 {
		fprintf(w, "Skipped %d of %d segments:\n", len(skipped), len(res.Outcomes))
		fprintf(w, "%s\n", renderTable([]string{"Segment", "Reason"}, skipped, []columnAlignment{alignRight, alignLeft}))
	}
	if !ok {
		if rep.ScratchDir != "" {
			fprintf(w, "Intermediate files kept in %s\n", rep.ScratchDir)
		}
		return
	}
	size := "unknown size"
	if info, err := os.Stat(res.FinalPath); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}
	fprintf(w, "Wrote %s (%s, %d of %d segments, %s)\n",
		res.FinalPath, size, res.Rendered(), len(res.Outcomes),
		rep.EndedAt.Sub(rep.StartedAt).Round(time.Second))
}

func skippedRows(outcomes []types.SegmentOutcome) [][]string {
	var rows [][]string
	for _, o := range outcomes {
		if o.Status != types.OutcomeSkipped {
			continue
		}
		rows = append(rows, []string{strconv.Itoa(o.Index), o.Reason})
	}
	return rows
}
