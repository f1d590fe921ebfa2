package cli

import (
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/forPelevin/notereel/internal/history"
	"github.com/forPelevin/notereel/internal/progress"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [id]",
		Short: "Show past runs, or the segment outcomes of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.Paths.HistoryDB)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				entry, err := store.Get(cmd.Context(), args[0])
				if errors.Is(err, history.ErrNotFound) {
					return errors.New("run " + args[0] + " not found")
				}
				if err != nil {
					return err
				}
				printRun(out, entry)
				return nil
			}

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fprintf(out, "No runs recorded yet\n")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					shortID(e.ID),
					filepath.Base(e.Document),
					progress.StageLabel(e.Stage),
					strconv.Itoa(e.Rendered),
					strconv.Itoa(e.Skipped),
					humanize.Time(e.StartedAt),
				})
			}
			fprintf(out, "%s\n", renderTable(
				[]string{"ID", "Note", "Stage", "Rendered", "Skipped", "Started"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	return cmd
}

func printRun(w io.Writer, e history.Entry) {
	fprintf(w, "Run:      %s\n", e.ID)
	fprintf(w, "Note:     %s\n", e.Document)
	fprintf(w, "Stage:    %s\n", progress.StageLabel(e.Stage))
	fprintf(w, "Started:  %s\n", humanize.Time(e.StartedAt))
	if e.EndedAt != nil {
		fprintf(w, "Took:     %s\n", e.EndedAt.Sub(e.StartedAt).Round(time.Second))
	}
	fprintf(w, "Output:   %s\n", orDash(e.Output))
	if e.Error != "" {
		fprintf(w, "Error:    %s\n", e.Error)
	}
	if len(e.Outcomes) == 0 {
		return
	}
	rows := make([][]string, 0, len(e.Outcomes))
	for _, o := range e.Outcomes {
		detail := o.ClipPath
		if o.Reason != "" {
			detail = o.Reason
		}
		rows = append(rows, []string{strconv.Itoa(o.Index), string(o.Status), orDash(detail)})
	}
	fprintf(w, "%s\n", renderTable([]string{"Segment", "Status", "Clip / Reason"}, rows, []columnAlignment{alignRight}))
}
