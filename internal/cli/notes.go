package cli

import (
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forPelevin/notereel/internal/document"
)

func newNotesCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "notes [dir]",
		Short: "List notes and the narration each one points at",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
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

			docs, err := document.Scan(dir, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(docs) == 0 {
				fprintf(out, "No notes in %s\n", dir)
				return nil
			}
			rows := make([][]string, 0, len(docs))
			for _, d := range docs {
				rows = append(rows, []string{d.Title(), filepath.Base(d.Path), orDash(d.MediaURL)})
			}
			fprintf(out, "%s\n", renderTable([]string{"Title", "File", "Narration"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", document.DefaultScanLimit, "Maximum number of notes to list")
	return cmd
}
