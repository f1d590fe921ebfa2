package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forPelevin/notereel/internal/deps"
	"github.com/forPelevin/notereel/internal/procexec"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that ffmpeg, ffprobe and yt-dlp are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.Check(cmd.Context(), procexec.ExecRunner{}, deps.Requirements(cfg))

			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				state := "ok"
				switch {
				case !s.Available && s.Optional:
					state = "missing (optional)"
				case !s.Available:
					state = "missing"
				}
				detail := s.Version
				if detail == "" {
					detail = s.Detail
				}
				rows = append(rows, []string{s.Name, s.Command, state, orDash(detail)})
			}
			fprintf(cmd.OutOrStdout(), "%s\n", renderTable([]string{"Tool", "Command", "Status", "Detail"}, rows, nil))

			if missing := deps.Missing(statuses); len(missing) > 0 {
				names := make([]string, 0, len(missing))
				for _, m := range missing {
					names = append(names, m.Name)
				}
				return fmt.Errorf("missing required tools: %s", strings.Join(names, ", "))
			}
			return nil
		},
	}
}
