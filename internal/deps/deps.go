// Package deps checks that the external tools a run shells out to are
// installed.
package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/forPelevin/notereel/internal/config"
	"github.com/forPelevin/notereel/internal/procexec"
)

// Requirement defines an external dependency notereel relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// VersionArgs, when set, are passed to the command to read its version.
	VersionArgs []string
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Version     string
	Detail      string
}

// Requirements lists the tools the configured pipeline invokes.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Render.FFmpeg,
			Description: "Renders clips, concatenates and muxes narration",
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Render.FFprobe,
			Description: "Reports the final video duration",
			Optional:    true,
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "yt-dlp",
			Command:     cfg.Audio.YTDLP,
			Description: "Downloads narration from URLs",
			Optional:    true,
			VersionArgs: []string{"--version"},
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Check runs CheckBinaries and then asks each available tool for its
// version. A tool that fails to report one stays available.
func Check(ctx context.Context, runner procexec.Runner, requirements []Requirement) []Status {
	results := CheckBinaries(requirements)
	if runner == nil {
		return results
	}
	for i, req := range requirements {
		if !results[i].Available || len(req.VersionArgs) == 0 {
			continue
		}
		res, err := runner.Run(ctx, procexec.Cmd{Name: results[i].Command, Args: req.VersionArgs})
		if err != nil || !res.Success() {
			continue
		}
		results[i].Version = firstLine(string(res.Stdout))
	}
	return results
}

// Missing returns the required dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
