package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/forPelevin/notereel/internal/procexec"
)

type Adapter struct {
	bin    string
	format string
	run    procexec.Runner
}

func New(binPath, audioFormat string, runner procexec.Runner) *Adapter {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	if audioFormat == "" {
		audioFormat = "mp3"
	}
	if runner == nil {
		runner = procexec.ExecRunner{}
	}
	return &Adapter{bin: binPath, format: audioFormat, run: runner}
}

// Acquire extracts the best audio stream of url into destPath.
func (a *Adapter) Acquire(ctx context.Context, url, destPath string) error {
	// yt-dlp skips the download when the target exists, which would silently
	// reuse narration from an earlier document.
	if err := os.Remove(destPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale audio: %w", err)
	}
	args := []string{
		"--extract-audio",
		"--audio-format", a.format,
		"-f", "bestaudio",
		"--no-playlist",
		"-o", destPath,
		url,
	}
	res, err := a.run.Run(ctx, procexec.Cmd{Name: a.bin, Args: args})
	if err := procexec.Check("yt-dlp download", res, err); err != nil {
		return err
	}
	if _, err := os.Stat(destPath); err != nil {
		return fmt.Errorf("yt-dlp finished but audio is missing: %w", err)
	}
	return nil
}
