package ffmpeg

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/notereel/internal/domain/subtitles"
	"github.com/forPelevin/notereel/internal/ports"
	"github.com/forPelevin/notereel/internal/procexec"
	"github.com/forPelevin/notereel/internal/types"
)

type Options struct {
	FFmpegPath  string
	FFprobePath string
	Background  string
	FontsDir    string
	Bitrate     string
	Preset      string
	Runner      procexec.Runner
}

type Adapter struct {
	ffmpeg     string
	ffprobe    string
	background string
	fontsDir   string
	bitrate    string
	preset     string
	run        procexec.Runner
}

func New(opts Options) *Adapter {
	a := &Adapter{
		ffmpeg:     opts.FFmpegPath,
		ffprobe:    opts.FFprobePath,
		background: opts.Background,
		fontsDir:   opts.FontsDir,
		bitrate:    opts.Bitrate,
		preset:     opts.Preset,
		run:        opts.Runner,
	}
	if a.ffmpeg == "" {
		a.ffmpeg = "ffmpeg"
	}
	if a.ffprobe == "" {
		a.ffprobe = "ffprobe"
	}
	if a.background == "" {
		a.background = "black"
	}
	if a.fontsDir == "" {
		a.fontsDir = "."
	}
	if a.bitrate == "" {
		a.bitrate = "5M"
	}
	if a.preset == "" {
		a.preset = "slow"
	}
	if a.run == nil {
		a.run = procexec.ExecRunner{}
	}
	return a
}

func (a *Adapter) RenderSegment(ctx context.Context, job ports.SegmentJob) (procexec.Result, error) {
	return a.run.Run(ctx, procexec.Cmd{Name: a.ffmpeg, Args: a.segmentArgs(job)})
}

func (a *Adapter) segmentArgs(job ports.SegmentJob) []string {
	clipSec := fmtSeconds(types.ClipDuration)
	canvas := fmt.Sprintf("color=c=%s:s=%dx%d:d=%s", a.background, subtitles.PlayResX, subtitles.PlayResY, clipSec)
	burn := fmt.Sprintf("ass=%s:fontsdir=%s", escapeFilterPath(job.SubtitlePath), escapeFilterPath(a.fontsDir))

	args := []string{"-y", "-f", "lavfi", "-i", canvas}
	if job.ImagePath == "" {
		args = append(args, "-vf", burn)
	} else {
		graph := fmt.Sprintf(
			"[1:v]scale=%d:%d:force_original_aspect_ratio=decrease[img];[0:v][img]overlay=(W-w)/2:(H-h)/2,%s[v]",
			subtitles.PlayResX, subtitles.PlayResY, burn,
		)
		args = append(args,
			"-loop", "1",
			"-i", job.ImagePath,
			"-filter_complex", graph,
			"-map", "[v]",
		)
	}
	args = append(args,
		"-t", clipSec,
		"-r", "30",
		"-c:v", "libx264",
		"-preset", a.preset,
		"-b:v", a.bitrate,
		"-pix_fmt", "yuv420p",
		job.OutPath,
	)
	return args
}

func (a *Adapter) Concat(ctx context.Context, manifestPath, outPath string) error {
	res, err := a.run.Run(ctx, procexec.Cmd{Name: a.ffmpeg, Args: []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c", "copy",
		outPath,
	}})
	return procexec.Check("ffmpeg concat", res, err)
}

func (a *Adapter) Mux(ctx context.Context, videoPath, audioPath, outPath string) error {
	res, err := a.run.Run(ctx, procexec.Cmd{Name: a.ffmpeg, Args: []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-shortest",
		outPath,
	}})
	return procexec.Check("ffmpeg mux audio", res, err)
}

func (a *Adapter) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	res, err := a.run.Run(ctx, procexec.Cmd{Name: a.ffprobe, Args: []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}})
	if err := procexec.Check("ffprobe duration", res, err); err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(res.Stdout))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', -1, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	p = strings.ReplaceAll(p, "'", "\\'")
	p = strings.ReplaceAll(p, ",", "\\,")
	return p
}
