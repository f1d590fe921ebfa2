package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forPelevin/notereel/internal/config"
	"github.com/forPelevin/notereel/internal/document"
	"github.com/forPelevin/notereel/internal/domain/subtitles"
	"github.com/forPelevin/notereel/internal/history"
	"github.com/forPelevin/notereel/internal/logging"
	"github.com/forPelevin/notereel/internal/ports"
	"github.com/forPelevin/notereel/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/notereel/internal/ports/adapters/httpfetch"
	"github.com/forPelevin/notereel/internal/ports/adapters/localfile"
	"github.com/forPelevin/notereel/internal/ports/adapters/ytdlp"
	"github.com/forPelevin/notereel/internal/procexec"
	"github.com/forPelevin/notereel/internal/progress"
	"github.com/forPelevin/notereel/internal/types"
	"github.com/forPelevin/notereel/internal/usecase"
)

var timeNow = time.Now

type Config struct {
	Document string
	// AudioRef overrides the narration URL found in the note's frontmatter.
	AudioRef string
	// OutPath is the final video. Empty means <OutputDir>/<run name>.mp4.
	OutPath   string
	OutputDir string

	MediaRoot string
	// ScratchRoot receives one sub-directory per run. ScratchDir, when set,
	// is used as-is instead.
	ScratchRoot string
	ScratchDir  string
	FontsDir    string

	Layout        string
	Background    string
	Bitrate       string
	Preset        string
	Cleanup       bool
	FailurePolicy string

	FFmpegPath  string
	FFprobePath string
	YTDLPPath   string
	AudioFormat string

	// RunID is assigned when empty.
	RunID   string
	Logger  *slog.Logger
	Sink    progress.Sink
	History *history.Store
	Runner  procexec.Runner
}

// FromConfig builds a run configuration for document from the loaded file
// configuration.
func FromConfig(cfg *config.Config, doc string) Config {
	return Config{
		Document:      doc,
		OutputDir:     cfg.Paths.OutputDir,
		MediaRoot:     cfg.Paths.MediaRoot,
		ScratchRoot:   cfg.Paths.ScratchDir,
		FontsDir:      cfg.Paths.FontsDir,
		Layout:        cfg.Render.Layout,
		Background:    cfg.Render.Background,
		Bitrate:       cfg.Render.Bitrate,
		Preset:        cfg.Render.Preset,
		Cleanup:       cfg.Pipeline.CleanupIntermediates,
		FailurePolicy: cfg.Pipeline.FailurePolicy,
		FFmpegPath:    cfg.Render.FFmpeg,
		FFprobePath:   cfg.Render.FFprobe,
		YTDLPPath:     cfg.Audio.YTDLP,
		AudioFormat:   cfg.Audio.Format,
	}
}

func (c Config) Validate() error {
	if c.Document == "" {
		return errors.New("document is empty")
	}
	if _, err := os.Stat(c.Document); err != nil {
		return fmt.Errorf("stat document: %w", err)
	}
	if c.ScratchRoot == "" && c.ScratchDir == "" {
		return errors.New("scratch dir is not configured")
	}
	if c.OutPath == "" && c.OutputDir == "" {
		return errors.New("output path is not configured")
	}
	if _, err := subtitles.ParseLayout(c.Layout); err != nil {
		return err
	}
	if _, err := usecase.ParseFailurePolicy(c.FailurePolicy); err != nil {
		return err
	}
	return nil
}

// Report is what a finished run leaves behind.
type Report struct {
	ID         string
	Document   document.Document
	ScratchDir string
	Result     usecase.Result
	StartedAt  time.Time
	EndedAt    time.Time
}

// Summary converts the report for history and display.
func (r Report) Summary(runErr error) types.RunSummary {
	ended := r.EndedAt
	s := types.RunSummary{
		ID:        r.ID,
		Document:  r.Document.Path,
		Stage:     r.Result.Stage,
		Output:    r.Result.FinalPath,
		Outcomes:  r.Result.Outcomes,
		StartedAt: r.StartedAt,
		EndedAt:   &ended,
	}
	if runErr != nil {
		s.Error = runErr.Error()
		if s.Stage != types.StageFailed {
			s.Stage = types.StageFailed
		}
	}
	return s
}

// Completion is delivered by Start when the run ends.
type Completion struct {
	Report Report
	Err    error
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// Start runs the pipeline on its own goroutine. The channel receives exactly
// one Completion and is then closed.
func Start(ctx context.Context, cfg Config) <-chan Completion {
	done := make(chan Completion, 1)
	go func() {
		defer close(done)
		rep, err := Run(ctx, cfg)
		done <- Completion{Report: rep, Err: err}
	}()
	return done
}

// Run assembles the video for cfg.Document and records the run in history
// when a store is configured. Once the configuration is valid every outcome,
// including failures before any tool runs, ends in a history row and a
// terminal stage event.
func Run(ctx context.Context, cfg Config) (Report, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}

	rep := Report{ID: cfg.RunID, StartedAt: timeNow().UTC()}
	rep.Document.Path = cfg.Document
	if rep.ID == "" {
		rep.ID = NewRunID()
	}
	logger = logger.With(slog.String("run_id", rep.ID))

	if cfg.History != nil {
		if err := cfg.History.Begin(context.WithoutCancel(ctx), rep.ID, cfg.Document, rep.StartedAt); err != nil {
			logger.Warn("record run start", logging.Error(err))
		}
	}
	sink := progress.Multi(
		progress.WithRunID(rep.ID, sinkOrNop(cfg.Sink)),
		progress.Log(logging.Component(logger, "progress")),
		historySink(ctx, cfg.History, rep.ID, logger),
	)

	runErr := execute(ctx, cfg, &rep, sink, logger)
	rep.EndedAt = timeNow().UTC()
	if runErr != nil && !rep.Result.Stage.Terminal() {
		// Failed before the orchestrator took over.
		rep.Result.Stage = types.StageFailed
		logger.Error("run failed", logging.Error(runErr))
		sink.Publish(progress.StageEvent(types.StageFailed))
	}

	if cfg.History != nil {
		// The run context may already be cancelled; the record must still land.
		if err := cfg.History.Finish(context.WithoutCancel(ctx), rep.Summary(runErr)); err != nil {
			logger.Warn("record run result", logging.Error(err))
		}
	}
	return rep, runErr
}

func execute(ctx context.Context, cfg Config, rep *Report, sink progress.Sink, logger *slog.Logger) error {
	layout, _ := subtitles.ParseLayout(cfg.Layout)
	policy, _ := usecase.ParseFailurePolicy(cfg.FailurePolicy)

	doc, err := document.Load(cfg.Document)
	if err != nil {
		return err
	}
	rep.Document = doc

	audioRef := strings.TrimSpace(cfg.AudioRef)
	if audioRef == "" {
		audioRef = doc.MediaURL
	}

	scratchDir := cfg.ScratchDir
	if scratchDir == "" {
		scratchDir = buildRunDir(cfg.ScratchRoot, doc.Path, rep.StartedAt)
	}
	sc, err := claimScratch(scratchDir)
	if err != nil {
		return err
	}
	rep.ScratchDir = sc.dir
	logger.Info("preparing workspace", slog.String("scratch", sc.dir), slog.String("document", doc.Path))

	outPath := cfg.OutPath
	if outPath == "" {
		outPath = filepath.Join(cfg.OutputDir, runName(doc.Path, rep.StartedAt)+".mp4")
	}

	runner := cfg.Runner
	if runner == nil {
		runner = procexec.ExecRunner{}
	}
	uc := usecase.New(usecase.Deps{
		Renderer: ffmpeg.New(ffmpeg.Options{
			FFmpegPath:  cfg.FFmpegPath,
			FFprobePath: cfg.FFprobePath,
			Background:  cfg.Background,
			FontsDir:    cfg.FontsDir,
			Bitrate:     cfg.Bitrate,
			Preset:      cfg.Preset,
			Runner:      runner,
		}),
		Audio: AudioRouter{
			Remote: ytdlp.New(cfg.YTDLPPath, cfg.AudioFormat, runner),
			Local:  localfile.New(cfg.MediaRoot),
		},
		Images: httpfetch.New(nil),
		Sink:   sink,
		Logger: logging.Component(logger, "usecase"),
	})

	res, runErr := uc.Run(ctx, usecase.Input{
		Text:       doc.Body,
		AudioRef:   audioRef,
		Layout:     layout,
		MediaRoot:  cfg.MediaRoot,
		ScratchDir: sc.dir,
		OutPath:    outPath,
		Cleanup:    cfg.Cleanup,
		Policy:     policy,
	})
	rep.Result = res

	if err := sc.release(runErr == nil && cfg.Cleanup); err != nil {
		logger.Warn("release scratch dir", logging.Error(err))
	}
	return runErr
}

func sinkOrNop(s progress.Sink) progress.Sink {
	if s == nil {
		return progress.Nop()
	}
	return s
}

// historySink mirrors non-terminal stage changes into the run row; terminal
// stages are written by Finish.
func historySink(ctx context.Context, store *history.Store, id string, logger *slog.Logger) progress.Sink {
	if store == nil {
		return nil
	}
	return progress.Func(func(e progress.Event) {
		if e.Kind != progress.KindStage || e.Stage.Terminal() {
			return
		}
		if err := store.SetStage(context.WithoutCancel(ctx), id, e.Stage); err != nil {
			logger.Debug("record stage", logging.Error(err))
		}
	})
}

// ensure adapters implement ports
var (
	_ ports.Renderer     = (*ffmpeg.Adapter)(nil)
	_ ports.AudioSource  = (*ytdlp.Adapter)(nil)
	_ ports.AudioSource  = (*localfile.Adapter)(nil)
	_ ports.AudioSource  = AudioRouter{}
	_ ports.ImageFetcher = (*httpfetch.Adapter)(nil)
)
