package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forPelevin/notereel/internal/domain/markup"
	"github.com/forPelevin/notereel/internal/domain/sentences"
	"github.com/forPelevin/notereel/internal/domain/subtitles"
	"github.com/forPelevin/notereel/internal/imageref"
	"github.com/forPelevin/notereel/internal/logging"
	"github.com/forPelevin/notereel/internal/ports"
	"github.com/forPelevin/notereel/internal/progress"
	"github.com/forPelevin/notereel/internal/types"
)

const (
	audioFileName    = "audio.mp3"
	manifestFileName = "list.txt"
	concatFileName   = "concat.mp4"
)

// FailurePolicy decides what a failed segment does to the run.
type FailurePolicy string

const (
	// PolicySkip leaves the failed segment out of the video and continues.
	PolicySkip FailurePolicy = "skip"
	// PolicyAbort fails the whole run on the first failed segment.
	PolicyAbort FailurePolicy = "abort"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicySkip:
		return PolicySkip, nil
	case PolicyAbort:
		return PolicyAbort, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q (want skip or abort)", s)
	}
}

type Deps struct {
	Renderer ports.Renderer
	Audio    ports.AudioSource
	Images   ports.ImageFetcher
	Sink     progress.Sink
	Logger   *slog.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Sink == nil {
		d.Sink = progress.Nop()
	}
	if d.Logger == nil {
		d.Logger = logging.Nop()
	}
	return Usecase{d: d}
}

type Input struct {
	Text       string
	AudioRef   string
	Layout     subtitles.Layout
	MediaRoot  string
	ScratchDir string
	OutPath    string
	Cleanup    bool
	Policy     FailurePolicy
}

type Result struct {
	Segments     []types.Segment
	Outcomes     []types.SegmentOutcome
	AudioPath    string
	ManifestPath string
	ConcatPath   string
	FinalPath    string
	Stage        types.Stage
	// Duration is the probed length of the final video, zero when probing
	// failed.
	Duration time.Duration
}

// Rendered returns the number of segments that made it into the video.
func (r Result) Rendered() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == types.OutcomeRendered {
			n++
		}
	}
	return n
}

// Completion is what Start delivers once the run ends.
type Completion struct {
	Result Result
	Err    error
}

// Start runs the assembly on its own goroutine. The channel receives exactly
// one Completion and is then closed.
func (u Usecase) Start(ctx context.Context, in Input) <-chan Completion {
	done := make(chan Completion, 1)
	go func() {
		defer close(done)
		res, err := u.Run(ctx, in)
		done <- Completion{Result: res, Err: err}
	}()
	return done
}

// Run assembles one video: narration, one clip per sentence, concat, mux.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	r := &run{u: u, in: in, log: u.d.Logger}
	if err := in.validate(u.d); err != nil {
		return r.fail(err)
	}
	if r.in.Layout == "" {
		r.in.Layout = subtitles.LayoutBottom
	}
	if r.in.Policy == "" {
		r.in.Policy = PolicySkip
	}

	if err := r.acquireAudio(ctx); err != nil {
		return r.fail(err)
	}
	m, err := r.generateClips(ctx)
	if err != nil {
		return r.fail(err)
	}
	if err := r.concatenate(ctx, m); err != nil {
		return r.fail(err)
	}
	if err := r.mergeAudio(ctx); err != nil {
		return r.fail(err)
	}
	r.probe(ctx)
	if r.in.Cleanup {
		r.cleanup()
	}
	if err := r.advance(types.StageDone); err != nil {
		return r.fail(err)
	}
	return r.res, nil
}

func (in Input) validate(d Deps) error {
	switch {
	case d.Renderer == nil:
		return errors.New("renderer is not configured")
	case d.Audio == nil:
		return errors.New("audio source is not configured")
	case strings.TrimSpace(in.ScratchDir) == "":
		return errors.New("scratch dir is empty")
	case strings.TrimSpace(in.OutPath) == "":
		return errors.New("output path is empty")
	}
	return nil
}

// run carries the mutable state of one assembly.
type run struct {
	u   Usecase
	in  Input
	res Result
	log *slog.Logger

	// intermediates are removed by cleanup once the final video exists.
	intermediates []string
}

func (r *run) advance(next types.Stage) error {
	if !r.res.Stage.CanAdvance(next) {
		return fmt.Errorf("invalid stage transition %q -> %q", r.res.Stage, next)
	}
	r.res.Stage = next
	r.u.d.Sink.Publish(progress.StageEvent(next))
	return nil
}

func (r *run) fail(err error) (Result, error) {
	if !r.res.Stage.Terminal() {
		from := r.res.Stage
		r.res.Stage = types.StageFailed
		r.u.d.Sink.Publish(progress.StageEvent(types.StageFailed))
		r.log.Error("run failed", slog.String("stage", string(from)), logging.Error(err))
	}
	return r.res, err
}

func (r *run) cancelled(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %s: %w", r.res.Stage, op, err)
	}
	return nil
}

func (r *run) acquireAudio(ctx context.Context) error {
	if err := r.advance(types.StageDownloadingAudio); err != nil {
		return err
	}
	if err := r.cancelled(ctx, "acquire narration"); err != nil {
		return err
	}
	if strings.TrimSpace(r.in.AudioRef) == "" {
		return wrap(ErrAcquisition, r.res.Stage, "acquire narration", errors.New("no audio reference"))
	}
	dest := filepath.Join(r.in.ScratchDir, audioFileName)
	r.log.Info("acquiring narration", slog.String("ref", r.in.AudioRef))
	if err := r.u.d.Audio.Acquire(ctx, r.in.AudioRef, dest); err != nil {
		if ctx.Err() != nil {
			return r.cancelled(ctx, "acquire narration")
		}
		return wrap(ErrAcquisition, r.res.Stage, "acquire narration", err)
	}
	r.res.AudioPath = dest
	r.intermediates = append(r.intermediates, dest)
	return nil
}

func (r *run) generateClips(ctx context.Context) (*manifest, error) {
	if err := r.advance(types.StageGeneratingClips); err != nil {
		return nil, err
	}
	segs := sentences.Segments(r.in.Text)
	total := len(segs)
	r.res.Outcomes = make([]types.SegmentOutcome, 0, total)
	resolver := imageref.Resolver{
		MediaRoot:  r.in.MediaRoot,
		ScratchDir: r.in.ScratchDir,
		Fetcher:    r.u.d.Images,
	}
	m := &manifest{}

	for i := range segs {
		seg := &segs[i]
		if err := r.cancelled(ctx, fmt.Sprintf("segment %d", seg.Index)); err != nil {
			r.res.Segments = segs
			return nil, err
		}
		seg.StyledText = markup.Translate(seg.RawText)

		outcome := r.prepareAndRender(ctx, resolver, seg)
		if err := r.cancelled(ctx, fmt.Sprintf("segment %d", seg.Index)); err != nil {
			r.res.Segments = segs
			return nil, err
		}
		if outcome.Status == types.OutcomeRendered {
			if err := m.add(outcome.ClipPath); err != nil {
				outcome = types.Skipped(seg.Index, err.Error())
			} else {
				seg.ClipPath = outcome.ClipPath
				r.intermediates = append(r.intermediates, outcome.ClipPath)
			}
		}
		r.res.Outcomes = append(r.res.Outcomes, outcome)

		if outcome.Status == types.OutcomeSkipped {
			r.log.Warn("segment skipped",
				slog.Int("segment", seg.Index),
				slog.String("reason", outcome.Reason),
			)
			if r.in.Policy == PolicyAbort {
				r.res.Segments = segs
				return nil, wrap(ErrSegment, r.res.Stage, fmt.Sprintf("segment %d", seg.Index), errors.New(outcome.Reason))
			}
		}
		r.u.d.Sink.Publish(progress.ProgressEvent(i+1, total))
	}
	r.res.Segments = segs

	if m.len() == 0 {
		return nil, wrap(ErrNoClips, r.res.Stage, "", fmt.Errorf("all %d segments failed", total))
	}
	return m, nil
}

func (r *run) prepareAndRender(ctx context.Context, resolver imageref.Resolver, seg *types.Segment) types.SegmentOutcome {
	img, err := resolver.Resolve(ctx, seg.Index, seg.RawText)
	if err != nil {
		return types.Skipped(seg.Index, fmt.Sprintf("image: %v", err))
	}
	seg.ImagePath = img
	if ref, ok := imageref.Detect(seg.RawText); ok && ref.Kind == imageref.Hosted {
		r.intermediates = append(r.intermediates, img)
	}
	return r.renderSegment(ctx, *seg)
}

func (r *run) concatenate(ctx context.Context, m *manifest) error {
	if err := r.advance(types.StageConcatenating); err != nil {
		return err
	}
	if err := r.cancelled(ctx, "concat"); err != nil {
		return err
	}
	manifestPath := filepath.Join(r.in.ScratchDir, manifestFileName)
	if err := m.write(manifestPath); err != nil {
		return wrap(ErrConcat, r.res.Stage, "write manifest", err)
	}
	r.res.ManifestPath = manifestPath
	r.intermediates = append(r.intermediates, manifestPath)

	concatPath := filepath.Join(r.in.ScratchDir, concatFileName)
	r.log.Info("concatenating clips", slog.Int("clips", m.len()))
	if err := r.u.d.Renderer.Concat(ctx, manifestPath, concatPath); err != nil {
		if ctx.Err() != nil {
			return r.cancelled(ctx, "concat")
		}
		return wrap(ErrConcat, r.res.Stage, "ffmpeg concat", err)
	}
	if _, err := os.Stat(concatPath); err != nil {
		return wrap(ErrConcat, r.res.Stage, "verify output", fmt.Errorf("%s missing: %w", concatPath, err))
	}
	r.res.ConcatPath = concatPath
	return nil
}

func (r *run) mergeAudio(ctx context.Context) error {
	if err := r.advance(types.StageMergingAudio); err != nil {
		return err
	}
	if err := r.cancelled(ctx, "mux"); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.in.OutPath), 0o755); err != nil {
		return wrap(ErrMux, r.res.Stage, "create output dir", err)
	}
	if err := r.u.d.Renderer.Mux(ctx, r.res.ConcatPath, r.res.AudioPath, r.in.OutPath); err != nil {
		if ctx.Err() != nil {
			return r.cancelled(ctx, "mux")
		}
		return wrap(ErrMux, r.res.Stage, "ffmpeg mux", err)
	}
	r.res.FinalPath = r.in.OutPath
	r.intermediates = append(r.intermediates, r.res.ConcatPath)
	return nil
}

// probe logs the final duration next to what the clip count predicts. It
// never fails the run.
func (r *run) probe(ctx context.Context) {
	expected := time.Duration(r.res.Rendered()) * types.ClipDuration
	got, err := r.u.d.Renderer.ProbeDuration(ctx, r.res.FinalPath)
	if err != nil {
		r.log.Warn("probe final duration", logging.Error(err))
		return
	}
	r.res.Duration = got
	r.log.Info("video assembled",
		slog.String("output", r.res.FinalPath),
		logging.Duration("duration", got),
		logging.Duration("expected", expected),
	)
}

func (r *run) cleanup() {
	for _, p := range r.intermediates {
		if p == "" || p == r.res.FinalPath {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.log.Warn("remove intermediate", slog.String("path", p), logging.Error(err))
		}
	}
}
