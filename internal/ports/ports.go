package ports

import (
	"context"
	"time"

	"github.com/forPelevin/notereel/internal/procexec"
)

type SegmentJob struct {
	Index        int
	SubtitlePath string
	ImagePath    string
	OutPath      string
}

// Renderer wraps the external video tool. RenderSegment reports a non-zero
// exit through the result; Concat and Mux fold it into the error.
type Renderer interface {
	RenderSegment(ctx context.Context, job SegmentJob) (procexec.Result, error)
	Concat(ctx context.Context, manifestPath, outPath string) error
	Mux(ctx context.Context, videoPath, audioPath, outPath string) error
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
}

// AudioSource makes the narration referenced by ref available at destPath.
type AudioSource interface {
	Acquire(ctx context.Context, ref, destPath string) error
}

// ImageFetcher downloads a hosted image to destPath.
type ImageFetcher interface {
	Fetch(ctx context.Context, url, destPath string) error
}
