package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/forPelevin/notereel/internal/domain/subtitles"
	"github.com/forPelevin/notereel/internal/logging"
	"github.com/forPelevin/notereel/internal/ports"
	"github.com/forPelevin/notereel/internal/types"
)

func subtitlePath(scratch string, index int) string {
	return filepath.Join(scratch, fmt.Sprintf("subtitle%d.ass", index))
}

func clipPath(scratch string, index int) string {
	return filepath.Join(scratch, fmt.Sprintf("output%d.mp4", index))
}

// renderSegment writes the segment's subtitle document, renders the clip and
// removes the document again. Failures come back as a Skipped outcome; the
// caller decides whether a skip is fatal. A partial clip is never left
// behind.
func (r *run) renderSegment(ctx context.Context, seg types.Segment) types.SegmentOutcome {
	subPath := subtitlePath(r.in.ScratchDir, seg.Index)
	outPath := clipPath(r.in.ScratchDir, seg.Index)

	doc := subtitles.Render(seg.StyledText, r.in.Layout)
	if err := os.WriteFile(subPath, []byte(doc), 0o644); err != nil {
		return types.Skipped(seg.Index, fmt.Sprintf("write subtitle document: %v", err))
	}
	defer func() { _ = os.Remove(subPath) }()

	if err := ctx.Err(); err != nil {
		return types.Skipped(seg.Index, err.Error())
	}

	res, err := r.u.d.Renderer.RenderSegment(ctx, ports.SegmentJob{
		Index:        seg.Index,
		SubtitlePath: subPath,
		ImagePath:    seg.ImagePath,
		OutPath:      outPath,
	})
	if err != nil {
		_ = os.Remove(outPath)
		return types.Skipped(seg.Index, fmt.Sprintf("ffmpeg: %v", err))
	}
	if !res.Success() {
		_ = os.Remove(outPath)
		r.log.Debug("ffmpeg diagnostics",
			slog.Int("segment", seg.Index),
			logging.String("stderr", res.Diagnostics()),
		)
		return types.Skipped(seg.Index, fmt.Sprintf("ffmpeg exit status %d: %s", res.ExitCode, lastLine(res.Diagnostics())))
	}
	if _, err := os.Stat(outPath); err != nil {
		return types.Skipped(seg.Index, "ffmpeg reported success but wrote no clip")
	}
	return types.Rendered(seg.Index, outPath)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
