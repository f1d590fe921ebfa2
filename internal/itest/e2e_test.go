//go:build integration

package itest

import (
	"context"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/forPelevin/notereel/internal/pipeline"
	"github.com/forPelevin/notereel/internal/types"
)

func TestE2E(t *testing.T) {
	tmp := t.TempDir()
	media := filepath.Join(tmp, "media")
	if err := os.MkdirAll(media, 0o755); err != nil {
		t.Fatal(err)
	}

	// Narration: a 20 second tone.
	narration := filepath.Join(media, "narration.mp3")
	mustFFmpeg(t, "-y", "-f", "lavfi", "-i", "sine=frequency=440:duration=20", "-c:a", "libmp3lame", narration)

	// One local image for the second sentence.
	mustFFmpeg(t, "-y", "-f", "lavfi", "-i", "color=c=red:s=320x240:d=1", "-frames:v", "1", filepath.Join(media, "cat.png"))

	note := filepath.Join(tmp, "tides.md")
	body := "---\ntitle: Tides\n---\n" +
		"The *moon* pulls the sea. ![[cat.png]] is watching. Then [[tides | the tide]] turns."
	if err := os.WriteFile(note, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(tmp, "videos", "tides.mp4")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	rep, err := pipeline.Run(ctx, pipeline.Config{
		Document:      note,
		AudioRef:      "narration.mp3",
		OutPath:       out,
		MediaRoot:     media,
		ScratchRoot:   filepath.Join(tmp, "scratch"),
		Layout:        "bottom",
		Background:    "black",
		Bitrate:       "1M",
		Preset:        "ultrafast",
		Cleanup:       true,
		FailurePolicy: "skip",
		FFmpegPath:    "ffmpeg",
		FFprobePath:   "ffprobe",
	})
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if rep.Result.Stage != types.StageDone {
		t.Fatalf("expected done, got %s", rep.Result.Stage)
	}
	if got := rep.Result.Rendered(); got != 3 {
		t.Fatalf("expected 3 rendered segments, got %d (%+v)", got, rep.Result.Outcomes)
	}

	sec, err := probeDurationSeconds(out)
	if err != nil {
		t.Fatal(err)
	}
	want := float64(rep.Result.Rendered()) * types.ClipDuration.Seconds()
	if math.Abs(sec-want) > 0.5 {
		t.Fatalf("expected about %.1fs of video, got %.2fs", want, sec)
	}
	if !hasAudioStream(t, out) {
		t.Fatal("final video has no audio stream")
	}

	entries, err := os.ReadDir(rep.ScratchDir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected scratch dir to be emptied, found %d entries", len(entries))
	}
}

func mustFFmpeg(t *testing.T, args ...string) {
	t.Helper()
	cmd := exec.Command("ffmpeg", args...)
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}
}
