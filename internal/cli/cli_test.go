package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/notereel/internal/history"
	"github.com/forPelevin/notereel/internal/types"
)

type cliEnv struct {
	home string
}

func setupCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		"NOTEREEL_MEDIA_ROOT", "NOTEREEL_NOTES_DIR", "NOTEREEL_SCRATCH_DIR", "NOTEREEL_OUTPUT_DIR",
		"NOTEREEL_FFMPEG", "NOTEREEL_FFPROBE", "NOTEREEL_YTDLP",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("NOTEREEL_LOG_LEVEL", "error")
	return cliEnv{home: home}
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Execute(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in output:\n%s", needle, haystack)
	}
}

func writeStub(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLIEnv(t)
	target := filepath.Join(env.home, "conf", "config.toml")

	out, _, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file: %v", err)
	}

	if _, _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init to refuse overwriting")
	}

	out, _, err = runCLI(t, "--config", target, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid ("+target+")")
}

func TestRenderArgumentErrors(t *testing.T) {
	env := setupCLIEnv(t)
	note := filepath.Join(env.home, "idea.md")
	if err := os.WriteFile(note, []byte("One. Two."), 0o644); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"no args", []string{"render"}, "accepts 1 arg(s), received 0"},
		{"too many args", []string{"render", note, "extra"}, "accepts 1 arg(s), received 2"},
		{"unknown flag", []string{"render", note, "--wat"}, "unknown flag: --wat"},
		{"missing document", []string{"render", filepath.Join(env.home, "nope.md")}, "config: stat document:"},
		{"bad layout", []string{"render", note, "--layout", "diagonal"}, "unknown subtitle layout"},
		{"bad policy", []string{"render", note, "--on-failure", "retry"}, "unknown failure policy"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := runCLI(t, tc.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			requireContains(t, err.Error(), tc.want)
		})
	}
}

func TestNotesListsFrontmatter(t *testing.T) {
	env := setupCLIEnv(t)
	notes := filepath.Join(env.home, "notes")
	if err := os.MkdirAll(notes, 0o755); err != nil {
		t.Fatal(err)
	}
	body := "---\ntitle: Tidal Energy\nurl: https://example.com/watch?v=1\n---\nThe moon pulls. The sea follows.\n"
	if err := os.WriteFile(filepath.Join(notes, "tides.md"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, "notes")
	if err != nil {
		t.Fatalf("notes: %v", err)
	}
	requireContains(t, out, "Tidal Energy")
	requireContains(t, out, "tides.md")
	requireContains(t, out, "https://example.com/watch?v=1")

	out, _, err = runCLI(t, "notes", t.TempDir())
	if err != nil {
		t.Fatalf("notes on empty dir: %v", err)
	}
	requireContains(t, out, "No notes in")
}

func TestRunsListAndDetail(t *testing.T) {
	env := setupCLIEnv(t)

	out, _, err := runCLI(t, "runs")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "No runs recorded yet")

	store, err := history.Open(filepath.Join(env.home, ".local", "share", "notereel", "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	started := time.Now().UTC().Add(-time.Minute)
	ended := started.Add(30 * time.Second)
	id := "0f8fad5b-d9cb-469f-a165-70867728950e"
	if err := store.Begin(ctx, id, "/notes/tides.md", started); err != nil {
		t.Fatal(err)
	}
	if err := store.Finish(ctx, types.RunSummary{
		ID:       id,
		Document: "/notes/tides.md",
		Stage:    types.StageDone,
		Output:   "/videos/tides.mp4",
		Outcomes: []types.SegmentOutcome{
			types.Rendered(0, "/scratch/output0.mp4"),
			types.Skipped(1, "ffmpeg exit status 1: No such file"),
		},
		StartedAt: started,
		EndedAt:   &ended,
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	out, _, err = runCLI(t, "runs")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "0f8fad5b")
	requireContains(t, out, "tides.md")
	requireContains(t, out, "Done")

	out, _, err = runCLI(t, "runs", id)
	if err != nil {
		t.Fatalf("runs %s: %v", id, err)
	}
	requireContains(t, out, "/videos/tides.mp4")
	requireContains(t, out, "ffmpeg exit status 1: No such file")

	if _, _, err := runCLI(t, "runs", "missing"); err == nil {
		t.Fatal("expected unknown run to fail")
	}
}

func TestDoctor(t *testing.T) {
	env := setupCLIEnv(t)
	bin := filepath.Join(env.home, "bin")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		t.Fatal(err)
	}
	ffmpeg := writeStub(t, bin, "ffmpeg", `echo "ffmpeg version 6.1-test"`)
	t.Setenv("NOTEREEL_FFMPEG", ffmpeg)
	t.Setenv("NOTEREEL_FFPROBE", ffmpeg)
	t.Setenv("NOTEREEL_YTDLP", filepath.Join(bin, "yt-dlp-missing"))

	out, _, err := runCLI(t, "doctor")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "ffmpeg version 6.1-test")
	requireContains(t, out, "missing (optional)")

	t.Setenv("NOTEREEL_FFMPEG", filepath.Join(bin, "ffmpeg-missing"))
	_, _, err = runCLI(t, "doctor")
	if err == nil {
		t.Fatal("expected doctor to fail without ffmpeg")
	}
	requireContains(t, err.Error(), "missing required tools: FFmpeg")
}
