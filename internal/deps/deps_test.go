package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/forPelevin/notereel/internal/config"
	"github.com/forPelevin/notereel/internal/procexec"
)

func writeStub(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	present := writeStub(t, t.TempDir(), "present", "exit 0")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected status for unset command: %#v", results[2])
	}
}

func TestCheckReadsVersions(t *testing.T) {
	dir := t.TempDir()
	ffmpeg := writeStub(t, dir, "ffmpeg", `echo "ffmpeg version 7.1 Copyright (c) 2000-2024"; echo "built with gcc"`)
	broken := writeStub(t, dir, "yt-dlp", "exit 3")

	results := Check(context.Background(), procexec.ExecRunner{}, []Requirement{
		{Name: "FFmpeg", Command: ffmpeg, VersionArgs: []string{"-version"}},
		{Name: "yt-dlp", Command: broken, VersionArgs: []string{"--version"}, Optional: true},
	})
	if results[0].Version != "ffmpeg version 7.1 Copyright (c) 2000-2024" {
		t.Fatalf("unexpected version %q", results[0].Version)
	}
	if !results[1].Available || results[1].Version != "" {
		t.Fatalf("failing version probe should leave the tool available without a version: %#v", results[1])
	}
}

func TestRequirementsAndMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Render.FFmpeg = "clearly-not-present-ffmpeg"
	cfg.Audio.YTDLP = "clearly-not-present-yt-dlp"

	reqs := Requirements(&cfg)
	if len(reqs) != 3 {
		t.Fatalf("expected 3 requirements, got %d", len(reqs))
	}
	missing := Missing(CheckBinaries(reqs))
	if len(missing) != 1 || missing[0].Name != "FFmpeg" {
		t.Fatalf("only ffmpeg is required, got %#v", missing)
	}
}
