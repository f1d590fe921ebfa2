package procexec

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestExecRunner_CapturesExitAndStreams(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stub requires a POSIX shell")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "tool")
	body := "#!/bin/sh\necho out\necho oops 1>&2\nexit 3\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	res, err := ExecRunner{}.Run(context.Background(), Cmd{Name: script})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", res.ExitCode)
	}
	if strings.TrimSpace(string(res.Stdout)) != "out" {
		t.Fatalf("unexpected stdout %q", res.Stdout)
	}
	if res.Diagnostics() != "oops" {
		t.Fatalf("unexpected diagnostics %q", res.Diagnostics())
	}
}

func TestExecRunner_MissingBinary(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), Cmd{Name: "clearly-not-present-binary"})
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestExecRunner_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ExecRunner{}.Run(ctx, Cmd{Name: "true"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCheck(t *testing.T) {
	if err := Check("op", Result{}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := Check("ffmpeg concat", Result{ExitCode: 1, Stderr: []byte("bad input")}, nil)
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if !strings.Contains(err.Error(), "ffmpeg concat: exit status 1") || !strings.Contains(err.Error(), "bad input") {
		t.Fatalf("unexpected message: %v", err)
	}
	base := errors.New("boom")
	if err := Check("op", Result{}, base); !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}
