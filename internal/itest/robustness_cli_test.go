//go:build integration

package itest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"
)

const cliTimeout = 30 * time.Second

type robustCase struct {
	name            string
	args            func(t *testing.T, repoRoot string) []string
	env             map[string]string
	wantContains    []string
	wantNotContains []string
}

type cliRunResult struct {
	exitCode int
	output   string
}

func TestRobustness_ArgsValidation(t *testing.T) {
	repoRoot := mustRepoRoot(t)

	cases := []robustCase{
		{
			name: "no args",
			args: staticArgs("render"),
			wantContains: []string{
				"accepts 1 arg(s), received 0",
			},
		},
		{
			name: "too many args",
			args: noteArgs("extra"),
			wantContains: []string{
				"accepts 1 arg(s), received 2",
			},
		},
		{
			name: "unknown flag",
			args: noteArgs("--wat"),
			wantContains: []string{
				"unknown flag: --wat",
			},
		},
		{
			name: "bad layout",
			args: noteArgs("--layout", "diagonal"),
			wantContains: []string{
				`unknown subtitle layout "diagonal"`,
			},
		},
		{
			name: "bad failure policy",
			args: noteArgs("--on-failure", "retry"),
			wantContains: []string{
				`unknown failure policy "retry"`,
			},
		},
		{
			name: "note without narration",
			args: noteArgs(),
			env: map[string]string{
				"NOTEREEL_LOG_LEVEL": "error",
			},
			wantContains: []string{
				"narration unavailable",
			},
		},
	}

	runRobustCases(t, repoRoot, cases)
}

func TestRobustness_InvalidInputs(t *testing.T) {
	repoRoot := mustRepoRoot(t)

	cases := []robustCase{
		{
			name: "missing note",
			args: func(t *testing.T, _ string) []string {
				t.Helper()
				return []string{"render", filepath.Join(t.TempDir(), "does-not-exist.md")}
			},
			wantContains: []string{
				"config: stat document:",
			},
		},
		{
			name: "missing local narration",
			args: noteArgs("--audio", "/nonexistent/narration.mp3"),
			wantContains: []string{
				"narration unavailable",
				"/nonexistent/narration.mp3",
			},
		},
		{
			name: "ffmpeg missing",
			args: func(t *testing.T, _ string) []string {
				t.Helper()
				dir := t.TempDir()
				junk := filepath.Join(dir, "narration.mp3")
				if err := os.WriteFile(junk, []byte("ID3"), 0o644); err != nil {
					t.Fatalf("write junk fixture: %v", err)
				}
				return []string{"render", writeNote(t, dir), "--audio", junk}
			},
			env: map[string]string{
				"NOTEREEL_FFMPEG": "/nonexistent/ffmpeg",
			},
			wantContains: []string{
				"no clips rendered",
			},
		},
		{
			name: "explicit config missing",
			args: func(t *testing.T, _ string) []string {
				t.Helper()
				return []string{"--config", filepath.Join(t.TempDir(), "none.toml"), "render", writeNote(t, t.TempDir())}
			},
			wantContains: []string{
				"read config:",
			},
		},
	}

	runRobustCases(t, repoRoot, cases)
}

func runRobustCases(t *testing.T, repoRoot string, cases []robustCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := runCLI(t, repoRoot, tc.args(t, repoRoot), tc.env)
			if res.exitCode == 0 {
				t.Fatalf("expected non-zero exit code, got 0\noutput:\n%s", res.output)
			}
			for _, want := range tc.wantContains {
				if !strings.Contains(res.output, want) {
					t.Fatalf("expected output to contain %q\noutput:\n%s", want, res.output)
				}
			}
			for _, notWant := range tc.wantNotContains {
				if strings.Contains(res.output, notWant) {
					t.Fatalf("expected output to not contain %q\noutput:\n%s", notWant, res.output)
				}
			}
		})
	}
}

func runCLI(t *testing.T, repoRoot string, args []string, env map[string]string) cliRunResult {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()

	cmdArgs := append([]string{"run", "./cmd/notereel"}, args...)
	cmd := exec.CommandContext(ctx, "go", cmdArgs...)
	cmd.Dir = repoRoot
	cmd.Env = mergeEnv(
		os.Environ(),
		map[string]string{
			"NO_COLOR":             "1",
			"TERM":                 "dumb",
			"HOME":                 t.TempDir(),
			"NOTEREEL_SCRATCH_DIR": t.TempDir(),
		},
		env,
	)

	out, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Fatalf("command timed out after %s: go %s", cliTimeout, strings.Join(cmdArgs, " "))
	}

	res := cliRunResult{output: string(out)}
	if err == nil {
		res.exitCode = 0
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.exitCode = exitErr.ExitCode()
		return res
	}

	t.Fatalf("run command: %v\noutput:\n%s", err, string(out))
	return cliRunResult{}
}

func mergeEnv(base []string, overrides ...map[string]string) []string {
	env := make(map[string]string, len(base))
	for _, kv := range base {
		i := strings.IndexByte(kv, '=')
		if i <= 0 {
			continue
		}
		env[kv[:i]] = kv[i+1:]
	}

	for _, set := range overrides {
		for k, v := range set {
			env[k] = v
		}
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(out)
	return out
}

func mustRepoRoot(t *testing.T) string {
	t.Helper()

	repoRoot, err := findRepoRoot()
	if err != nil {
		t.Fatalf("repo root: %v", err)
	}
	return repoRoot
}

func writeNote(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "note.md")
	if err := os.WriteFile(path, []byte("The moon pulls the sea. The tide turns."), 0o644); err != nil {
		t.Fatalf("write note fixture: %v", err)
	}
	return path
}

// noteArgs renders a fresh two sentence note with the given extra arguments.
func noteArgs(extra ...string) func(t *testing.T, _ string) []string {
	clone := append([]string(nil), extra...)
	return func(t *testing.T, _ string) []string {
		t.Helper()
		return append([]string{"render", writeNote(t, t.TempDir())}, clone...)
	}
}

func staticArgs(args ...string) func(t *testing.T, _ string) []string {
	clone := append([]string(nil), args...)
	return func(t *testing.T, _ string) []string {
		t.Helper()
		return append([]string(nil), clone...)
	}
}
