package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	MediaRoot  string `toml:"media_root"`
	NotesDir   string `toml:"notes_dir"`
	ScratchDir string `toml:"scratch_dir"`
	OutputDir  string `toml:"output_dir"`
	FontsDir   string `toml:"fonts_dir"`
	HistoryDB  string `toml:"history_db"`
}

// Render contains subtitle layout and ffmpeg encode settings.
type Render struct {
	Layout     string `toml:"layout"`
	Background string `toml:"background"`
	Bitrate    string `toml:"bitrate"`
	Preset     string `toml:"preset"`
	FFmpeg     string `toml:"ffmpeg"`
	FFprobe    string `toml:"ffprobe"`
}

// Audio contains narration acquisition settings.
type Audio struct {
	YTDLP  string `toml:"ytdlp"`
	Format string `toml:"format"`
}

// Pipeline contains run behaviour switches.
type Pipeline struct {
	CleanupIntermediates bool   `toml:"cleanup_intermediates"`
	FailurePolicy        string `toml:"failure_policy"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

type Server struct {
	Bind string `toml:"bind"`

	// AllowedOrigins are browser origin host patterns permitted to open
	// run event streams in addition to same-origin pages.
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Config encapsulates all configuration values for notereel.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Render   Render   `toml:"render"`
	Audio    Audio    `toml:"audio"`
	Pipeline Pipeline `toml:"pipeline"`
	Logging  Logging  `toml:"logging"`
	Server   Server   `toml:"server"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/notereel/config.toml")
}

// Load reads the configuration at path (or the default location when path is
// empty), applies environment overrides, normalizes paths and validates the
// result. A missing file at the default location is not an error.
func Load(path string) (*Config, string, error) {
	cfg := Default()
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil, "", err
		}
		path = p
	}
	resolved, err := expandPath(path)
	if err != nil {
		return nil, "", fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, "", fmt.Errorf("parse config %s: %w", resolved, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		resolved = ""
	default:
		return nil, "", fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.normalize(); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolved, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	resolved, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(resolved); err == nil {
		return fmt.Errorf("config already exists at %s", resolved)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(resolved, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories a run writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ScratchDir, c.Paths.OutputDir, filepath.Dir(c.Paths.HistoryDB)} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&c.Paths.MediaRoot, "NOTEREEL_MEDIA_ROOT")
	override(&c.Paths.NotesDir, "NOTEREEL_NOTES_DIR")
	override(&c.Paths.ScratchDir, "NOTEREEL_SCRATCH_DIR")
	override(&c.Paths.OutputDir, "NOTEREEL_OUTPUT_DIR")
	override(&c.Render.FFmpeg, "NOTEREEL_FFMPEG")
	override(&c.Render.FFprobe, "NOTEREEL_FFPROBE")
	override(&c.Audio.YTDLP, "NOTEREEL_YTDLP")
	override(&c.Logging.Level, "NOTEREEL_LOG_LEVEL")
}

func (c *Config) normalize() error {
	var err error
	for _, p := range []struct {
		name string
		dst  *string
	}{
		{"paths.media_root", &c.Paths.MediaRoot},
		{"paths.notes_dir", &c.Paths.NotesDir},
		{"paths.scratch_dir", &c.Paths.ScratchDir},
		{"paths.output_dir", &c.Paths.OutputDir},
		{"paths.fonts_dir", &c.Paths.FontsDir},
		{"paths.history_db", &c.Paths.HistoryDB},
		{"logging.file", &c.Logging.File},
	} {
		if *p.dst, err = expandPath(*p.dst); err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
	}
	c.Render.Layout = strings.ToLower(strings.TrimSpace(c.Render.Layout))
	if c.Render.Layout == "center" {
		c.Render.Layout = "centered"
	}
	c.Pipeline.FailurePolicy = strings.ToLower(strings.TrimSpace(c.Pipeline.FailurePolicy))
	if c.Pipeline.FailurePolicy == "" {
		c.Pipeline.FailurePolicy = defaultFailurePolicy
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	return nil
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}
