package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.ScratchDir == "" {
		return errors.New("paths.scratch_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.HistoryDB == "" {
		return errors.New("paths.history_db must be set")
	}
	return nil
}

func (c *Config) validateRender() error {
	switch c.Render.Layout {
	case "bottom", "centered":
	default:
		return fmt.Errorf("render.layout must be bottom or centered, got %q", c.Render.Layout)
	}
	if strings.TrimSpace(c.Render.FFmpeg) == "" {
		return errors.New("render.ffmpeg must be set")
	}
	if strings.ContainsAny(c.Render.Background, ":,;[]") {
		return fmt.Errorf("render.background %q is not a plain colour", c.Render.Background)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	switch c.Pipeline.FailurePolicy {
	case "skip", "abort":
		return nil
	default:
		return fmt.Errorf("pipeline.failure_policy must be skip or abort, got %q", c.Pipeline.FailurePolicy)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
}
