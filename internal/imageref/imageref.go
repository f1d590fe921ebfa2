// Package imageref finds the image a sentence points at and turns it into a
// local file the renderer can composite.
package imageref

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/forPelevin/notereel/internal/ports"
)

var ErrDownload = errors.New("image download failed")

type Kind int

const (
	Local Kind = iota + 1
	Hosted
)

type Ref struct {
	Kind   Kind
	Target string
}

var (
	localPattern  = regexp.MustCompile(`!\[\[(.*?)\]\]`)
	hostedPattern = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`)
)

// Detect returns the first image reference in text. Local syntax wins when a
// sentence carries both.
func Detect(text string) (Ref, bool) {
	if m := localPattern.FindStringSubmatch(text); m != nil {
		target := strings.TrimSpace(m[1])
		// ![[file.png|300]] carries an Obsidian display width.
		if i := strings.Index(target, "|"); i >= 0 {
			target = strings.TrimSpace(target[:i])
		}
		if target != "" {
			return Ref{Kind: Local, Target: target}, true
		}
	}
	if m := hostedPattern.FindStringSubmatch(text); m != nil {
		if target := strings.TrimSpace(m[2]); target != "" {
			return Ref{Kind: Hosted, Target: target}, true
		}
	}
	return Ref{}, false
}

type Resolver struct {
	MediaRoot  string
	ScratchDir string
	Fetcher    ports.ImageFetcher
}

// Resolve returns a local image path for the sentence at index, or "" when it
// has no image. Local paths are not checked for existence; a missing file
// surfaces as a render failure.
func (r Resolver) Resolve(ctx context.Context, index int, text string) (string, error) {
	ref, ok := Detect(text)
	if !ok {
		return "", nil
	}
	switch ref.Kind {
	case Local:
		if filepath.IsAbs(ref.Target) {
			return ref.Target, nil
		}
		return filepath.Join(r.MediaRoot, filepath.FromSlash(ref.Target)), nil
	case Hosted:
		return r.download(ctx, index, ref.Target)
	default:
		return "", nil
	}
}

func (r Resolver) download(ctx context.Context, index int, raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: parse %q: %w", ErrDownload, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported url %q", ErrDownload, raw)
	}
	if r.Fetcher == nil {
		return "", fmt.Errorf("%w: no fetcher configured", ErrDownload)
	}
	dest := filepath.Join(r.ScratchDir, fmt.Sprintf("image%d%s", index, extension(u.Path)))
	if err := r.Fetcher.Fetch(ctx, u.String(), dest); err != nil {
		return "", fmt.Errorf("%w: %w", ErrDownload, err)
	}
	return dest, nil
}

func extension(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" || len(ext) > 6 {
		return ".img"
	}
	return ext
}
