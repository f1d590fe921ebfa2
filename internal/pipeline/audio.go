package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/forPelevin/notereel/internal/ports"
)

// AudioRouter sends URL references to Remote and everything else to Local.
type AudioRouter struct {
	Remote ports.AudioSource
	Local  ports.AudioSource
}

func (r AudioRouter) Acquire(ctx context.Context, ref, destPath string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return errors.New("no audio reference")
	}
	if isURL(ref) {
		if r.Remote == nil {
			return errors.New("no downloader configured for audio URLs")
		}
		return r.Remote.Acquire(ctx, ref, destPath)
	}
	if r.Local == nil {
		return errors.New("no local audio source configured")
	}
	return r.Local.Acquire(ctx, ref, destPath)
}

func isURL(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
