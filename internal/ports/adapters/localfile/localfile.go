package localfile

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Adapter satisfies AudioSource for narration that already sits on disk.
// Relative references resolve against root.
type Adapter struct {
	root string
}

func New(root string) *Adapter {
	return &Adapter{root: root}
}

func (a *Adapter) Acquire(ctx context.Context, ref, destPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src := ref
	if !filepath.IsAbs(src) && a.root != "" {
		src = filepath.Join(a.root, src)
	}
	if err := copyFile(src, destPath); err != nil {
		return fmt.Errorf("copy narration %s: %w", src, err)
	}
	return nil
}

// copyFile leaves no partial dst behind on failure.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return nil
}
