package usecase

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// manifest is the ordered clip list handed to the concat demuxer. Entries
// are appended in segment order and never reordered.
type manifest struct {
	clips []string
}

func (m *manifest) add(clipPath string) error {
	abs, err := filepath.Abs(clipPath)
	if err != nil {
		return fmt.Errorf("resolve clip path: %w", err)
	}
	m.clips = append(m.clips, abs)
	return nil
}

func (m *manifest) len() int { return len(m.clips) }

func (m *manifest) String() string {
	var b strings.Builder
	for _, c := range m.clips {
		b.WriteString("file '")
		b.WriteString(quoteManifestPath(c))
		b.WriteString("'\n")
	}
	return b.String()
}

func (m *manifest) write(path string) error {
	if err := os.WriteFile(path, []byte(m.String()), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// quoteManifestPath escapes single quotes the way the concat demuxer expects
// inside a single-quoted file directive.
func quoteManifestPath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}
