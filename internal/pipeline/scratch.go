package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/gofrs/flock"
)

var ErrScratchBusy = errors.New("scratch dir is in use by another run")

const lockFileName = ".notereel.lock"

// scratch is a run's exclusive working directory.
type scratch struct {
	dir  string
	lock *flock.Flock
}

// claimScratch creates dir and takes its lock file. A second claim on the
// same dir fails with ErrScratchBusy until the first is released.
func claimScratch(dir string) (*scratch, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	lock := flock.New(filepath.Join(dir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock scratch dir: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScratchBusy, dir)
	}
	return &scratch{dir: dir, lock: lock}, nil
}

// release unlocks the dir. With removeEmpty the lock file and, if nothing
// else is left, the dir itself are deleted.
func (s *scratch) release(removeEmpty bool) error {
	err := s.lock.Unlock()
	if removeEmpty {
		_ = os.Remove(s.lock.Path())
		_ = os.Remove(s.dir)
	}
	return err
}

func buildRunDir(root, document string, now time.Time) string {
	return filepath.Join(root, runName(document, now))
}

func runName(document string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(document), filepath.Ext(document))
	name = normalizePathSegment(name)
	if name == "" {
		name = "note"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", document, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return fmt.Sprintf("%s-%s-%s", name, ts, suffix)
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}
