package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/forPelevin/notereel/internal/types"
)

var (
	ErrAcquisition = errors.New("narration unavailable")
	ErrSegment     = errors.New("segment failed")
	ErrNoClips     = errors.New("no clips rendered")
	ErrConcat      = errors.New("concatenation failed")
	ErrMux         = errors.New("audio merge failed")
)

// wrap tags err with marker and prefixes the stage and operation, so the
// message reads "<marker>: <stage>: <op>: <cause>" while errors.Is still
// matches both the marker and the cause.
func wrap(marker error, stage types.Stage, op string, err error) error {
	parts := make([]string, 0, 2)
	if stage != "" {
		parts = append(parts, string(stage))
	}
	if op = strings.TrimSpace(op); op != "" {
		parts = append(parts, op)
	}
	detail := strings.Join(parts, ": ")
	switch {
	case err != nil && detail != "":
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	case err != nil:
		return fmt.Errorf("%w: %w", marker, err)
	case detail != "":
		return fmt.Errorf("%w: %s", marker, detail)
	default:
		return marker
	}
}
