package sentences

import (
	"strings"

	"github.com/forPelevin/notereel/internal/types"
)

// Delimiters are applied in order; each pass splits every piece produced by
// the previous one. The delimiter itself is consumed.
var Delimiters = []string{". ", ".\n", "? ", "!\n", "! "}

// Split breaks text into trimmed, newline-free sentences. The result is never
// empty; irregular spacing can yield empty sentences, which callers render as
// empty clips.
func Split(text string) []string {
	parts := []string{text}
	for _, d := range Delimiters {
		next := make([]string, 0, len(parts))
		for _, p := range parts {
			next = append(next, strings.Split(p, d)...)
		}
		parts = next
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = normalize(p)
	}
	return out
}

// Segments wraps Split, assigning each sentence its stable index.
func Segments(text string) []types.Segment {
	split := Split(text)
	out := make([]types.Segment, len(split))
	for i, s := range split {
		out[i] = types.Segment{Index: i, RawText: s}
	}
	return out
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.TrimSpace(s)
}
