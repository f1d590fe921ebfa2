package sentences

import (
	"strings"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "periods",
			in:   "One. Two. Three.",
			want: []string{"One", "Two", "Three."},
		},
		{
			name: "mixed punctuation",
			in:   "Is it? Yes! Really.\nNext line",
			want: []string{"Is it", "Yes", "Really", "Next line"},
		},
		{
			name: "exclamation newline",
			in:   "Wow!\nThen more",
			want: []string{"Wow", "Then more"},
		},
		{
			name: "embedded newline collapses",
			in:   "A sentence\nthat wraps. Done",
			want: []string{"A sentence that wraps", "Done"},
		},
		{
			name: "empty input",
			in:   "",
			want: []string{""},
		},
		{
			name: "trailing delimiter yields empty segment",
			in:   "Only one. ",
			want: []string{"Only one", ""},
		},
		{
			name: "question mark newline is not a delimiter",
			in:   "Why?\nBecause",
			want: []string{"Why? Because"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Split(tc.in)
			if len(got) != len(tc.want) {
				t.Fatalf("Split(%q) = %q, want %q", tc.in, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("Split(%q)[%d] = %q, want %q", tc.in, i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestSplit_RejoinReconstructs(t *testing.T) {
	sentences := []string{"First idea", "Second *bold* idea", "Third with [[link]]", "Last one."}
	text := strings.Join(sentences, ". ")

	got := Split(text)
	if len(got) != len(sentences) {
		t.Fatalf("expected %d segments, got %d: %q", len(sentences), len(got), got)
	}
	if strings.Join(got, ". ") != text {
		t.Fatalf("rejoin mismatch: %q", strings.Join(got, ". "))
	}
	for _, s := range got {
		if strings.ContainsAny(s, "\r\n") || strings.TrimSpace(s) != s {
			t.Fatalf("segment not normalized: %q", s)
		}
	}
}

func TestSegments_AssignsIndices(t *testing.T) {
	segs := Segments("a. b. c")
	for i, s := range segs {
		if s.Index != i {
			t.Fatalf("segment %d has index %d", i, s.Index)
		}
	}
	if segs[2].RawText != "c" {
		t.Fatalf("unexpected last segment: %+v", segs[2])
	}
}
