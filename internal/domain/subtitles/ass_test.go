package subtitles

import (
	"strings"
	"testing"
	"time"
)

func TestRender_Bottom(t *testing.T) {
	doc := Render(`hi {\b1\c&H0000FF&}there{\b0\c&HFFFFFF&}`, LayoutBottom)
	for _, want := range []string{
		"ScriptType: v4.00+",
		"PlayResX: 1280",
		"PlayResY: 720",
		"Style: Default, Vera, 28, &HFFFFFF&",
		"Dialogue: 0,0:00:00.00,0:00:05.00,Default,,10,10,30,,hi {\\b1\\c&H0000FF&}there{\\b0\\c&HFFFFFF&}\n",
	} {
		if !strings.Contains(doc, want) {
			t.Fatalf("expected %q in document:\n%s", want, doc)
		}
	}
	if n := strings.Count(doc, "Dialogue:"); n != 1 {
		t.Fatalf("expected one dialogue line, got %d", n)
	}
}

func TestRender_Centered(t *testing.T) {
	doc := Render("Centered text", LayoutCentered)
	if !strings.Contains(doc, "Format: Name, Fontname, Fontsize, PrimaryColour, Alignment\n") {
		t.Fatalf("expected reduced style format:\n%s", doc)
	}
	if !strings.Contains(doc, "Style: Default, Vera, 42, &HFFFFFF&, 8\n") {
		t.Fatalf("expected centered style:\n%s", doc)
	}
	if !strings.HasSuffix(doc, "Dialogue: 0,0:00:00.00,0:00:05.00,Default,,320,320,355,,Centered text\n") {
		t.Fatalf("unexpected event line:\n%s", doc)
	}
	if strings.Contains(doc, "BorderStyle") {
		t.Fatalf("centered layout must not declare border styling:\n%s", doc)
	}
}

func TestRender_EmptyAndMultilineText(t *testing.T) {
	doc := Render("", LayoutBottom)
	if !strings.HasSuffix(doc, ",,10,10,30,,\n") {
		t.Fatalf("expected empty dialogue text:\n%s", doc)
	}
	doc = Render("two\nlines", LayoutBottom)
	if !strings.HasSuffix(doc, ",,two lines\n") {
		t.Fatalf("expected newline collapsed:\n%s", doc)
	}
}

func TestParseLayout(t *testing.T) {
	tests := map[string]Layout{
		"":         LayoutBottom,
		"bottom":   LayoutBottom,
		"Centered": LayoutCentered,
		"center":   LayoutCentered,
	}
	for in, want := range tests {
		got, err := ParseLayout(in)
		if err != nil || got != want {
			t.Fatalf("ParseLayout(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseLayout("sideways"); err == nil {
		t.Fatal("expected error for unknown layout")
	}
}

func TestAssTime_Format(t *testing.T) {
	got := assTime(61*time.Second + 234*time.Millisecond)
	if got != "0:01:01.23" {
		t.Fatalf("unexpected assTime: %s", got)
	}
}
