package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/notereel/internal/types"
)

type Layout string

const (
	LayoutBottom   Layout = "bottom"
	LayoutCentered Layout = "centered"
)

func ParseLayout(s string) (Layout, error) {
	switch Layout(strings.ToLower(strings.TrimSpace(s))) {
	case "", LayoutBottom:
		return LayoutBottom, nil
	case LayoutCentered, "center":
		return LayoutCentered, nil
	default:
		return "", fmt.Errorf("unknown subtitle layout %q (want bottom or centered)", s)
	}
}

const (
	PlayResX  = 1280
	PlayResY  = 720
	StyleName = "Default"
	fontName  = "Vera"
)

type margins struct{ L, R, V int }

// Render builds a complete ASS document holding exactly one event that spans
// the whole clip. text is expected to already carry override tags.
func Render(text string, layout Layout) string {
	var b strings.Builder
	b.WriteString(scriptInfo())
	b.WriteString("\n\n[V4+ Styles]\n")
	var m margins
	switch layout {
	case LayoutCentered:
		b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, Alignment\n")
		b.WriteString(fmt.Sprintf("Style: %s, %s, 42, &HFFFFFF&, 8\n", StyleName, fontName))
		m = margins{L: 320, R: 320, V: 355}
	default:
		b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
		b.WriteString(fmt.Sprintf("Style: %s, %s, 28, &HFFFFFF&, &HFFFFFF&, &H000000&, &H000000&, -1, 0, 0, 0, 100, 100, 0, 0, 3, 1, 1, 2, 10, 10, 30, 1\n", StyleName, fontName))
		m = margins{L: 10, R: 10, V: 30}
	}
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	b.WriteString("Dialogue: 0,")
	b.WriteString(assTime(0))
	b.WriteString(",")
	b.WriteString(assTime(types.ClipDuration))
	b.WriteString(fmt.Sprintf(",%s,,%d,%d,%d,,", StyleName, m.L, m.R, m.V))
	b.WriteString(singleLine(text))
	b.WriteString("\n")
	return b.String()
}

func scriptInfo() string {
	return strings.TrimSpace(fmt.Sprintf(`
[Script Info]
Title: notereel segment
ScriptType: v4.00+
WrapStyle: 0
PlayResX: %d
PlayResY: %d
ScaledBorderAndShadow: yes
YCbCr Matrix: None
`, PlayResX, PlayResY))
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

// singleLine keeps the event on one physical line; the dialogue format has no
// continuation syntax.
func singleLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
