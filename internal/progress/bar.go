package progress

import (
	"io"
	"strings"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/forPelevin/notereel/internal/types"
)

var titleCaser = cases.Title(language.English)

// StageLabel turns a stage name into a heading, e.g. "Generating Clips".
func StageLabel(s types.Stage) string {
	return titleCaser.String(strings.ReplaceAll(string(s), "_", " "))
}

// Bar draws segment progress on a terminal. Stages before clip generation
// are printed as plain lines; the bar itself appears once the segment count
// is known. It is not safe for concurrent Publish calls.
type Bar struct {
	w     io.Writer
	bar   *progressbar.ProgressBar
	total int
}

func NewBar(w io.Writer) *Bar {
	return &Bar{w: w}
}

func (b *Bar) Publish(e Event) {
	switch e.Kind {
	case KindStage:
		label := StageLabel(e.Stage)
		if b.bar == nil {
			if !e.Stage.Terminal() {
				_, _ = io.WriteString(b.w, label+"\n")
			}
			return
		}
		b.bar.Describe(label)
		if e.Stage.Terminal() {
			_ = b.bar.Finish()
		}
	case KindProgress:
		if e.Total <= 0 {
			return
		}
		if b.bar == nil || e.Total != b.total {
			b.total = e.Total
			b.bar = b.newBar(e.Total, StageLabel(e.Stage))
		}
		_ = b.bar.Set(e.Segment)
	}
}

func (b *Bar) newBar(total int, label string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(b.w),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription(label),
		progressbar.OptionOnCompletion(func() { _, _ = io.WriteString(b.w, "\n") }),
	)
}
