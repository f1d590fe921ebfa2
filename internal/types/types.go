package types

import "time"

// ClipDuration is the fixed length of every rendered segment clip.
const ClipDuration = 5 * time.Second

type Segment struct {
	Index      int    `json:"index"`
	RawText    string `json:"raw_text"`
	StyledText string `json:"styled_text,omitempty"`
	ImagePath  string `json:"image_path,omitempty"`
	ClipPath   string `json:"clip_path,omitempty"`
}

type OutcomeStatus string

const (
	OutcomeRendered OutcomeStatus = "rendered"
	OutcomeSkipped  OutcomeStatus = "skipped"
)

// SegmentOutcome records what happened to one segment: either it was
// rendered to ClipPath or it was skipped for Reason.
type SegmentOutcome struct {
	Index    int           `json:"index"`
	Status   OutcomeStatus `json:"status"`
	ClipPath string        `json:"clip_path,omitempty"`
	Reason   string        `json:"reason,omitempty"`
}

func Rendered(index int, clipPath string) SegmentOutcome {
	return SegmentOutcome{Index: index, Status: OutcomeRendered, ClipPath: clipPath}
}

func Skipped(index int, reason string) SegmentOutcome {
	return SegmentOutcome{Index: index, Status: OutcomeSkipped, Reason: reason}
}

type Stage string

const (
	StageDownloadingAudio Stage = "downloading_audio"
	StageGeneratingClips  Stage = "generating_clips"
	StageConcatenating    Stage = "concatenating"
	StageMergingAudio     Stage = "merging_audio"
	StageDone             Stage = "done"
	StageFailed           Stage = "failed"
)

var stageOrder = map[Stage]int{
	StageDownloadingAudio: 1,
	StageGeneratingClips:  2,
	StageConcatenating:    3,
	StageMergingAudio:     4,
	StageDone:             5,
	StageFailed:           6,
}

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	_, ok := stageOrder[s]
	return ok
}

// Terminal reports whether no further transition is possible from s.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// CanAdvance reports whether a run in stage s may move to next. Stages only
// move forward; Failed is reachable from every non-terminal stage.
func (s Stage) CanAdvance(next Stage) bool {
	if !next.Valid() || s.Terminal() {
		return false
	}
	if next == StageFailed {
		return true
	}
	if s == "" {
		return next == StageDownloadingAudio
	}
	return stageOrder[next] == stageOrder[s]+1
}

type RunSummary struct {
	ID        string           `json:"id"`
	Document  string           `json:"document"`
	Stage     Stage            `json:"stage"`
	Output    string           `json:"output,omitempty"`
	Error     string           `json:"error,omitempty"`
	Outcomes  []SegmentOutcome `json:"outcomes,omitempty"`
	StartedAt time.Time        `json:"started_at"`
	EndedAt   *time.Time       `json:"ended_at,omitempty"`
}

func (r RunSummary) Counts() (rendered, skipped int) {
	for _, o := range r.Outcomes {
		switch o.Status {
		case OutcomeRendered:
			rendered++
		case OutcomeSkipped:
			skipped++
		}
	}
	return rendered, skipped
}
