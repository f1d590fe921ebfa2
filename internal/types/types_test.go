package types

import "testing"

func TestStageCanAdvance(t *testing.T) {
	tests := []struct {
		from, to Stage
		want     bool
	}{
		{"", StageDownloadingAudio, true},
		{"", StageGeneratingClips, false},
		{StageDownloadingAudio, StageGeneratingClips, true},
		{StageGeneratingClips, StageConcatenating, true},
		{StageConcatenating, StageMergingAudio, true},
		{StageMergingAudio, StageDone, true},
		{StageGeneratingClips, StageDownloadingAudio, false},
		{StageGeneratingClips, StageMergingAudio, false},
		{StageConcatenating, StageFailed, true},
		{StageDone, StageFailed, false},
		{StageFailed, StageDone, false},
		{StageGeneratingClips, Stage("bogus"), false},
	}
	for _, tc := range tests {
		if got := tc.from.CanAdvance(tc.to); got != tc.want {
			t.Fatalf("%q -> %q: got %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestRunSummaryCounts(t *testing.T) {
	r := RunSummary{Outcomes: []SegmentOutcome{
		Rendered(0, "output0.mp4"),
		Skipped(1, "render failed"),
		Rendered(2, "output2.mp4"),
	}}
	rendered, skipped := r.Counts()
	if rendered != 2 || skipped != 1 {
		t.Fatalf("unexpected counts: rendered=%d skipped=%d", rendered, skipped)
	}
}
