// Package progress carries one-way stage and progress notifications from a
// pipeline run to whoever is watching it: a terminal bar, the log, or
// websocket subscribers.
package progress

import (
	"log/slog"
	"time"

	"github.com/forPelevin/notereel/internal/types"
)

type Kind string

const (
	KindStage    Kind = "stage"
	KindProgress Kind = "progress"
)

type Event struct {
	RunID   string      `json:"run_id,omitempty"`
	Kind    Kind        `json:"kind"`
	Stage   types.Stage `json:"stage"`
	Percent float64     `json:"percent"`
	Segment int         `json:"segment,omitempty"`
	Total   int         `json:"total,omitempty"`
	Time    time.Time   `json:"time"`
}

// Sink receives events. Publish must not block the run for long; there is no
// acknowledgement.
type Sink interface {
	Publish(Event)
}

type Func func(Event)

func (f Func) Publish(e Event) {
	if f != nil {
		f(e)
	}
}

type nop struct{}

func (nop) Publish(Event) {}

func Nop() Sink { return nop{} }

type multi []Sink

func (m multi) Publish(e Event) {
	for _, s := range m {
		s.Publish(e)
	}
}

// Multi fans every event out to each non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// WithRunID stamps every event passing through with id.
func WithRunID(id string, next Sink) Sink {
	return Func(func(e Event) {
		if e.RunID == "" {
			e.RunID = id
		}
		next.Publish(e)
	})
}

// Log writes stage changes at info and progress at debug.
func Log(logger *slog.Logger) Sink {
	return Func(func(e Event) {
		switch e.Kind {
		case KindStage:
			logger.Info("stage", slog.String("stage", string(e.Stage)))
		case KindProgress:
			logger.Debug("progress",
				slog.Float64("percent", e.Percent),
				slog.Int("segment", e.Segment),
				slog.Int("total", e.Total),
			)
		}
	})
}

func StageEvent(stage types.Stage) Event {
	return Event{Kind: KindStage, Stage: stage, Time: time.Now().UTC()}
}

func ProgressEvent(completed, total int) Event {
	pct := 100.0
	if total > 0 {
		pct = float64(completed) * 100 / float64(total)
	}
	return Event{
		Kind:    KindProgress,
		Stage:   types.StageGeneratingClips,
		Percent: pct,
		Segment: completed,
		Total:   total,
		Time:    time.Now().UTC(),
	}
}
