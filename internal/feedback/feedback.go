package feedback

import (
	"sync/atomic"

	"echotarot/internal/domain"
	"echotarot/internal/ports"
)

// Emitter delivers a cue to whatever renders it (the view layer or a terminal).
type Emitter interface {
	FeedbackCue(kind domain.FeedbackKind)
}

// Sink forwards cues to an Emitter while haptics are enabled.
type Sink struct {
	emitter Emitter
	enabled atomic.Bool
}

var _ ports.Feedback = (*Sink)(nil)

func NewSink(emitter Emitter, enabled bool) *Sink {
	s := &Sink{emitter: emitter}
	s.enabled.Store(enabled)
	return s
}

func (s *Sink) Notify(kind domain.FeedbackKind) {
	if s.emitter == nil || !s.enabled.Load() {
		return
	}
	s.emitter.FeedbackCue(kind)
}

// SetEnabled follows the user's haptics setting.
func (s *Sink) SetEnabled(enabled bool) {
	s.enabled.Store(enabled)
}

func (s *Sink) Enabled() bool {
	return s.enabled.Load()
}

// Pattern describes how a cue feels: vibration pulses in milliseconds,
// alternating on and off.
func Pattern(kind domain.FeedbackKind) []int {
	switch kind {
	case domain.FeedbackTap, domain.FeedbackSelection:
		return []int{10}
	case domain.FeedbackCardDrawn:
		return []int{20, 40, 20}
	case domain.FeedbackCardRevealed:
		return []int{40, 60, 40, 60, 80}
	case domain.FeedbackSuccess:
		return []int{30, 50, 60}
	case domain.FeedbackError:
		return []int{120, 80, 120}
	default:
		return nil
	}
}
