package feedback

import (
	"sync"
	"testing"

	"echotarot/internal/domain"
)

func TestSinkGatedByHaptics(t *testing.T) {
	t.Parallel()

	emitter := &recordingEmitter{}
	sink := NewSink(emitter, true)

	sink.Notify(domain.FeedbackTap)
	sink.SetEnabled(false)
	sink.Notify(domain.FeedbackError)
	if sink.Enabled() {
		t.Fatalf("expected sink to be disabled")
	}
	sink.SetEnabled(true)
	sink.Notify(domain.FeedbackSuccess)

	got := emitter.snapshot()
	if len(got) != 2 || got[0] != domain.FeedbackTap || got[1] != domain.FeedbackSuccess {
		t.Fatalf("unexpected cues: %v", got)
	}
}

func TestSinkWithoutEmitter(t *testing.T) {
	t.Parallel()

	NewSink(nil, true).Notify(domain.FeedbackTap)
}

func TestPattern(t *testing.T) {
	t.Parallel()

	kinds := []domain.FeedbackKind{
		domain.FeedbackTap,
		domain.FeedbackCardDrawn,
		domain.FeedbackCardRevealed,
		domain.FeedbackSuccess,
		domain.FeedbackError,
		domain.FeedbackSelection,
	}
	for _, kind := range kinds {
		if len(Pattern(kind))%2 != 1 {
			t.Fatalf("%s: pattern must start and end with a pulse", kind)
		}
	}
	if Pattern("unknown") != nil {
		t.Fatalf("expected no pattern for unknown cue")
	}
}

type recordingEmitter struct {
	mu    sync.Mutex
	kinds []domain.FeedbackKind
}

func (r *recordingEmitter) FeedbackCue(kind domain.FeedbackKind) {
	r.mu.Lock()
	r.kinds = append(r.kinds, kind)
	r.mu.Unlock()
}

func (r *recordingEmitter) snapshot() []domain.FeedbackKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.FeedbackKind(nil), r.kinds...)
}
