package usecase

import (
	"context"

	"echotarot/internal/domain"
	"echotarot/internal/ports"
)

type readingFinalizer struct {
	store    ports.ReadingStore
	feedback ports.Feedback
	narrator ports.Narrator
	events   ports.EventSink
}

func newReadingFinalizer(store ports.ReadingStore, feedback ports.Feedback, narrator ports.Narrator, events ports.EventSink) readingFinalizer {
	return readingFinalizer{store: store, feedback: feedback, narrator: narrator, events: events}
}

// Finalize persists the finished session. On failure nothing is written and
// the caller keeps the session where it is so the save can be retried.
func (f readingFinalizer) Finalize(ctx context.Context, in domain.ReadingInput) (domain.Reading, domain.SessionStateReason, error) {
	reading, err := f.store.Save(ctx, in)
	if err != nil {
		f.events.SessionError(domain.ErrorCodePersistence, err.Error())
		f.feedback.Notify(domain.FeedbackError)
		f.narrator.Speak(promptSaveFailed, nil)
		return domain.Reading{}, domain.SessionReasonSaveFailed, err
	}

	f.feedback.Notify(domain.FeedbackSuccess)
	f.narrator.Speak(promptSaved, nil)
	return reading, domain.SessionReasonReadingSaved, nil
}
