package usecase

import (
	"context"
	"errors"
	"testing"

	"echotarot/internal/domain"
)

func oneCardInput() domain.ReadingInput {
	return domain.NewReadingInput(domain.SpreadOneCard,
		[]domain.DrawnCard{{Card: domain.Card{ID: "major_arcana.00", Name: "The Fool"}}}, "", "", nil)
}

func TestReadingFinalizerStoreFailure(t *testing.T) {
	t.Parallel()

	store := newFakeReadingStore()
	store.setErr(errors.New("locked"))
	events := &fakeEventSink{}
	narrator := &fakeNarrator{}
	f := newReadingFinalizer(store, &fakeFeedback{}, narrator, events)

	_, reason, err := f.Finalize(context.Background(), oneCardInput())
	if err == nil {
		t.Fatalf("expected store error")
	}
	if reason != domain.SessionReasonSaveFailed {
		t.Fatalf("unexpected reason: %s", reason)
	}
	if errs := events.snapshotErrors(); len(errs) != 1 || errs[0].code != domain.ErrorCodePersistence {
		t.Fatalf("expected persistence error, got %+v", errs)
	}
	if narrator.last() != promptSaveFailed {
		t.Fatalf("unexpected narration: %q", narrator.last())
	}
}

func TestReadingFinalizerSuccess(t *testing.T) {
	t.Parallel()

	store := newFakeReadingStore()
	feedback := &fakeFeedback{}
	f := newReadingFinalizer(store, feedback, &fakeNarrator{}, &fakeEventSink{})

	reading, reason, err := f.Finalize(context.Background(), oneCardInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reason != domain.SessionReasonReadingSaved {
		t.Fatalf("unexpected reason: %s", reason)
	}
	if len(reading.CardIDs) != 1 || reading.CardIDs[0] != "major_arcana.00" {
		t.Fatalf("unexpected reading: %+v", reading)
	}
	if kinds := feedback.snapshot(); len(kinds) != 1 || kinds[0] != domain.FeedbackSuccess {
		t.Fatalf("unexpected feedback: %v", kinds)
	}
}

func TestReadingFinalizerRejectsInvalidReading(t *testing.T) {
	t.Parallel()

	store := newFakeReadingStore()
	f := newReadingFinalizer(store, &fakeFeedback{}, &fakeNarrator{}, &fakeEventSink{})

	in := oneCardInput()
	in.CardReversals = nil
	if _, _, err := f.Finalize(context.Background(), in); !errors.Is(err, domain.ErrInvalidReading) {
		t.Fatalf("expected ErrInvalidReading, got %v", err)
	}
	if len(store.snapshotInputs()) != 0 {
		t.Fatalf("invalid reading must not be stored")
	}
}
