package ports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"echotarot/internal/domain"
)

// ErrPermissionDenied is returned by a Recorder when microphone access is refused.
var ErrPermissionDenied = errors.New("microphone permission denied")

// Narrator announces text. Starting a new utterance stops the previous one;
// onDone is called only when an utterance finishes without being stopped.
type Narrator interface {
	Speak(text string, onDone func())
	Stop()
}

// Feedback fires haptic/sound cues. It never blocks.
type Feedback interface {
	Notify(kind domain.FeedbackKind)
}

// RecordingHandle identifies an in-progress capture.
type RecordingHandle interface {
	Kind() domain.RecordingKind
}

// Recorder captures and plays back audio clips. Only one capture is active at a time.
type Recorder interface {
	Start(ctx context.Context, kind domain.RecordingKind) (RecordingHandle, error)
	// Stop ends a capture. An empty ref with a nil error means nothing was captured.
	Stop(handle RecordingHandle) (domain.AudioRef, error)
	Discard(ref domain.AudioRef) error
	Play(ctx context.Context, ref domain.AudioRef) error
	StopPlayback()
}

// ReadingFilter narrows a reading query. Empty fields match everything.
type ReadingFilter struct {
	CardID  string
	Hashtag string
}

// ReadingStore persists completed readings.
type ReadingStore interface {
	Save(ctx context.Context, in domain.ReadingInput) (domain.Reading, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Reading, error)
	FetchAll(ctx context.Context) ([]domain.Reading, error)
	FetchBy(ctx context.Context, filter ReadingFilter) ([]domain.Reading, error)
	// CountByCard returns how many readings drew each card.
	CountByCard(ctx context.Context) (map[string]int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SettingsStore persists user preferences and per-card keyword overrides.
type SettingsStore interface {
	LoadAppSettings(ctx context.Context) (domain.AppSettings, error)
	SaveAppSettings(ctx context.Context, settings domain.AppSettings) error
	Customization(ctx context.Context, cardID string) (domain.CardKeywordCustomization, error)
	// SetCustomization stores c, deleting the entry when c is empty.
	SetCustomization(ctx context.Context, cardID string, c domain.CardKeywordCustomization) error
	Customizations(ctx context.Context) (map[string]domain.CardKeywordCustomization, error)
}

// HashtagStore persists the user's master hashtag list.
type HashtagStore interface {
	List(ctx context.Context) ([]string, error)
	Add(ctx context.Context, tag string) error
	Rename(ctx context.Context, from, to string) error
	Remove(ctx context.Context, tag string) error
}

// Timer is a pending scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	CardDrawn(index int, position string, card domain.DrawnCard)
	SessionError(code domain.ErrorCode, detail string)
}
