package domain

// SessionState models the reading lifecycle.
type SessionState string

const (
	SessionStateIdle              SessionState = "idle"
	SessionStateQuestionRecording SessionState = "questionRecording"
	SessionStateHashtagInput      SessionState = "hashtagInput"
	SessionStateCardDrawing       SessionState = "cardDrawing"
	SessionStateCardRevealed      SessionState = "cardRevealed"
	SessionStateReadingRecording  SessionState = "readingRecording"
	SessionStateComplete          SessionState = "complete"
)

// Active reports whether a reading is in progress in this state.
func (s SessionState) Active() bool {
	return s != SessionStateIdle && s != SessionStateComplete
}

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonReady                SessionStateReason = "ready"
	SessionReasonReadingStarted       SessionStateReason = "reading_started"
	SessionReasonQuestionRecorded     SessionStateReason = "question_recorded"
	SessionReasonQuestionSkipped      SessionStateReason = "question_skipped"
	SessionReasonHashtagsChosen       SessionStateReason = "hashtags_chosen"
	SessionReasonHashtagsSkipped      SessionStateReason = "hashtags_skipped"
	SessionReasonDrawing              SessionStateReason = "drawing"
	SessionReasonCardsRevealed        SessionStateReason = "cards_revealed"
	SessionReasonReadingPrompted      SessionStateReason = "reading_prompted"
	SessionReasonReadingSaved         SessionStateReason = "reading_saved"
	SessionReasonSaveFailed           SessionStateReason = "save_failed"
	SessionReasonReadingCancelled     SessionStateReason = "reading_cancelled"
	SessionReasonSpreadChanged        SessionStateReason = "spread_changed"
	SessionReasonRecordingStarted     SessionStateReason = "recording_started"
	SessionReasonRecordingUnavailable SessionStateReason = "recording_unavailable"
)

// ErrorCode identifies recoverable backend errors surfaced to the UI.
type ErrorCode string

const (
	ErrorCodeStartup     ErrorCode = "startup"
	ErrorCodeRecording   ErrorCode = "recording"
	ErrorCodePermission  ErrorCode = "permission"
	ErrorCodePersistence ErrorCode = "persistence"
	ErrorCodeNarration   ErrorCode = "narration"
	ErrorCodePlayback    ErrorCode = "playback"
	ErrorCodeCatalog     ErrorCode = "catalog"
)

// FeedbackKind names a haptic/sound cue.
type FeedbackKind string

const (
	FeedbackTap          FeedbackKind = "tap"
	FeedbackCardDrawn    FeedbackKind = "cardDrawn"
	FeedbackCardRevealed FeedbackKind = "cardRevealed"
	FeedbackSuccess      FeedbackKind = "success"
	FeedbackError        FeedbackKind = "error"
	FeedbackSelection    FeedbackKind = "selection"
)

// RecordingKind identifies which clip of a session is being captured.
type RecordingKind string

const (
	RecordingKindQuestion RecordingKind = "question"
	RecordingKindReading  RecordingKind = "reading"
)

// AudioRef is an opaque reference (a file path) to a recorded clip.
type AudioRef string

// Status summarizes the current runtime status.
type Status struct {
	State   SessionState `json:"state"`
	Active  bool         `json:"active"`
	Message string       `json:"message,omitempty"`
}

// SessionSnapshot is a read-only copy of the in-flight session.
type SessionSnapshot struct {
	State            SessionState `json:"state"`
	Spread           Spread       `json:"spread"`
	DrawnCards       []DrawnCard  `json:"drawnCards"`
	Meanings         []string     `json:"meanings"`
	QuestionAudioRef AudioRef     `json:"questionAudioRef,omitempty"`
	ReadingAudioRef  AudioRef     `json:"readingAudioRef,omitempty"`
	Hashtags         []string     `json:"hashtags"`
	Recording        bool         `json:"recording"`
	Pending          bool         `json:"pending"`
}
