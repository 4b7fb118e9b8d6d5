package main

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"echotarot/internal/bootstrap"
	"echotarot/internal/domain"
	"echotarot/internal/feedback"
	"echotarot/internal/usecase"
)

const (
	eventSession  = "echotarot:session"
	eventCard     = "echotarot:card"
	eventFeedback = "echotarot:feedback"
	eventAnnounce = "echotarot:announce"
	eventError    = "echotarot:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	services     bootstrap.Services
	ready        bool
	bootErr      error
	screenReader atomic.Bool

	emit func(ctx context.Context, name string, data ...interface{})
}

func NewApp() *App {
	return &App{emit: runtime.EventsEmit}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(ctx, a)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.services = services
	a.ready = true
	a.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonReady)
}

func (a *App) shutdown(_ context.Context) {
	if !a.ready {
		return
	}
	if err := a.services.Close(); err != nil {
		a.services.Logger.Error("shutdown failed", "error", err)
	}
}

// SetScreenReaderActive is called by the view when assistive technology
// starts or stops.
func (a *App) SetScreenReaderActive(active bool) {
	a.screenReader.Store(active)
}

// StartReading begins a new guided reading.
func (a *App) StartReading() (domain.SessionSnapshot, error) {
	return a.sessionOp(func(s *usecase.ReadingSession) error { return s.StartReading() })
}

// BeginRecording starts capturing the question or reflection clip.
func (a *App) BeginRecording() (domain.SessionSnapshot, error) {
	return a.sessionOp(func(s *usecase.ReadingSession) error { return s.BeginRecording(a.ctx) })
}

// FinishRecording stops the capture and completes the current step.
func (a *App) FinishRecording() (domain.SessionSnapshot, error) {
	return a.sessionOp(func(s *usecase.ReadingSession) error { return s.FinishRecording(a.ctx) })
}

func (a *App) SkipQuestion() (domain.SessionSnapshot, error) {
	return a.sessionOp(func(s *usecase.ReadingSession) error { return s.SkipQuestionRecording() })
}

func (a *App) SubmitHashtags(tags []string) (domain.SessionSnapshot, error) {
	return a.sessionOp(func(s *usecase.ReadingSession) error { return s.CompleteHashtagInput(tags) })
}

func (a *App) SkipHashtags() (domain.SessionSnapshot, error) {
	return a.sessionOp(func(s *usecase.ReadingSession) error { return s.SkipHashtagInput() })
}

func (a *App) RepeatMeanings() (domain.SessionSnapshot, error) {
	return a.sessionOp(func(s *usecase.ReadingSession) error { return s.RepeatMeanings() })
}

// StartReflection moves from the revealed cards to recording a reflection.
func (a *App) StartReflection() (domain.SessionSnapshot, error) {
	return a.sessionOp(func(s *usecase.ReadingSession) error { return s.StartReadingRecording() })
}

func (a *App) SkipReflection() (domain.SessionSnapshot, error) {
	return a.sessionOp(func(s *usecase.ReadingSession) error { return s.SkipReadingRecording(a.ctx) })
}

// RetrySave saves the reading again after a failed save.
func (a *App) RetrySave() (domain.SessionSnapshot, error) {
	return a.sessionOp(func(s *usecase.ReadingSession) error { return s.SaveReading(a.ctx) })
}

func (a *App) CancelReading() (domain.SessionSnapshot, error) {
	return a.sessionOp(func(s *usecase.ReadingSession) error { return s.CancelReading() })
}

// Reset returns a completed session to idle.
func (a *App) Reset() (domain.SessionSnapshot, error) {
	return a.sessionOp(func(s *usecase.ReadingSession) error { return s.Reset() })
}

// ChangeSpread toggles the spread for the next reading.
func (a *App) ChangeSpread() (domain.SessionSnapshot, error) {
	return a.sessionOp(func(s *usecase.ReadingSession) error {
		_, err := s.ChangeSpread()
		return err
	})
}

// GetSnapshot returns the in-flight session.
func (a *App) GetSnapshot() domain.SessionSnapshot {
	if !a.ready {
		return domain.SessionSnapshot{State: domain.SessionStateIdle}
	}
	return a.services.Session.Snapshot()
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if !a.ready {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateIdle, Active: false, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle, Active: false}
	}
	return a.services.Session.Status()
}

// LastReading returns the most recently saved reading of this run.
func (a *App) LastReading() (*domain.Reading, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	reading, ok := a.services.Session.LastReading()
	if !ok {
		return nil, nil
	}
	return &reading, nil
}

// ListReadings returns journal entries filtered by card and hashtag.
func (a *App) ListReadings(cardID, hashtag, sort string) ([]domain.Reading, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	order, err := usecase.ParseSortOrder(sort)
	if err != nil {
		return nil, err
	}
	return a.services.Journal.List(a.ctx, usecase.JournalQuery{CardID: cardID, Hashtag: hashtag, Sort: order})
}

func (a *App) GetReading(id string) (usecase.JournalEntry, error) {
	if err := a.requireReady(); err != nil {
		return usecase.JournalEntry{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return usecase.JournalEntry{}, fmt.Errorf("invalid reading id %q: %w", id, err)
	}
	return a.services.Journal.Entry(a.ctx, parsed)
}

// DeleteReading removes a reading and its clips.
func (a *App) DeleteReading(id string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid reading id %q: %w", id, err)
	}
	if err := a.services.Journal.Delete(a.ctx, parsed); err != nil {
		a.SessionError(domain.ErrorCodePersistence, err.Error())
		return err
	}
	return nil
}

// PlayClip plays a recorded question or reflection.
func (a *App) PlayClip(ref string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.services.Journal.Play(a.ctx, domain.AudioRef(ref)); err != nil {
		a.SessionError(domain.ErrorCodePlayback, err.Error())
		return err
	}
	return nil
}

func (a *App) StopClip() {
	if a.ready {
		a.services.Journal.StopPlayback()
	}
}

// ListHashtags returns every known hashtag.
func (a *App) ListHashtags() ([]string, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.services.Journal.Hashtags(a.ctx)
}

func (a *App) AddHashtags(tags []string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Hashtags.Add(a.ctx, tags...)
}

func (a *App) RenameHashtag(from, to string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Hashtags.Rename(a.ctx, from, to)
}

func (a *App) MergeHashtags(into string, from []string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Hashtags.Merge(a.ctx, into, from...)
}

func (a *App) RemoveHashtags(tags []string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Hashtags.Remove(a.ctx, tags...)
}

// CardCounts returns how many readings each card appeared in.
func (a *App) CardCounts() (map[string]int, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.services.Journal.CardCounts(a.ctx)
}

// CardsBySuit lists a suit for the card dictionary.
func (a *App) CardsBySuit(suit string) ([]usecase.CardUsage, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	parsed, err := domain.ParseSuit(suit)
	if err != nil {
		return nil, err
	}
	return a.services.Journal.Suit(a.ctx, parsed)
}

// KeywordChange reports an edit and whether it changed anything.
type KeywordChange struct {
	View    usecase.KeywordView `json:"view"`
	Changed bool                `json:"changed"`
}

func (a *App) GetKeywords(cardID string, reversed bool) (usecase.KeywordView, error) {
	if err := a.requireReady(); err != nil {
		return usecase.KeywordView{}, err
	}
	return a.services.Settings.Keywords(a.ctx, cardID, reversed)
}

func (a *App) AddKeyword(cardID string, reversed bool, keyword string) (KeywordChange, error) {
	if err := a.requireReady(); err != nil {
		return KeywordChange{}, err
	}
	view, changed, err := a.services.Settings.AddKeyword(a.ctx, cardID, reversed, keyword)
	return KeywordChange{View: view, Changed: changed}, err
}

func (a *App) RemoveKeyword(cardID string, reversed bool, keyword string) (KeywordChange, error) {
	if err := a.requireReady(); err != nil {
		return KeywordChange{}, err
	}
	view, changed, err := a.services.Settings.RemoveKeyword(a.ctx, cardID, reversed, keyword)
	return KeywordChange{View: view, Changed: changed}, err
}

func (a *App) ResetKeywords(cardID string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Settings.ResetKeywords(a.ctx, cardID)
}

func (a *App) CustomizedCards() ([]string, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.services.Settings.CustomizedCards(a.ctx)
}

// GetSettings returns the stored preferences.
func (a *App) GetSettings() (domain.AppSettings, error) {
	if err := a.requireReady(); err != nil {
		return domain.AppSettings{}, err
	}
	return a.services.Settings.AppSettings(a.ctx)
}

// SaveSettings stores preferences and applies the haptics switch immediately.
func (a *App) SaveSettings(next domain.AppSettings) (domain.AppSettings, error) {
	if err := a.requireReady(); err != nil {
		return domain.AppSettings{}, err
	}
	saved, err := a.services.Settings.UpdateAppSettings(a.ctx, func(s *domain.AppSettings) { *s = next })
	if err != nil {
		a.SessionError(domain.ErrorCodePersistence, err.Error())
		return domain.AppSettings{}, err
	}
	a.services.Feedback.SetEnabled(saved.HapticEnabled)
	return saved, nil
}

// ResetSettings restores first-launch preferences.
func (a *App) ResetSettings() (domain.AppSettings, error) {
	return a.SaveSettings(domain.DefaultAppSettings())
}

func (a *App) SetDefaultSpread(spread string) (domain.AppSettings, error) {
	if err := a.requireReady(); err != nil {
		return domain.AppSettings{}, err
	}
	parsed, err := domain.ParseSpread(spread)
	if err != nil {
		return domain.AppSettings{}, err
	}
	return a.services.Settings.SetDefaultSpread(a.ctx, parsed)
}

func (a *App) ShouldShowTutorial(screen string) (bool, error) {
	if err := a.requireReady(); err != nil {
		return false, err
	}
	return a.services.Settings.ShouldShowTutorial(a.ctx, domain.Screen(screen))
}

func (a *App) MarkTutorialShown(screen string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Settings.MarkTutorialShown(a.ctx, domain.Screen(screen))
}

func (a *App) ResetTutorials() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Settings.ResetTutorials(a.ctx)
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}
	if !a.ready {
		return map[string]string{}
	}

	cfg := a.services.Config
	deck := cfg.Catalog.DeckPath
	if deck == "" {
		deck = "embedded"
	}
	return map[string]string{
		"database":         cfg.Storage.Path,
		"deck":             deck,
		"speechCommand":    cfg.Speech.Command,
		"lexiconFile":      cfg.Speech.LexiconPath,
		"audioInput":       cfg.Audio.InputDevice,
		"audioInputFormat": cfg.Audio.InputFormat,
		"recordings":       cfg.Audio.Directory,
	}
}

func (a *App) sessionOp(op func(*usecase.ReadingSession) error) (domain.SessionSnapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.SessionSnapshot{}, err
	}
	err := op(a.services.Session)
	return a.services.Session.Snapshot(), err
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if !a.ready {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	a.emitEvent(eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

// CardDrawn emits each card as it is revealed.
func (a *App) CardDrawn(index int, position string, card domain.DrawnCard) {
	a.emitEvent(eventCard, map[string]any{
		"index":    index,
		"position": position,
		"card":     card,
	})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	a.emitEvent(eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

// FeedbackCue asks the view to vibrate or play a cue sound.
func (a *App) FeedbackCue(kind domain.FeedbackKind) {
	a.emitEvent(eventFeedback, map[string]any{
		"kind":    string(kind),
		"pattern": feedback.Pattern(kind),
	})
}

func (a *App) ScreenReaderActive() bool {
	return a.screenReader.Load()
}

// Announce hands text to the view's live region for the screen reader.
func (a *App) Announce(text string) {
	a.emitEvent(eventAnnounce, map[string]string{"text": text})
}

func (a *App) emitEvent(name string, data any) {
	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, name, data)
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonReady:
		return "Ready for a reading"
	case domain.SessionReasonReadingStarted:
		return "Ask your question"
	case domain.SessionReasonQuestionRecorded:
		return "Question saved"
	case domain.SessionReasonQuestionSkipped:
		return "Question skipped"
	case domain.SessionReasonHashtagsChosen:
		return "Hashtags chosen"
	case domain.SessionReasonHashtagsSkipped:
		return "Hashtags skipped"
	case domain.SessionReasonDrawing:
		return "Drawing cards"
	case domain.SessionReasonCardsRevealed:
		return "Cards revealed"
	case domain.SessionReasonReadingPrompted:
		return "Record your reading"
	case domain.SessionReasonReadingSaved:
		return "Reading saved"
	case domain.SessionReasonSaveFailed:
		return "Save failed; try again"
	case domain.SessionReasonReadingCancelled:
		return "Reading cancelled"
	case domain.SessionReasonSpreadChanged:
		return "Spread changed"
	case domain.SessionReasonRecordingStarted:
		return "Recording"
	case domain.SessionReasonRecordingUnavailable:
		return "Recording unavailable; you can skip this step"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeRecording:
		return "Recording failed"
	case domain.ErrorCodePermission:
		return "Microphone access denied"
	case domain.ErrorCodePersistence:
		return "Could not save to the journal"
	case domain.ErrorCodeNarration:
		return "Speech unavailable"
	case domain.ErrorCodePlayback:
		return "Playback failed"
	case domain.ErrorCodeCatalog:
		return "Card deck unavailable"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
