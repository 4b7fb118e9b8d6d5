package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"

	"echotarot/internal/catalog"
	"echotarot/internal/domain"
	"echotarot/internal/keywords"
	"echotarot/internal/ports"
)

var (
	// ErrInvalidTransition is returned when an operation is not valid in the current state.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrSaveFailed wraps a persistence failure of a finished reading.
	ErrSaveFailed = errors.New("failed to save reading")
	// ErrNotRecording is returned by FinishRecording without an active capture.
	ErrNotRecording = errors.New("no active recording")
)

// MinQuestionConfirmDelay is the shortest pause after the question step.
const MinQuestionConfirmDelay = time.Second

// Pacing sets the delays between automatic steps of a reading.
type Pacing struct {
	QuestionConfirm time.Duration
	HashtagComplete time.Duration
	HashtagSkip     time.Duration
	CardInterval    time.Duration
	Reveal          time.Duration
	MeaningPause    time.Duration
}

// DefaultPacing returns the delays used by the app.
func DefaultPacing() Pacing {
	return Pacing{
		QuestionConfirm: 1500 * time.Millisecond,
		HashtagComplete: 1500 * time.Millisecond,
		HashtagSkip:     time.Second,
		CardInterval:    time.Second,
		Reveal:          2 * time.Second,
		MeaningPause:    time.Second,
	}
}

// Config controls reading session behavior.
type Config struct {
	Pacing Pacing
	Logger *slog.Logger
	// Rand drives the shuffle and orientations. Nil seeds from the clock.
	Rand *rand.Rand
}

// Deck supplies the cards a reading draws from.
type Deck interface {
	Cards() []domain.Card
}

// ReadingSession orchestrates one guided reading at a time.
type ReadingSession struct {
	deck      Deck
	narrator  ports.Narrator
	feedback  ports.Feedback
	recorder  ports.Recorder
	settings  ports.SettingsStore
	events    ports.EventSink
	scheduler ports.Scheduler
	finalizer readingFinalizer
	cfg       Config
	logger    *slog.Logger
	rng       *rand.Rand

	// opMu serializes transitions and scheduled steps.
	opMu sync.Mutex

	mu        sync.Mutex
	st        sessionState
	capture   ports.RecordingHandle
	lastSaved *domain.Reading

	timers timerSet
	// epoch invalidates scheduled steps of a cancelled or reset session.
	epoch      atomic.Uint64
	meaningGen uint64
}

func NewReadingSession(
	deck Deck,
	narrator ports.Narrator,
	feedback ports.Feedback,
	recorder ports.Recorder,
	store ports.ReadingStore,
	settings ports.SettingsStore,
	events ports.EventSink,
	scheduler ports.Scheduler,
	cfg Config,
) *ReadingSession {
	if cfg.Pacing == (Pacing{}) {
		cfg.Pacing = DefaultPacing()
	}
	if cfg.Pacing.QuestionConfirm < MinQuestionConfirmDelay {
		cfg.Pacing.QuestionConfirm = MinQuestionConfirmDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if scheduler == nil {
		scheduler = NewClockScheduler()
	}

	s := &ReadingSession{
		deck:      deck,
		narrator:  narrator,
		feedback:  feedback,
		recorder:  recorder,
		settings:  settings,
		events:    events,
		scheduler: scheduler,
		finalizer: newReadingFinalizer(store, feedback, narrator, events),
		cfg:       cfg,
		logger:    cfg.Logger.With("component", "session"),
		rng:       cfg.Rand,
	}
	s.st = sessionState{state: domain.SessionStateIdle, spread: s.defaultSpread()}
	return s
}

// StartReading begins a reading with the selected spread.
func (s *ReadingSession) StartReading() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.guard("start reading", domain.SessionStateIdle); err != nil {
		return err
	}

	s.feedback.Notify(domain.FeedbackTap)
	s.narrator.Speak(promptQuestion, nil)
	s.transition(domain.SessionStateQuestionRecording, domain.SessionReasonReadingStarted)
	return nil
}

// CompleteQuestionRecording stores the question clip and moves on to hashtags.
func (s *ReadingSession) CompleteQuestionRecording(ref domain.AudioRef) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.guard("complete question", domain.SessionStateQuestionRecording); err != nil {
		return err
	}
	s.abortCapture()
	s.completeQuestion(ref)
	return nil
}

// SkipQuestionRecording moves on to hashtags without a question clip.
func (s *ReadingSession) SkipQuestionRecording() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.guard("skip question", domain.SessionStateQuestionRecording); err != nil {
		return err
	}
	s.abortCapture()
	s.completeQuestion("")
	return nil
}

// CompleteHashtagInput tags the reading and starts the draw. An empty
// selection is treated as a skip.
func (s *ReadingSession) CompleteHashtagInput(tags []string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.guard("complete hashtags", domain.SessionStateHashtagInput); err != nil {
		return err
	}
	s.completeHashtags(NormalizeHashtags(tags))
	return nil
}

// SkipHashtagInput starts the draw without hashtags.
func (s *ReadingSession) SkipHashtagInput() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.guard("skip hashtags", domain.SessionStateHashtagInput); err != nil {
		return err
	}
	s.completeHashtags(nil)
	return nil
}

// RepeatMeanings narrates the revealed cards again from the first one.
func (s *ReadingSession) RepeatMeanings() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.guard("repeat meanings", domain.SessionStateCardRevealed); err != nil {
		return err
	}
	s.narrator.Stop()
	s.narrateMeanings()
	return nil
}

// StartReadingRecording interrupts the meaning narration and prompts for a reflection.
func (s *ReadingSession) StartReadingRecording() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.guard("start reading recording", domain.SessionStateCardRevealed); err != nil {
		return err
	}

	s.meaningGen++
	s.narrator.Stop()
	s.feedback.Notify(domain.FeedbackTap)
	s.narrator.Speak(promptReadingRecording, nil)
	s.transition(domain.SessionStateReadingRecording, domain.SessionReasonReadingPrompted)
	return nil
}

// CompleteReadingRecording stores the reflection clip and saves the reading.
func (s *ReadingSession) CompleteReadingRecording(ctx context.Context, ref domain.AudioRef) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.guardReflection("complete reading recording"); err != nil {
		return err
	}
	s.abortCapture()
	return s.completeReading(ctx, ref)
}

// SkipReadingRecording saves the reading without a reflection clip.
func (s *ReadingSession) SkipReadingRecording(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.guardReflection("skip reading recording"); err != nil {
		return err
	}
	s.abortCapture()
	return s.completeReading(ctx, "")
}

// SaveReading retries persisting a reading whose save failed.
func (s *ReadingSession) SaveReading(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.guard("save reading", domain.SessionStateReadingRecording); err != nil {
		return err
	}
	if !s.st.readingDone {
		return s.reject("save reading")
	}
	return s.save(ctx)
}

// Reset returns a completed session to idle. It is a no-op when already idle.
func (s *ReadingSession) Reset() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	switch s.st.state {
	case domain.SessionStateIdle:
		return nil
	case domain.SessionStateComplete:
	default:
		return s.reject("reset")
	}
	s.resetLocked(domain.SessionReasonReady)
	return nil
}

// CancelReading abandons the in-flight reading. Nothing is persisted and any
// clips recorded for it are discarded.
func (s *ReadingSession) CancelReading() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if !s.st.state.Active() {
		return s.reject("cancel reading")
	}

	s.narrator.Stop()
	s.abortCapture()
	for _, ref := range []domain.AudioRef{s.st.question, s.st.reading} {
		s.discard(ref)
	}
	s.feedback.Notify(domain.FeedbackTap)
	s.resetLocked(domain.SessionReasonReadingCancelled)
	s.narrator.Speak(promptCancelled, nil)
	return nil
}

// ChangeSpread toggles between the one-card and three-card spreads.
func (s *ReadingSession) ChangeSpread() (domain.Spread, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.guard("change spread", domain.SessionStateIdle); err != nil {
		return s.st.spread, err
	}

	spread := s.st.spread.Toggle()
	s.update(func(st *sessionState) { st.spread = spread })
	s.feedback.Notify(domain.FeedbackSelection)
	s.narrator.Speak(promptSpreadSelected(spread), nil)
	s.transition(domain.SessionStateIdle, domain.SessionReasonSpreadChanged)
	return spread, nil
}

// BeginRecording starts capturing the clip for the current recording step.
func (s *ReadingSession) BeginRecording(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.guard("begin recording", domain.SessionStateQuestionRecording, domain.SessionStateReadingRecording); err != nil {
		return err
	}
	state := s.st.state
	if s.capture != nil || (state == domain.SessionStateReadingRecording && s.st.readingDone) {
		return s.reject("begin recording")
	}

	kind := domain.RecordingKindQuestion
	if state == domain.SessionStateReadingRecording {
		kind = domain.RecordingKindReading
	}

	s.narrator.Stop()
	handle, err := s.recorder.Start(ctx, kind)
	if err != nil {
		s.reportRecordingError(err)
		s.events.SessionStateChanged(state, domain.SessionReasonRecordingUnavailable)
		return err
	}

	s.setCapture(handle)
	s.feedback.Notify(domain.FeedbackTap)
	s.events.SessionStateChanged(state, domain.SessionReasonRecordingStarted)
	s.logger.Info("recording started", "kind", kind)
	return nil
}

// FinishRecording stops the active capture and completes its step.
func (s *ReadingSession) FinishRecording(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	handle := s.capture
	if handle == nil {
		return ErrNotRecording
	}
	s.setCapture(nil)

	ref, err := s.recorder.Stop(handle)
	if err != nil {
		s.reportRecordingError(err)
		s.events.SessionStateChanged(s.st.state, domain.SessionReasonRecordingUnavailable)
		return err
	}

	if handle.Kind() == domain.RecordingKindReading {
		return s.completeReading(ctx, ref)
	}
	s.completeQuestion(ref)
	return nil
}

// Status returns the current backend status.
func (s *ReadingSession) Status() domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Status{State: s.st.state, Active: s.st.state.Active()}
}

// Snapshot returns a copy of the in-flight session.
func (s *ReadingSession) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.snapshot(s.capture != nil)
}

// LastReading returns the reading saved by the most recent session.
func (s *ReadingSession) LastReading() (domain.Reading, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSaved == nil {
		return domain.Reading{}, false
	}
	return *s.lastSaved, true
}

// Shutdown stops pending steps, narration and any capture without emitting events.
func (s *ReadingSession) Shutdown() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.epoch.Add(1)
	s.timers.stopAll()
	s.meaningGen++
	s.narrator.Stop()
	s.abortCapture()
}

func (s *ReadingSession) completeQuestion(ref domain.AudioRef) {
	reason, cue, text := domain.SessionReasonQuestionRecorded, domain.FeedbackSuccess, promptQuestionSaved
	if ref == "" {
		reason, cue, text = domain.SessionReasonQuestionSkipped, domain.FeedbackTap, promptQuestionSkipped
	}

	s.update(func(st *sessionState) {
		st.question = ref
		st.pending = true
	})
	s.feedback.Notify(cue)
	s.narrator.Speak(text, nil)

	s.after(s.cfg.Pacing.QuestionConfirm, func() {
		s.update(func(st *sessionState) { st.pending = false })
		s.narrator.Speak(promptHashtags, nil)
		s.transition(domain.SessionStateHashtagInput, reason)
	})
}

func (s *ReadingSession) completeHashtags(tags []string) {
	delay, reason := s.cfg.Pacing.HashtagComplete, domain.SessionReasonHashtagsChosen
	cue, text := domain.FeedbackSuccess, ""
	if len(tags) == 0 {
		tags = nil
		delay, reason = s.cfg.Pacing.HashtagSkip, domain.SessionReasonHashtagsSkipped
		cue, text = domain.FeedbackTap, promptHashtagsSkipped
	} else {
		text = promptHashtagsChosen(tags)
	}

	s.update(func(st *sessionState) {
		st.hashtags = tags
		st.pending = true
	})
	s.feedback.Notify(cue)
	s.narrator.Speak(text, nil)
	s.after(delay, func() { s.deal(reason) })
}

func (s *ReadingSession) deal(reason domain.SessionStateReason) {
	spread := s.st.spread
	drawn, err := catalog.Draw(s.deck.Cards(), spread.CardCount(), s.rng)
	if err != nil {
		s.update(func(st *sessionState) { st.pending = false })
		s.logger.Error("failed to draw cards", "spread", spread, "error", err)
		s.feedback.Notify(domain.FeedbackError)
		s.events.SessionError(domain.ErrorCodeCatalog, err.Error())
		s.events.SessionStateChanged(s.st.state, reason)
		return
	}

	s.update(func(st *sessionState) {
		st.deal = drawn
		st.drawn = nil
	})
	s.transition(domain.SessionStateCardDrawing, domain.SessionReasonDrawing)
	s.revealCard(0)
}

func (s *ReadingSession) revealCard(i int) {
	spread := s.st.spread
	card := s.st.deal[i]
	s.update(func(st *sessionState) { st.drawn = append(st.drawn, card) })

	s.feedback.Notify(domain.FeedbackCardDrawn)
	s.events.CardDrawn(i, positionName(spread, i), card)
	s.narrator.Speak(promptCardDrawn(spread, i, card), nil)

	if i+1 < len(s.st.deal) {
		s.after(s.cfg.Pacing.CardInterval, func() { s.revealCard(i + 1) })
		return
	}
	s.after(s.cfg.Pacing.Reveal, s.reveal)
}

func (s *ReadingSession) reveal() {
	meanings := s.effectiveMeanings(s.st.drawn)
	s.update(func(st *sessionState) {
		st.deal = nil
		st.meanings = meanings
		st.pending = false
	})
	s.feedback.Notify(domain.FeedbackCardRevealed)
	s.transition(domain.SessionStateCardRevealed, domain.SessionReasonCardsRevealed)
	s.narrateMeanings()
}

func (s *ReadingSession) effectiveMeanings(drawn []domain.DrawnCard) []string {
	ctx := context.Background()
	meanings := make([]string, len(drawn))
	for i, d := range drawn {
		c, err := s.settings.Customization(ctx, d.Card.ID)
		if err != nil {
			s.logger.Warn("failed to load keyword customization", "card", d.Card.ID, "error", err)
			c = domain.CardKeywordCustomization{}
		}
		meanings[i] = keywords.Effective(d.Card, d.Reversed, c)
	}
	return meanings
}

// narrateMeanings speaks each revealed card in order with a pause between
// them. Starting a new chain abandons the previous one.
func (s *ReadingSession) narrateMeanings() {
	s.meaningGen++
	s.speakMeaning(s.meaningGen, 0)
}

func (s *ReadingSession) speakMeaning(gen uint64, i int) {
	if gen != s.meaningGen || s.st.state != domain.SessionStateCardRevealed || i >= len(s.st.drawn) {
		return
	}

	var onDone func()
	if i+1 < len(s.st.drawn) {
		onDone = func() {
			s.after(s.cfg.Pacing.MeaningPause, func() { s.speakMeaning(gen, i+1) })
		}
	}
	s.narrator.Speak(promptMeaning(s.st.spread, i, s.st.drawn[i], s.st.meanings[i]), onDone)
}

func (s *ReadingSession) guardReflection(op string) error {
	if err := s.guard(op, domain.SessionStateReadingRecording); err != nil {
		return err
	}
	if s.st.readingDone {
		return s.reject(op)
	}
	return nil
}

func (s *ReadingSession) completeReading(ctx context.Context, ref domain.AudioRef) error {
	s.update(func(st *sessionState) {
		st.reading = ref
		st.readingDone = true
	})
	return s.save(ctx)
}

func (s *ReadingSession) save(ctx context.Context) error {
	in := domain.NewReadingInput(s.st.spread, s.st.drawn, s.st.question, s.st.reading, s.st.hashtags)
	reading, reason, err := s.finalizer.Finalize(ctx, in)
	if err != nil {
		s.logger.Error("failed to save reading", "error", err)
		s.events.SessionStateChanged(s.st.state, reason)
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	s.mu.Lock()
	s.lastSaved = &reading
	s.mu.Unlock()
	s.logger.Info("reading saved", "id", reading.ID, "spread", reading.SpreadType, "cards", reading.CardIDs)
	s.transition(domain.SessionStateComplete, reason)
	return nil
}

func (s *ReadingSession) resetLocked(reason domain.SessionStateReason) {
	s.epoch.Add(1)
	s.timers.stopAll()
	s.meaningGen++
	spread := s.defaultSpread()
	s.update(func(st *sessionState) {
		*st = sessionState{state: domain.SessionStateIdle, spread: spread}
	})
	s.transition(domain.SessionStateIdle, reason)
}

func (s *ReadingSession) abortCapture() {
	handle := s.capture
	if handle == nil {
		return
	}
	s.setCapture(nil)
	ref, err := s.recorder.Stop(handle)
	if err != nil {
		s.logger.Warn("failed to stop abandoned recording", "kind", handle.Kind(), "error", err)
		return
	}
	s.discard(ref)
}

func (s *ReadingSession) discard(ref domain.AudioRef) {
	if ref == "" {
		return
	}
	if err := s.recorder.Discard(ref); err != nil {
		s.logger.Warn("failed to discard clip", "ref", ref, "error", err)
	}
}

func (s *ReadingSession) reportRecordingError(err error) {
	s.logger.Warn("recording failed", "error", err)
	s.feedback.Notify(domain.FeedbackError)
	if errors.Is(err, ports.ErrPermissionDenied) {
		s.events.SessionError(domain.ErrorCodePermission, err.Error())
		s.narrator.Speak(promptPermission, nil)
		return
	}
	s.events.SessionError(domain.ErrorCodeRecording, err.Error())
	s.narrator.Speak(promptRecordingFailed, nil)
}

// after schedules fn under the transition lock. The step is dropped if the
// session was reset or cancelled in the meantime.
func (s *ReadingSession) after(d time.Duration, fn func()) {
	epoch := s.epoch.Load()
	s.timers.add(s.scheduler, d, func() {
		s.opMu.Lock()
		defer s.opMu.Unlock()
		if s.epoch.Load() != epoch {
			return
		}
		fn()
	})
}

func (s *ReadingSession) guard(op string, allowed ...domain.SessionState) error {
	if s.st.pending || !lo.Contains(allowed, s.st.state) {
		return s.reject(op)
	}
	return nil
}

func (s *ReadingSession) reject(op string) error {
	s.logger.Warn("ignored session operation", "op", op, "state", s.st.state, "pending", s.st.pending)
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, op, s.st.state)
}

func (s *ReadingSession) transition(state domain.SessionState, reason domain.SessionStateReason) {
	s.update(func(st *sessionState) { st.state = state })
	s.logger.Debug("session state changed", "state", state, "reason", reason)
	s.events.SessionStateChanged(state, reason)
}

func (s *ReadingSession) update(fn func(st *sessionState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.st)
}

func (s *ReadingSession) setCapture(handle ports.RecordingHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capture = handle
}

func (s *ReadingSession) defaultSpread() domain.Spread {
	if s.settings == nil {
		return domain.SpreadOneCard
	}
	settings, err := s.settings.LoadAppSettings(context.Background())
	if err != nil {
		s.logger.Warn("failed to load settings; using one-card spread", "error", err)
		return domain.SpreadOneCard
	}
	if !settings.DefaultSpread.Valid() {
		return domain.SpreadOneCard
	}
	return settings.DefaultSpread
}

// NormalizeHashtags trims tags, drops a leading '#', and removes blanks and duplicates.
func NormalizeHashtags(tags []string) []string {
	cleaned := lo.FilterMap(tags, func(tag string, _ int) (string, bool) {
		tag = normalizeHashtag(tag)
		return tag, tag != ""
	})
	return lo.Uniq(cleaned)
}

func normalizeHashtag(tag string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
}
