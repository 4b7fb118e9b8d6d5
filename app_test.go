package main

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"echotarot/internal/bootstrap"
	"echotarot/internal/config"
	"echotarot/internal/domain"
)

func TestSessionReasonMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.SessionStateReason]string{
		domain.SessionReasonReady:                "Ready for a reading",
		domain.SessionReasonReadingStarted:       "Ask your question",
		domain.SessionReasonQuestionRecorded:     "Question saved",
		domain.SessionReasonQuestionSkipped:      "Question skipped",
		domain.SessionReasonHashtagsChosen:       "Hashtags chosen",
		domain.SessionReasonHashtagsSkipped:      "Hashtags skipped",
		domain.SessionReasonDrawing:              "Drawing cards",
		domain.SessionReasonCardsRevealed:        "Cards revealed",
		domain.SessionReasonReadingPrompted:      "Record your reading",
		domain.SessionReasonReadingSaved:         "Reading saved",
		domain.SessionReasonSaveFailed:           "Save failed; try again",
		domain.SessionReasonReadingCancelled:     "Reading cancelled",
		domain.SessionReasonSpreadChanged:        "Spread changed",
		domain.SessionReasonRecordingStarted:     "Recording",
		domain.SessionReasonRecordingUnavailable: "Recording unavailable; you can skip this step",
	}

	for reason, want := range cases {
		reason := reason
		want := want
		t.Run(string(reason), func(t *testing.T) {
			t.Parallel()
			if got := sessionReasonMessage(reason); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := sessionReasonMessage("unknown"); got != "" {
		t.Fatalf("expected empty unknown reason message, got %q", got)
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.ErrorCode]string{
		domain.ErrorCodeStartup:     "Startup failed",
		domain.ErrorCodeRecording:   "Recording failed",
		domain.ErrorCodePermission:  "Microphone access denied",
		domain.ErrorCodePersistence: "Could not save to the journal",
		domain.ErrorCodeNarration:   "Speech unavailable",
		domain.ErrorCodePlayback:    "Playback failed",
		domain.ErrorCodeCatalog:     "Card deck unavailable",
	}
	for code, want := range cases {
		code := code
		want := want
		t.Run(string(code), func(t *testing.T) {
			t.Parallel()
			if got := errorMessage(code, "ignored"); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := errorMessage("unknown", "detail"); got != "detail" {
		t.Fatalf("expected detail fallback, got %q", got)
	}
	if got := errorMessage("unknown", ""); got != "Unknown error" {
		t.Fatalf("expected unknown fallback, got %q", got)
	}
}

func TestRequireReady(t *testing.T) {
	t.Parallel()

	app := &App{}
	if err := app.requireReady(); err == nil {
		t.Fatalf("expected uninitialized error")
	}
	if _, err := app.StartReading(); err == nil {
		t.Fatalf("expected session calls to fail before startup")
	}

	bootErr := errors.New("boot")
	app.bootErr = bootErr
	if err := app.requireReady(); !errors.Is(err, bootErr) {
		t.Fatalf("expected boot error, got %v", err)
	}
	if info := app.GetRuntimeInfo(); info["error"] != "boot" {
		t.Fatalf("unexpected runtime info: %v", info)
	}
}

func TestGetStatusWhenNotInitialized(t *testing.T) {
	t.Parallel()

	app := &App{}
	status := app.GetStatus()
	if status.State != domain.SessionStateIdle || status.Active {
		t.Fatalf("unexpected status: %+v", status)
	}
	if snap := app.GetSnapshot(); snap.State != domain.SessionStateIdle {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	app.bootErr = errors.New("boot")
	status = app.GetStatus()
	if status.Active || status.Message != "boot" {
		t.Fatalf("unexpected boot status: %+v", status)
	}
}

func TestEventsWithoutContextAreDropped(t *testing.T) {
	t.Parallel()

	events := &recordedEvents{}
	app := &App{emit: events.emit}
	app.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonReady)
	app.Announce("hello")
	if len(events.names()) != 0 {
		t.Fatalf("expected no events before startup")
	}
}

func TestScreenReaderToggle(t *testing.T) {
	t.Parallel()

	app := NewApp()
	if app.ScreenReaderActive() {
		t.Fatalf("screen reader should start inactive")
	}
	app.SetScreenReaderActive(true)
	if !app.ScreenReaderActive() {
		t.Fatalf("expected screen reader to be active")
	}
}

func TestAppBoundMethods(t *testing.T) {
	app, events := newReadyApp(t)

	snap, err := app.ChangeSpread()
	if err != nil {
		t.Fatalf("change spread failed: %v", err)
	}
	if snap.Spread != domain.SpreadThreeCard {
		t.Fatalf("expected three-card spread, got %s", snap.Spread)
	}
	if _, err := app.Reset(); err != nil {
		t.Fatalf("reset from idle should be a no-op: %v", err)
	}
	if _, err := app.SkipHashtags(); err == nil {
		t.Fatalf("expected invalid transition from idle")
	}

	names := events.names()
	if len(names) < 2 || names[0] != eventFeedback || names[len(names)-1] != eventSession {
		t.Fatalf("unexpected events: %v", names)
	}
	if got := events.last(eventSession)["reason"]; got != string(domain.SessionReasonSpreadChanged) {
		t.Fatalf("unexpected session reason: %v", got)
	}

	readings, err := app.ListReadings("", "", "newest")
	if err != nil || len(readings) != 0 {
		t.Fatalf("expected empty journal, got %v %v", readings, err)
	}
	if _, err := app.ListReadings("", "", "sideways"); err == nil {
		t.Fatalf("expected invalid sort error")
	}
	if _, err := app.GetReading("not-a-uuid"); err == nil {
		t.Fatalf("expected invalid id error")
	}

	cups, err := app.CardsBySuit("cups")
	if err != nil || len(cups) != 14 {
		t.Fatalf("expected 14 cups, got %d %v", len(cups), err)
	}

	change, err := app.AddKeyword("major_arcana.00", false, "Trust")
	if err != nil || !change.Changed {
		t.Fatalf("expected keyword to be added: %+v %v", change, err)
	}
	customized, err := app.CustomizedCards()
	if err != nil || len(customized) != 1 || customized[0] != "major_arcana.00" {
		t.Fatalf("unexpected customized cards: %v %v", customized, err)
	}

	if err := app.AddHashtags([]string{"#love", "work"}); err != nil {
		t.Fatalf("add hashtags failed: %v", err)
	}
	tags, err := app.ListHashtags()
	if err != nil || len(tags) != 2 || tags[0] != "love" {
		t.Fatalf("unexpected hashtags: %v %v", tags, err)
	}

	settings, err := app.GetSettings()
	if err != nil {
		t.Fatalf("get settings failed: %v", err)
	}
	settings.HapticEnabled = false
	if _, err := app.SaveSettings(settings); err != nil {
		t.Fatalf("save settings failed: %v", err)
	}
	if app.services.Feedback.Enabled() {
		t.Fatalf("expected haptics to be disabled immediately")
	}
	if _, err := app.SetDefaultSpread("five"); err == nil {
		t.Fatalf("expected invalid spread error")
	}
	if saved, err := app.SetDefaultSpread("threeCard"); err != nil || saved.DefaultSpread != domain.SpreadThreeCard {
		t.Fatalf("unexpected default spread: %+v %v", saved, err)
	}

	if info := app.GetRuntimeInfo(); info["deck"] != "embedded" {
		t.Fatalf("unexpected runtime info: %v", info)
	}
}

func newReadyApp(t *testing.T) (*App, *recordedEvents) {
	t.Helper()
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "data"))

	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(root, "journal.db")
	cfg.Speech.Command = filepath.Join(root, "no-speaker")
	cfg.Log.Level = "error"

	events := &recordedEvents{}
	app := &App{ctx: context.Background(), emit: events.emit}
	app.SetScreenReaderActive(true)

	services, err := bootstrap.BuildWithConfig(context.Background(), cfg, app)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(func() { _ = services.Close() })
	app.services = services
	app.ready = true
	return app, events
}

type recordedEvent struct {
	name string
	data any
}

type recordedEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordedEvents) emit(_ context.Context, name string, data ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var payload any
	if len(data) > 0 {
		payload = data[0]
	}
	r.events = append(r.events, recordedEvent{name: name, data: payload})
}

// names lists emitted events, skipping screen reader announcements.
func (r *recordedEvents) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.name != eventAnnounce {
			out = append(out, e.name)
		}
	}
	return out
}

func (r *recordedEvents) last(name string) map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].name == name {
			if m, ok := r.events[i].data.(map[string]string); ok {
				return m
			}
		}
	}
	return nil
}
