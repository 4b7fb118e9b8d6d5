package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"echotarot/internal/config"
	"echotarot/internal/domain"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "data"))

	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(root, "journal.db")
	cfg.Audio.Directory = filepath.Join(root, "clips")
	cfg.Speech.Command = filepath.Join(root, "no-speaker")
	cfg.Log.Level = "error"
	return cfg
}

func TestBuildWithConfigWiresSession(t *testing.T) {
	cfg := testConfig(t)
	frontend := &recordingFrontend{screenReader: true}

	services, err := BuildWithConfig(context.Background(), cfg, frontend)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer services.Close()

	if services.Session == nil || services.Journal == nil || services.Settings == nil || services.Hashtags == nil {
		t.Fatalf("expected all services to be wired")
	}
	if got := len(services.Catalog.Cards()); got != 78 {
		t.Fatalf("expected embedded deck, got %d cards", got)
	}

	if err := services.Session.StartReading(); err != nil {
		t.Fatalf("start reading failed: %v", err)
	}
	if err := services.Session.CancelReading(); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	frontend.mu.Lock()
	defer frontend.mu.Unlock()
	if len(frontend.states) != 2 || frontend.states[0] != domain.SessionStateQuestionRecording || frontend.states[1] != domain.SessionStateIdle {
		t.Fatalf("unexpected states: %v", frontend.states)
	}
	if len(frontend.cues) == 0 || frontend.cues[0] != domain.FeedbackTap {
		t.Fatalf("expected tap cue, got %v", frontend.cues)
	}
	if len(frontend.announced) == 0 {
		t.Fatalf("expected screen reader announcements")
	}
}

func TestBuildWithConfigHapticsSetting(t *testing.T) {
	cfg := testConfig(t)

	services, err := BuildWithConfig(context.Background(), cfg, &recordingFrontend{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if _, err := services.Settings.UpdateAppSettings(context.Background(), func(s *domain.AppSettings) {
		s.HapticEnabled = false
	}); err != nil {
		t.Fatalf("update settings failed: %v", err)
	}
	if err := services.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened, err := BuildWithConfig(context.Background(), cfg, &recordingFrontend{})
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	defer reopened.Close()
	if reopened.Feedback.Enabled() {
		t.Fatalf("expected haptics to follow the stored setting")
	}
}

func TestBuildWithConfigWithoutFrontend(t *testing.T) {
	services, err := BuildWithConfig(context.Background(), testConfig(t), nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer services.Close()

	if err := services.Session.StartReading(); err != nil {
		t.Fatalf("start reading failed: %v", err)
	}
}

func TestBuildFailsOnInvalidLexicon(t *testing.T) {
	cfg := testConfig(t)
	cfg.Speech.LexiconPath = filepath.Join(t.TempDir(), "bad.rules")
	if err := os.WriteFile(cfg.Speech.LexiconPath, []byte("not a valid rule\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if _, err := BuildWithConfig(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected build error due to invalid lexicon")
	}
}

func TestBuildFailsOnMissingDeck(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog.DeckPath = filepath.Join(t.TempDir(), "missing-deck")

	if _, err := BuildWithConfig(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected build error due to missing deck")
	}
}

type recordingFrontend struct {
	mu           sync.Mutex
	screenReader bool
	states       []domain.SessionState
	cues         []domain.FeedbackKind
	announced    []string
}

func (f *recordingFrontend) SessionStateChanged(state domain.SessionState, _ domain.SessionStateReason) {
	f.mu.Lock()
	f.states = append(f.states, state)
	f.mu.Unlock()
}

func (f *recordingFrontend) CardDrawn(int, string, domain.DrawnCard) {}

func (f *recordingFrontend) SessionError(domain.ErrorCode, string) {}

func (f *recordingFrontend) ScreenReaderActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.screenReader
}

func (f *recordingFrontend) Announce(text string) {
	f.mu.Lock()
	f.announced = append(f.announced, text)
	f.mu.Unlock()
}

func (f *recordingFrontend) FeedbackCue(kind domain.FeedbackKind) {
	f.mu.Lock()
	f.cues = append(f.cues, kind)
	f.mu.Unlock()
}
