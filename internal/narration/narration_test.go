package narration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"echotarot/internal/domain"
	"echotarot/internal/ports"
)

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestSynthesizerSpeaksWithPreferences(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "args")
	script := writeScript(t, "speak.sh", "#!/usr/bin/env bash\necho \"$@\" > '"+out+"'\n")
	lex, err := NewLexicon("", 0)
	if err != nil {
		t.Fatalf("lexicon: %v", err)
	}
	prefs := fakePrefs{settings: domain.AppSettings{SpeechRate: 1, SpeechVolume: 0.4}}
	synth := NewSynthesizer(SpeechConfig{Command: script, Voice: "en-gb"}, prefs, lex)

	done := make(chan struct{})
	synth.Speak("Tags #love", func() { close(done) })
	waitFor(t, done, "onDone")

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "-s 270 -a 40 -v en-gb -- Tags hashtag love" {
		t.Fatalf("unexpected args: %q", got)
	}
	if synth.Speaking() {
		t.Fatalf("expected synthesizer to be idle")
	}
}

func TestSynthesizerStopSuppressesOnDone(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "slow.sh", "#!/usr/bin/env bash\nexec sleep 5\n")
	synth := NewSynthesizer(SpeechConfig{Command: script}, nil, nil)

	called := make(chan struct{}, 1)
	synth.Speak("The Tower", func() { called <- struct{}{} })
	if !synth.Speaking() {
		t.Fatalf("expected utterance in progress")
	}

	synth.Stop()
	if synth.Speaking() {
		t.Fatalf("expected stop to clear the utterance")
	}
	select {
	case <-called:
		t.Fatalf("stopped utterance must not call onDone")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestSynthesizerNewUtteranceStopsPrevious(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "speak.sh", "#!/usr/bin/env bash\nif [ \"${@: -1}\" = slow ]; then exec sleep 5; fi\n")
	synth := NewSynthesizer(SpeechConfig{Command: script}, nil, nil)

	first := make(chan struct{}, 1)
	second := make(chan struct{})
	synth.Speak("slow", func() { first <- struct{}{} })
	synth.Speak("fast", func() { close(second) })
	waitFor(t, second, "second onDone")

	select {
	case <-first:
		t.Fatalf("interrupted utterance must not call onDone")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSynthesizerMissingCommandReportsAndContinues(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var reported []error
	synth := NewSynthesizer(SpeechConfig{
		Command: filepath.Join(t.TempDir(), "no-such-speaker"),
		OnError: func(err error) {
			mu.Lock()
			reported = append(reported, err)
			mu.Unlock()
		},
	}, fakePrefs{err: errors.New("db closed")}, nil)

	done := make(chan struct{})
	synth.Speak("Hello", func() { close(done) })
	waitFor(t, done, "onDone after failure")

	mu.Lock()
	defer mu.Unlock()
	if len(reported) != 1 || !strings.Contains(reported[0].Error(), "failed to start speech command") {
		t.Fatalf("unexpected reported errors: %v", reported)
	}
}

func TestSynthesizerBlankTextCompletes(t *testing.T) {
	t.Parallel()

	synth := NewSynthesizer(SpeechConfig{Command: "unused"}, nil, nil)
	done := make(chan struct{})
	synth.Speak("   ", func() { close(done) })
	waitFor(t, done, "onDone for blank text")
}

func TestWordsPerMinute(t *testing.T) {
	t.Parallel()

	cases := map[float64]int{0.5: 175, 1: 270, 0.1: 99, 0: 175, 2: 175}
	for rate, want := range cases {
		if got := WordsPerMinute(rate); got != want {
			t.Fatalf("rate %v: expected %d, got %d", rate, want, got)
		}
	}
}

func TestStrategyUsesSpeechWithoutScreenReader(t *testing.T) {
	t.Parallel()

	speech := &fakeNarrator{}
	announcer := &fakeAnnouncer{}
	scheduler := &manualScheduler{}
	strategy := NewStrategy(announcer, speech, scheduler, nil)

	strategy.Speak("The Star", nil)
	if got := speech.spoken(); len(got) != 1 || got[0] != "The Star" {
		t.Fatalf("expected speech narration, got %v", got)
	}
	if len(announcer.texts()) != 0 {
		t.Fatalf("screen reader should not be used")
	}

	nilAnnouncer := NewStrategy(nil, speech, scheduler, nil)
	nilAnnouncer.Speak("The Sun", nil)
	if got := speech.spoken(); len(got) != 2 {
		t.Fatalf("expected speech narration without announcer, got %v", got)
	}
}

func TestStrategyAnnouncesAndEstimatesCompletion(t *testing.T) {
	t.Parallel()

	speech := &fakeNarrator{}
	announcer := &fakeAnnouncer{active: true}
	scheduler := &manualScheduler{}
	strategy := NewStrategy(announcer, speech, scheduler, func() float64 { return 0.5 })

	done := 0
	strategy.Speak("Past: The Fool, upright.", func() { done++ })
	if got := announcer.texts(); len(got) != 1 || got[0] != "Past: The Fool, upright." {
		t.Fatalf("unexpected announcements: %v", got)
	}
	if len(speech.spoken()) != 0 {
		t.Fatalf("speech must not run while a screen reader is active")
	}
	if want := EstimateDuration("Past: The Fool, upright.", 0.5); scheduler.lastDelay() != want {
		t.Fatalf("expected delay %s, got %s", want, scheduler.lastDelay())
	}

	scheduler.runAll()
	if done != 1 {
		t.Fatalf("expected onDone once, got %d", done)
	}
}

func TestStrategyStopCancelsEstimate(t *testing.T) {
	t.Parallel()

	speech := &fakeNarrator{}
	announcer := &fakeAnnouncer{active: true}
	scheduler := &manualScheduler{}
	strategy := NewStrategy(announcer, speech, scheduler, nil)

	stale := 0
	fresh := 0
	strategy.Speak("first", func() { stale++ })
	strategy.Speak("second", func() { fresh++ })
	strategy.Stop()
	strategy.Speak("third", func() { fresh++ })

	scheduler.fireAll()
	if stale != 0 {
		t.Fatalf("stale announcement completed")
	}
	if fresh != 1 {
		t.Fatalf("expected only the latest announcement to complete, got %d", fresh)
	}
	if speech.stops() == 0 {
		t.Fatalf("expected speech to be stopped")
	}
}

func TestEstimateDuration(t *testing.T) {
	t.Parallel()

	if got := EstimateDuration("", 0.5); got != minAnnouncement {
		t.Fatalf("unexpected empty estimate: %s", got)
	}
	short := EstimateDuration("The Fool", 0.5)
	long := EstimateDuration("The Fool, upright. New beginnings, innocence, spontaneity.", 0.5)
	if long <= short {
		t.Fatalf("expected longer text to take longer: %s vs %s", long, short)
	}
	if fast := EstimateDuration("The Fool", 1); fast >= short {
		t.Fatalf("expected faster rate to shorten estimate: %s vs %s", fast, short)
	}
}

type fakePrefs struct {
	settings domain.AppSettings
	err      error
}

func (f fakePrefs) AppSettings(context.Context) (domain.AppSettings, error) {
	return f.settings, f.err
}

type fakeNarrator struct {
	mu      sync.Mutex
	texts   []string
	stopped int
}

func (f *fakeNarrator) Speak(text string, onDone func()) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
}

func (f *fakeNarrator) Stop() {
	f.mu.Lock()
	f.stopped++
	f.mu.Unlock()
}

func (f *fakeNarrator) spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func (f *fakeNarrator) stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

type fakeAnnouncer struct {
	mu        sync.Mutex
	active    bool
	announced []string
}

func (f *fakeAnnouncer) ScreenReaderActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeAnnouncer) Announce(text string) {
	f.mu.Lock()
	f.announced = append(f.announced, text)
	f.mu.Unlock()
}

func (f *fakeAnnouncer) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.announced...)
}

type manualTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
}

func (m *manualTimer) Stop() bool {
	was := !m.stopped
	m.stopped = true
	return was
}

type manualScheduler struct {
	timers []*manualTimer
}

func (m *manualScheduler) AfterFunc(d time.Duration, fn func()) ports.Timer {
	timer := &manualTimer{d: d, fn: fn}
	m.timers = append(m.timers, timer)
	return timer
}

// runAll fires every timer that has not been stopped.
func (m *manualScheduler) runAll() {
	for _, timer := range m.timers {
		if !timer.stopped {
			timer.stopped = true
			timer.fn()
		}
	}
}

// fireAll fires every timer, including stopped ones, as a racing clock would.
func (m *manualScheduler) fireAll() {
	for _, timer := range m.timers {
		timer.fn()
	}
}

func (m *manualScheduler) lastDelay() time.Duration {
	if len(m.timers) == 0 {
		return 0
	}
	return m.timers[len(m.timers)-1].d
}
