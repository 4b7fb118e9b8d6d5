package narration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"echotarot/internal/domain"
	"echotarot/internal/ports"
)

// Preferences supplies the user's speech rate and volume.
type Preferences interface {
	AppSettings(ctx context.Context) (domain.AppSettings, error)
}

// SpeechConfig controls the speech command.
type SpeechConfig struct {
	Command string
	Voice   string
	// OnError is called when an utterance fails to start or exits abnormally.
	OnError func(err error)
	Logger  *slog.Logger
}

// Synthesizer speaks through an espeak-ng compatible command. One utterance
// runs at a time; a new one stops the previous.
type Synthesizer struct {
	cfg     SpeechConfig
	prefs   Preferences
	lexicon *Lexicon

	mu      sync.Mutex
	current *utterance
}

var _ ports.Narrator = (*Synthesizer)(nil)

func NewSynthesizer(cfg SpeechConfig, prefs Preferences, lexicon *Lexicon) *Synthesizer {
	if cfg.Command == "" {
		cfg.Command = "espeak-ng"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Synthesizer{cfg: cfg, prefs: prefs, lexicon: lexicon}
}

type utterance struct {
	cancel  context.CancelFunc
	stopped bool
}

// Speak starts speaking text. onDone runs on a background goroutine once the
// command exits, unless the utterance was stopped first. A command that
// cannot run still calls onDone so callers pacing on it keep moving.
func (s *Synthesizer) Speak(text string, onDone func()) {
	s.Stop()

	spoken := s.lexicon.Apply(strings.TrimSpace(text))
	if spoken == "" {
		if onDone != nil {
			go onDone()
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, s.cfg.Command, s.args(spoken)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Start(); err != nil {
		cancel()
		s.fail(fmt.Errorf("failed to start speech command: %w", err))
		if onDone != nil {
			go onDone()
		}
		return
	}

	u := &utterance{cancel: cancel}
	s.mu.Lock()
	s.current = u
	s.mu.Unlock()

	go func() {
		err := cmd.Wait()
		cancel()

		s.mu.Lock()
		stopped := u.stopped
		if s.current == u {
			s.current = nil
		}
		s.mu.Unlock()

		if stopped {
			return
		}
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				err = fmt.Errorf("speech command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
			}
			s.fail(err)
		}
		if onDone != nil {
			onDone()
		}
	}()
}

// Stop interrupts the current utterance without calling its onDone.
func (s *Synthesizer) Stop() {
	s.mu.Lock()
	u := s.current
	s.current = nil
	if u != nil {
		u.stopped = true
	}
	s.mu.Unlock()

	if u != nil {
		u.cancel()
	}
}

// Speaking reports whether an utterance is in progress.
func (s *Synthesizer) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

func (s *Synthesizer) args(text string) []string {
	settings := domain.DefaultAppSettings()
	if s.prefs != nil {
		loaded, err := s.prefs.AppSettings(context.Background())
		if err != nil {
			s.cfg.Logger.Warn("speech preferences unavailable", "error", err)
		} else {
			settings = loaded.Normalize()
		}
	}

	args := []string{
		"-s", strconv.Itoa(WordsPerMinute(settings.SpeechRate)),
		"-a", strconv.Itoa(amplitude(settings.SpeechVolume)),
	}
	if s.cfg.Voice != "" {
		args = append(args, "-v", s.cfg.Voice)
	}
	return append(args, "--", text)
}

func (s *Synthesizer) fail(err error) {
	s.cfg.Logger.Error("narration failed", "error", err)
	if s.cfg.OnError != nil {
		s.cfg.OnError(err)
	}
}

// WordsPerMinute maps a 0..1 speech rate onto the synthesizer's range.
// The default rate of 0.5 is 175 words per minute.
func WordsPerMinute(rate float64) int {
	if rate <= 0 || rate > 1 {
		rate = domain.DefaultAppSettings().SpeechRate
	}
	return 80 + int(rate*190)
}

func amplitude(volume float64) int {
	if volume < 0 || volume > 1 {
		volume = domain.DefaultAppSettings().SpeechVolume
	}
	return int(volume * 100)
}
