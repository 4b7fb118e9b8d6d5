package narration

import (
	"strings"
	"sync"
	"time"

	"echotarot/internal/ports"
)

// Announcer hands text to an active screen reader.
type Announcer interface {
	ScreenReaderActive() bool
	Announce(text string)
}

// Strategy routes narration to the screen reader when one is running and to
// the speech synthesizer otherwise. Screen readers do not report completion,
// so announcements finish after an estimate based on word count.
type Strategy struct {
	announcer Announcer
	speech    ports.Narrator
	scheduler ports.Scheduler
	rate      func() float64

	mu    sync.Mutex
	gen   uint64
	timer ports.Timer
}

var _ ports.Narrator = (*Strategy)(nil)

// NewStrategy builds a narrator. rate returns the current 0..1 speech rate
// used for completion estimates; nil means the default rate.
func NewStrategy(announcer Announcer, speech ports.Narrator, scheduler ports.Scheduler, rate func() float64) *Strategy {
	return &Strategy{announcer: announcer, speech: speech, scheduler: scheduler, rate: rate}
}

func (s *Strategy) Speak(text string, onDone func()) {
	s.Stop()

	if s.announcer == nil || !s.announcer.ScreenReaderActive() {
		s.speech.Speak(text, onDone)
		return
	}

	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	s.announcer.Announce(text)

	var rate float64
	if s.rate != nil {
		rate = s.rate()
	}
	timer := s.scheduler.AfterFunc(EstimateDuration(text, rate), func() {
		s.mu.Lock()
		current := s.gen == gen
		if current {
			s.timer = nil
		}
		s.mu.Unlock()
		if current && onDone != nil {
			onDone()
		}
	})

	s.mu.Lock()
	if s.gen == gen {
		s.timer = timer
	} else {
		timer.Stop()
	}
	s.mu.Unlock()
}

func (s *Strategy) Stop() {
	s.mu.Lock()
	s.gen++
	timer := s.timer
	s.timer = nil
	s.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	s.speech.Stop()
}

const minAnnouncement = 500 * time.Millisecond

// EstimateDuration approximates how long a screen reader takes to read text
// at the given 0..1 speech rate.
func EstimateDuration(text string, rate float64) time.Duration {
	words := len(strings.Fields(text))
	if words == 0 {
		return minAnnouncement
	}
	perWord := time.Minute / time.Duration(WordsPerMinute(rate))
	return minAnnouncement + time.Duration(words)*perWord
}
