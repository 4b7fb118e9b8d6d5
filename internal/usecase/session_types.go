package usecase

import (
	"sync"
	"time"

	"echotarot/internal/domain"
	"echotarot/internal/ports"
)

// sessionState holds the fields of the in-flight reading. Writers hold the
// session's transition lock and the state lock; readers need only the latter.
type sessionState struct {
	state    domain.SessionState
	spread   domain.Spread
	drawn    []domain.DrawnCard
	meanings []string
	question domain.AudioRef
	reading  domain.AudioRef
	hashtags []string

	// pending is set while a paced transition out of the current state is scheduled.
	pending bool
	// readingDone is set once the reflection step was completed or skipped.
	readingDone bool
	// deal holds the full draw while cards are revealed one at a time.
	deal []domain.DrawnCard
}

func (s *sessionState) snapshot(recording bool) domain.SessionSnapshot {
	drawn := make([]domain.DrawnCard, len(s.drawn))
	copy(drawn, s.drawn)
	meanings := make([]string, len(s.meanings))
	copy(meanings, s.meanings)
	tags := make([]string, len(s.hashtags))
	copy(tags, s.hashtags)
	return domain.SessionSnapshot{
		State:            s.state,
		Spread:           s.spread,
		DrawnCards:       drawn,
		Meanings:         meanings,
		QuestionAudioRef: s.question,
		ReadingAudioRef:  s.reading,
		Hashtags:         tags,
		Recording:        recording,
		Pending:          s.pending,
	}
}

// timerSet tracks scheduled callbacks so a reset can stop all of them.
type timerSet struct {
	mu     sync.Mutex
	nextID int
	timers map[int]ports.Timer
}

func (t *timerSet) add(scheduler ports.Scheduler, d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timers == nil {
		t.timers = make(map[int]ports.Timer)
	}
	id := t.nextID
	t.nextID++
	t.timers[id] = scheduler.AfterFunc(d, func() {
		t.mu.Lock()
		delete(t.timers, id)
		t.mu.Unlock()
		fn()
	})
}

func (t *timerSet) stopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}

func (t *timerSet) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}

type clockScheduler struct{}

// NewClockScheduler schedules callbacks on the wall clock.
func NewClockScheduler() ports.Scheduler {
	return clockScheduler{}
}

func (clockScheduler) AfterFunc(d time.Duration, fn func()) ports.Timer {
	return time.AfterFunc(d, fn)
}
