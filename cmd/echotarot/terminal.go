package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"echotarot/internal/domain"
)

var (
	labelColor   = color.New(color.FgCyan)
	valueColor   = color.New(color.FgHiWhite)
	narrateColor = color.New(color.FgHiMagenta)
	stateColor   = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	mutedColor   = color.New(color.FgHiBlack)
)

// terminal presents a reading on a text terminal. Narration is printed when
// announce is set; otherwise it is left to the speech command.
type terminal struct {
	mu       sync.Mutex
	out      io.Writer
	announce bool
	raw      bool
}

func newTerminal(out io.Writer, announce bool) *terminal {
	return &terminal{out: out, announce: announce}
}

// setRaw switches line endings for a terminal in raw mode.
func (t *terminal) setRaw(raw bool) {
	t.mu.Lock()
	t.raw = raw
	t.mu.Unlock()
}

func (t *terminal) println(c *color.Color, format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	line := c.Sprintf(format, args...)
	if t.raw {
		line = strings.ReplaceAll(line, "\n", "\r\n")
		fmt.Fprint(t.out, line+"\r\n")
		return
	}
	fmt.Fprintln(t.out, line)
}

func (t *terminal) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	t.println(stateColor, "[%s] %s", state, strings.ReplaceAll(string(reason), "_", " "))
}

func (t *terminal) CardDrawn(index int, position string, card domain.DrawnCard) {
	t.println(valueColor, "%d. %s: %s, %s", index+1, position, card.Card.Name, card.Orientation())
}

func (t *terminal) SessionError(code domain.ErrorCode, detail string) {
	t.println(errorColor, "error (%s): %s", code, detail)
}

func (t *terminal) ScreenReaderActive() bool {
	return t.announce
}

func (t *terminal) Announce(text string) {
	t.println(narrateColor, "» %s", text)
}

func (t *terminal) FeedbackCue(kind domain.FeedbackKind) {
	if kind == domain.FeedbackError {
		t.mu.Lock()
		fmt.Fprint(t.out, "\a")
		t.mu.Unlock()
	}
}

// field prints an aligned "label: value" line.
func field(w io.Writer, label string, value string) {
	fmt.Fprintf(w, "%s %s\n", labelColor.Sprintf("%-10s", label+":"), valueColor.Sprint(value))
}
