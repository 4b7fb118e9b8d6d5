package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"echotarot/internal/domain"
	"echotarot/internal/usecase"
)

const sessionHelp = `space  start, record / stop recording, continue
s      skip this step
t      type hashtags
r      repeat the meanings
c      change spread
x      cancel the reading
q      quit`

func sessionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Run a guided reading from the keyboard",
		Long:  "Run a guided reading. Keys:\n\n" + sessionHelp,
		RunE: func(cmd *cobra.Command, args []string) error {
			services, out, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			keys, restore, err := newKeyReader(cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer restore()
			out.setRaw(keys.raw)
			defer out.setRaw(false)

			out.println(mutedColor, "%s", sessionHelp)
			return runSession(cmd.Context(), services.Session, keys, out)
		},
	}
}

// runSession dispatches keys to the session until q, ctrl-c or end of input.
func runSession(ctx context.Context, session *usecase.ReadingSession, keys *keyReader, out *terminal) error {
	defer func() {
		if session.Snapshot().State.Active() {
			_ = session.CancelReading()
		}
	}()

	for {
		key, err := keys.readKey()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if key == 'q' || key == 3 {
			return nil
		}

		var opErr error
		switch key {
		case ' ', '\r':
			opErr = primaryAction(ctx, session)
		case '\n':
			if keys.raw {
				opErr = primaryAction(ctx, session)
			}
		case 's':
			opErr = skipAction(ctx, session)
		case 't':
			if session.Snapshot().State != domain.SessionStateHashtagInput {
				continue
			}
			line, err := keys.readLine(out, "hashtags: ")
			if err != nil {
				return err
			}
			opErr = session.CompleteHashtagInput(strings.Fields(line))
		case 'r':
			opErr = session.RepeatMeanings()
		case 'c':
			_, opErr = session.ChangeSpread()
		case 'x':
			opErr = session.CancelReading()
		case '?', 'h':
			out.println(mutedColor, "%s", sessionHelp)
		}

		if opErr != nil && !errors.Is(opErr, usecase.ErrInvalidTransition) {
			out.println(errorColor, "%v", opErr)
		}
	}
}

// primaryAction does the obvious next thing for the current state.
func primaryAction(ctx context.Context, session *usecase.ReadingSession) error {
	snap := session.Snapshot()
	switch snap.State {
	case domain.SessionStateIdle:
		return session.StartReading()
	case domain.SessionStateQuestionRecording:
		if snap.Recording {
			return session.FinishRecording(ctx)
		}
		return session.BeginRecording(ctx)
	case domain.SessionStateReadingRecording:
		if snap.Recording {
			return session.FinishRecording(ctx)
		}
		if err := session.BeginRecording(ctx); !errors.Is(err, usecase.ErrInvalidTransition) {
			return err
		}
		// The reflection is already in; this is a save retry.
		return session.SaveReading(ctx)
	case domain.SessionStateHashtagInput:
		return session.SkipHashtagInput()
	case domain.SessionStateCardRevealed:
		return session.StartReadingRecording()
	case domain.SessionStateComplete:
		return session.Reset()
	default:
		return nil
	}
}

func skipAction(ctx context.Context, session *usecase.ReadingSession) error {
	switch session.Snapshot().State {
	case domain.SessionStateQuestionRecording:
		return session.SkipQuestionRecording()
	case domain.SessionStateHashtagInput:
		return session.SkipHashtagInput()
	case domain.SessionStateReadingRecording:
		return session.SkipReadingRecording(ctx)
	default:
		return nil
	}
}

// keyReader reads single keys, using raw mode when input is a terminal.
type keyReader struct {
	r     *bufio.Reader
	fd    int
	state *term.State
	raw   bool
}

func newKeyReader(in io.Reader) (*keyReader, func(), error) {
	keys := &keyReader{r: bufio.NewReader(in)}
	file, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return keys, func() {}, nil
	}

	keys.fd = int(file.Fd())
	state, err := term.MakeRaw(keys.fd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to enter raw mode: %w", err)
	}
	keys.state = state
	keys.raw = true
	return keys, func() { _ = term.Restore(keys.fd, state) }, nil
}

func (k *keyReader) readKey() (rune, error) {
	key, _, err := k.r.ReadRune()
	return key, err
}

// readLine leaves raw mode while the user types a line.
func (k *keyReader) readLine(out *terminal, prompt string) (string, error) {
	if k.raw {
		_ = term.Restore(k.fd, k.state)
		out.setRaw(false)
		defer func() {
			if state, err := term.MakeRaw(k.fd); err == nil {
				k.state = state
			}
			out.setRaw(true)
		}()
	}

	out.mu.Lock()
	fmt.Fprint(out.out, prompt)
	out.mu.Unlock()

	line, err := k.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
