package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"echotarot/internal/domain"
	"echotarot/internal/ports"
)

var (
	ErrAlreadyRecording = errors.New("a recording is already in progress")
	ErrUnknownRecording = errors.New("unknown recording handle")
)

// ClipExtension is the container used for recorded clips.
const ClipExtension = ".m4a"

// Config controls clip capture and playback.
type Config struct {
	RecorderCommand string
	PlayerCommand   string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Directory       string
	// StartupGrace is how long a fresh capture must survive before it is
	// considered started.
	StartupGrace time.Duration
}

// FFMPEGRecorder records microphone clips to files with ffmpeg and plays them
// back with ffplay.
type FFMPEGRecorder struct {
	cfg Config

	mu       sync.Mutex
	active   *ffmpegRecording
	playback *exec.Cmd
}

var _ ports.Recorder = (*FFMPEGRecorder)(nil)

func NewFFMPEGRecorder(cfg Config) *FFMPEGRecorder {
	if cfg.RecorderCommand == "" {
		cfg.RecorderCommand = "ffmpeg"
	}
	if cfg.PlayerCommand == "" {
		cfg.PlayerCommand = "ffplay"
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	if cfg.Directory == "" {
		cfg.Directory = filepath.Join(os.TempDir(), "echotarot", "recordings")
	}
	if cfg.StartupGrace <= 0 {
		cfg.StartupGrace = 250 * time.Millisecond
	}
	return &FFMPEGRecorder{cfg: cfg}
}

// Start begins capturing a clip of the given kind.
func (r *FFMPEGRecorder) Start(ctx context.Context, kind domain.RecordingKind) (ports.RecordingHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return nil, ErrAlreadyRecording
	}

	if err := os.MkdirAll(r.cfg.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create recordings directory: %w", err)
	}
	path := filepath.Join(r.cfg.Directory, fmt.Sprintf("%s_%s%s", kind, uuid.NewString(), ClipExtension))

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-y",
		"-f", r.cfg.InputFormat,
		"-i", r.cfg.InputDevice,
		"-ac", "1",
		"-ar", strconv.Itoa(r.cfg.SampleRate),
		"-c:a", "aac",
		path,
	}

	cmd := exec.CommandContext(ctx, r.cfg.RecorderCommand, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		_ = os.Remove(path)
		detail := stringsTrimSpaceSafe(stderr.String())
		if isPermissionError(detail) {
			return nil, fmt.Errorf("%w: %s", ports.ErrPermissionDenied, detail)
		}
		if err != nil {
			return nil, fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, detail)
		}
		return nil, errors.New("ffmpeg exited before capture started")
	case <-time.After(r.cfg.StartupGrace):
	}

	rec := &ffmpegRecording{
		kind:    kind,
		path:    path,
		stderr:  &stderr,
		process: cmd.Process,
		waitErr: waitErr,
	}
	r.active = rec
	return rec, nil
}

// Stop ends the capture. An empty ref means nothing was recorded.
func (r *FFMPEGRecorder) Stop(handle ports.RecordingHandle) (domain.AudioRef, error) {
	rec, ok := handle.(*ffmpegRecording)
	if !ok {
		return "", ErrUnknownRecording
	}

	r.mu.Lock()
	if r.active == rec {
		r.active = nil
	}
	r.mu.Unlock()

	if err := rec.stop(); err != nil {
		_ = os.Remove(rec.path)
		return "", err
	}

	info, err := os.Stat(rec.path)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(rec.path)
		return "", nil
	}
	return domain.AudioRef(rec.path), nil
}

// Discard deletes a clip. Missing files are not an error.
func (r *FFMPEGRecorder) Discard(ref domain.AudioRef) error {
	if ref == "" {
		return nil
	}
	if err := os.Remove(string(ref)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove clip: %w", err)
	}
	return nil
}

type ffmpegRecording struct {
	kind   domain.RecordingKind
	path   string
	stderr *bytes.Buffer

	process *os.Process
	waitErr <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (r *ffmpegRecording) Kind() domain.RecordingKind {
	return r.kind
}

// stop interrupts ffmpeg so it finalizes the file, killing it if it lingers.
func (r *ffmpegRecording) stop() error {
	r.stopOnce.Do(func() {
		if r.process != nil {
			_ = r.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-r.waitErr:
			if ok {
				r.stopErr = normalizeStopErr(err)
			}
		case <-time.After(3 * time.Second):
			if r.process != nil {
				_ = r.process.Kill()
			}
			err, ok := <-r.waitErr
			if ok {
				r.stopErr = normalizeStopErr(err)
			}
		}

		if r.stopErr != nil && r.stderr != nil && r.stderr.Len() > 0 {
			r.stopErr = fmt.Errorf("%w: %s", r.stopErr, stringsTrimSpaceSafe(r.stderr.String()))
		}
	})

	return r.stopErr
}

func isPermissionError(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, marker := range []string{"permission denied", "operation not permitted", "access denied", "not authorized"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func stringsTrimSpaceSafe(input string) string {
	if input == "" {
		return input
	}
	return string(bytes.TrimSpace([]byte(input)))
}
