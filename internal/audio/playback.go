package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"echotarot/internal/domain"
)

// Play starts playing a clip in the background, stopping any clip already playing.
func (r *FFMPEGRecorder) Play(ctx context.Context, ref domain.AudioRef) error {
	if _, err := os.Stat(string(ref)); err != nil {
		return fmt.Errorf("clip unavailable: %w", err)
	}

	r.StopPlayback()

	cmd := exec.CommandContext(ctx, r.cfg.PlayerCommand,
		"-nodisp",
		"-autoexit",
		"-loglevel", "quiet",
		string(ref),
	)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffplay: %w", err)
	}

	r.mu.Lock()
	r.playback = cmd
	r.mu.Unlock()

	go func() {
		_ = cmd.Wait()
		r.mu.Lock()
		if r.playback == cmd {
			r.playback = nil
		}
		r.mu.Unlock()
	}()
	return nil
}

// StopPlayback stops the clip being played, if any.
func (r *FFMPEGRecorder) StopPlayback() {
	r.mu.Lock()
	cmd := r.playback
	r.playback = nil
	r.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}

// Playing reports whether a clip is being played.
func (r *FFMPEGRecorder) Playing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playback != nil
}
