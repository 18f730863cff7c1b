// Package media cuts chunks out of audio files for transcription.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	apperrors "github.com/johnquangdev/holo-archive/errors"
)

// FFmpegSlicer cuts a time window out of an audio file by piping it through
// ffmpeg. The output is mp3 regardless of the input container.
type FFmpegSlicer struct {
	// Binary overrides the ffmpeg executable name, "ffmpeg" when empty.
	Binary string
}

func (s FFmpegSlicer) Slice(ctx context.Context, audio []byte, start, end float64) ([]byte, error) {
	binary := s.Binary
	if binary == "" {
		binary = "ffmpeg"
	}

	cmd := exec.CommandContext(ctx, binary,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-ss", fmt.Sprintf("%.3f", start),
		"-to", fmt.Sprintf("%.3f", end),
		"-vn",
		"-f", "mp3",
		"pipe:1")
	cmd.Stdin = bytes.NewReader(audio)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, apperrors.ErrExternalAPIFailed("ffmpeg",
			fmt.Errorf("%w: %s", err, stderr.String()))
	}
	return stdout.Bytes(), nil
}
