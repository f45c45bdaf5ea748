package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strings"
)

var ErrDurationMismatch = errors.New("audio duration does not match the timeline")

const (
	SampleRate     = 44100
	clickPitch     = 880.0
	clickLength    = 0.05
	clickVolume    = 0.5
	frameTolerance = 1
)

// Generator synthesizes the click track. FFmpegPath defaults to "ffmpeg".
type Generator struct {
	FFmpegPath  string
	FFprobePath string
}

func (g *Generator) ffmpeg() string {
	if g.FFmpegPath == "" {
		return "ffmpeg"
	}
	return g.FFmpegPath
}

func (g *Generator) ffprobe() string {
	if g.FFprobePath == "" {
		return "ffprobe"
	}
	return g.FFprobePath
}

// Generate writes a mono WAV of the given length with a short sine click on
// every beat. With bpm <= 0 the file is silent.
func (g *Generator) Generate(ctx context.Context, path string, seconds, bpm float64) error {
	if seconds <= 0 {
		return fmt.Errorf("audio length must be positive, got %.3fs", seconds)
	}
	cmd := exec.CommandContext(ctx, g.ffmpeg(), buildGenerateArgs(path, seconds, bpm)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg audio error: %v, output: %s", err, string(out))
	}
	return nil
}

// Probe returns the container duration in seconds.
func (g *Generator) Probe(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, g.ffprobe(), buildProbeArgs(path)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe error: %v, output: %s", err, string(out))
	}
	return parseDuration(string(out))
}

func buildGenerateArgs(path string, seconds, bpm float64) []string {
	return []string{
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("aevalsrc=%s:s=%d:d=%.4f", clickExpr(bpm), SampleRate, seconds),
		"-ac", "1",
		"-c:a", "pcm_s16le",
		path,
	}
}

// clickExpr is the aevalsrc expression: a clickPitch tone gated to the
// first clickLength seconds of every beat.
func clickExpr(bpm float64) string {
	if bpm <= 0 {
		return "0"
	}
	return fmt.Sprintf("%.2f*sin(2*PI*%.1f*t)*lt(mod(t\\,%.6f)\\,%.3f)",
		clickVolume, clickPitch, 60/bpm, clickLength)
}

func buildProbeArgs(path string) []string {
	return []string{"-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path}
}

func parseDuration(out string) (float64, error) {
	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(out), "%f", &duration); err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(out), err)
	}
	return duration, nil
}

// CheckConsistency compares the audio length against the frame range
// 0..=totalFrames. A difference of up to one frame is accepted.
func CheckConsistency(seconds float64, fps, totalFrames int) error {
	if fps <= 0 {
		return fmt.Errorf("frame rate must be positive, got %d", fps)
	}
	audioFrames := seconds * float64(fps)
	if diff := math.Abs(audioFrames - float64(totalFrames)); diff > frameTolerance {
		return fmt.Errorf("%w: %.2fs is %.1f frames, timeline has %d", ErrDurationMismatch, seconds, audioFrames, totalFrames)
	}
	return nil
}
