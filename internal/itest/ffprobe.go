//go:build integration

package itest

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func probeDurationSeconds(mp4Path string) (float64, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		mp4Path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return sec, nil
}

func probeAudioFormat(audioPath string) (sampleRate, channels int, err error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=sample_rate,channels",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe: %w\n%s", err, string(b))
	}
	fields := strings.Fields(string(b))
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected ffprobe output %q", string(b))
	}
	sampleRate, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("parse sample rate %q: %w", fields[0], err)
	}
	channels, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parse channels %q: %w", fields[1], err)
	}
	return sampleRate, channels, nil
}

// terminalFrameMillis extracts the millisecond timestamp from a terminal
// frame path like "output_frames/input/10000_last.jpg".
func terminalFrameMillis(t *testing.T, path string) float64 {
	t.Helper()
	base := filepath.Base(path)
	ms, _, ok := strings.Cut(base, "_")
	if !ok {
		t.Fatalf("unexpected terminal frame name %q", base)
	}
	v, err := strconv.ParseFloat(ms, 64)
	if err != nil {
		t.Fatalf("parse terminal frame timestamp %q: %v", ms, err)
	}
	return v
}
