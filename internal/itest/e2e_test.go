//go:build integration

package itest

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/jetteezhou/PhysVLM-Intent/internal/config"
	"github.com/jetteezhou/PhysVLM-Intent/internal/pipeline"
	"github.com/jetteezhou/PhysVLM-Intent/internal/types"
)

func TestE2E(t *testing.T) {
	if os.Getenv("DASHSCOPE_API_KEY") == "" {
		t.Fatalf("DASHSCOPE_API_KEY is required for itest")
	}
	if os.Getenv("OPENAI_API_KEY") == "" {
		t.Fatalf("OPENAI_API_KEY is required for itest")
	}

	tmp := t.TempDir()
	in := filepath.Join(tmp, "input.mp4")

	// Generate speech audio via espeak-ng.
	wav := filepath.Join(tmp, "speech.wav")
	text := "Pick up the red cup and place it on the blue plate."
	cmd := exec.Command("espeak-ng", "-w", wav, text)
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("espeak-ng failed: %v\n%s", err, string(b))
	}

	// Build a simple mp4 with audio.
	ff := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", "color=c=black:s=1280x720:d=10",
		"-i", wav,
		"-shortest",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		in,
	)
	if b, err := ff.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}

	env, err := config.Load()
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	outDir := filepath.Join(tmp, "out")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	cfg := pipeline.Config{
		InputVideo:        in,
		OutDir:            outDir,
		IntervalMS:        300,
		FFmpegPath:        "ffmpeg",
		FFprobePath:       "ffprobe",
		DashScopeAPIKey:   env.DashScopeAPIKey,
		DashScopeModel:    env.DashScopeModel,
		VideoAnalysis:     env.VideoAnalysis(),
		ObjectDescription: env.ObjectDescription(),
		ObjectLocation:    env.ObjectLocation(),
	}

	res, err := pipeline.Run(ctx, cfg)
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	b, err := os.ReadFile(res.RecordPath)
	if err != nil {
		t.Fatalf("missing annotation record: %v", err)
	}
	var rec types.AnnotationRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		t.Fatalf("decode annotation record: %v", err)
	}
	if len(rec.ResultData) == 0 {
		t.Fatalf("record has no word results")
	}
	if _, err := os.Stat(rec.LastImagePathAbsolute); err != nil {
		t.Fatalf("missing terminal frame: %v", err)
	}
	if _, err := os.Stat(res.PreviewPath); err != nil {
		t.Fatalf("missing annotated preview: %v", err)
	}

	// The terminal frame name carries the video duration in milliseconds.
	sec, err := probeDurationSeconds(in)
	if err != nil {
		t.Fatalf("probe fixture: %v", err)
	}
	wantMS := sec * 1000
	gotMS := terminalFrameMillis(t, rec.LastImagePath)
	if math.Abs(gotMS-wantMS) > 500 {
		t.Fatalf("terminal frame at %.0fms, fixture duration %.0fms", gotMS, wantMS)
	}
}
