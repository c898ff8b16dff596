package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jetteezhou/PhysVLM-Intent/internal/config"
)

func TestBuildRunOutDir(t *testing.T) {
	now := time.Date(2026, 2, 12, 10, 30, 45, 1234, time.UTC)
	got := buildRunOutDir("out", "/tmp/My Cool.Video.mp4", now)
	base := filepath.Base(got)
	if filepath.Dir(got) != "out" {
		t.Fatalf("unexpected parent dir: %s", got)
	}
	if !strings.HasPrefix(base, "my-cool-video-20260212-103045Z-") {
		t.Fatalf("unexpected run dir format: %s", base)
	}
	if len(base) != len("my-cool-video-20260212-103045Z-")+6 {
		t.Fatalf("unexpected run dir suffix length: %s", base)
	}
}

func TestNormalizePathSegment(t *testing.T) {
	tests := map[string]string{
		"  My Cool.Video  ": "my-cool-video",
		"___":               "",
		"abc123":            "abc123",
		"Name (v2)!":        "name-v2",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			if got := normalizePathSegment(in); got != want {
				t.Fatalf("normalizePathSegment(%q) = %q, want %q", in, got, want)
			}
		})
	}
}

func validConfig(t *testing.T) Config {
	t.Helper()
	input := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(input, []byte("not a real video"), 0o644))
	creds := config.StageCredentials{APIKey: "sk-test", Model: "m"}
	return Config{
		InputVideo:        input,
		OutDir:            t.TempDir(),
		IntervalMS:        300,
		DashScopeAPIKey:   "ds-key",
		DashScopeModel:    "fun-asr-realtime",
		VideoAnalysis:     creds,
		ObjectDescription: creds,
		ObjectLocation:    creds,
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validConfig(t).Validate())
	})

	t.Run("missing input", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.InputVideo = filepath.Join(t.TempDir(), "absent.mp4")
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stat input")
	})

	t.Run("empty input", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.InputVideo = ""
		assert.EqualError(t, cfg.Validate(), "input is empty")
	})

	t.Run("non-positive interval", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.IntervalMS = 0
		require.Error(t, cfg.Validate())
	})

	t.Run("missing dashscope key", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.DashScopeAPIKey = ""
		assert.EqualError(t, cfg.Validate(), "dashscope api key is required")
	})

	t.Run("missing stage key", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.ObjectLocation.APIKey = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "object location api key")
	})

	t.Run("missing stage model", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.VideoAnalysis.Model = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "video analysis model")
	})
}

func listWorkDirs(t *testing.T) map[string]struct{} {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "intent-annotate-*"))
	require.NoError(t, err)
	set := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		set[m] = struct{}{}
	}
	return set
}

func TestRun_RemovesWorkDirOnFailure(t *testing.T) {
	cfg := validConfig(t)
	// A bogus ffmpeg binary makes the run fail at the first stage without
	// touching any network service.
	cfg.FFmpegPath = filepath.Join(t.TempDir(), "no-such-ffmpeg")
	cfg.FFprobePath = cfg.FFmpegPath

	before := listWorkDirs(t)
	_, err := Run(context.Background(), cfg)
	require.Error(t, err)

	for dir := range listWorkDirs(t) {
		if _, existed := before[dir]; !existed {
			t.Fatalf("work dir %s leaked after failed run", dir)
		}
	}
}
