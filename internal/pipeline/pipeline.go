package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/jetteezhou/PhysVLM-Intent/internal/config"
	"github.com/jetteezhou/PhysVLM-Intent/internal/ports"
	"github.com/jetteezhou/PhysVLM-Intent/internal/ports/adapters/dashscope"
	"github.com/jetteezhou/PhysVLM-Intent/internal/ports/adapters/ffmpeg"
	"github.com/jetteezhou/PhysVLM-Intent/internal/ports/adapters/visionchat"
	"github.com/jetteezhou/PhysVLM-Intent/internal/sampler"
	"github.com/jetteezhou/PhysVLM-Intent/internal/segmenter"
	"github.com/jetteezhou/PhysVLM-Intent/internal/usecase"
)

type Config struct {
	InputVideo string
	OutDir     string
	IntervalMS int64

	// KeepWorkDir leaves the normalized audio/video tracks on disk for
	// inspection instead of removing the scoped temp directory.
	KeepWorkDir bool

	FFmpegPath  string
	FFprobePath string

	DashScopeAPIKey string
	DashScopeModel  string

	VideoAnalysis     config.StageCredentials
	ObjectDescription config.StageCredentials
	ObjectLocation    config.StageCredentials

	Logger *zap.Logger
}

func (c Config) Validate() error {
	if c.InputVideo == "" {
		return errors.New("input is empty")
	}
	if _, err := os.Stat(c.InputVideo); err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if c.IntervalMS <= 0 {
		return fmt.Errorf("sampling interval must be > 0")
	}
	if c.DashScopeAPIKey == "" {
		return errors.New("dashscope api key is required")
	}
	for _, sc := range []struct {
		name  string
		creds config.StageCredentials
	}{
		{"video analysis", c.VideoAnalysis},
		{"object description", c.ObjectDescription},
		{"object location", c.ObjectLocation},
	} {
		if sc.creds.APIKey == "" {
			return fmt.Errorf("%s api key is required", sc.name)
		}
		if sc.creds.Model == "" {
			return fmt.Errorf("%s model is required", sc.name)
		}
	}
	return nil
}

// Run annotates one video: it wires the adapters, gives the run its own
// output directory and scoped temp workspace, and executes the stage
// machine. The temp workspace is removed on every exit path unless
// KeepWorkDir is set.
func Run(ctx context.Context, cfg Config) (usecase.Result, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// adapters
	media := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)
	asr := dashscope.New(cfg.DashScopeAPIKey, cfg.DashScopeModel, "")
	scene := visionchat.New(cfg.VideoAnalysis.APIKey, cfg.VideoAnalysis.Model, cfg.VideoAnalysis.BaseURL)
	extractor := visionchat.New(cfg.ObjectDescription.APIKey, cfg.ObjectDescription.Model, cfg.ObjectDescription.BaseURL)
	locator := visionchat.New(cfg.ObjectLocation.APIKey, cfg.ObjectLocation.Model, cfg.ObjectLocation.BaseURL)

	uc := usecase.New(usecase.Deps{
		Media:     media,
		Segmenter: segmenter.New(media, asr, logger),
		Sampler:   sampler.New(media, logger),
		Scene:     scene,
		Extractor: extractor,
		Locator:   locator,
		Logger:    logger,
	})

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "outputs"
	}
	runOutDir := buildRunOutDir(outDir, cfg.InputVideo, time.Now().UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return usecase.Result{}, err
	}
	logger.Info("output run dir", zap.String("dir", runOutDir))

	workDir, err := os.MkdirTemp("", "intent-annotate-*")
	if err != nil {
		return usecase.Result{}, fmt.Errorf("create work dir: %w", err)
	}
	if !cfg.KeepWorkDir {
		defer func() {
			if err := os.RemoveAll(workDir); err != nil {
				logger.Warn("remove work dir", zap.String("dir", workDir), zap.Error(err))
			}
		}()
	}

	return uc.Run(ctx, usecase.Input{
		InputVideo: cfg.InputVideo,
		WorkDir:    workDir,
		OutDir:     runOutDir,
		IntervalMS: cfg.IntervalMS,
	})
}

func buildRunOutDir(outRoot, inputVideo string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(inputVideo), filepath.Ext(inputVideo))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", inputVideo, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.MediaTool = (*ffmpeg.Adapter)(nil)
var _ ports.ASR = (*dashscope.Adapter)(nil)
var _ ports.SceneDescriber = (*visionchat.Adapter)(nil)
var _ ports.ObjectExtractor = (*visionchat.Adapter)(nil)
var _ ports.ObjectLocator = (*visionchat.Adapter)(nil)
