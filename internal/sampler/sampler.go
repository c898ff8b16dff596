// Package sampler carves a video into per-word frame groups at a fixed
// sampling cadence and extracts the terminal frame that anchors object
// localization.
package sampler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jetteezhou/PhysVLM-Intent/internal/domain/sampling"
	"github.com/jetteezhou/PhysVLM-Intent/internal/ports"
	"github.com/jetteezhou/PhysVLM-Intent/internal/types"
)

// DefaultIntervalMS is the maximum gap between two consecutive interior
// samples within one word's span.
const DefaultIntervalMS = 300

type Sampler struct {
	media  ports.MediaTool
	logger *zap.Logger
}

func New(media ports.MediaTool, logger *zap.Logger) *Sampler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sampler{media: media, logger: logger}
}

// Result is everything the sampling stage produces for one video.
type Result struct {
	Groups   []types.FrameGroup
	Terminal types.TerminalFrame
	Meta     types.VideoMeta
}

// Sample extracts frames for every word and then the terminal frame.
//
// One FrameGroup per word is returned, in input order, even when every
// sample for a word failed to read (the group is then empty). A single
// failed frame read is logged and skipped; only a failed terminal-frame
// read aborts, because the later stages cannot anchor to a missing image.
func (s *Sampler) Sample(ctx context.Context, videoPath string, words []types.WordToken, outputDir string, intervalMS int64) (Result, error) {
	if len(words) == 0 {
		return Result{}, fmt.Errorf("%w: word list is empty", types.ErrVideo)
	}
	if intervalMS <= 0 {
		intervalMS = DefaultIntervalMS
	}

	meta, err := s.media.Probe(ctx, videoPath)
	if err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("%w: create output dir: %v", types.ErrVideo, err)
	}

	log := s.logger.With(zap.String("video", filepath.Base(videoPath)))
	log.Info("video opened",
		zap.Float64("fps", meta.FPS),
		zap.Int("total_frames", meta.TotalFrames),
		zap.Float64("duration_ms", meta.DurationMS),
	)

	groups := make([]types.FrameGroup, 0, len(words))
	for _, word := range words {
		group := types.FrameGroup{Word: word, FramePaths: []string{}}

		for _, t := range sampling.SampleTimes(word.BeginTimeMS, word.EndTimeMS, intervalMS) {
			idx := sampling.FrameIndex(t, meta.FPS, meta.TotalFrames)
			framePath := filepath.Join(outputDir, fmt.Sprintf("%d_%s.jpg", t, word.Text))

			if err := s.media.ExtractFrame(ctx, videoPath, idx, framePath); err != nil {
				log.Warn("frame read failed, sample skipped",
					zap.Int64("sample_ms", t),
					zap.Int("frame_index", idx),
					zap.Error(err),
				)
				continue
			}
			group.FramePaths = append(group.FramePaths, framePath)
		}

		groups = append(groups, group)
	}

	terminal, err := s.extractTerminal(ctx, videoPath, meta, outputDir)
	if err != nil {
		return Result{}, err
	}

	return Result{Groups: groups, Terminal: terminal, Meta: meta}, nil
}

func (s *Sampler) extractTerminal(ctx context.Context, videoPath string, meta types.VideoMeta, outputDir string) (types.TerminalFrame, error) {
	idx := meta.TotalFrames - 1
	path := filepath.Join(outputDir, fmt.Sprintf("%d_last.jpg", int64(meta.DurationMS)))

	if err := s.media.ExtractFrame(ctx, videoPath, idx, path); err != nil {
		return types.TerminalFrame{}, fmt.Errorf("%w: read terminal frame %d: %v", types.ErrVideo, idx, err)
	}
	return types.TerminalFrame{Path: path, FrameIndex: idx}, nil
}
