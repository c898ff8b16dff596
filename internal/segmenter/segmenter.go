// Package segmenter turns an audio file into an ordered word-token sequence
// by re-encoding to the recognizer's canonical form and running one
// synchronous ASR call.
package segmenter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jetteezhou/PhysVLM-Intent/internal/ports"
	"github.com/jetteezhou/PhysVLM-Intent/internal/types"
)

type Segmenter struct {
	media  ports.MediaTool
	asr    ports.ASR
	logger *zap.Logger
}

func New(media ports.MediaTool, asr ports.ASR, logger *zap.Logger) *Segmenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Segmenter{media: media, asr: asr, logger: logger}
}

// Transcribe re-encodes audioPath to mono/16k mp3 (a no-op when the media
// normalizer already produced that form), runs the recognizer once, and
// returns the word tokens in order. The intermediate mono file is removed
// before returning on every path.
func (s *Segmenter) Transcribe(ctx context.Context, audioPath string) ([]types.WordToken, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("%w: audio file %s: %v", types.ErrRecognition, audioPath, err)
	}

	monoFile, err := os.CreateTemp("", "mono-*.mp3")
	if err != nil {
		return nil, fmt.Errorf("%w: create temp file: %v", types.ErrRecognition, err)
	}
	monoPath := monoFile.Name()
	_ = monoFile.Close()
	defer func() {
		if err := os.Remove(monoPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("remove intermediate mono file", zap.String("path", monoPath), zap.Error(err))
		}
	}()

	if err := s.media.ExtractAudioMono16k(ctx, audioPath, monoPath); err != nil {
		return nil, fmt.Errorf("%w: convert to mono 16k: %v", types.ErrRecognition, err)
	}
	s.logger.Debug("audio converted to mono 16k", zap.String("source", filepath.Base(audioPath)))

	words, err := s.asr.Transcribe(ctx, monoPath)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: recognition result is empty", types.ErrRecognition)
	}

	for _, w := range words {
		s.logger.Debug("recognized word",
			zap.String("text", w.Text),
			zap.Int64("begin_ms", w.BeginTimeMS),
			zap.Int64("end_ms", w.EndTimeMS),
		)
	}
	return words, nil
}
