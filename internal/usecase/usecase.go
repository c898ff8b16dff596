package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jetteezhou/PhysVLM-Intent/internal/domain/points"
	"github.com/jetteezhou/PhysVLM-Intent/internal/ports"
	"github.com/jetteezhou/PhysVLM-Intent/internal/render"
	"github.com/jetteezhou/PhysVLM-Intent/internal/sampler"
	"github.com/jetteezhou/PhysVLM-Intent/internal/segmenter"
	"github.com/jetteezhou/PhysVLM-Intent/internal/types"
)

// Stage names carried by StageError.
const (
	StageNormalize      = "normalize"
	StageTranscribe     = "transcribe"
	StageSample         = "sample"
	StageDescribe       = "describe"
	StageExtractObjects = "extract_objects"
	StageLocateObject   = "locate_object"
	StageRender         = "render"
	StagePersist        = "persist"
)

type Deps struct {
	Media     ports.MediaTool
	Segmenter *segmenter.Segmenter
	Sampler   *sampler.Sampler
	Scene     ports.SceneDescriber
	Extractor ports.ObjectExtractor
	Locator   ports.ObjectLocator
	Logger    *zap.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return Usecase{d: d}
}

type Input struct {
	InputVideo string
	// WorkDir receives the normalized audio/video tracks; the caller owns
	// its lifetime (scoped temp dir in the pipeline layer).
	WorkDir string
	// OutDir receives the sampled frames, the annotation record, and the
	// preview image.
	OutDir     string
	IntervalMS int64
}

type Result struct {
	Record      types.AnnotationRecord
	RecordPath  string
	PreviewPath string
}

// Run drives one video through the strictly sequential stage machine:
// normalize, transcribe, sample, describe, extract objects, locate each
// object, render, persist. Any stage failure aborts the run with a
// StageError and nothing is persisted: the record on disk is either fully
// populated or absent.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	log := u.d.Logger.With(zap.String("input", filepath.Base(in.InputVideo)))

	// normalize
	base := trimExt(filepath.Base(in.InputVideo))
	audioPath := filepath.Join(in.WorkDir, base+".mp3")
	videoPath := filepath.Join(in.WorkDir, base+".mp4")
	if err := u.d.Media.ExtractAudioMono16k(ctx, in.InputVideo, audioPath); err != nil {
		return Result{}, &types.StageError{Stage: StageNormalize, Err: err}
	}
	if err := u.d.Media.ExtractVideoNoAudio(ctx, in.InputVideo, videoPath); err != nil {
		return Result{}, &types.StageError{Stage: StageNormalize, Err: err}
	}
	log.Info("media normalized", zap.String("audio", audioPath), zap.String("video", videoPath))

	// transcribe
	words, err := u.d.Segmenter.Transcribe(ctx, audioPath)
	if err != nil {
		return Result{}, &types.StageError{Stage: StageTranscribe, Err: err}
	}
	log.Info("transcript ready", zap.Int("words", len(words)))

	// sample
	framesDir := filepath.Join(in.OutDir, "output_frames", base)
	sampled, err := u.d.Sampler.Sample(ctx, videoPath, words, framesDir, in.IntervalMS)
	if err != nil {
		return Result{}, &types.StageError{Stage: StageSample, Err: err}
	}

	// describe
	description, err := u.d.Scene.DescribeScene(ctx, sampled.Groups)
	if err != nil {
		return Result{}, &types.StageError{Stage: StageDescribe, Err: err}
	}
	log.Info("scene described", zap.Int("description_len", len(description)))

	// extract objects
	descriptions, err := u.d.Extractor.ExtractObjectDescriptions(ctx, description)
	if err != nil {
		return Result{}, &types.StageError{Stage: StageExtractObjects, Err: err}
	}
	if len(descriptions) > 2 {
		// The two-object cap is a prompt convention, not enforced here;
		// flag drift so batch operators notice.
		log.Warn("model returned more than two object descriptions", zap.Int("count", len(descriptions)))
	}

	dims, err := render.Dimensions(sampled.Terminal.Path)
	if err != nil {
		return Result{}, &types.StageError{Stage: StageLocateObject, Err: err}
	}

	// locate each object; one failure aborts the whole record
	objects := make([]types.LocatedObject, 0, len(descriptions))
	for i, desc := range descriptions {
		resp, err := u.d.Locator.LocateObject(ctx, desc, sampled.Terminal.Path)
		if err != nil {
			return Result{}, &types.StageError{Stage: StageLocateObject, Err: err}
		}
		pixel, normalized, err := points.Denormalize(resp.Point, dims.Width, dims.Height)
		if err != nil {
			return Result{}, &types.StageError{Stage: StageLocateObject, Err: err}
		}
		log.Info("object located",
			zap.Int("id", i),
			zap.String("label", resp.Label),
			zap.Int("pixel_x", pixel[0]),
			zap.Int("pixel_y", pixel[1]),
		)
		objects = append(objects, types.LocatedObject{
			ID:               i,
			Description:      desc,
			Point:            resp.Point,
			Label:            resp.Label,
			PixelCoords:      pixel,
			NormalizedCoords: normalized,
		})
	}

	// render preview
	previewPath := filepath.Join(in.OutDir, "annotation_preview.jpg")
	if err := render.Preview(sampled.Terminal.Path, previewPath, objects); err != nil {
		return Result{}, &types.StageError{Stage: StageRender, Err: err}
	}

	// persist
	absTerminal, err := filepath.Abs(sampled.Terminal.Path)
	if err != nil {
		absTerminal = sampled.Terminal.Path
	}
	record := types.AnnotationRecord{
		InputVideoPath:        in.InputVideo,
		VideoPath:             videoPath,
		AudioPath:             audioPath,
		LastImagePath:         sampled.Terminal.Path,
		LastImagePathAbsolute: absTerminal,
		VideoDescription:      description,
		ResultData:            toWordResults(sampled.Groups),
		Objects:               objects,
		ImageDimensions:       dims,
	}

	recordPath := filepath.Join(in.OutDir, "annotation.json")
	if err := writeRecord(recordPath, record); err != nil {
		return Result{}, &types.StageError{Stage: StagePersist, Err: err}
	}
	log.Info("annotation record written",
		zap.String("record", recordPath),
		zap.Int("objects", len(objects)),
	)

	return Result{Record: record, RecordPath: recordPath, PreviewPath: previewPath}, nil
}

func toWordResults(groups []types.FrameGroup) []types.WordResult {
	out := make([]types.WordResult, 0, len(groups))
	for _, g := range groups {
		out = append(out, types.WordResult{
			Word:       g.Word.Text,
			Timestamp:  [2]int64{g.Word.BeginTimeMS, g.Word.EndTimeMS},
			FramePaths: g.FramePaths,
		})
	}
	return out
}

// writeRecord is a whole-file overwrite; readers that wait for the write to
// complete never observe a partial record.
func writeRecord(path string, record types.AnnotationRecord) error {
	b, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
