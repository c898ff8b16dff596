package ports

import (
	"context"

	"github.com/jetteezhou/PhysVLM-Intent/internal/types"
)

// MediaTool is the ffmpeg/ffprobe boundary.
type MediaTool interface {
	// ExtractAudioMono16k writes a mono 16 kHz mp3 audio-only stream.
	// Re-applying it to an already converted file is safe and cheap.
	ExtractAudioMono16k(ctx context.Context, inPath, outMP3 string) error
	// ExtractVideoNoAudio writes a silent video-only stream without
	// re-encoding (stream copy).
	ExtractVideoNoAudio(ctx context.Context, inPath, outMP4 string) error
	// Probe reads fps and total frame count from the video.
	Probe(ctx context.Context, videoPath string) (types.VideoMeta, error)
	// ExtractFrame seeks to frameIndex and writes that single frame as JPEG.
	ExtractFrame(ctx context.Context, videoPath string, frameIndex int, outJPG string) error
}

// ASR converts a canonical mono/16k audio file into word tokens with
// millisecond timestamps. A single failed call is surfaced as an error; no
// retry is performed.
type ASR interface {
	Transcribe(ctx context.Context, audioPath string) ([]types.WordToken, error)
}

// SceneDescriber wraps the vision-language model call that turns per-word
// frame groups into a free-text intent description. Each LLM-facing port is
// separate because every stage can point at a different endpoint and model.
type SceneDescriber interface {
	DescribeScene(ctx context.Context, groups []types.FrameGroup) (string, error)
}

// ObjectExtractor pulls the short object descriptions out of a scene
// description.
type ObjectExtractor interface {
	ExtractObjectDescriptions(ctx context.Context, videoDescription string) ([]string, error)
}

// PointResponse is the raw localization answer before coordinate conversion.
type PointResponse struct {
	Point [2]int // [y,x] normalized to 0-1000
	Label string
}

// ObjectLocator wraps the vision-language model call that points at one
// described object in an image.
type ObjectLocator interface {
	LocateObject(ctx context.Context, objectDescription, imagePath string) (PointResponse, error)
}
