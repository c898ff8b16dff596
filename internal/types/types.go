package types

import "fmt"

// WordToken is one ASR-recognized word with its span in milliseconds.
type WordToken struct {
	Text        string `json:"text"`
	BeginTimeMS int64  `json:"begin_time"`
	EndTimeMS   int64  `json:"end_time"`
}

// NewWordToken validates the span ordering at construction time.
func NewWordToken(text string, beginMS, endMS int64) (WordToken, error) {
	if beginMS < 0 {
		return WordToken{}, fmt.Errorf("word %q: negative begin time %d", text, beginMS)
	}
	if beginMS > endMS {
		return WordToken{}, fmt.Errorf("word %q: begin time %d after end time %d", text, beginMS, endMS)
	}
	return WordToken{Text: text, BeginTimeMS: beginMS, EndTimeMS: endMS}, nil
}

// FrameGroup holds the frames sampled across one word's span. FramePaths may
// be empty when every sample read failed; the group is still kept so output
// order matches the input word order.
type FrameGroup struct {
	Word       WordToken
	FramePaths []string
}

// VideoMeta is computed once per video handle.
type VideoMeta struct {
	FPS         float64
	TotalFrames int
	DurationMS  float64
}

// NewVideoMeta rejects degenerate videos up front.
func NewVideoMeta(fps float64, totalFrames int) (VideoMeta, error) {
	if fps <= 0 {
		return VideoMeta{}, fmt.Errorf("non-positive fps %.3f", fps)
	}
	if totalFrames <= 0 {
		return VideoMeta{}, fmt.Errorf("video has %d frames", totalFrames)
	}
	return VideoMeta{
		FPS:         fps,
		TotalFrames: totalFrames,
		DurationMS:  float64(totalFrames) / fps * 1000,
	}, nil
}

// TerminalFrame is the last decodable frame of the video, the anchor image
// for object localization.
type TerminalFrame struct {
	Path       string
	FrameIndex int
}

// LocatedObject is one localized object. PixelCoords ([x,y]) and
// NormalizedCoords ([x,y] in 0-1) are derived from the model point and the
// terminal frame dimensions, never set independently.
type LocatedObject struct {
	ID               int        `json:"id"`
	Description      string     `json:"description"`
	Point            [2]int     `json:"point"` // [y,x] normalized to 0-1000
	Label            string     `json:"label"`
	PixelCoords      [2]int     `json:"pixel_coords"`      // [x,y] pixels
	NormalizedCoords [2]float64 `json:"normalized_coords"` // [x,y] in 0-1
}

// WordResult is the serialized form of one FrameGroup.
type WordResult struct {
	Word       string   `json:"word"`
	Timestamp  [2]int64 `json:"timestamp"` // [begin_ms, end_ms]
	FramePaths []string `json:"frame_paths"`
}

// ImageDimensions are the terminal frame's pixel dimensions.
type ImageDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// AnnotationRecord is the assembled result for one video. It is written
// whole or not at all; re-runs replace it wholesale.
type AnnotationRecord struct {
	InputVideoPath        string          `json:"input_video_path"`
	VideoPath             string          `json:"video_path"`
	AudioPath             string          `json:"audio_path"`
	LastImagePath         string          `json:"last_image_path"`
	LastImagePathAbsolute string          `json:"last_image_path_absolute"`
	VideoDescription      string          `json:"video_description"`
	ResultData            []WordResult    `json:"result_data"`
	Objects               []LocatedObject `json:"objects"`
	ImageDimensions       ImageDimensions `json:"image_dimensions"`
}
