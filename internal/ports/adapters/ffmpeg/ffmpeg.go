package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/jetteezhou/PhysVLM-Intent/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// ExtractAudioMono16k writes an audio-only mono 16 kHz mp3 stream. The
// parameters match what the speech recognizer expects, so running it on an
// already converted file is a no-op transform.
func (a *Adapter) ExtractAudioMono16k(ctx context.Context, inPath, outMP3 string) error {
	if _, err := os.Stat(inPath); err != nil {
		return fmt.Errorf("%w: input %s: %v", types.ErrMedia, inPath, err)
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", inPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-ar", "16000",
		"-ac", "1",
		outMP3,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: ffmpeg extract audio: %v\n%s", types.ErrMedia, err, string(b))
	}
	return nil
}

// ExtractVideoNoAudio strips the audio track with a stream copy, so the
// video bitstream is untouched and extraction stays fast.
func (a *Adapter) ExtractVideoNoAudio(ctx context.Context, inPath, outMP4 string) error {
	if _, err := os.Stat(inPath); err != nil {
		return fmt.Errorf("%w: input %s: %v", types.ErrMedia, inPath, err)
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", inPath,
		"-an",
		"-c:v", "copy",
		outMP4,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: ffmpeg extract video: %v\n%s", types.ErrMedia, err, string(b))
	}
	return nil
}

// Probe reads fps and the total frame count of the first video stream.
func (a *Adapter) Probe(ctx context.Context, videoPath string) (types.VideoMeta, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=r_frame_rate,nb_frames",
		"-of", "csv=p=0",
		videoPath,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.VideoMeta{}, fmt.Errorf("%w: ffprobe: %v\n%s", types.ErrVideo, err, string(b))
	}

	fps, total, err := parseProbeOutput(string(b))
	if err != nil {
		return types.VideoMeta{}, fmt.Errorf("%w: %v", types.ErrVideo, err)
	}
	if total <= 0 {
		// Some containers omit nb_frames; count packets instead.
		total, err = a.countPackets(ctx, videoPath)
		if err != nil {
			return types.VideoMeta{}, err
		}
	}

	meta, err := types.NewVideoMeta(fps, total)
	if err != nil {
		return types.VideoMeta{}, fmt.Errorf("%w: %s: %v", types.ErrVideo, videoPath, err)
	}
	return meta, nil
}

// ExtractFrame seeks to the exact frame index and writes it as a JPEG.
func (a *Adapter) ExtractFrame(ctx context.Context, videoPath string, frameIndex int, outJPG string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", videoPath,
		"-vf", fmt.Sprintf("select=eq(n\\,%d)", frameIndex),
		"-vframes", "1",
		outJPG,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract frame %d: %w\n%s", frameIndex, err, string(b))
	}
	// ffmpeg exits zero but writes nothing when the select filter matched no
	// frame; treat that as a read failure.
	if fi, err := os.Stat(outJPG); err != nil || fi.Size() == 0 {
		return fmt.Errorf("ffmpeg extract frame %d: no frame decoded", frameIndex)
	}
	return nil
}

func (a *Adapter) countPackets(ctx context.Context, videoPath string) (int, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-count_packets",
		"-show_entries", "stream=nb_read_packets",
		"-of", "csv=p=0",
		videoPath,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("%w: ffprobe count packets: %v\n%s", types.ErrVideo, err, string(b))
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("%w: parse packet count %q: %v", types.ErrVideo, strings.TrimSpace(string(b)), err)
	}
	return n, nil
}

// parseProbeOutput parses "num/den,frames" as printed by ffprobe. A missing
// or "N/A" frame count is returned as zero, not an error.
func parseProbeOutput(out string) (fps float64, totalFrames int, err error) {
	fields := strings.Split(strings.TrimSpace(out), ",")
	if len(fields) == 0 || fields[0] == "" {
		return 0, 0, fmt.Errorf("empty ffprobe output")
	}

	fps, err = parseRate(fields[0])
	if err != nil {
		return 0, 0, err
	}

	if len(fields) > 1 {
		raw := strings.TrimSpace(fields[1])
		if raw != "" && raw != "N/A" {
			totalFrames, err = strconv.Atoi(raw)
			if err != nil {
				return 0, 0, fmt.Errorf("parse frame count %q: %w", raw, err)
			}
		}
	}
	return fps, totalFrames, nil
}

func parseRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, fmt.Errorf("parse frame rate %q: %w", s, err)
		}
		d, err := strconv.ParseFloat(den, 64)
		if err != nil || d == 0 {
			return 0, fmt.Errorf("parse frame rate %q: zero or invalid denominator", s)
		}
		return n / d, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse frame rate %q: %w", s, err)
	}
	return f, nil
}
