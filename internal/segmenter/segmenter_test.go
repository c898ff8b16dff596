package segmenter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jetteezhou/PhysVLM-Intent/internal/types"
)

type fakeMedia struct {
	convertErr error
	monoPaths  []string // destination of every conversion call
}

func (f *fakeMedia) ExtractAudioMono16k(_ context.Context, _, outMP3 string) error {
	f.monoPaths = append(f.monoPaths, outMP3)
	if f.convertErr != nil {
		return f.convertErr
	}
	return os.WriteFile(outMP3, []byte("mp3"), 0o644)
}

func (f *fakeMedia) ExtractVideoNoAudio(_ context.Context, _, _ string) error { return nil }
func (f *fakeMedia) Probe(_ context.Context, _ string) (types.VideoMeta, error) {
	return types.VideoMeta{}, nil
}
func (f *fakeMedia) ExtractFrame(_ context.Context, _ string, _ int, _ string) error { return nil }

type fakeASR struct {
	words []types.WordToken
	err   error
}

func (f fakeASR) Transcribe(_ context.Context, _ string) ([]types.WordToken, error) {
	return f.words, f.err
}

func audioFixture(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "audio.mp3")
	require.NoError(t, os.WriteFile(p, []byte("audio"), 0o644))
	return p
}

func TestTranscribe(t *testing.T) {
	media := &fakeMedia{}
	want := []types.WordToken{{Text: "hello", BeginTimeMS: 0, EndTimeMS: 400}}
	s := New(media, fakeASR{words: want}, nil)

	words, err := s.Transcribe(context.Background(), audioFixture(t))
	require.NoError(t, err)
	assert.Equal(t, want, words)

	// The intermediate mono file is removed before returning.
	require.Len(t, media.monoPaths, 1)
	assert.NoFileExists(t, media.monoPaths[0])
}

func TestTranscribe_MissingAudio(t *testing.T) {
	s := New(&fakeMedia{}, fakeASR{}, nil)

	_, err := s.Transcribe(context.Background(), filepath.Join(t.TempDir(), "nope.mp3"))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrRecognition)
}

func TestTranscribe_ConversionFailure(t *testing.T) {
	media := &fakeMedia{convertErr: fmt.Errorf("%w: ffmpeg exploded", types.ErrMedia)}
	s := New(media, fakeASR{}, nil)

	_, err := s.Transcribe(context.Background(), audioFixture(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrRecognition)
}

func TestTranscribe_ASRFailureStillCleansUp(t *testing.T) {
	media := &fakeMedia{}
	s := New(media, fakeASR{err: fmt.Errorf("%w: api down", types.ErrRecognition)}, nil)

	_, err := s.Transcribe(context.Background(), audioFixture(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrRecognition)

	require.Len(t, media.monoPaths, 1)
	assert.NoFileExists(t, media.monoPaths[0])
}

func TestTranscribe_EmptyResult(t *testing.T) {
	s := New(&fakeMedia{}, fakeASR{words: nil}, nil)

	_, err := s.Transcribe(context.Background(), audioFixture(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrRecognition))
}
