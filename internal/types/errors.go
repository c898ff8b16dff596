package types

import (
	"errors"
	"fmt"
)

// Error taxonomy for the pipeline. Stage code wraps these sentinels so the
// orchestrator and callers can classify failures with errors.Is.
var (
	// ErrMedia covers demux/transcode subprocess failures and missing inputs.
	ErrMedia = errors.New("media error")
	// ErrRecognition covers ASR being unavailable, empty, or malformed.
	ErrRecognition = errors.New("recognition error")
	// ErrVideo covers a video that cannot be opened, has zero frames, an
	// empty word list, or a failed terminal-frame read.
	ErrVideo = errors.New("video error")
	// ErrModel covers an external LLM call that failed outright.
	ErrModel = errors.New("model error")
	// ErrParse covers structured data missing from a model response.
	ErrParse = errors.New("parse error")
)

// StageError names the pipeline stage a failure originated from. Stages are
// strictly sequential, so one StageError describes the whole run's outcome.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
