// Package dashscope calls the DashScope speech-recognition API to turn a
// mono/16k mp3 file into word tokens with millisecond timestamps.
package dashscope

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/jetteezhou/PhysVLM-Intent/internal/types"
)

const (
	defaultBaseURL = "https://dashscope.aliyuncs.com"
	defaultModel   = "fun-asr-realtime"

	audioFormat     = "mp3"
	audioSampleRate = 16000

	requestTimeout = 2 * time.Minute
)

type Adapter struct {
	key     string
	model   string
	baseURL string
	client  *http.Client
}

func New(apiKey, model, baseURL string) *Adapter {
	if model == "" {
		model = defaultModel
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		key:     apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// Sentence is one recognized sentence with its word-level timing array.
type Sentence struct {
	Text  string `json:"text"`
	Words []struct {
		Text      string `json:"text"`
		BeginTime int64  `json:"begin_time"`
		EndTime   int64  `json:"end_time"`
	} `json:"words"`
}

// Transcribe implements ports.ASR using the words of the first returned
// sentence. An empty or failed recognition is an error; the caller decides
// whether that aborts a whole batch or just one video.
func (a *Adapter) Transcribe(ctx context.Context, audioPath string) ([]types.WordToken, error) {
	sentences, err := a.Recognize(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	if len(sentences) == 0 || len(sentences[0].Words) == 0 {
		return nil, fmt.Errorf("%w: recognition result is empty", types.ErrRecognition)
	}

	words := make([]types.WordToken, 0, len(sentences[0].Words))
	for _, w := range sentences[0].Words {
		tok, err := types.NewWordToken(w.Text, w.BeginTime, w.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrRecognition, err)
		}
		words = append(words, tok)
	}
	return words, nil
}

// Recognize runs one synchronous recognition call and returns every sentence
// the service produced.
func (a *Adapter) Recognize(ctx context.Context, audioPath string) ([]Sentence, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read audio %s: %v", types.ErrRecognition, audioPath, err)
	}

	payload := map[string]any{
		"model": a.model,
		"input": map[string]any{
			"format":      audioFormat,
			"sample_rate": audioSampleRate,
			"audio":       base64.StdEncoding.EncodeToString(audio),
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := a.baseURL + "/api/v1/services/audio/asr/transcription"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: dashscope request: %v", types.ErrRecognition, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("%w: dashscope status %d and read body failed: %v", types.ErrRecognition, resp.StatusCode, readErr)
		}
		return nil, fmt.Errorf("%w: dashscope status %d: %s", types.ErrRecognition, resp.StatusCode, truncate(redactSecrets(string(rb), a.key), 400))
	}

	var raw struct {
		RequestID string `json:"request_id"`
		Output    struct {
			Sentence []Sentence `json:"sentence"`
		} `json:"output"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode dashscope response: %v", types.ErrRecognition, err)
	}
	return raw.Output.Sentence, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

// redactSecrets scrubs the api key and credential-shaped fields out of
// response bodies before they end up in error messages.
func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
