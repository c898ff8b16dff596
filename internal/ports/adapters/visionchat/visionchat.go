// Package visionchat talks to an OpenAI-compatible chat-completions endpoint
// with multimodal messages (text plus base64-inlined JPEG frames). The
// pipeline builds one Adapter per LLM stage, each with its own resolved
// (api key, base URL, model) triple.
package visionchat

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jetteezhou/PhysVLM-Intent/internal/ports"
	"github.com/jetteezhou/PhysVLM-Intent/internal/types"
)

const (
	defaultBaseURL = "http://localhost:8000/v1"

	requestTimeout = 5 * time.Minute
)

const (
	sceneSystemPrompt = "You are a professional video analyst. Based on the video content, " +
		"analyze the person's intent and actions, and describe in detail the objects " +
		"involved in carrying out that intent."

	extractSystemPrompt = "You are an expert at extracting semantic structure. From the given " +
		"video description, extract the most recognizable concise descriptions of the 2 objects " +
		"involved in the person's intent. Answer in exactly this format: " +
		"<description>concise description of object 1</description>" +
		"<description>concise description of object 2</description>"

	locatePromptFormat = "Point to object: %s in the image. The label returned should be an " +
		"identifying name for the object detected. The answer should follow the json format: " +
		`{"point": <point>, "label": <label>}. The point is in [y, x] format normalized to 0-1000.`
)

type Adapter struct {
	key     string
	model   string
	baseURL string
	client  *http.Client
}

func New(apiKey, model, baseURL string) *Adapter {
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

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []contentPart
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// DescribeScene sends one multimodal prompt: per frame group a text label
// (the word) followed by every frame in that group as an inline image. An
// empty group contributes only its label.
func (a *Adapter) DescribeScene(ctx context.Context, groups []types.FrameGroup) (string, error) {
	msgs := []message{{Role: "system", Content: sceneSystemPrompt}}
	for _, g := range groups {
		parts := []contentPart{{Type: "text", Text: "\n" + g.Word.Text + ":"}}
		for _, p := range g.FramePaths {
			url, err := imageDataURL(p)
			if err != nil {
				return "", fmt.Errorf("%w: %v", types.ErrModel, err)
			}
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: url}})
		}
		msgs = append(msgs, message{Role: "user", Content: parts})
	}

	content, err := a.complete(ctx, msgs)
	if err != nil {
		return "", err
	}
	return content, nil
}

// ExtractObjectDescriptions scans every <description> tag in the model
// answer. The two-object cap lives in the prompt, not here; however many
// descriptions come back are returned in order.
func (a *Adapter) ExtractObjectDescriptions(ctx context.Context, videoDescription string) ([]string, error) {
	msgs := []message{
		{Role: "system", Content: extractSystemPrompt},
		{Role: "user", Content: []contentPart{{Type: "text", Text: videoDescription}}},
	}
	content, err := a.complete(ctx, msgs)
	if err != nil {
		return nil, err
	}
	return ExtractDescriptions(content), nil
}

// LocateObject asks the model to point at one described object in the image
// and decodes the {point, label} JSON from the reply.
func (a *Adapter) LocateObject(ctx context.Context, objectDescription, imagePath string) (ports.PointResponse, error) {
	url, err := imageDataURL(imagePath)
	if err != nil {
		return ports.PointResponse{}, fmt.Errorf("%w: %v", types.ErrModel, err)
	}
	msgs := []message{{
		Role: "user",
		Content: []contentPart{
			{Type: "text", Text: fmt.Sprintf(locatePromptFormat, objectDescription)},
			{Type: "image_url", ImageURL: &imageURL{URL: url}},
		},
	}}

	content, err := a.complete(ctx, msgs)
	if err != nil {
		return ports.PointResponse{}, err
	}
	return DecodePointResponse(content)
}

// complete runs one blocking chat-completions call and returns the first
// choice's text content. No retry: a failed call is the stage's failure.
func (a *Adapter) complete(ctx context.Context, msgs []message) (string, error) {
	payload := map[string]any{
		"model":    a.model,
		"stream":   false,
		"messages": msgs,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: chat request (model=%s): %v", types.ErrModel, a.model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return "", fmt.Errorf("%w: status %d and read body failed: %v", types.ErrModel, resp.StatusCode, readErr)
		}
		return "", fmt.Errorf("%w: status %d: %s", types.ErrModel, resp.StatusCode, truncate(redactSecrets(string(rb), a.key), 400))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content any `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", types.ErrModel, err)
	}
	if len(raw.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", types.ErrModel)
	}

	content, err := messageContentToString(raw.Choices[0].Message.Content)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrModel, err)
	}
	return content, nil
}

func messageContentToString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []any:
		// Some providers return an array of {type,text} parts.
		var b strings.Builder
		for _, it := range x {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := m["text"].(string); ok {
				b.WriteString(t)
			}
		}
		s := b.String()
		if strings.TrimSpace(s) == "" {
			return "", fmt.Errorf("empty content")
		}
		return s, nil
	default:
		return "", fmt.Errorf("unexpected content type %T", v)
	}
}

func imageDataURL(imagePath string) (string, error) {
	b, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("read image %s: %w", imagePath, err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(b), nil
}
