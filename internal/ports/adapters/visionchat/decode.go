package visionchat

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jetteezhou/PhysVLM-Intent/internal/ports"
	"github.com/jetteezhou/PhysVLM-Intent/internal/types"
)

// The model answers are free text; these decoders isolate the brittle
// text-extraction logic so it stays testable without network calls.

var (
	descriptionRE = regexp.MustCompile(`<description>(.*?)</description>`)
	jsonObjectRE  = regexp.MustCompile(`(?s)\{.*\}`)

	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

// ExtractDescriptions returns every <description>...</description> match in
// order of appearance. No match yields an empty slice, not an error: zero
// extracted objects is a valid (if useless) model answer.
func ExtractDescriptions(content string) []string {
	matches := descriptionRE.FindAllStringSubmatch(content, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// DecodePointResponse strips code fences, takes the first {...} span in the
// reply and parses it as {"point": [y,x], "label": "..."}. Anything else is
// a parse error carrying the raw text for diagnosis.
func DecodePointResponse(content string) (ports.PointResponse, error) {
	cleaned := stripCodeFences(content)

	span := jsonObjectRE.FindString(cleaned)
	if span == "" {
		return ports.PointResponse{}, fmt.Errorf("%w: no JSON object in response: %q", types.ErrParse, truncate(content, 300))
	}

	var raw struct {
		Point []int  `json:"point"`
		Label string `json:"label"`
	}
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return ports.PointResponse{}, fmt.Errorf("%w: decode point JSON: %v: %q", types.ErrParse, err, truncate(span, 300))
	}
	if len(raw.Point) != 2 {
		return ports.PointResponse{}, fmt.Errorf("%w: point has %d components, want 2: %q", types.ErrParse, len(raw.Point), truncate(span, 300))
	}
	for _, c := range raw.Point {
		if c < 0 || c > 1000 {
			return ports.PointResponse{}, fmt.Errorf("%w: point component %d outside [0,1000]: %q", types.ErrParse, c, truncate(span, 300))
		}
	}

	return ports.PointResponse{Point: [2]int{raw.Point[0], raw.Point[1]}, Label: raw.Label}, nil
}

func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

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
