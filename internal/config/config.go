// Package config loads environment configuration and resolves the per-stage
// LLM credentials.
package config

import (
	"github.com/caarlos0/env/v11"
)

// Env is the raw environment configuration. Every LLM stage can override the
// global OpenAI-compatible endpoint and model independently.
type Env struct {
	DashScopeAPIKey string `env:"DASHSCOPE_API_KEY"`
	DashScopeModel  string `env:"DASHSCOPE_ASR_MODEL" envDefault:"fun-asr-realtime"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"http://localhost:8000/v1"`

	APIKeyVideoAnalysis  string `env:"OPENAI_API_KEY_VIDEO_ANALYSIS"`
	BaseURLVideoAnalysis string `env:"OPENAI_BASE_URL_VIDEO_ANALYSIS"`
	ModelVideoAnalysis   string `env:"LLM_MODEL_VIDEO_ANALYSIS"`

	APIKeyObjectDescription  string `env:"OPENAI_API_KEY_OBJECT_DESCRIPTION"`
	BaseURLObjectDescription string `env:"OPENAI_BASE_URL_OBJECT_DESCRIPTION"`
	ModelObjectDescription   string `env:"LLM_MODEL_OBJECT_DESCRIPTION"`

	APIKeyObjectLocation  string `env:"OPENAI_API_KEY_OBJECT_LOCATION"`
	BaseURLObjectLocation string `env:"OPENAI_BASE_URL_OBJECT_LOCATION"`
	ModelObjectLocation   string `env:"LLM_MODEL_OBJECT_LOCATION"`

	// LLMModel, when set, forces the same model for every stage.
	LLMModel string `env:"LLM_MODEL"`

	SamplingIntervalMS int64  `env:"SAMPLING_INTERVAL_MS" envDefault:"300"`
	OutputDir          string `env:"OUTPUT_DIR" envDefault:"outputs"`
	LogLevel           string `env:"LOG_LEVEL" envDefault:"info"`

	FFmpegPath  string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	FFprobePath string `env:"FFPROBE_PATH" envDefault:"ffprobe"`
}

func Load() (Env, error) {
	cfg := Env{}
	if err := env.Parse(&cfg); err != nil {
		return Env{}, err
	}
	return cfg, nil
}

// Fallback models per stage when neither a stage model nor LLM_MODEL is set.
const (
	DefaultModelVideoAnalysis     = "gemini-2.5-pro"
	DefaultModelObjectDescription = "gemini-2.5-pro"
	DefaultModelObjectLocation    = "qwen3-vl-235b-a22b-instruct"
)

// StageCredentials is one resolved (api key, base URL, model) triple.
type StageCredentials struct {
	APIKey  string
	BaseURL string
	Model   string
}

// ResolveStage applies the override cascade once: stage-specific value,
// then global default, then hard-coded fallback. A non-empty unified model
// wins over both the stage model and the fallback.
func ResolveStage(stageKey, stageURL, stageModel, defaultKey, defaultURL, unifiedModel, fallbackModel string) StageCredentials {
	c := StageCredentials{
		APIKey:  firstNonEmpty(stageKey, defaultKey),
		BaseURL: firstNonEmpty(stageURL, defaultURL),
	}
	if unifiedModel != "" {
		c.Model = unifiedModel
	} else {
		c.Model = firstNonEmpty(stageModel, fallbackModel)
	}
	return c
}

// VideoAnalysis resolves the scene-description stage credentials.
func (e Env) VideoAnalysis() StageCredentials {
	return ResolveStage(e.APIKeyVideoAnalysis, e.BaseURLVideoAnalysis, e.ModelVideoAnalysis,
		e.OpenAIAPIKey, e.OpenAIBaseURL, e.LLMModel, DefaultModelVideoAnalysis)
}

// ObjectDescription resolves the object-extraction stage credentials.
func (e Env) ObjectDescription() StageCredentials {
	return ResolveStage(e.APIKeyObjectDescription, e.BaseURLObjectDescription, e.ModelObjectDescription,
		e.OpenAIAPIKey, e.OpenAIBaseURL, e.LLMModel, DefaultModelObjectDescription)
}

// ObjectLocation resolves the object-localization stage credentials.
func (e Env) ObjectLocation() StageCredentials {
	return ResolveStage(e.APIKeyObjectLocation, e.BaseURLObjectLocation, e.ModelObjectLocation,
		e.OpenAIAPIKey, e.OpenAIBaseURL, e.LLMModel, DefaultModelObjectLocation)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
