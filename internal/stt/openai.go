package stt

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds configuration for the OpenAI STT backend.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // default: the public OpenAI API
	Model   string // default: "whisper-1"
}

// OpenAIEngine transcribes audio using OpenAI's Whisper API (or a
// compatible endpoint).
type OpenAIEngine struct {
	client *openai.Client
	model  string
}

// NewOpenAIEngine creates an OpenAIEngine with sensible defaults applied.
func NewOpenAIEngine(cfg OpenAIConfig) *OpenAIEngine {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAIEngine{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}
}

func (o *OpenAIEngine) Name() string { return "openai-whisper" }

func (o *OpenAIEngine) Transcribe(ctx context.Context, req Request) (*Result, error) {
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.model,
		FilePath: req.FilePath,
		Language: req.Language,
		Prompt:   req.Prompt,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}

	return &Result{
		Text:     resp.Text,
		Language: resp.Language,
		Duration: resp.Duration,
	}, nil
}
