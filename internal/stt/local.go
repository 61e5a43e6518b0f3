package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

// LocalConfig holds configuration for the local whisper.cpp STT backend.
type LocalConfig struct {
	BaseURL string // default: "http://localhost:8178"
}

// LocalEngine transcribes audio against a local whisper.cpp HTTP server.
// Start the server with: ./server -m models/ggml-base.en.bin --port 8178
type LocalEngine struct {
	baseURL    string
	httpClient *http.Client
}

// NewLocalEngine creates a LocalEngine with defaults applied. The HTTP
// client carries no timeout of its own; the caller's ctx bounds each call.
func NewLocalEngine(cfg LocalConfig) *LocalEngine {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:8178"
	}
	return &LocalEngine{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

func (l *LocalEngine) Name() string { return "local-whisper" }

// Transcribe sends the audio file to the whisper.cpp server using a
// multipart upload, mirroring the OpenAI transcription endpoint shape.
func (l *LocalEngine) Transcribe(ctx context.Context, req Request) (*Result, error) {
	f, err := os.Open(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filepath.Base(req.FilePath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err = io.Copy(fw, f); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}

	_ = mw.WriteField("response_format", "verbose_json")
	if req.Language != "" {
		_ = mw.WriteField("language", req.Language)
	}
	if req.Prompt != "" {
		_ = mw.WriteField("prompt", req.Prompt)
	}

	if err = mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", l.baseURL+"/inference", &body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := l.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcription failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	var apiResp struct {
		Text     string  `json:"text"`
		Language string  `json:"language"`
		Duration float64 `json:"duration"`
	}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	return &Result{
		Text:     apiResp.Text,
		Language: apiResp.Language,
		Duration: apiResp.Duration,
	}, nil
}
