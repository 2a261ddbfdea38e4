package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/lokutor-ai/lokutor-interpreter/pkg/audio"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/providers"
)

// Groq implements providers.Transcriber against Groq's Whisper-compatible
// transcriptions endpoint.
type Groq struct {
	apiKey     string
	url        string
	model      string
	sampleRate int
	client     *http.Client
}

// NewGroq constructs a Groq STT adapter. model defaults to
// "whisper-large-v3-turbo".
func NewGroq(apiKey, model string) *Groq {
	if model == "" {
		model = "whisper-large-v3-turbo"
	}
	return &Groq{
		apiKey:     apiKey,
		url:        "https://api.groq.com/openai/v1/audio/transcriptions",
		model:      model,
		sampleRate: 16000,
		client:     http.DefaultClient,
	}
}

func (s *Groq) Name() string { return "groq-stt" }

func (s *Groq) Transcribe(ctx context.Context, audioPCM []float32, sourceLanguage string) (string, float64, error) {
	if providers.IsSilence(audioPCM) {
		return "", 0, nil
	}

	wavData := audio.NewWavBuffer(floatsToPCM16(audioPCM), s.sampleRate)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("model", s.model); err != nil {
		return "", 0, err
	}
	if sourceLanguage != "" {
		if err := writer.WriteField("language", sourceLanguage); err != nil {
			return "", 0, err
		}
	}
	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", 0, err
	}
	if _, err := io.Copy(part, bytes.NewReader(wavData)); err != nil {
		return "", 0, err
	}
	if err := writer.Close(); err != nil {
		return "", 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, body)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", 0, fmt.Errorf("groq stt error (status %d): %v", resp.StatusCode, errResp)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", 0, err
	}
	return result.Text, providers.DefaultConfidence, nil
}
