// Package stt implements the Transcribe backend adapter against
// OpenAI-compatible and Groq Whisper HTTP endpoints.
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

// OpenAI implements providers.Transcriber against the OpenAI transcriptions
// endpoint.
type OpenAI struct {
	apiKey     string
	url        string
	model      string
	sampleRate int
	client     *http.Client
}

// NewOpenAI constructs an OpenAI STT adapter. model defaults to "whisper-1".
func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = "whisper-1"
	}
	return &OpenAI{
		apiKey:     apiKey,
		url:        "https://api.openai.com/v1/audio/transcriptions",
		model:      model,
		sampleRate: 16000,
		client:     http.DefaultClient,
	}
}

func (s *OpenAI) Name() string { return "openai-stt" }

// Transcribe implements providers.Transcriber. Silence short-circuits before
// any network call, per the Backend Adapter contract.
func (s *OpenAI) Transcribe(ctx context.Context, audioPCM []float32, sourceLanguage string) (string, float64, error) {
	if providers.IsSilence(audioPCM) {
		return "", 0, nil
	}

	pcm16 := floatsToPCM16(audioPCM)
	wavData := audio.NewWavBuffer(pcm16, s.sampleRate)

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
	if _, err := part.Write(wavData); err != nil {
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
		respBody, _ := io.ReadAll(resp.Body)
		return "", 0, fmt.Errorf("openai stt error (status %d): %s", resp.StatusCode, respBody)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", 0, err
	}
	return result.Text, providers.DefaultConfidence, nil
}

func floatsToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, f := range samples {
		s := int16(f * 32768.0)
		out[2*i] = byte(uint16(s))
		out[2*i+1] = byte(uint16(s) >> 8)
	}
	return out
}
