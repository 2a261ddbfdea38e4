// Package mt implements the Translate backend adapter on top of
// chat-completion-shaped LLM HTTP APIs, turning a one-shot translation
// instruction into a request in each provider's native shape.
package mt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/lokutor-ai/lokutor-interpreter/pkg/providers"
	"golang.org/x/text/width"
)

const systemPrompt = "You are a professional simultaneous interpreter. Translate the user's text from %s to %s. Reply with only the translation, nothing else."

// Anthropic implements providers.Translator against the Claude messages API.
type Anthropic struct {
	apiKey string
	url    string
	model  string
	client *http.Client
}

// NewAnthropic constructs an Anthropic MT adapter. model defaults to
// "claude-3-5-sonnet-20240620".
func NewAnthropic(apiKey, model string) *Anthropic {
	if model == "" {
		model = "claude-3-5-sonnet-20240620"
	}
	return &Anthropic{
		apiKey: apiKey,
		url:    "https://api.anthropic.com/v1/messages",
		model:  model,
		client: http.DefaultClient,
	}
}

func (a *Anthropic) Name() string { return "anthropic-mt" }

// Translate implements providers.Translator.
func (a *Anthropic) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if sourceLang == targetLang {
		return text, nil
	}

	normalized := width.Fold.String(text)

	payload := map[string]any{
		"model":      a.model,
		"max_tokens": 1024,
		"system":     fmt.Sprintf(systemPrompt, sourceLang, targetLang),
		"messages": []map[string]string{
			{"role": "user", "content": normalized},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp any
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("anthropic mt error (status %d): %v", resp.StatusCode, errResp)
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("no content returned from anthropic")
	}

	return providers.CleanTranslation(result.Content[0].Text), nil
}
