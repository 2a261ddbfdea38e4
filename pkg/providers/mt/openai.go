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

// OpenAI implements providers.Translator against the chat completions API.
type OpenAI struct {
	apiKey string
	url    string
	model  string
	client *http.Client
}

// NewOpenAI constructs an OpenAI MT adapter. model defaults to "gpt-4o".
func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAI{
		apiKey: apiKey,
		url:    "https://api.openai.com/v1/chat/completions",
		model:  model,
		client: http.DefaultClient,
	}
}

func (o *OpenAI) Name() string { return "openai-mt" }

func (o *OpenAI) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if sourceLang == targetLang {
		return text, nil
	}

	normalized := width.Fold.String(text)

	payload := map[string]any{
		"model": o.model,
		"messages": []map[string]string{
			{"role": "system", "content": fmt.Sprintf(systemPrompt, sourceLang, targetLang)},
			{"role": "user", "content": normalized},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp any
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("openai mt error (status %d): %v", resp.StatusCode, errResp)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from openai")
	}

	return providers.CleanTranslation(result.Choices[0].Message.Content), nil
}
