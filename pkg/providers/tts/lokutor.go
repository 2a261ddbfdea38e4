// Package tts implements the Synthesize backend adapter as a websocket
// streaming client, picking a voice per language from the fixed table in
// pkg/providers.
package tts

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/providers"
)

// Lokutor implements providers.Synthesizer over a persistent websocket
// connection, lazily established on first use.
type Lokutor struct {
	apiKey string
	host   string

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewLokutor constructs a Lokutor TTS adapter.
func NewLokutor(apiKey string) *Lokutor {
	return &Lokutor{
		apiKey: apiKey,
		host:   "api.lokutor.com",
	}
}

func (t *Lokutor) Name() string { return "lokutor-tts" }

func (t *Lokutor) getConn(ctx context.Context) (*websocket.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return t.conn, nil
	}

	u := url.URL{Scheme: "wss", Host: t.host, Path: "/ws", RawQuery: "api_key=" + t.apiKey}
	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to lokutor: %w", err)
	}

	t.conn = conn
	return conn, nil
}

// Synthesize implements providers.Synthesizer. durationMs is estimated from
// the accumulated byte count; the wire protocol here does not report one.
func (t *Lokutor) Synthesize(ctx context.Context, text, targetLang string) ([]byte, int, error) {
	var audioBytes []byte
	err := t.StreamSynthesize(ctx, text, targetLang, func(chunk []byte) error {
		audioBytes = append(audioBytes, chunk...)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return audioBytes, providers.EstimateDurationMs(len(audioBytes)), nil
}

// StreamSynthesize synthesizes text and invokes onChunk with each binary
// audio frame as it arrives.
func (t *Lokutor) StreamSynthesize(ctx context.Context, text, targetLang string, onChunk func([]byte) error) error {
	conn, err := t.getConn(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	req := map[string]any{
		"text":    text,
		"voice":   providers.VoiceFor(targetLang),
		"lang":    targetLang,
		"speed":   1.0,
		"steps":   5,
		"version": "versa-1.0",
	}

	if err := wsjson.Write(ctx, conn, req); err != nil {
		t.conn = nil
		conn.Close(websocket.StatusAbnormalClosure, "failed to write json")
		return fmt.Errorf("failed to send synthesis request: %w", err)
	}

	for {
		messageType, payload, err := conn.Read(ctx)
		if err != nil {
			t.conn = nil
			conn.Close(websocket.StatusAbnormalClosure, "failed to read")
			return fmt.Errorf("failed to read from lokutor: %w", err)
		}

		switch messageType {
		case websocket.MessageBinary:
			if err := onChunk(payload); err != nil {
				return err
			}
		case websocket.MessageText:
			msg := string(payload)
			if msg == "EOS" {
				return nil
			}
			if len(msg) >= 4 && msg[:4] == "ERR:" {
				return fmt.Errorf("lokutor error: %s", msg)
			}
		}
	}
}

// Close releases the underlying websocket connection, if any.
func (t *Lokutor) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		err := t.conn.Close(websocket.StatusNormalClosure, "")
		t.conn = nil
		return err
	}
	return nil
}
