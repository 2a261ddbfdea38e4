package stt

import (
	"context"
	"testing"

	"github.com/lokutor-ai/lokutor-interpreter/pkg/providers"
)

func TestOpenAITranscribeShortCircuitsOnSilence(t *testing.T) {
	s := NewOpenAI("test-key", "")
	silence := make([]float32, 16000)
	text, conf, err := s.Transcribe(context.Background(), silence, "en")
	if err != nil {
		t.Fatal(err)
	}
	if text != "" || conf != 0 {
		t.Fatalf("expected empty result for silence without a network call, got (%q, %f)", text, conf)
	}
}

func TestGroqTranscribeShortCircuitsOnSilence(t *testing.T) {
	s := NewGroq("test-key", "")
	silence := make([]float32, 16000)
	text, conf, err := s.Transcribe(context.Background(), silence, "en")
	if err != nil {
		t.Fatal(err)
	}
	if text != "" || conf != 0 {
		t.Fatalf("expected empty result for silence without a network call, got (%q, %f)", text, conf)
	}
}

func TestFloatsToPCM16RoundTrip(t *testing.T) {
	samples := []float32{0, 0.5, -0.5}
	pcm := floatsToPCM16(samples)
	if len(pcm) != 6 {
		t.Fatalf("expected 6 bytes for 3 samples, got %d", len(pcm))
	}
	back := providers.PCM16ToFloat32(pcm)
	for i, want := range samples {
		if back[i] != want {
			t.Fatalf("sample %d: expected %f after round trip, got %f", i, want, back[i])
		}
	}
}
