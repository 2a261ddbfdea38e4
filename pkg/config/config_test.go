package config

import (
	"strings"
	"testing"
)

func TestLoadFromReaderAppliesDefaultsWhenYAMLOmitsFields(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(`server:
  listen_addr: ":9000"
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.ListenAddr != ":9000" {
		t.Fatalf("expected overridden listen_addr, got %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.WorkerCap != 32 {
		t.Fatalf("expected default worker cap to survive partial YAML, got %d", cfg.Server.WorkerCap)
	}
	if cfg.Audio.SilenceMs != 350 {
		t.Fatalf("expected default silence_ms to survive partial YAML, got %d", cfg.Audio.SilenceMs)
	}
}

func TestEnvOverridesAPIKeys(t *testing.T) {
	t.Setenv("INTERPRETER_STT_API_KEY", "sk-test-stt")
	cfg, err := LoadFromReader(strings.NewReader(`backends:
  stt:
    name: openai
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backends.STT.APIKey != "sk-test-stt" {
		t.Fatalf("expected env override to populate API key, got %q", cfg.Backends.STT.APIKey)
	}
	if cfg.Backends.STT.Name != "openai" {
		t.Fatalf("expected YAML-supplied name to survive, got %q", cfg.Backends.STT.Name)
	}
}

func TestDefaultMatchesSpecConfigurationValues(t *testing.T) {
	d := Default()
	if d.Audio.SampleRate != 16000 || d.Audio.ChunkMs != 1500 || d.Audio.SentenceMaxMs != 2500 {
		t.Fatal("expected default audio config to match the spec's fixed constants")
	}
	if d.Audio.VADAggressiveness != 2 {
		t.Fatal("expected default VAD aggressiveness of 2")
	}
}
