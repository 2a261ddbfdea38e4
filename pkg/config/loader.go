package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path, overlays it on Default,
// and applies the STT/MT/TTS API key environment-variable overrides.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader decodes YAML from r on top of Default(), then applies
// environment-variable secret overrides. Useful in tests.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides reads provider API keys from the environment, mirroring
// the teacher's .env-sourced-secrets pattern, generalized to three backend
// slots instead of one.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INTERPRETER_STT_API_KEY"); v != "" {
		cfg.Backends.STT.APIKey = v
	}
	if v := os.Getenv("INTERPRETER_MT_API_KEY"); v != "" {
		cfg.Backends.MT.APIKey = v
	}
	if v := os.Getenv("INTERPRETER_TTS_API_KEY"); v != "" {
		cfg.Backends.TTS.APIKey = v
	}
}
