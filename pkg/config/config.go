// Package config provides the YAML configuration schema and loader for the
// interpreter server: listen/worker settings, audio/VAD tuning, backend
// selection, and the filler/voice tables.
package config

// Config is the root configuration structure, loaded from a YAML file at
// boot with environment-variable overrides applied to secret fields.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Audio    AudioConfig    `yaml:"audio"`
	Backends BackendsConfig `yaml:"backends"`
	Filler   FillerConfig   `yaml:"filler"`
	Voice    VoiceConfig    `yaml:"voice"`
}

// ServerConfig holds network and scheduling settings.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	WorkerCap  int    `yaml:"worker_cap"`
	LogLevel   string `yaml:"log_level"`
	ShutdownGraceSeconds int `yaml:"shutdown_grace_seconds"`
}

// AudioConfig holds ingress/VAD tuning. Durations are in milliseconds.
type AudioConfig struct {
	SampleRate        int     `yaml:"sample_rate"`
	ChunkMs           int     `yaml:"chunk_ms"`
	SentenceMaxMs     int     `yaml:"sentence_max_ms"`
	SilenceMs         int     `yaml:"silence_ms"`
	SilenceRMS        float64 `yaml:"silence_rms"`
	VADAggressiveness int     `yaml:"vad_aggressiveness"`
}

// ProviderEntry selects a named provider implementation plus its
// credentials and region. APIKey is typically left empty in the YAML file
// and supplied via an environment variable override at load time.
type ProviderEntry struct {
	Name       string `yaml:"name"`
	APIKey     string `yaml:"api_key"`
	Region     string `yaml:"region"`
	Model      string `yaml:"model"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

// BackendsConfig declares the STT/MT/TTS backend selection.
type BackendsConfig struct {
	STT ProviderEntry `yaml:"stt"`
	MT  ProviderEntry `yaml:"mt"`
	TTS ProviderEntry `yaml:"tts"`
}

// FillerConfig carries extra per-language filler interjections. ExtraWords is
// decoded from YAML but not applied: the filler gate consults only the
// compiled-in table (pkg/providers.FillerSet), whatever this holds.
type FillerConfig struct {
	ExtraWords map[string][]string `yaml:"extra_words"`
}

// VoiceConfig overrides the compiled-in language-to-voice table
// (pkg/providers.VoiceTable) on a per-language basis.
type VoiceConfig struct {
	Overrides map[string]string `yaml:"overrides"`
}

// Default returns a Config with the values spec.md's §6 configuration list
// names as defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:           ":9443",
			WorkerCap:            32,
			LogLevel:             "info",
			ShutdownGraceSeconds: 5,
		},
		Audio: AudioConfig{
			SampleRate:        16000,
			ChunkMs:           1500,
			SentenceMaxMs:     2500,
			SilenceMs:         350,
			SilenceRMS:        30,
			VADAggressiveness: 2,
		},
	}
}
