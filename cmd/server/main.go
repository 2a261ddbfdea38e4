// Command server is the entry point for the interpreter websocket server: it
// loads configuration, wires the selected STT/MT/TTS backends, and accepts
// one Session Servicer per connection until asked to shut down.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/coder/websocket"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/lokutor-ai/lokutor-interpreter/pkg/config"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/interpreter"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/logging"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/metrics"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/pipeline"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/providers"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/providers/mt"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/providers/stt"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/providers/tts"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/roomcache"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/session"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/transport"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/vad"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "interpreter: config file %q not found, using built-in defaults\n", *configPath)
		cfg, err = config.LoadFromReader(strings.NewReader(""))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "interpreter: %v\n", err)
		return 1
	}

	logger := logging.NewSlog(parseLevel(cfg.Server.LogLevel))

	for lang, voice := range cfg.Voice.Overrides {
		providers.VoiceTable[lang] = voice
	}

	meterProvider := sdkmetric.NewMeterProvider()
	defer meterProvider.Shutdown(context.Background())
	m, err := metrics.New(meterProvider)
	if err != nil {
		logger.Error("failed to build metrics", "err", err)
		return 1
	}

	sttBackend, err := buildSTT(cfg.Backends.STT)
	if err != nil {
		logger.Error("failed to build stt backend", "err", err)
		return 1
	}
	mtBackend, err := buildMT(cfg.Backends.MT)
	if err != nil {
		logger.Error("failed to build mt backend", "err", err)
		return 1
	}
	ttsBackend, err := buildTTS(cfg.Backends.TTS)
	if err != nil {
		logger.Error("failed to build tts backend", "err", err)
		return 1
	}

	cache := roomcache.New()
	backends := pipeline.NewBackends(sttBackend, mtBackend, ttsBackend)
	orch := pipeline.New(backends, cache, pipeline.WithMetrics(m), pipeline.WithLogger(logger))

	registry := session.NewRegistry()
	vadTemplate := vad.New(cfg.Audio.VADAggressiveness, cfg.Audio.SilenceRMS, cfg.Audio.SilenceMs)
	svc := interpreter.New(registry, cache, orch, vadTemplate, logger, m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sem := make(chan struct{}, cfg.Server.WorkerCap)
	var wg sync.WaitGroup

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/stream", func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}:
		default:
			http.Error(w, "server at capacity", http.StatusServiceUnavailable)
			return
		}
		defer func() { <-sem }()

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			logger.Warn("websocket accept failed", "err", err)
			return
		}

		wg.Add(1)
		defer wg.Done()
		stream := transport.NewWSStream(conn)
		if err := svc.Run(r.Context(), stream); err != nil {
			logger.Warn("session servicer exited with error", "err", err)
		}
	})
	mux.HandleFunc("/v1/sessions/{sessionID}/participants", func(w http.ResponseWriter, r *http.Request) {
		handleUpdateParticipantSettings(w, r, registry)
	})

	httpServer := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownGraceSeconds)*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("interpreter server listening", "addr", cfg.Server.ListenAddr, "worker_cap", cfg.Server.WorkerCap)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
		return 1
	}

	inFlightDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(inFlightDone)
	}()
	interpreter.GracefulShutdown(context.Background(), time.Duration(cfg.Server.ShutdownGraceSeconds)*time.Second, inFlightDone)
	logger.Info("goodbye")
	return 0
}

// updateParticipantSettingsRequest is the body of the unary
// UpdateParticipantSettings RPC (spec.md §6): a participant changing their
// preferred target language or toggling translation on/off mid-session.
type updateParticipantSettingsRequest struct {
	ParticipantID      string `json:"participant_id"`
	TargetLanguage     string `json:"target_language"`
	TranslationEnabled bool   `json:"translation_enabled"`
}

func handleUpdateParticipantSettings(w http.ResponseWriter, r *http.Request, registry *session.Registry) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sessionID := r.PathValue("sessionID")

	var req updateParticipantSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	if ok := registry.UpdateParticipantSettings(sessionID, req.ParticipantID, req.TargetLanguage, req.TranslationEnabled); !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func buildSTT(p config.ProviderEntry) (providers.Transcriber, error) {
	name := p.Name
	if name == "" {
		name = "groq"
	}
	switch name {
	case "openai":
		if p.APIKey == "" {
			return nil, errors.New("INTERPRETER_STT_API_KEY must be set for openai STT")
		}
		model := p.Model
		if model == "" {
			model = "whisper-1"
		}
		return stt.NewOpenAI(p.APIKey, model), nil
	case "groq":
		if p.APIKey == "" {
			return nil, errors.New("INTERPRETER_STT_API_KEY must be set for groq STT")
		}
		model := p.Model
		if model == "" {
			model = "whisper-large-v3-turbo"
		}
		return stt.NewGroq(p.APIKey, model), nil
	default:
		return nil, fmt.Errorf("unknown stt backend %q", name)
	}
}

func buildMT(p config.ProviderEntry) (providers.Translator, error) {
	name := p.Name
	if name == "" {
		name = "anthropic"
	}
	switch name {
	case "anthropic":
		if p.APIKey == "" {
			return nil, errors.New("INTERPRETER_MT_API_KEY must be set for anthropic MT")
		}
		model := p.Model
		if model == "" {
			model = "claude-3-5-sonnet-20241022"
		}
		return mt.NewAnthropic(p.APIKey, model), nil
	case "openai":
		if p.APIKey == "" {
			return nil, errors.New("INTERPRETER_MT_API_KEY must be set for openai MT")
		}
		model := p.Model
		if model == "" {
			model = "gpt-4o"
		}
		return mt.NewOpenAI(p.APIKey, model), nil
	default:
		return nil, fmt.Errorf("unknown mt backend %q", name)
	}
}

func buildTTS(p config.ProviderEntry) (providers.Synthesizer, error) {
	name := p.Name
	if name == "" {
		name = "lokutor"
	}
	switch name {
	case "lokutor":
		if p.APIKey == "" {
			return nil, errors.New("INTERPRETER_TTS_API_KEY must be set for lokutor TTS")
		}
		return tts.NewLokutor(p.APIKey), nil
	default:
		return nil, fmt.Errorf("unknown tts backend %q", name)
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
