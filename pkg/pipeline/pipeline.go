// Package pipeline implements the Pipeline Orchestrator: it drives one
// finalized audio segment through STT, per-target MT, and per-target TTS,
// deduplicating work via the room cache and emitting transcript/audio
// messages in the order spec.md's ordering guarantee requires.
package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lokutor-ai/lokutor-interpreter/pkg/logging"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/metrics"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/providers"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/resilience"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/roomcache"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/session"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/transport"
)

const (
	minTextRunes   = 1  // texts at or below this length get no translation
	minTTSRunes    = 2  // translations shorter than this are not synthesized
	ttsSampleRate  = 24000
	ttsFormat      = "mp3"
)

// Backends bundles the three adapters the Pipeline drives, each wrapped in
// its own circuit breaker.
type Backends struct {
	STT providers.Transcriber
	MT  providers.Translator
	TTS providers.Synthesizer

	sttBreaker *resilience.Breaker
	mtBreaker  *resilience.Breaker
	ttsBreaker *resilience.Breaker
}

// NewBackends wraps the given adapters with fresh circuit breakers.
func NewBackends(stt providers.Transcriber, mt providers.Translator, tts providers.Synthesizer) *Backends {
	return &Backends{
		STT:        stt,
		MT:         mt,
		TTS:        tts,
		sttBreaker: resilience.New(resilience.Config{Name: "stt"}),
		mtBreaker:  resilience.New(resilience.Config{Name: "mt"}),
		ttsBreaker: resilience.New(resilience.Config{Name: "tts"}),
	}
}

// Orchestrator drives utterances through the pipeline.
type Orchestrator struct {
	backends *Backends
	cache    *roomcache.Cache
	metrics  *metrics.Metrics
	logger   logging.Logger

	sttTimeout time.Duration
	mtTimeout  time.Duration
	ttsTimeout time.Duration

	// Emitter delivers one outbound ServerMessage. The Session Servicer sets
	// this before calling Process; it is the sole seam through which every
	// emitted message reaches the stream, which is what lets the ordering
	// guarantee (transcript before its audio) be enforced by call order
	// alone.
	Emitter func(context.Context, transport.ServerMessage) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTimeouts overrides the default per-operation deadlines.
func WithTimeouts(stt, mt, tts time.Duration) Option {
	return func(o *Orchestrator) {
		o.sttTimeout = stt
		o.mtTimeout = mt
		o.ttsTimeout = tts
	}
}

// WithMetrics attaches an observability sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New constructs an Orchestrator with spec-default timeouts (STT 12s, MT
// 10s, TTS 8s), overridable via options.
func New(backends *Backends, cache *roomcache.Cache, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backends:   backends,
		cache:      cache,
		logger:     logging.NoOp{},
		sttTimeout: 12 * time.Second,
		mtTimeout:  10 * time.Second,
		ttsTimeout: 8 * time.Second,
		Emitter:    func(context.Context, transport.ServerMessage) error { return nil },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process runs the §4.6 algorithm for one finalized (or in-progress, per
// isFinal) audio segment, invoking emit for each outbound message in the
// order the spec's ordering guarantee requires: the TranscriptResult for an
// utterance id is always emitted before any AudioResult carrying that id.
func (o *Orchestrator) Process(ctx context.Context, sess *session.Session, audioBytes []byte, isFinal bool) error {
	sess.Counters.ChunksProcessed++
	if isFinal {
		sess.Counters.SentencesComplete++
	}

	audioFloat := providers.PCM16ToFloat32(audioBytes)

	text, confidence, err := o.transcribe(ctx, sess, audioBytes, audioFloat)
	if err != nil {
		o.logger.Warn("stt failed, dropping utterance", "session", sess.ID, "err", err)
		return nil
	}
	if text == "" {
		return nil
	}

	utteranceID := newUtteranceID()
	targets := sess.TargetLanguages()

	if providers.IsFiller(text) || runeLen(text) <= minTextRunes {
		return o.emitTranscript(ctx, sess, utteranceID, text, confidence, isFinal, nil)
	}

	translations := o.translateAll(ctx, sess, text, targets)

	if err := o.emitTranscript(ctx, sess, utteranceID, text, confidence, isFinal, translations); err != nil {
		return err
	}

	return o.synthesizeAll(ctx, sess, utteranceID, translations)
}

func (o *Orchestrator) transcribe(ctx context.Context, sess *session.Session, pcm16 []byte, pcmFloat []float32) (string, float64, error) {
	if providers.IsSilence(pcmFloat) {
		sess.Counters.SilenceSkipped++
		if o.metrics != nil {
			o.metrics.SilenceSkipped.Add(ctx, 1)
		}
		return "", 0, nil
	}

	key := roomcache.HashAudio(pcm16)
	start := time.Now()
	result, cached, err := o.cache.GetOrCreateSTT(ctx, sess.RoomID, sess.Speaker.ID, key, func(ctx context.Context) (roomcache.STTResult, error) {
		cctx, cancel := context.WithTimeout(ctx, o.sttTimeout)
		defer cancel()
		var text string
		var confidence float64
		bErr := o.backends.sttBreaker.Execute(func() error {
			var innerErr error
			text, confidence, innerErr = o.backends.STT.Transcribe(cctx, pcmFloat, sess.Speaker.SourceLang)
			return innerErr
		})
		if bErr != nil {
			return roomcache.STTResult{}, bErr
		}
		if confidence == 0 && text != "" {
			confidence = providers.DefaultConfidence
		}
		return roomcache.STTResult{Text: text, Confidence: confidence}, nil
	})
	if o.metrics != nil {
		o.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
		o.metrics.RecordCacheResult(ctx, "stt", cached)
		o.metrics.RecordBackendCall(ctx, "stt", o.backends.STT.Name(), err)
	}
	if err != nil {
		return "", 0, nil // TransientBackend/EmptyResult: swallow, yield nothing
	}
	return result.Text, result.Confidence, nil
}

type translationResult struct {
	targetLang     string
	text           string
	participantIDs []string
}

func (o *Orchestrator) translateAll(ctx context.Context, sess *session.Session, text string, targets []string) []translationResult {
	if len(targets) == 0 {
		return nil
	}
	out := make([]translationResult, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			translated := o.translateOne(gctx, sess, text, target)
			if translated == "" {
				return nil
			}
			out[i] = translationResult{
				targetLang:     target,
				text:           translated,
				participantIDs: sess.ParticipantsByTarget(target),
			}
			return nil
		})
	}
	_ = g.Wait() // translateOne swallows its own errors; Wait never returns one

	var entries []translationResult
	for _, r := range out {
		if r.text != "" {
			entries = append(entries, r)
		}
	}
	return entries
}

func (o *Orchestrator) translateOne(ctx context.Context, sess *session.Session, text, target string) string {
	if sess.Speaker.SourceLang == target {
		return text
	}

	start := time.Now()
	result, cached, err := o.cache.GetOrCreateMT(ctx, sess.RoomID, text, sess.Speaker.SourceLang, target, func(ctx context.Context) (string, error) {
		cctx, cancel := context.WithTimeout(ctx, o.mtTimeout)
		defer cancel()
		var translated string
		bErr := o.backends.mtBreaker.Execute(func() error {
			var innerErr error
			translated, innerErr = o.backends.MT.Translate(cctx, text, sess.Speaker.SourceLang, target)
			return innerErr
		})
		if bErr != nil {
			return "", bErr
		}
		return translated, nil
	})
	if o.metrics != nil {
		o.metrics.MTDuration.Record(ctx, time.Since(start).Seconds())
		o.metrics.RecordCacheResult(ctx, "mt", cached)
		o.metrics.RecordBackendCall(ctx, "mt", o.backends.MT.Name(), err)
	}
	if err != nil {
		return ""
	}
	return result
}

func (o *Orchestrator) synthesizeAll(ctx context.Context, sess *session.Session, utteranceID string, translations []translationResult) error {
	type synthOut struct {
		target string
		audio  []byte
		durMs  int
	}
	results := make([]synthOut, len(translations))
	g, gctx := errgroup.WithContext(ctx)
	for i, tr := range translations {
		i, tr := i, tr
		if runeLen(tr.text) < minTTSRunes || providers.IsFiller(tr.text) {
			continue
		}
		g.Go(func() error {
			audio, durMs := o.synthesizeOne(gctx, sess, tr.text, tr.targetLang)
			if len(audio) == 0 {
				return nil
			}
			results[i] = synthOut{target: tr.targetLang, audio: audio, durMs: durMs}
			return nil
		})
	}
	_ = g.Wait()

	for i, r := range results {
		if len(r.audio) == 0 {
			continue
		}
		tr := translations[i]
		msg := transport.ServerMessage{
			SessionID: sess.ID,
			RoomID:    sess.RoomID,
			Kind:      transport.ServerAudioResult,
			AudioResult: &transport.AudioResult{
				TranscriptID:         utteranceID,
				TargetLanguage:       r.target,
				TargetParticipantIDs: tr.participantIDs,
				AudioData:            r.audio,
				Format:               ttsFormat,
				SampleRate:           ttsSampleRate,
				DurationMs:           r.durMs,
				SpeakerParticipantID: sess.Speaker.ID,
			},
		}
		if err := o.emit(ctx, sess, msg); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) synthesizeOne(ctx context.Context, sess *session.Session, text, target string) ([]byte, int) {
	start := time.Now()
	result, cached, err := o.cache.GetOrCreateTTS(ctx, sess.RoomID, text, target, func(ctx context.Context) (roomcache.TTSResult, error) {
		cctx, cancel := context.WithTimeout(ctx, o.ttsTimeout)
		defer cancel()
		var audio []byte
		var durMs int
		bErr := o.backends.ttsBreaker.Execute(func() error {
			var innerErr error
			audio, durMs, innerErr = o.backends.TTS.Synthesize(cctx, text, target)
			return innerErr
		})
		if bErr != nil {
			return roomcache.TTSResult{}, bErr
		}
		return roomcache.TTSResult{Audio: audio, DurationMs: durMs}, nil
	})
	if o.metrics != nil {
		o.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
		o.metrics.RecordCacheResult(ctx, "tts", cached)
		o.metrics.RecordBackendCall(ctx, "tts", o.backends.TTS.Name(), err)
	}
	if err != nil {
		return nil, 0
	}
	return result.Audio, result.DurationMs
}

func (o *Orchestrator) emitTranscript(ctx context.Context, sess *session.Session, utteranceID, text string, confidence float64, isFinal bool, translations []translationResult) error {
	entries := make([]transport.TranslationEntry, 0, len(translations))
	for _, t := range translations {
		entries = append(entries, transport.TranslationEntry{
			TargetLanguage: t.targetLang,
			TranslatedText: t.text,
			ParticipantIDs: t.participantIDs,
		})
	}

	msg := transport.ServerMessage{
		SessionID: sess.ID,
		RoomID:    sess.RoomID,
		Kind:      transport.ServerTranscriptResult,
		TranscriptResult: &transport.TranscriptResult{
			ID:               utteranceID,
			Speaker:          transport.SpeakerInfo{ID: sess.Speaker.ID, DisplayName: sess.Speaker.DisplayName, AvatarRef: sess.Speaker.AvatarRef, SourceLang: sess.Speaker.SourceLang},
			OriginalText:     text,
			OriginalLanguage: sess.Speaker.SourceLang,
			Translations:     entries,
			IsPartial:        !isFinal,
			IsFinal:          isFinal,
			TimestampMs:      time.Now().UnixMilli(),
			Confidence:       confidence,
		},
	}
	if o.metrics != nil {
		o.metrics.UtterancesDone.Add(ctx, 1)
	}
	return o.emit(ctx, sess, msg)
}

// emit is the single seam through which every outbound message passes.
func (o *Orchestrator) emit(ctx context.Context, sess *session.Session, msg transport.ServerMessage) error {
	return o.Emitter(ctx, msg)
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

func newUtteranceID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
