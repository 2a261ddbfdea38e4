// Package interpreter implements the Session Servicer: the top-level
// per-stream state machine (New → Initialized → Streaming/Processing →
// Terminated) that binds a transport.Stream to a session.Session, feeds
// inbound audio through VAD, and drives drains through the pipeline.
package interpreter

import (
	"context"
	"errors"
	"time"

	"github.com/lokutor-ai/lokutor-interpreter/pkg/logging"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/metrics"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/pipeline"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/roomcache"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/session"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/topology"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/transport"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/vad"
)

// sentenceEndMinMs / sessionEndMinMs are the 500ms / 300ms drain
// floors from spec.md §4.7.
const (
	sentenceEndMinMs = 500
	sessionEndMinMs  = 300
)

// Servicer serves every stream; each Run call drives one stream for its
// entire lifetime. It owns no state
// across streams; Registry and Cache are shared collaborators injected at
// construction.
type Servicer struct {
	registry   *session.Registry
	cache      *roomcache.Cache
	orchestrator *pipeline.Orchestrator
	vadTemplate *vad.Detector
	logger     logging.Logger
	metrics    *metrics.Metrics
}

// New constructs a Servicer. vadTemplate is cloned into a fresh Detector for
// every new session.
func New(registry *session.Registry, cache *roomcache.Cache, orch *pipeline.Orchestrator, vadTemplate *vad.Detector, logger logging.Logger, m *metrics.Metrics) *Servicer {
	if logger == nil {
		logger = logging.NoOp{}
	}
	return &Servicer{
		registry:     registry,
		cache:        cache,
		orchestrator: orch,
		vadTemplate:  vadTemplate,
		logger:       logger,
		metrics:      m,
	}
}

// Run owns one stream end to end: it reads inbound frames synchronously,
// feeds them into V and P, writes outbound messages in the same task to
// preserve emission order, and cleans up on termination.
func (s *Servicer) Run(ctx context.Context, stream transport.Stream) error {
	var sess *session.Session
	defer func() {
		if sess != nil {
			s.terminate(ctx, sess, stream)
		}
	}()

	for {
		msg, err := stream.Recv(ctx)
		if err != nil {
			if sess != nil {
				s.emitStreamError(ctx, sess, stream, err)
			}
			return nil
		}

		switch msg.Kind {
		case transport.ClientSessionInit:
			sess, err = s.handleSessionInit(ctx, sess, msg, stream)
			if err != nil {
				s.logger.Warn("client input error on session_init", "err", err)
				continue
			}

		case transport.ClientAudioChunk:
			if sess == nil || sess.ID != msg.SessionID {
				s.logger.Warn("audio_chunk before session_init; ignoring")
				continue
			}
			s.handleAudioChunk(ctx, sess, msg.AudioChunk, stream)

		case transport.ClientSessionEnd:
			if sess == nil {
				continue
			}
			s.drainOnSessionEnd(ctx, sess, stream)
			sess = nil
			return nil

		default:
			s.logger.Warn("unknown client message kind; ignoring", "kind", msg.Kind)
		}
	}
}

func (s *Servicer) handleSessionInit(ctx context.Context, existing *session.Session, msg transport.ClientMessage, stream transport.Stream) (*session.Session, error) {
	if msg.SessionInit == nil {
		return existing, errors.New("interpreter: session_init missing payload")
	}
	speaker := session.Speaker{
		ID:          msg.SessionInit.Speaker.ID,
		DisplayName: msg.SessionInit.Speaker.DisplayName,
		AvatarRef:   msg.SessionInit.Speaker.AvatarRef,
		SourceLang:  msg.SessionInit.Speaker.SourceLang,
	}

	if existing != nil && existing.ID == msg.SessionID {
		// Re-sent session_init for the same id: preserve-and-update, per the
		// chosen resolution of the ambiguous source behavior — update the
		// speaker in place without touching the buffer or VAD, and do not
		// resend READY.
		existing.UpdateSpeaker(speaker)
		return existing, nil
	}

	participants := make([]session.Participant, 0, len(msg.SessionInit.Participants))
	for _, p := range msg.SessionInit.Participants {
		participants = append(participants, session.Participant{
			ID:                 p.ID,
			DisplayName:        p.DisplayName,
			AvatarRef:          p.AvatarRef,
			TargetLanguage:     p.TargetLanguage,
			TranslationEnabled: p.TranslationEnabled,
		})
	}

	sess := session.New(msg.SessionID, msg.RoomID, speaker, participants, s.vadTemplate)
	s.registry.Register(sess)
	if s.metrics != nil {
		s.metrics.ActiveSessions.Add(ctx, 1)
		s.metrics.ActiveParticipants.Add(ctx, int64(len(participants)))
	}

	strategyWire := transport.ChunkBased
	if sess.Strategy() == topology.SentenceBased {
		strategyWire = transport.SentenceBased
	}

	_ = stream.Send(ctx, transport.ServerMessage{
		SessionID: sess.ID,
		RoomID:    sess.RoomID,
		Kind:      transport.ServerSessionStatus,
		SessionStatus: &transport.SessionStatus{
			Status:            transport.StatusReady,
			Strategy:          strategyWire,
			PrimaryTargetLang: sess.PrimaryTarget(),
		},
	})

	return sess, nil
}

func (s *Servicer) handleAudioChunk(ctx context.Context, sess *session.Session, chunk []byte, stream transport.Stream) {
	hasSpeech, isSentenceEnd := sess.VAD.ProcessChunk(chunk)
	if hasSpeech {
		sess.AppendAudio(sess.VAD.FilterSpeech(chunk))
	}

	buffered := sess.BufferedBytes()
	maxBytes := sess.MaxBufferBytes()

	switch {
	case isSentenceEnd && buffered >= session.BytesPerMs(sentenceEndMinMs):
		s.drain(ctx, sess, stream, false)
	case buffered >= maxBytes:
		s.drain(ctx, sess, stream, false)
		sess.VAD.Reset()
	}
}

// drain detaches the buffer and invokes the pipeline with isFinal=true
// always, per spec.md §4.7 ("Drain = ... invoke Pipeline with isFinal =
// true"). The trailing bool parameter is ignored; the buffer_full caller
// resets V itself after drain returns.
func (s *Servicer) drain(ctx context.Context, sess *session.Session, stream transport.Stream, _ bool) {
	buf := sess.Drain()
	if len(buf) == 0 {
		return
	}
	// Emit through a per-drain copy of the shared orchestrator so concurrent
	// streams never overwrite one another's Emitter.
	orch := *s.orchestrator
	orch.Emitter = func(ctx context.Context, msg transport.ServerMessage) error {
		return stream.Send(ctx, msg)
	}
	if err := orch.Process(ctx, sess, buf, true); err != nil {
		s.logger.Warn("pipeline error for utterance; stream stays open", "session", sess.ID, "err", err)
	}
}

func (s *Servicer) drainOnSessionEnd(ctx context.Context, sess *session.Session, stream transport.Stream) {
	if sess.BufferedBytes() >= session.BytesPerMs(sessionEndMinMs) {
		s.drain(ctx, sess, stream, false)
	}
	s.terminate(ctx, sess, stream)
}

func (s *Servicer) terminate(ctx context.Context, sess *session.Session, stream transport.Stream) {
	roomID, lastInRoom := s.registry.Unregister(sess.ID)
	if lastInRoom {
		s.cache.EvictRoom(roomID)
	}
	if s.metrics != nil {
		s.metrics.ActiveSessions.Add(ctx, -1)
	}
	_ = stream.Close()
}

func (s *Servicer) emitStreamError(ctx context.Context, sess *session.Session, stream transport.Stream, cause error) {
	_ = stream.Send(ctx, transport.ServerMessage{
		SessionID: sess.ID,
		RoomID:    sess.RoomID,
		Kind:      transport.ServerErrorResponse,
		ErrorResponse: &transport.ErrorResponse{
			Code:    transport.ErrorStreamError,
			Message: cause.Error(),
		},
	})
}

// GracefulShutdown is invoked by cmd/server on SIGINT/SIGTERM; it gives
// in-flight streams up to grace to finish, then returns.
func GracefulShutdown(ctx context.Context, grace time.Duration, inFlightDone <-chan struct{}) {
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-inFlightDone:
	case <-timer.C:
	case <-ctx.Done():
	}
}
