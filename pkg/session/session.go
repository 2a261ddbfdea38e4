// Package session holds the per-stream Session container: speaker identity,
// participant roster, ingress audio buffer, VAD state, and the derived
// buffering strategy, plus a process-wide registry guarding concurrent
// UpdateParticipantSettings calls.
package session

import (
	"sync"

	"github.com/lokutor-ai/lokutor-interpreter/pkg/topology"
	"github.com/lokutor-ai/lokutor-interpreter/pkg/vad"
)

// Participant is immutable except via UpdateParticipantSettings, which
// mutates TargetLanguage and TranslationEnabled atomically.
type Participant struct {
	ID                 string
	DisplayName        string
	AvatarRef          string
	TargetLanguage     string
	TranslationEnabled bool
}

// Speaker identifies the one microphone source for a session.
type Speaker struct {
	ID          string
	DisplayName string
	AvatarRef   string
	SourceLang  string
}

// Counters are observability-only tallies.
type Counters struct {
	ChunksProcessed   int64
	SentencesComplete int64
	SilenceSkipped    int64
	STTLatencyTotalMs int64
	MTLatencyTotalMs  int64
	TTSLatencyTotalMs int64
}

// Session is the per-stream state container. It is owned exclusively by the
// stream handler that created it; the registry lock only ever protects
// insert/remove/lookup/UpdateParticipantSettings, never the audio buffer.
type Session struct {
	mu sync.Mutex

	ID      string
	RoomID  string
	Speaker Speaker

	participants map[string]Participant

	audioBuffer []byte
	VAD         *vad.Detector
	strategy    topology.Strategy

	Counters Counters
}

// New creates a Session in its initial state with a freshly cloned VAD
// detector and a recomputed primary strategy.
func New(id, roomID string, speaker Speaker, participants []Participant, vadTemplate *vad.Detector) *Session {
	s := &Session{
		ID:           id,
		RoomID:       roomID,
		Speaker:      speaker,
		participants: make(map[string]Participant, len(participants)),
		VAD:          vadTemplate.Clone(),
	}
	for _, p := range participants {
		s.participants[p.ID] = p
	}
	s.determinePrimaryStrategyLocked()
	return s
}

// UpdateSpeaker replaces the speaker identity in place without touching the
// audio buffer or VAD state, per the preserve-and-update re-init variant.
func (s *Session) UpdateSpeaker(speaker Speaker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Speaker = speaker
	s.determinePrimaryStrategyLocked()
}

// TargetLanguages returns the set of target languages across participants
// whose translation flag is true and whose target differs from the
// speaker's source language.
func (s *Session) TargetLanguages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targetLanguagesLocked()
}

func (s *Session) targetLanguagesLocked() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range s.participants {
		if !p.TranslationEnabled || p.TargetLanguage == s.Speaker.SourceLang {
			continue
		}
		if _, ok := seen[p.TargetLanguage]; ok {
			continue
		}
		seen[p.TargetLanguage] = struct{}{}
		out = append(out, p.TargetLanguage)
	}
	return out
}

// ParticipantsByTarget returns the ids of participants preferring lang,
// subject to the same enabled/differs-from-source filter as TargetLanguages.
func (s *Session) ParticipantsByTarget(lang string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, p := range s.participants {
		if p.TranslationEnabled && p.TargetLanguage == lang && lang != s.Speaker.SourceLang {
			out = append(out, p.ID)
		}
	}
	return out
}

// DeterminePrimaryStrategy recomputes and stores the session's buffering
// strategy: SENTENCE_BASED if any target requires it, else CHUNK_BASED.
func (s *Session) DeterminePrimaryStrategy() topology.Strategy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.determinePrimaryStrategyLocked()
}

func (s *Session) determinePrimaryStrategyLocked() topology.Strategy {
	strategy := topology.ChunkBased
	for _, target := range s.targetLanguagesLocked() {
		if topology.StrategyFor(s.Speaker.SourceLang, target) == topology.SentenceBased {
			strategy = topology.SentenceBased
		}
	}
	s.strategy = strategy
	return strategy
}

// Strategy returns the most recently computed buffering strategy.
func (s *Session) Strategy() topology.Strategy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.strategy
}

// MaxBufferBytes returns the byte-size ceiling for the session's stored
// primary strategy (CHUNK_BASED vs SENTENCE_BASED differ only in this cap;
// §4.7). The strategy already accounts for every target language, so it must
// be used directly rather than re-derived from one arbitrary target.
func (s *Session) MaxBufferBytes() int {
	s.mu.Lock()
	strategy := s.strategy
	s.mu.Unlock()
	return topology.MaxBufferMsForStrategy(strategy) * vad.SampleRate / 1000 * 2
}

// PrimaryTarget returns an arbitrary element of TargetLanguages, or "" if
// there are none, for use in the SessionStatus READY payload.
func (s *Session) PrimaryTarget() string {
	targets := s.TargetLanguages()
	if len(targets) == 0 {
		return ""
	}
	return targets[0]
}

// AppendAudio appends speech bytes to the session's ingress buffer. The
// caller (the stream handler) is the buffer's sole producer.
func (s *Session) AppendAudio(speechBytes []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioBuffer = append(s.audioBuffer, speechBytes...)
}

// BufferedBytes returns the number of bytes currently accumulated.
func (s *Session) BufferedBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.audioBuffer)
}

// Drain detaches and clears the accumulated audio buffer.
func (s *Session) Drain() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := s.audioBuffer
	s.audioBuffer = nil
	return buf
}

// UpdateParticipant atomically mutates a participant's target language and
// enabled flag and recomputes the primary strategy. It is a no-op if the
// participant id is unknown.
func (s *Session) UpdateParticipant(id, targetLang string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return
	}
	p.TargetLanguage = targetLang
	p.TranslationEnabled = enabled
	s.participants[id] = p
	s.determinePrimaryStrategyLocked()
}

// BytesPerMs converts a millisecond duration to PCM byte count at the fixed
// ingress sample rate (16kHz mono 16-bit).
func BytesPerMs(ms int) int {
	return ms * vad.SampleRate / 1000 * 2
}
