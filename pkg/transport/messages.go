// Package transport defines the wire message types carried over the
// bidirectional stream — ClientMessage and ServerMessage tagged unions — and
// the websocket envelope that realizes them.
package transport

// BufferingStrategy mirrors topology.Strategy on the wire so pkg/transport
// has no dependency on pkg/topology.
type BufferingStrategy string

const (
	ChunkBased    BufferingStrategy = "CHUNK_BASED"
	SentenceBased BufferingStrategy = "SENTENCE_BASED"
)

// ClientMessageKind discriminates the ClientMessage union.
type ClientMessageKind string

const (
	ClientSessionInit ClientMessageKind = "session_init"
	ClientAudioChunk  ClientMessageKind = "audio_chunk"
	ClientSessionEnd  ClientMessageKind = "session_end"
)

// SpeakerInfo is the wire shape of a Speaker.
type SpeakerInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar_ref"`
	SourceLang  string `json:"source_lang"`
}

// ParticipantInfo is the wire shape of a Participant.
type ParticipantInfo struct {
	ID                 string `json:"id"`
	DisplayName        string `json:"display_name"`
	AvatarRef          string `json:"avatar_ref"`
	TargetLanguage     string `json:"target_language"`
	TranslationEnabled bool   `json:"translation_enabled"`
}

// SessionInitPayload is the ClientMessage variant that creates or updates a
// session.
type SessionInitPayload struct {
	Speaker      SpeakerInfo       `json:"speaker"`
	Participants []ParticipantInfo `json:"participants"`
}

// ClientMessage is a tagged union: exactly one of SessionInit, AudioChunk, or
// SessionEnd is populated, selected by Kind.
type ClientMessage struct {
	SessionID     string              `json:"session_id"`
	RoomID        string              `json:"room_id"`
	ParticipantID string              `json:"participant_id"`
	Kind          ClientMessageKind   `json:"kind"`
	SessionInit   *SessionInitPayload `json:"session_init,omitempty"`
	AudioChunk    []byte              `json:"-"` // carried out-of-band as a binary frame
}

// ServerMessageKind discriminates the ServerMessage union.
type ServerMessageKind string

const (
	ServerSessionStatus    ServerMessageKind = "session_status"
	ServerTranscriptResult ServerMessageKind = "transcript_result"
	ServerAudioResult      ServerMessageKind = "audio_result"
	ServerErrorResponse    ServerMessageKind = "error_response"
)

// SessionStatusCode enumerates SessionStatus.Status values.
type SessionStatusCode string

const (
	StatusReady SessionStatusCode = "READY"
)

// SessionStatus is the ServerMessage variant sent in response to a valid
// session_init.
type SessionStatus struct {
	Status            SessionStatusCode `json:"status"`
	Message           string            `json:"message"`
	Strategy          BufferingStrategy `json:"strategy"`
	PrimaryTargetLang string            `json:"primary_target_lang"`
}

// TranslationEntry is one per-target-language translation of an utterance.
type TranslationEntry struct {
	TargetLanguage string   `json:"target_language"`
	TranslatedText string   `json:"translated_text"`
	ParticipantIDs []string `json:"participant_ids"`
}

// TranscriptResult carries the original transcript plus every translation
// produced for this utterance.
type TranscriptResult struct {
	ID               string             `json:"id"`
	Speaker          SpeakerInfo        `json:"speaker"`
	OriginalText     string             `json:"original_text"`
	OriginalLanguage string             `json:"original_language"`
	Translations     []TranslationEntry `json:"translations"`
	IsPartial        bool               `json:"is_partial"`
	IsFinal          bool               `json:"is_final"`
	TimestampMs      int64              `json:"timestamp_ms"`
	Confidence       float64            `json:"confidence"`
}

// AudioResult carries one target language's synthesized speech for an
// utterance.
type AudioResult struct {
	TranscriptID         string   `json:"transcript_id"`
	TargetLanguage       string   `json:"target_language"`
	TargetParticipantIDs []string `json:"target_participant_ids"`
	AudioData            []byte   `json:"audio_data"`
	Format               string   `json:"format"`
	SampleRate           int      `json:"sample_rate"`
	DurationMs           int      `json:"duration_ms"`
	SpeakerParticipantID string   `json:"speaker_participant_id"`
}

// ErrorCode enumerates ErrorResponse.Code values.
type ErrorCode string

const (
	ErrorStreamError ErrorCode = "STREAM_ERROR"
)

// ErrorResponse reports a stream-level error.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ServerMessage is a tagged union: exactly one of the payload fields is
// populated, selected by Kind.
type ServerMessage struct {
	SessionID        string            `json:"session_id"`
	RoomID           string            `json:"room_id"`
	Kind             ServerMessageKind `json:"kind"`
	SessionStatus    *SessionStatus    `json:"session_status,omitempty"`
	TranscriptResult *TranscriptResult `json:"transcript_result,omitempty"`
	AudioResult      *AudioResult      `json:"audio_result,omitempty"`
	ErrorResponse    *ErrorResponse    `json:"error_response,omitempty"`
}
