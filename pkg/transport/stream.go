package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coder/websocket"
)

// Stream is the transport-agnostic ingress/egress surface the Session
// Servicer drives. A websocket connection and an in-memory test double both
// implement it.
type Stream interface {
	// Recv blocks for the next ClientMessage. For audio_chunk frames,
	// AudioChunk is populated and Kind is ClientAudioChunk.
	Recv(ctx context.Context) (ClientMessage, error)
	// Send writes one ServerMessage.
	Send(ctx context.Context, msg ServerMessage) error
	// Close tears down the underlying connection.
	Close() error
}

// WSStream implements Stream over github.com/coder/websocket, using a JSON
// text frame for every control message and a binary frame exclusively for
// audio_chunk payloads — the same envelope shape as the teacher's TTS
// adapter (JSON request frame, binary audio frames).
type WSStream struct {
	conn *websocket.Conn

	sessionID     string
	roomID        string
	participantID string
}

// NewWSStream wraps an already-accepted websocket connection.
func NewWSStream(conn *websocket.Conn) *WSStream {
	return &WSStream{conn: conn}
}

type wireEnvelope struct {
	SessionID     string              `json:"session_id"`
	RoomID        string              `json:"room_id"`
	ParticipantID string              `json:"participant_id"`
	Kind          ClientMessageKind   `json:"kind"`
	SessionInit   *SessionInitPayload `json:"session_init,omitempty"`
}

// Recv reads one frame. A text frame decodes as a control envelope; a binary
// frame is wrapped as an audio_chunk ClientMessage carrying the most
// recently seen session/room/participant identifiers (set by the last
// control frame), mirroring how the wire protocol multiplexes control and
// audio over one channel per spec.md §6.
func (w *WSStream) Recv(ctx context.Context) (ClientMessage, error) {
	msgType, payload, err := w.conn.Read(ctx)
	if err != nil {
		return ClientMessage{}, err
	}

	if msgType == websocket.MessageBinary {
		return ClientMessage{
			SessionID:     w.sessionID,
			RoomID:        w.roomID,
			ParticipantID: w.participantID,
			Kind:          ClientAudioChunk,
			AudioChunk:    payload,
		}, nil
	}

	var env wireEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return ClientMessage{}, fmt.Errorf("transport: malformed control frame: %w", err)
	}
	w.sessionID = env.SessionID
	w.roomID = env.RoomID
	w.participantID = env.ParticipantID

	return ClientMessage{
		SessionID:     env.SessionID,
		RoomID:        env.RoomID,
		ParticipantID: env.ParticipantID,
		Kind:          env.Kind,
		SessionInit:   env.SessionInit,
	}, nil
}

// Send writes a ServerMessage as one JSON text frame. Audio is carried
// inline as base64 within that JSON (ServerMessage.AudioResult.AudioData),
// keeping send ordering trivially serialized through a single write call.
func (w *WSStream) Send(ctx context.Context, msg ServerMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return w.conn.Write(ctx, websocket.MessageText, body)
}

// Close closes the underlying connection with a normal closure status.
func (w *WSStream) Close() error {
	return w.conn.Close(websocket.StatusNormalClosure, "")
}
