package models

import "encoding/json"

// MessageType identifies a signaling envelope on the wire.
type MessageType string

const (
	// Client -> relay
	MessageTypeCreateRoom MessageType = "createRoom"
	MessageTypeJoinRoom   MessageType = "joinRoom"
	MessageTypeSignal     MessageType = "signal"

	// Relay -> client
	MessageTypeRoomJoined MessageType = "roomJoined"
	MessageTypeError      MessageType = "error"
)

// Message is the envelope for every frame exchanged with a client.
// Payload carries the peers' connection-negotiation data
// (offer/answer/candidate); the relay forwards it without parsing.
type Message struct {
	Type    MessageType     `json:"type"`
	RoomID  string          `json:"roomId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}
