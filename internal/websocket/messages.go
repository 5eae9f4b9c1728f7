package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client
	TypeViewUpdated       MessageType = "view.updated"
	TypePermissionChanged MessageType = "permission.changed"
	TypeTrayUpdated       MessageType = "tray.updated"
	TypeSyncError         MessageType = "sync.error"
	TypeMeetingOpening    MessageType = "meeting.opening"
	TypePong              MessageType = "pong"
	TypeError             MessageType = "error"

	// Client -> Server
	TypePing MessageType = "ping"
)

// Message is the envelope of every frame.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload,omitempty"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
