package ws

import (
	"encoding/json"
	"time"
)

// Envelope frame types
const (
	TypeUserJoined = "user_joined"
	TypeUserLeft   = "user_left"
	TypeMessage    = "message"
)

// Sender value for lifecycle frames
const systemSender = "system"

// Envelope is the wire unit sent to room members. Inbound frames are raw
// text; everything outbound is one of these, JSON-encoded.
type Envelope struct {
	Type      string `json:"type"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// encode marshals the envelope once so a broadcast serializes a single time
func (e Envelope) encode() []byte {
	b, _ := json.Marshal(e)
	return b
}

func joinedEnvelope(name string, at time.Time) Envelope {
	return Envelope{
		Type:      TypeUserJoined,
		Sender:    systemSender,
		Content:   name + " joined the chat",
		Timestamp: at.Format(time.RFC3339),
	}
}

func leftEnvelope(name string, at time.Time) Envelope {
	return Envelope{
		Type:      TypeUserLeft,
		Sender:    systemSender,
		Content:   name + " left the chat",
		Timestamp: at.Format(time.RFC3339),
	}
}

func messageEnvelope(sender, content string, at time.Time) Envelope {
	return Envelope{
		Type:      TypeMessage,
		Sender:    sender,
		Content:   content,
		Timestamp: at.Format(time.RFC3339),
	}
}
