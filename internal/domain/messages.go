package domain

import "encoding/json"

// Inbound is the union of client messages. Fields not used by a given
// type are left zero. Only type must be a string for the message to be
// recognized; room and apiKey values of any other JSON type read as absent.
type Inbound struct {
	Type     string          `json:"type"`
	Room     json.RawMessage `json:"room,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
	APIKey   json.RawMessage `json:"apiKey,omitempty"`
}

func (m Inbound) RoomString() string { return stringOrEmpty(m.Room) }

func (m Inbound) APIKeyString() string { return stringOrEmpty(m.APIKey) }

func stringOrEmpty(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

type RoomAck struct {
	Type string   `json:"type"`
	Room RoomName `json:"room"`
}

type Pong struct {
	Type string `json:"type"`
	TS   int64  `json:"ts"`
}

type PublishAck struct {
	Type   string   `json:"type"`
	Room   RoomName `json:"room"`
	SentTo int      `json:"sentTo"`
}

type ErrorReply struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// TriggerRequest is the body accepted by the HTTP publish trigger.
type TriggerRequest struct {
	Room     string          `json:"room"`
	Payload  json.RawMessage `json:"payload"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}
