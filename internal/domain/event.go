// Package domain contains entities without logic, just meta-data and wire shapes.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Message types exchanged over the signal channel.
const (
	TypeSubscribe    = "subscribe"
	TypeSubscribed   = "subscribed"
	TypeUnsubscribe  = "unsubscribe"
	TypeUnsubscribed = "unsubscribed"
	TypePing         = "ping"
	TypePong         = "pong"
	TypePublish      = "publish"
	TypePublished    = "published"
	TypeUpdate       = "update"
	TypeErr          = "err"
)

var jsonNull = json.RawMessage("null")

// Update is the event fanned out to every member of a room.
// It is built once per publish and never stored.
type Update struct {
	Type     string          `json:"type"`
	Room     RoomName        `json:"room"`
	Payload  json.RawMessage `json:"payload"`
	Metadata json.RawMessage `json:"metadata"`
	TS       int64           `json:"ts"`
}

func NewUpdate(room RoomName, payload, metadata json.RawMessage, at time.Time) Update {
	return Update{
		Type:     TypeUpdate,
		Room:     room,
		Payload:  orNull(payload),
		Metadata: orNull(metadata),
		TS:       UnixMillis(at),
	}
}

// Encode serializes the update for the wire.
func (u Update) Encode() ([]byte, error) {
	b, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("encode update for room %q: %w", u.Room, err)
	}
	return b, nil
}

// UnixMillis is the timestamp format used on the wire.
func UnixMillis(t time.Time) int64 { return t.UnixNano() / int64(time.Millisecond) }

func orNull(raw json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return jsonNull
	}
	return raw
}
