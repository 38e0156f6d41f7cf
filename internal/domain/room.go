package domain

import (
	"errors"
	"strings"
)

var ErrRoomRequired = errors.New("room is required")

type RoomName string

// ParseRoomName rejects empty or blank names. Anything else is an opaque key.
func ParseRoomName(raw string) (RoomName, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrRoomRequired
	}
	return RoomName(raw), nil
}
