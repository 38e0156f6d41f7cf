package app

import (
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
)

type nopSignal struct{}

func (nopSignal) TrySend(core.Frame) error { return nil }
func (nopSignal) Close()                   {}

func toStrings(rooms []domain.RoomName) []string {
	out := make([]string, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, string(r))
	}
	return out
}

func sidStrings(sids []core.SessionID) []string {
	out := make([]string, 0, len(sids))
	for _, s := range sids {
		out = append(out, string(s))
	}
	return out
}
