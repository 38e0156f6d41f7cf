package app

import (
	"crypto/subtle"
	"errors"
)

var ErrUnauthorized = errors.New("unauthorized")

// Policy decides whether a publish attempt may proceed.
type Policy interface {
	AuthorizePublish(apiKey string) error
}

// SharedSecretPolicy gates publishes behind one shared key.
// An empty Secret disables the check.
type SharedSecretPolicy struct {
	Secret string
}

func (p SharedSecretPolicy) AuthorizePublish(apiKey string) error {
	if p.Secret == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(apiKey), []byte(p.Secret)) != 1 {
		return ErrUnauthorized
	}
	return nil
}
