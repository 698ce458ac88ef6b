package storage

import (
	"errors"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
)

// Common storage errors.
var (
	// ErrNotFound is returned when a key is not found.
	ErrNotFound = errors.New("entry not found")
)

func isNotFound(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound) ||
		(err != nil && strings.Contains(err.Error(), "key not found"))
}
