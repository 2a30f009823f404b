// Package storage holds the key-value slot backends the client collection is persisted in.
// A slot stores one opaque blob under one name; every write fully replaces the previous value.
package storage

import (
	"context"
	"errors"
)

var ErrSlotEmpty = errors.New("slot empty")

type Slot interface {
	// Read returns the stored blob, or ErrSlotEmpty if nothing was ever written.
	Read(ctx context.Context) ([]byte, error)
	// Write overwrites the stored blob.
	Write(ctx context.Context, data []byte) error
	// Name is the slot key, used in logs and spans.
	Name() string
}
