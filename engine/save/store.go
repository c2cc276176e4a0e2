package save

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrSlotNotFound is returned when a slot holds no save.
var ErrSlotNotFound = errors.New("save slot not found")

var slotPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidSlot checks that a slot name is safe to use as a file name and key.
func ValidSlot(slot string) error {
	if !slotPattern.MatchString(slot) {
		return fmt.Errorf("invalid slot name %q: use letters, digits, '-' or '_'", slot)
	}
	return nil
}

// Store persists envelopes by slot name.
type Store interface {
	Put(ctx context.Context, e *Envelope) error
	Get(ctx context.Context, slot string) (*Envelope, error)
	// List returns every slot, most recently saved first.
	List(ctx context.Context) ([]Info, error)
	Delete(ctx context.Context, slot string) error
	Close() error
}
