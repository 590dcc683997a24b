package id

import "github.com/google/uuid"

// UUIDGenerator issues opaque document ids (photos, cart items, orders).
// Human-readable numbers come from the Sequencer instead.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator { return &UUIDGenerator{} }

func (g *UUIDGenerator) NewID() string { return uuid.NewString() }
