package engine

import (
	"github.com/ethereum/go-ethereum/common"
)

// EventName identifies the kind of an Event, e.g. "PairCreated".
type EventName string

// Event is a typed record emitted alongside the state change it describes.
type Event interface {
	EventName() EventName
}

// Log is an Event as recorded by the host, tagged with the emitting contract.
type Log struct {
	Index   uint64         `json:"index"`
	Address common.Address `json:"address"`
	Name    EventName      `json:"name"`
	Event   Event          `json:"event"`
}

// Host is the execution environment a pair or factory runs in.
//
// CONTRACT:
//  1. Snapshot returns an identifier that RevertToSnapshot accepts to undo every
//     balance, allowance and log change made after the snapshot was taken.
//  2. Emit appends a log that is discarded again if a surrounding snapshot is reverted.
//  3. Journal records undo for a change made outside the host, such as a pair's
//     reserves. RevertToSnapshot runs every undo recorded after the snapshot in
//     reverse order, after the host has released its own lock, so undo may take
//     the caller's locks.
type Host interface {
	Snapshot() int
	RevertToSnapshot(id int)
	Emit(emitter common.Address, event Event)
	Journal(undo func())
}

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
