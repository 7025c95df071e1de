// Package events is the side-channel the registry writes to after a
// successful state transition. Sinks receive events in commit order; the
// state machine itself never depends on them.
package events

import (
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.vocdoni.io/dvote/log"
)

// Kind identifies the registry event kinds
type Kind string

const (
	// DeviceRegistered is emitted when a new device record is created
	DeviceRegistered Kind = "DeviceRegistered"
	// DeviceDeactivated is emitted when a device is deactivated by its owner
	DeviceDeactivated Kind = "DeviceDeactivated"
	// AuthenticationAttempt is emitted for every authentication attempt
	// against an active device, successful or not
	AuthenticationAttempt Kind = "AuthenticationAttempt"
	// TransactionRecorded is emitted when a transaction record is appended
	TransactionRecorded Kind = "TransactionRecorded"
)

// Event carries the deviceId and outcome of a committed registry operation
type Event struct {
	ID        uuid.UUID `json:"id"`
	Kind      Kind      `json:"kind"`
	DeviceID  *big.Int  `json:"deviceId"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}

// New returns an Event with a fresh unique ID
func New(kind Kind, deviceID *big.Int, success bool, timestamp time.Time) Event {
	return Event{
		ID:        uuid.New(),
		Kind:      kind,
		DeviceID:  deviceID,
		Success:   success,
		Timestamp: timestamp,
	}
}

// Sink receives the events emitted by the registry
type Sink interface {
	Emit(e Event)
}

// Recorder is an in-memory Sink that keeps the emitted events in order.
// Used in tests and as a default when no external sink is configured.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder returns an empty Recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit implements the Sink interface
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a snapshot of the emitted events, in emit order
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// LogSink is a Sink that writes the events to the log
type LogSink struct{}

// Emit implements the Sink interface
func (LogSink) Emit(e Event) {
	log.Infow("registry event", "kind", string(e.Kind),
		"deviceID", e.DeviceID.String(), "success", e.Success)
}
