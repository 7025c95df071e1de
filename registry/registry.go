// Package registry implements the authoritative device state machine:
// device lifecycle, proof-gated authentication and the append-only
// per-device transaction log. State lives in the SQLite store; events are
// written to a decoupled sink after each committed transition.
package registry

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pufid/pufnode/db"
	"github.com/pufid/pufnode/devicetree"
	"github.com/pufid/pufnode/events"
	"github.com/pufid/pufnode/prover"
	"github.com/pufid/pufnode/types"
	"go.vocdoni.io/dvote/log"
)

var (
	// ErrInvalidArgument is returned when registering with a zero or
	// out-of-field deviceID, or a zero pubKeyHash
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrAlreadyRegistered is returned when the deviceID already has a
	// record. Device records are never overwritten.
	ErrAlreadyRegistered = errors.New("device already registered")
	// ErrNotActive is returned when the operation targets a device that
	// is absent or deactivated. The call aborts and no event is emitted.
	ErrNotActive = errors.New("device not active")
	// ErrNotOwner is returned when deactivation is attempted by an
	// identity other than the registered owner
	ErrNotOwner = errors.New("caller is not the device owner")
	// ErrBindingMismatch is returned when the claimed deviceID does not
	// match the proof's bound public input. The call aborts and no event
	// is emitted.
	ErrBindingMismatch = errors.New("publicInputs[0] does not match the claimed deviceID")
	// ErrProofRejected is returned by RecordTransaction when the proof
	// does not verify. Unlike authentication, transaction integrity is a
	// hard gate: nothing is stored and no event is emitted.
	ErrProofRejected = errors.New("transaction proof rejected")
)

// Options is used to pass the parameters to load a new Registry
type Options struct {
	Store    *db.SQLite
	Verifier prover.Verifier
	Sink     events.Sink
	// Tree is optional; when set, registered devices are also added to
	// the device MerkleTree for membership proofs
	Tree *devicetree.Tree
	// Clock is optional and defaults to time.Now. Committed operations
	// are stamped with monotonically non-decreasing timestamps.
	Clock func() time.Time
}

// Registry is the device registry service. Mutations are serialized:
// no two concurrent mutating calls interleave on the same device record,
// and the global device counter shares the same serialization domain.
// Reads go straight to the store and may proceed concurrently.
type Registry struct {
	store    *db.SQLite
	verifier prover.Verifier
	sink     events.Sink
	tree     *devicetree.Tree

	mu     sync.Mutex
	clock  func() time.Time
	lastTS time.Time
}

// New returns a new Registry with the given Options
func New(opts Options) (*Registry, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("Registry needs a Store")
	}
	if opts.Verifier == nil {
		return nil, fmt.Errorf("Registry needs a Verifier")
	}
	sink := opts.Sink
	if sink == nil {
		sink = events.LogSink{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Registry{
		store:    opts.Store,
		verifier: opts.Verifier,
		sink:     sink,
		tree:     opts.Tree,
		clock:    clock,
	}, nil
}

// timestamp returns the commit timestamp for the current operation. Must be
// called with the mutex held.
func (r *Registry) timestamp() time.Time {
	ts := r.clock()
	if ts.Before(r.lastTS) {
		ts = r.lastTS
	}
	r.lastTS = ts
	return ts
}

// Register creates a new Active device record for the given deviceID. The
// id is assigned once and the record is never overwritten nor deleted.
func (r *Registry) Register(deviceID *big.Int, pubKeyHash,
	helperData types.ByteArray, owner common.Address) error {
	if deviceID == nil || deviceID.Sign() == 0 || !types.InField(deviceID) {
		return fmt.Errorf("%w: deviceID", ErrInvalidArgument)
	}
	if pubKeyHash.IsZero() {
		return fmt.Errorf("%w: pubKeyHash", ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ts := r.timestamp()
	device := &types.Device{
		ID:           deviceID,
		PubKeyHash:   pubKeyHash,
		HelperData:   helperData,
		Owner:        owner,
		RegisteredAt: ts,
		Active:       true,
	}
	if err := r.store.InsertDevice(device); err != nil {
		if errors.Is(err, db.ErrDeviceAlreadyStored) {
			return ErrAlreadyRegistered
		}
		return err
	}

	if r.tree != nil {
		// the tree is auxiliary (membership proofs); a tree failure does
		// not undo the committed registration
		if err := r.tree.Add(deviceID, pubKeyHash); err != nil {
			log.Warnw("can not add device to the tree",
				"deviceID", deviceID.String(), "err", err)
		}
	}

	r.sink.Emit(events.New(events.DeviceRegistered, deviceID, true, ts))
	return nil
}

// checkProofPreconditions validates the device state and the deviceID
// binding shared by Authenticate and RecordTransaction
func (r *Registry) checkProofPreconditions(deviceID *big.Int,
	publicInputs []*big.Int) error {
	device, err := r.store.GetDevice(deviceID)
	if errors.Is(err, db.ErrDeviceNotFound) {
		return ErrNotActive
	} else if err != nil {
		return err
	}
	if !device.Active {
		return ErrNotActive
	}
	if len(publicInputs) != types.NPublicInputs {
		return fmt.Errorf("%w: expected %d public inputs, got %d",
			prover.ErrMalformed, types.NPublicInputs, len(publicInputs))
	}
	if publicInputs[0] == nil || publicInputs[0].Cmp(deviceID) != 0 {
		return ErrBindingMismatch
	}
	return nil
}

// isActiveLocked re-checks the device state under the mutex, before
// committing a transition that was verified outside of it
func (r *Registry) isActiveLocked(deviceID *big.Int) error {
	device, err := r.store.GetDevice(deviceID)
	if errors.Is(err, db.ErrDeviceNotFound) {
		return ErrNotActive
	} else if err != nil {
		return err
	}
	if !device.Active {
		return ErrNotActive
	}
	return nil
}

// Authenticate verifies the given proof for the claimed deviceID. Whatever
// the verify outcome, the attempt is committed and an AuthenticationAttempt
// event is emitted: an invalid proof is a reportable outcome, not an
// operation failure. Precondition failures (device not active, binding
// mismatch, malformed proof shape) abort without an event.
func (r *Registry) Authenticate(deviceID *big.Int, proof types.ByteArray,
	publicInputs []*big.Int) (bool, error) {
	if deviceID == nil {
		return false, fmt.Errorf("%w: deviceID", ErrInvalidArgument)
	}
	if err := r.checkProofPreconditions(deviceID, publicInputs); err != nil {
		return false, err
	}

	// proof verification is CPU-bound; keep it outside the mutation lock
	// so independent devices authenticate in parallel
	valid, err := r.verifier.Verify(proof, publicInputs)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.isActiveLocked(deviceID); err != nil {
		return false, err
	}
	ts := r.timestamp()
	r.sink.Emit(events.New(events.AuthenticationAttempt, deviceID, valid, ts))
	return valid, nil
}

// RecordTransaction appends a TransactionRecord for the given deviceID,
// gated by the proof: if the proof does not verify the whole operation
// aborts with ErrProofRejected and no state changes.
func (r *Registry) RecordTransaction(deviceID *big.Int, dataHash,
	encryptedPayload types.ByteArray, proof types.ByteArray,
	publicInputs []*big.Int) error {
	if deviceID == nil {
		return fmt.Errorf("%w: deviceID", ErrInvalidArgument)
	}
	if err := r.checkProofPreconditions(deviceID, publicInputs); err != nil {
		return err
	}

	valid, err := r.verifier.Verify(proof, publicInputs)
	if err != nil {
		return err
	}
	if !valid {
		return ErrProofRejected
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.isActiveLocked(deviceID); err != nil {
		return err
	}
	ts := r.timestamp()
	record := &types.TransactionRecord{
		DeviceID:         deviceID,
		DataHash:         dataHash,
		EncryptedPayload: encryptedPayload,
		Timestamp:        ts,
	}
	if err := r.store.InsertTransaction(record); err != nil {
		return err
	}
	r.sink.Emit(events.New(events.TransactionRecorded, deviceID, true, ts))
	return nil
}

// Deactivate flips the device to its terminal Deactivated state. Only the
// registered owner can deactivate; there is no reactivation.
func (r *Registry) Deactivate(deviceID *big.Int, caller common.Address) error {
	if deviceID == nil {
		return fmt.Errorf("%w: deviceID", ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	device, err := r.store.GetDevice(deviceID)
	if errors.Is(err, db.ErrDeviceNotFound) {
		return ErrNotActive
	} else if err != nil {
		return err
	}
	if !device.Active {
		return ErrNotActive
	}
	if device.Owner != caller {
		return ErrNotOwner
	}

	if err := r.store.SetDeviceActive(deviceID, false); err != nil {
		return err
	}
	ts := r.timestamp()
	r.sink.Emit(events.New(events.DeviceDeactivated, deviceID, true, ts))
	return nil
}

// IsRegistered returns true if the given deviceID has a record
func (r *Registry) IsRegistered(deviceID *big.Int) (bool, error) {
	if deviceID == nil {
		return false, nil
	}
	_, err := r.store.GetDevice(deviceID)
	if errors.Is(err, db.ErrDeviceNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

// IsActive returns true if the given deviceID is registered and Active
func (r *Registry) IsActive(deviceID *big.Int) (bool, error) {
	if deviceID == nil {
		return false, nil
	}
	device, err := r.store.GetDevice(deviceID)
	if errors.Is(err, db.ErrDeviceNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return device.Active, nil
}

// TransactionCount returns the length of the transaction log of the given
// deviceID. Unregistered devices have an empty log.
func (r *Registry) TransactionCount(deviceID *big.Int) (uint64, error) {
	if deviceID == nil {
		return 0, nil
	}
	return r.store.CountTransactionsByDeviceID(deviceID)
}

// Device returns the stored record for the given deviceID
func (r *Registry) Device(deviceID *big.Int) (*types.Device, error) {
	return r.store.GetDevice(deviceID)
}

// DeviceCount returns the global device counter
func (r *Registry) DeviceCount() (uint64, error) {
	return r.store.DeviceCount()
}
