package types

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/vocdoni/arbo"
)

// ByteArray is a wrapper over []byte that marshals to a JSON hex string
type ByteArray []byte

// MarshalJSON implements the json.Marshaler interface for ByteArray
func (b ByteArray) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(b))
}

// UnmarshalJSON implements the json.Unmarshaler interface for ByteArray
func (b *ByteArray) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	d, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*b = d
	return nil
}

// IsZero returns true if the ByteArray is empty or contains only zero bytes
func (b ByteArray) IsZero() bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// BigIntToBytes encodes the given field element into its fixed-width byte
// representation
func BigIntToBytes(v *big.Int) []byte {
	return arbo.BigIntToBytes(FieldSize, v)
}

// BytesToBigInt decodes the given fixed-width byte representation back into
// a field element
func BytesToBigInt(b []byte) *big.Int {
	return arbo.BytesToBigInt(b)
}

// InField returns true if 0 <= v < FieldModulus
func InField(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.Cmp(FieldModulus) < 0
}

// Uint64ToIndex returns the index in bytes format used as a key in the
// device MerkleTree
func Uint64ToIndex(u uint64) []byte {
	return arbo.BigIntToBytes(MaxKeyLen, new(big.Int).SetUint64(u))
}

// HashPubK computes the Poseidon hash of the given babyjubjub PublicKey,
// returning it in byte representation. It is used to obtain the pubKeyHash
// stored for a device at registration.
func HashPubK(pubK *babyjub.PublicKey) ([]byte, error) {
	h, err := poseidon.Hash([]*big.Int{pubK.X, pubK.Y})
	if err != nil {
		return nil, err
	}
	return BigIntToBytes(h), nil
}

// Device represents a registered physical device. The ID is assigned at
// registration and never changes; the record is never deleted, only the
// Active flag is mutated by deactivation.
type Device struct {
	ID           *big.Int       `json:"id"`
	PubKeyHash   ByteArray      `json:"pubKeyHash"`
	HelperData   ByteArray      `json:"helperData"`
	Owner        common.Address `json:"owner"`
	RegisteredAt time.Time      `json:"registeredAt"`
	Active       bool           `json:"active"`
}

// TransactionRecord is an entry of the append-only per-device transaction
// log. Records are never mutated nor removed.
type TransactionRecord struct {
	DeviceID         *big.Int  `json:"deviceId"`
	DataHash         ByteArray `json:"dataHash"`
	EncryptedPayload ByteArray `json:"encryptedPayload"`
	Timestamp        time.Time `json:"timestamp"`
}
