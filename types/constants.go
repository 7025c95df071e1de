package types

import (
	"math"
	"math/big"

	"github.com/vocdoni/arbo"
)

// FieldModulus is the BN254 scalar field prime. DeviceIDs, challenges,
// responses and commitments are all field elements strictly below this bound.
var FieldModulus, _ = new(big.Int).SetString(
	"21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)

var (
	// FieldSize is the byte width of an encoded field element
	FieldSize = 32
	// ResponseBits is the bit-range bound enforced on the PUF response
	// inside the proof statement
	ResponseBits = 254
	// MaxLevels indicates the maximum number of levels in the device
	// MerkleTree
	MaxLevels int = 64
	// MaxKeyLen indicates the maximum key (index) length in the device
	// MerkleTree
	MaxKeyLen int = int(math.Ceil(float64(MaxLevels) / float64(8))) //nolint:gomnd
	// EmptyRoot is a byte array of 0s, with the length of the hash
	// function output length used in the device MerkleTree
	EmptyRoot = make([]byte, arbo.HashFunctionPoseidon.Len())
)
