// Package puf implements a simulated Physical Unclonable Function: a
// deterministic keyed challenge-response function plus a noise injector used
// for reliability experiments. It is a drop-in stand-in for a real hardware
// reading; a production deployment replaces it at the Responder boundary.
package puf

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"
	mrand "math/rand"
	"sync"

	"github.com/pufid/pufnode/types"
	"golang.org/x/crypto/blake2b"
)

// Responder models the challenge-response function of a physical device
type Responder interface {
	Response(deviceID, challenge *big.Int) *big.Int
}

// PUF simulates the challenge-response behavior of a family of physical
// devices, keyed by a process-wide secret seed. Same seed and inputs always
// yield the same response.
type PUF struct {
	key [32]byte

	mu  sync.Mutex
	rnd *mrand.Rand
}

// New returns a PUF keyed with the given secret seed. The noise injector rng
// is derived from the same seed, so experiments are reproducible.
func New(seed []byte) *PUF {
	key := blake2b.Sum256(seed)
	rndSeed := int64(binary.LittleEndian.Uint64(key[:8])) //nolint:gosec
	return &PUF{
		key: key,
		rnd: mrand.New(mrand.NewSource(rndSeed)), //nolint:gosec
	}
}

// GenerateChallenge returns a uniformly random field element
func GenerateChallenge() (*big.Int, error) {
	return rand.Int(rand.Reader, types.FieldModulus)
}

// Response computes the deterministic PUF response for the given deviceID
// and challenge, as a keyed one-way function reduced into the field
func (p *PUF) Response(deviceID, challenge *big.Int) *big.Int {
	h, err := blake2b.New256(p.key[:])
	if err != nil {
		// blake2b only errors on an oversized key
		panic(err)
	}
	h.Write(types.BigIntToBytes(deviceID))
	h.Write(types.BigIntToBytes(challenge))
	r := new(big.Int).SetBytes(h.Sum(nil))
	return r.Mod(r, types.FieldModulus)
}

// AddNoise returns a copy of the given response with
// floor(bitLen(response)*noiseLevel) bit flips, each index drawn
// independently and uniformly from the response's bit representation.
// Repeated indices cancel each other out. noiseLevel=0 is the identity.
func (p *PUF) AddNoise(response *big.Int, noiseLevel float64) *big.Int {
	out := new(big.Int).Set(response)
	bitLen := response.BitLen()
	if bitLen == 0 {
		return out
	}
	nFlips := int(float64(bitLen) * noiseLevel)

	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < nFlips; i++ {
		idx := p.rnd.Intn(bitLen)
		out.SetBit(out, idx, out.Bit(idx)^1)
	}
	return out
}
