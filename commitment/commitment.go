// Package commitment binds a PUF response to its challenge with a
// SNARK-friendly arithmetic hash. Commit is the exact function re-evaluated
// inside the proof circuit; the write order (response, then challenge) is
// part of that contract.
package commitment

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/pufid/pufnode/types"
)

// Commit computes the MiMC commitment of the given (response, challenge)
// pair. Deterministic: identical inputs give an identical output across
// process restarts.
func Commit(response, challenge *big.Int) (*big.Int, error) {
	if !types.InField(response) {
		return nil, fmt.Errorf("response not in field")
	}
	if !types.InField(challenge) {
		return nil, fmt.Errorf("challenge not in field")
	}

	h := mimc.NewMiMC()
	var e fr.Element
	e.SetBigInt(response)
	b := e.Bytes()
	if _, err := h.Write(b[:]); err != nil {
		return nil, err
	}
	e.SetBigInt(challenge)
	b = e.Bytes()
	if _, err := h.Write(b[:]); err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(h.Sum(nil)), nil
}
