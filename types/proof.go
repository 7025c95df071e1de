package types

import (
	"fmt"
	"math/big"
)

// NPublicInputs is the length of the proof public-input vector:
// [deviceID, challenge, commitment]
const NPublicInputs = 3

// ProofStatement contains the public inputs of the authentication proof,
// plus implicitly the secret response witness known only to the prover.
// The public-input order is a wire contract: index 0 is always the deviceID.
type ProofStatement struct {
	DeviceID   *big.Int `json:"deviceId"`
	Challenge  *big.Int `json:"challenge"`
	Commitment *big.Int `json:"commitment"`
}

// PublicInputs returns the ordered public-input vector of the statement
func (s *ProofStatement) PublicInputs() []*big.Int {
	return []*big.Int{s.DeviceID, s.Challenge, s.Commitment}
}

// ProofInputs contains the inputs sent to the prover to trigger the proof
// generation: the public statement plus the secret response witness. The
// response never leaves the prover boundary.
type ProofInputs struct {
	ProofStatement
	Response *big.Int `json:"response"`
}

// Validate checks that all the statement values are inside the field
func (s *ProofStatement) Validate() error {
	for i, v := range s.PublicInputs() {
		if !InField(v) {
			return fmt.Errorf("public input %d not in field", i)
		}
	}
	return nil
}
