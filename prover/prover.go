// Package prover implements the proof gate: an in-process Groth16 backend
// that issues and verifies authentication proofs, a TTL cache over issued
// proofs, and an http client to delegate issuance to a prover-server.
package prover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/pufid/pufnode/commitment"
	"github.com/pufid/pufnode/types"
)

var (
	// ErrUnsatisfiable is returned by Issue when the witness does not
	// satisfy the statement (commitment mismatch or response out of the
	// declared bit range)
	ErrUnsatisfiable = errors.New("proof statement unsatisfiable")
	// ErrMalformed is returned when the proof or the public-input vector
	// has the wrong shape. This is a caller error, not a verification
	// result.
	ErrMalformed = errors.New("malformed proof or public inputs")
)

// ProofBundle contains an opaque proof artifact together with its ordered
// public signals [deviceID, challenge, commitment]
type ProofBundle struct {
	Proof         types.ByteArray `json:"proof"`
	PublicSignals []*big.Int      `json:"publicSignals"`
}

// Verifier validates a proof against its public inputs. Implementations must
// be pure, deterministic and side-effect free.
type Verifier interface {
	Verify(proof types.ByteArray, publicInputs []*big.Int) (bool, error)
}

// Backend issues and verifies authentication proofs
type Backend interface {
	Verifier
	Issue(ctx context.Context, statement types.ProofStatement,
		response *big.Int) (*ProofBundle, error)
}

// Local is a Backend backed by an in-process Groth16 prover over BN254. The
// compiled circuit and keys are read-only after setup, so a Local is safe
// for concurrent Issue and Verify calls.
type Local struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

// NewLocal compiles the authentication circuit and runs the Groth16 setup.
// This is expensive and should be done once at startup.
func NewLocal() (*Local, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder,
		&AuthCircuit{})
	if err != nil {
		return nil, fmt.Errorf("compile circuit: %w", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("groth16 setup: %w", err)
	}
	return &Local{ccs: ccs, pk: pk, vk: vk}, nil
}

// Issue generates a proof that the given response satisfies the statement.
// Returns ErrUnsatisfiable if commit(response, challenge) != commitment or
// the response falls outside the declared bit range.
func (l *Local) Issue(ctx context.Context, statement types.ProofStatement,
	response *big.Int) (*ProofBundle, error) {
	if err := statement.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !types.InField(response) || response.BitLen() > types.ResponseBits {
		return nil, fmt.Errorf("%w: response out of range", ErrUnsatisfiable)
	}
	expected, err := commitment.Commit(response, statement.Challenge)
	if err != nil {
		return nil, err
	}
	if expected.Cmp(statement.Commitment) != 0 {
		return nil, fmt.Errorf("%w: commitment mismatch", ErrUnsatisfiable)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	assignment := &AuthCircuit{
		DeviceID:   statement.DeviceID,
		Challenge:  statement.Challenge,
		Commitment: statement.Commitment,
		Response:   response,
	}
	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}
	proof, err := groth16.Prove(l.ccs, l.pk, witness)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		// cancelled while proving, discard the artifact
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, err
	}
	return &ProofBundle{
		Proof:         buf.Bytes(),
		PublicSignals: statement.PublicInputs(),
	}, nil
}

// Verify checks the given proof against the ordered public inputs
// [deviceID, challenge, commitment]. An unsatisfied statement returns
// (false, nil); a structurally invalid call returns ErrMalformed.
func (l *Local) Verify(proof types.ByteArray, publicInputs []*big.Int) (bool, error) {
	if len(publicInputs) != types.NPublicInputs {
		return false, fmt.Errorf("%w: expected %d public inputs, got %d",
			ErrMalformed, types.NPublicInputs, len(publicInputs))
	}
	for i, v := range publicInputs {
		if !types.InField(v) {
			return false, fmt.Errorf("%w: public input %d not in field",
				ErrMalformed, i)
		}
	}
	if len(proof) == 0 {
		return false, fmt.Errorf("%w: empty proof", ErrMalformed)
	}

	p := groth16.NewProof(ecc.BN254)
	if _, err := p.ReadFrom(bytes.NewReader(proof)); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	assignment := &AuthCircuit{
		DeviceID:   publicInputs[0],
		Challenge:  publicInputs[1],
		Commitment: publicInputs[2],
	}
	pubWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(),
		frontend.PublicOnly())
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	// fails closed: a proof that does not verify is a result, not an error
	if err := groth16.Verify(p, l.vk, pubWitness); err != nil {
		return false, nil
	}
	return true, nil
}
