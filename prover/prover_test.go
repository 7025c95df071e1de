package prover

import (
	"context"
	"math/big"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/pufid/pufnode/commitment"
	"github.com/pufid/pufnode/types"
)

// the Groth16 setup is expensive, share one Local across the package tests
var (
	localOnce sync.Once
	local     *Local
	localErr  error
)

func testLocal(c *qt.C) *Local {
	localOnce.Do(func() {
		local, localErr = NewLocal()
	})
	c.Assert(localErr, qt.IsNil)
	return local
}

func testStatement(c *qt.C) (types.ProofStatement, *big.Int) {
	deviceID, ok := new(big.Int).SetString(
		"167187242023213709790752988836059498562277881928506182497546456141543281514", 10)
	c.Assert(ok, qt.IsTrue)
	challenge, ok := new(big.Int).SetString(
		"53252479149983696040782982834539845211935550546231631847320157353769477342", 10)
	c.Assert(ok, qt.IsTrue)
	response, ok := new(big.Int).SetString(
		"248973139977937129022338975194145376389814876831038167540701197051279463615", 10)
	c.Assert(ok, qt.IsTrue)

	cm, err := commitment.Commit(response, challenge)
	c.Assert(err, qt.IsNil)

	return types.ProofStatement{
		DeviceID:   deviceID,
		Challenge:  challenge,
		Commitment: cm,
	}, response
}

func TestIssueAndVerify(t *testing.T) {
	c := qt.New(t)
	l := testLocal(c)

	statement, response := testStatement(c)

	bundle, err := l.Issue(context.Background(), statement, response)
	c.Assert(err, qt.IsNil)
	c.Assert(len(bundle.Proof) > 0, qt.IsTrue)
	c.Assert(len(bundle.PublicSignals), qt.Equals, types.NPublicInputs)
	c.Assert(bundle.PublicSignals[0].String(), qt.Equals,
		statement.DeviceID.String())

	valid, err := l.Verify(bundle.Proof, bundle.PublicSignals)
	c.Assert(err, qt.IsNil)
	c.Assert(valid, qt.IsTrue)

	// the commitment recomputed outside the proof matches the one the
	// verifier accepts; against any different commitment the proof fails
	otherCm, err := commitment.Commit(response,
		new(big.Int).Add(statement.Challenge, big.NewInt(1)))
	c.Assert(err, qt.IsNil)
	valid, err = l.Verify(bundle.Proof, []*big.Int{
		statement.DeviceID, statement.Challenge, otherCm})
	c.Assert(err, qt.IsNil)
	c.Assert(valid, qt.IsFalse)

	// a different deviceID unbinds the proof
	valid, err = l.Verify(bundle.Proof, []*big.Int{
		big.NewInt(42), statement.Challenge, statement.Commitment})
	c.Assert(err, qt.IsNil)
	c.Assert(valid, qt.IsFalse)
}

func TestIssueUnsatisfiable(t *testing.T) {
	c := qt.New(t)
	l := testLocal(c)

	statement, response := testStatement(c)

	// wrong response
	_, err := l.Issue(context.Background(), statement,
		new(big.Int).Add(response, big.NewInt(1)))
	c.Assert(err, qt.ErrorIs, ErrUnsatisfiable)

	// response out of range
	_, err = l.Issue(context.Background(), statement,
		new(big.Int).Neg(big.NewInt(1)))
	c.Assert(err, qt.ErrorIs, ErrUnsatisfiable)
}

func TestIssueCancelled(t *testing.T) {
	c := qt.New(t)
	l := testLocal(c)

	statement, response := testStatement(c)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Issue(ctx, statement, response)
	c.Assert(err, qt.ErrorIs, context.Canceled)
}

func TestVerifyMalformed(t *testing.T) {
	c := qt.New(t)
	l := testLocal(c)

	statement, response := testStatement(c)
	bundle, err := l.Issue(context.Background(), statement, response)
	c.Assert(err, qt.IsNil)

	// wrong public-input vector length
	_, err = l.Verify(bundle.Proof, bundle.PublicSignals[:2])
	c.Assert(err, qt.ErrorIs, ErrMalformed)

	// out-of-field public input
	_, err = l.Verify(bundle.Proof, []*big.Int{
		types.FieldModulus, statement.Challenge, statement.Commitment})
	c.Assert(err, qt.ErrorIs, ErrMalformed)

	// undecodable proof bytes
	_, err = l.Verify(types.ByteArray("not a proof"), bundle.PublicSignals)
	c.Assert(err, qt.ErrorIs, ErrMalformed)

	// empty proof
	_, err = l.Verify(nil, bundle.PublicSignals)
	c.Assert(err, qt.ErrorIs, ErrMalformed)
}
