package commitment

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/pufid/pufnode/types"
)

func TestCommitDeterminism(t *testing.T) {
	c := qt.New(t)

	response, ok := new(big.Int).SetString(
		"248973139977937129022338975194145376389814876831038167540701197051279463615", 10)
	c.Assert(ok, qt.IsTrue)
	challenge, ok := new(big.Int).SetString(
		"53252479149983696040782982834539845211935550546231631847320157353769477342", 10)
	c.Assert(ok, qt.IsTrue)

	cm1, err := Commit(response, challenge)
	c.Assert(err, qt.IsNil)
	cm2, err := Commit(response, challenge)
	c.Assert(err, qt.IsNil)
	c.Assert(cm1.String(), qt.Equals, cm2.String())
	c.Assert(types.InField(cm1), qt.IsTrue)

	// input order is part of the contract
	swapped, err := Commit(challenge, response)
	c.Assert(err, qt.IsNil)
	c.Assert(swapped.String(), qt.Not(qt.Equals), cm1.String())

	// any input change changes the commitment
	cm3, err := Commit(response, new(big.Int).Add(challenge, big.NewInt(1)))
	c.Assert(err, qt.IsNil)
	c.Assert(cm3.String(), qt.Not(qt.Equals), cm1.String())
}

func TestCommitOutOfField(t *testing.T) {
	c := qt.New(t)

	_, err := Commit(types.FieldModulus, big.NewInt(1))
	c.Assert(err, qt.Not(qt.IsNil))
	_, err = Commit(big.NewInt(1), new(big.Int).Neg(big.NewInt(1)))
	c.Assert(err, qt.Not(qt.IsNil))
}
