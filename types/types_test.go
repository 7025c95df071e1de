package types

import (
	"encoding/json"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/iden3/go-iden3-crypto/babyjub"
)

func TestByteArrayJSON(t *testing.T) {
	c := qt.New(t)
	var b, b2 ByteArray

	// with nil value
	b = nil
	j, err := json.Marshal(b)
	c.Assert(err, qt.IsNil)
	c.Assert(string(j), qt.Equals, `""`)

	err = json.Unmarshal(j, &b2)
	c.Assert(err, qt.IsNil)
	c.Assert(b2, qt.DeepEquals, ByteArray{})

	// with empty array value
	b = []byte{}
	j, err = json.Marshal(b)
	c.Assert(err, qt.IsNil)
	c.Assert(string(j), qt.Equals, `""`)

	err = json.Unmarshal(j, &b2)
	c.Assert(err, qt.IsNil)
	c.Assert(b2, qt.DeepEquals, b)

	// with some value
	b = []byte{1, 2, 3, 253, 254, 255}
	j, err = json.Marshal(b)
	c.Assert(err, qt.IsNil)
	c.Assert(string(j), qt.Equals, `"010203fdfeff"`)

	err = json.Unmarshal(j, &b2)
	c.Assert(err, qt.IsNil)
	c.Assert(b2, qt.DeepEquals, b)
}

func TestFieldEncoding(t *testing.T) {
	c := qt.New(t)

	v, ok := new(big.Int).SetString(
		"167187242023213709790752988836059498562277881928506182497546456141543281514", 10)
	c.Assert(ok, qt.IsTrue)

	b := BigIntToBytes(v)
	c.Assert(len(b), qt.Equals, FieldSize)
	c.Assert(BytesToBigInt(b).String(), qt.Equals, v.String())

	c.Assert(InField(v), qt.IsTrue)
	c.Assert(InField(big.NewInt(0)), qt.IsTrue)
	c.Assert(InField(FieldModulus), qt.IsFalse)
	c.Assert(InField(big.NewInt(-1)), qt.IsFalse)
	c.Assert(InField(nil), qt.IsFalse)
}

func TestProofStatementPublicInputs(t *testing.T) {
	c := qt.New(t)

	s := ProofStatement{
		DeviceID:   big.NewInt(1),
		Challenge:  big.NewInt(2),
		Commitment: big.NewInt(3),
	}
	pub := s.PublicInputs()
	c.Assert(len(pub), qt.Equals, NPublicInputs)
	// index 0 is always the deviceID
	c.Assert(pub[0].String(), qt.Equals, "1")
	c.Assert(pub[1].String(), qt.Equals, "2")
	c.Assert(pub[2].String(), qt.Equals, "3")
	c.Assert(s.Validate(), qt.IsNil)

	s.Challenge = new(big.Int).Set(FieldModulus)
	c.Assert(s.Validate(), qt.Not(qt.IsNil))
}

func TestHashPubK(t *testing.T) {
	c := qt.New(t)

	// deterministic key
	var sk babyjub.PrivateKey
	pubK := sk.Public()

	h1, err := HashPubK(pubK)
	c.Assert(err, qt.IsNil)
	h2, err := HashPubK(pubK)
	c.Assert(err, qt.IsNil)
	c.Assert(h1, qt.DeepEquals, h2)
	c.Assert(len(h1), qt.Equals, FieldSize)
}
