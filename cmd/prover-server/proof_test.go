package main

import (
	"context"
	"math/big"
	"net/http/httptest"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/pufid/pufnode/prover"
	"github.com/pufid/pufnode/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/pebbledb"
)

// stubBackend avoids the Groth16 setup cost in handler tests
type stubBackend struct{}

func (b *stubBackend) Issue(ctx context.Context, statement types.ProofStatement,
	response *big.Int) (*prover.ProofBundle, error) {
	return &prover.ProofBundle{
		Proof:         types.ByteArray{0xaa, 0xbb},
		PublicSignals: statement.PublicInputs(),
	}, nil
}

func (b *stubBackend) Verify(proof types.ByteArray,
	publicInputs []*big.Int) (bool, error) {
	return true, nil
}

func newTestServer(c *qt.C) *api {
	opts := db.Options{Path: c.TempDir()}
	database, err := pebbledb.New(opts)
	c.Assert(err, qt.IsNil)

	return newAPI(database, &stubBackend{})
}

func waitForProof(c *qt.C, client *prover.Client, id uint64) *prover.ProofBundle {
	for i := 0; i < 50; i++ {
		bundle, err := client.GetProof(id)
		if err == nil {
			return bundle
		}
		time.Sleep(20 * time.Millisecond)
	}
	c.Fatalf("proof %d not ready after polling", id)
	return nil
}

func TestGenAndGetProof(t *testing.T) {
	c := qt.New(t)
	a := newTestServer(c)

	server := httptest.NewServer(a.r)
	defer server.Close()
	client := prover.NewClient(server.URL)

	pi := &types.ProofInputs{
		ProofStatement: types.ProofStatement{
			DeviceID:   big.NewInt(1234),
			Challenge:  big.NewInt(5678),
			Commitment: big.NewInt(91011),
		},
		Response: big.NewInt(121314),
	}

	id, err := client.GenProof(pi)
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, uint64(1))

	bundle := waitForProof(c, client, id)
	c.Assert(bundle.Proof, qt.DeepEquals, types.ByteArray{0xaa, 0xbb})
	c.Assert(bundle.PublicSignals, qt.HasLen, types.NPublicInputs)
	c.Assert(bundle.PublicSignals[0].Cmp(big.NewInt(1234)), qt.Equals, 0)

	// ids keep incrementing
	id, err = client.GenProof(pi)
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, uint64(2))
}

func TestGenProofInvalidInputs(t *testing.T) {
	c := qt.New(t)
	a := newTestServer(c)

	server := httptest.NewServer(a.r)
	defer server.Close()
	client := prover.NewClient(server.URL)

	// out of field statement values are rejected before queuing
	outOfField := new(big.Int).Add(types.FieldModulus, big.NewInt(1))
	_, err := client.GenProof(&types.ProofInputs{
		ProofStatement: types.ProofStatement{
			DeviceID:   outOfField,
			Challenge:  big.NewInt(1),
			Commitment: big.NewInt(2),
		},
		Response: big.NewInt(3),
	})
	c.Assert(err, qt.Not(qt.IsNil))

	// unknown proof id
	_, err = client.GetProof(999)
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestLastIDPersistence(t *testing.T) {
	c := qt.New(t)

	dir := c.TempDir()
	opts := db.Options{Path: dir}
	database, err := pebbledb.New(opts)
	c.Assert(err, qt.IsNil)

	a := newAPI(database, &stubBackend{})
	c.Assert(a.lastID, qt.Equals, uint64(0))
	err = a.storeLastID(7)
	c.Assert(err, qt.IsNil)
	a.lastID = 7

	// a new api over the same db resumes the counter
	b := newAPI(database, &stubBackend{})
	c.Assert(b.lastID, qt.Equals, uint64(7))
}
