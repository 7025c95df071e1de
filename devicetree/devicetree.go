// Package devicetree maintains a MerkleTree with the registered devices, so
// third parties can check membership proofs against the published root.
package devicetree

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/pufid/pufnode/types"
	"github.com/vocdoni/arbo"
	"go.vocdoni.io/dvote/db"
)

var dbKeyNextIndex = []byte("nextIndex")

// Tree contains the MerkleTree with the registered devices
type Tree struct {
	tree *arbo.Tree
	db   db.Database
}

// Options is used to pass the parameters to load a new Tree
type Options struct {
	// DB defines the database that will be used for the tree
	DB db.Database
}

// New loads the device tree
func New(opts Options) (*Tree, error) {
	arboConfig := arbo.Config{
		Database:     opts.DB,
		MaxLevels:    types.MaxLevels,
		HashFunction: arbo.HashFunctionPoseidon,
	}

	wTx := opts.DB.WriteTx()
	defer wTx.Discard()

	tree, err := arbo.NewTreeWithTx(wTx, arboConfig)
	if err != nil {
		return nil, err
	}

	t := &Tree{
		tree: tree,
		db:   opts.DB,
	}

	// if nextIndex is not set in the db, initialize it to 0
	_, err = t.getNextIndex(wTx)
	if err != nil {
		err = t.setNextIndex(wTx, 0)
		if err != nil {
			return nil, err
		}
	}

	if err := wTx.Commit(); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *Tree) setNextIndex(wTx db.WriteTx, nextIndex uint64) error {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, nextIndex)
	if err := wTx.Set(dbKeyNextIndex, b); err != nil {
		return err
	}
	return nil
}

func (t *Tree) getNextIndex(rTx db.ReadTx) (uint64, error) {
	b, err := rTx.Get(dbKeyNextIndex)
	if err != nil {
		return 0, err
	}
	nextIndex := binary.LittleEndian.Uint64(b)
	return nextIndex, nil
}

// Size returns the number of devices added to the tree
func (t *Tree) Size() (uint64, error) {
	rTx := t.db.ReadTx()
	defer rTx.Discard()
	return t.getNextIndex(rTx)
}

// leafValue computes the leaf stored for a device: the Poseidon hash of its
// deviceID and pubKeyHash
func leafValue(deviceID *big.Int, pubKeyHash []byte) ([]byte, error) {
	h, err := poseidon.Hash([]*big.Int{deviceID, types.BytesToBigInt(pubKeyHash)})
	if err != nil {
		return nil, err
	}
	return types.BigIntToBytes(h), nil
}

// Add adds the given device to the tree, assigning it the next incremental
// index
func (t *Tree) Add(deviceID *big.Int, pubKeyHash []byte) error {
	wTx := t.db.WriteTx()
	defer wTx.Discard()

	nextIndex, err := t.getNextIndex(wTx)
	if err != nil {
		return err
	}
	indexBytes := types.Uint64ToIndex(nextIndex)

	leaf, err := leafValue(deviceID, pubKeyHash)
	if err != nil {
		return err
	}
	if err := t.tree.AddWithTx(wTx, indexBytes, leaf); err != nil {
		return err
	}

	// store the mapping between deviceID->index
	if err := wTx.Set(types.BigIntToBytes(deviceID), indexBytes); err != nil {
		return err
	}

	if err = t.setNextIndex(wTx, nextIndex+1); err != nil {
		return err
	}

	return wTx.Commit()
}

// Root returns the current tree root
func (t *Tree) Root() ([]byte, error) {
	return t.tree.Root()
}

// GenProof returns the index and the MerkleProof compressed for the given
// deviceID
func (t *Tree) GenProof(deviceID *big.Int, pubKeyHash []byte) (uint64, []byte, error) {
	rTx := t.db.ReadTx()
	defer rTx.Discard()

	// get index of deviceID
	indexBytes, err := rTx.Get(types.BigIntToBytes(deviceID))
	if err != nil {
		return 0, nil,
			fmt.Errorf("device does not exist in the tree (%s)", deviceID.String())
	}
	index := binary.LittleEndian.Uint64(indexBytes)

	_, leafV, s, existence, err := t.tree.GenProof(indexBytes)
	if err != nil {
		return 0, nil, err
	}
	if !existence {
		return 0, nil,
			fmt.Errorf("device does not exist in the tree (%s)", deviceID.String())
	}
	leaf, err := leafValue(deviceID, pubKeyHash)
	if err != nil {
		return 0, nil, err
	}
	if !bytes.Equal(leafV, leaf) {
		return 0, nil,
			fmt.Errorf("leafV!=device leaf: %x!=%x", leafV, leaf)
	}
	return index, s, nil
}

// CheckProof checks a given MerkleProof of the given device (& index) for
// the given root
func CheckProof(root, proof []byte, index uint64, deviceID *big.Int,
	pubKeyHash []byte) (bool, error) {
	indexBytes := types.Uint64ToIndex(index)
	leaf, err := leafValue(deviceID, pubKeyHash)
	if err != nil {
		return false, err
	}

	return arbo.CheckProof(arbo.HashFunctionPoseidon, indexBytes, leaf, root, proof)
}
