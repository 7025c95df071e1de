package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pufid/pufnode/prover"
	"github.com/pufid/pufnode/types"
	"go.vocdoni.io/dvote/log"
)

var dbKeyLastID = []byte("lastID")

func dbKeyProof(id uint64) []byte {
	return []byte("proof" + strconv.FormatUint(id, 10))
}

func (a *api) loadLastID() uint64 {
	rTx := a.db.ReadTx()
	defer rTx.Discard()

	b, err := rTx.Get(dbKeyLastID)
	if err != nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (a *api) storeLastID(id uint64) error {
	wTx := a.db.WriteTx()
	defer wTx.Discard()

	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, id)
	if err := wTx.Set(dbKeyLastID, b); err != nil {
		return err
	}
	return wTx.Commit()
}

func (a *api) storeProof(id uint64, bundle *prover.ProofBundle) error {
	b, err := json.Marshal(bundle)
	if err != nil {
		return err
	}

	wTx := a.db.WriteTx()
	defer wTx.Discard()

	if err := wTx.Set(dbKeyProof(id), b); err != nil {
		return err
	}
	return wTx.Commit()
}

func (a *api) readProof(id uint64) (*prover.ProofBundle, error) {
	rTx := a.db.ReadTx()
	defer rTx.Discard()

	b, err := rTx.Get(dbKeyProof(id))
	if err != nil {
		return nil, fmt.Errorf("proof %d not ready", id)
	}
	var bundle prover.ProofBundle
	if err := json.Unmarshal(b, &bundle); err != nil {
		return nil, err
	}
	return &bundle, nil
}

func (a *api) genProof(c *gin.Context) {
	var pi types.ProofInputs
	if err := c.ShouldBindJSON(&pi); err != nil {
		returnErr(c, err)
		return
	}
	if err := pi.Validate(); err != nil {
		returnErr(c, err)
		return
	}

	a.Lock()
	a.lastID++
	id := a.lastID
	err := a.storeLastID(id)
	a.Unlock()
	if err != nil {
		returnErr(c, err)
		return
	}

	go a.issueAndStore(id, pi)

	// return the id, so the client knows which id to use to
	// retrieve the proof later
	c.JSON(http.StatusOK, gin.H{
		"id": id,
	})
}

func (a *api) issueAndStore(id uint64, pi types.ProofInputs) {
	bundle, err := a.backend.Issue(context.Background(), pi.ProofStatement,
		pi.Response)
	if err != nil {
		log.Errorf("proof %d generation failed: %v", id, err)
		return
	}
	if err := a.storeProof(id, bundle); err != nil {
		log.Errorf("proof %d store failed: %v", id, err)
	}
}

func (a *api) getProof(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		returnErr(c, err)
		return
	}

	bundle, err := a.readProof(id)
	if err != nil {
		returnErr(c, err)
		return
	}
	c.JSON(http.StatusOK, bundle)
}
