package api

import (
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/pufid/pufnode/db"
	"github.com/pufid/pufnode/devicetree"
	"github.com/pufid/pufnode/registry"
	"go.vocdoni.io/dvote/log"
)

// API allows external requests to the Node
type API struct {
	r    *gin.Engine
	reg  *registry.Registry
	tree *devicetree.Tree
}

// New returns a new API with the endpoints, without starting to listen
func New(reg *registry.Registry, tree *devicetree.Tree) (*API, error) {
	if reg == nil {
		return nil, fmt.Errorf("Can not create the API without a Registry")
	}

	a := API{reg: reg, tree: tree}

	r := gin.Default()

	r.POST("/devices", a.postRegisterDevice)
	r.GET("/devices/:deviceid", a.getDevice)
	r.POST("/devices/:deviceid/auth", a.postAuthenticate)
	r.POST("/devices/:deviceid/transactions", a.postTransaction)
	r.POST("/devices/:deviceid/deactivate", a.postDeactivate)
	if tree != nil {
		r.GET("/devices/:deviceid/merkleproof", a.getMerkleProof)
	}

	a.r = r

	return &a, nil
}

// Serve serves the API at the given port
func (a *API) Serve(port string) error {
	return a.r.Run(":" + port)
}

type errorMsg struct {
	Message string `json:"message"`
}

func returnErr(c *gin.Context, err error) {
	log.Warnw("HTTP API Bad request error", "err", err)
	c.JSON(http.StatusBadRequest, errorMsg{
		Message: err.Error(),
	})
}

// deviceIDFromParam parses the decimal deviceid URL parameter
func deviceIDFromParam(c *gin.Context) (*big.Int, error) {
	deviceIDStr := c.Param("deviceid")
	deviceID, ok := new(big.Int).SetString(deviceIDStr, 10)
	if !ok {
		return nil, fmt.Errorf("can not parse deviceid: %s", deviceIDStr)
	}
	return deviceID, nil
}

func (a *API) postRegisterDevice(c *gin.Context) {
	var d registerDeviceReq
	if err := c.ShouldBindJSON(&d); err != nil {
		returnErr(c, err)
		return
	}
	if !common.IsHexAddress(d.Owner) {
		returnErr(c, fmt.Errorf("invalid owner address: %s", d.Owner))
		return
	}
	owner := common.HexToAddress(d.Owner)

	err := a.reg.Register(d.DeviceID, d.PubKeyHash, d.HelperData, owner)
	if err != nil {
		returnErr(c, err)
		return
	}

	c.JSON(http.StatusOK, d.DeviceID)
}

func (a *API) getDevice(c *gin.Context) {
	deviceID, err := deviceIDFromParam(c)
	if err != nil {
		returnErr(c, err)
		return
	}

	info := deviceInfo{}
	device, err := a.reg.Device(deviceID)
	if errors.Is(err, db.ErrDeviceNotFound) {
		c.JSON(http.StatusOK, info)
		return
	} else if err != nil {
		returnErr(c, err)
		return
	}
	info.Registered = true
	info.Active = device.Active
	info.Device = device

	count, err := a.reg.TransactionCount(deviceID)
	if err != nil {
		returnErr(c, err)
		return
	}
	info.TransactionCount = count

	c.JSON(http.StatusOK, info)
}

func (a *API) postAuthenticate(c *gin.Context) {
	deviceID, err := deviceIDFromParam(c)
	if err != nil {
		returnErr(c, err)
		return
	}

	var d authReq
	if err := c.ShouldBindJSON(&d); err != nil {
		returnErr(c, err)
		return
	}

	success, err := a.reg.Authenticate(deviceID, d.Proof, d.PublicSignals)
	if err != nil {
		returnErr(c, err)
		return
	}

	c.JSON(http.StatusOK, authResp{Success: success})
}

func (a *API) postTransaction(c *gin.Context) {
	deviceID, err := deviceIDFromParam(c)
	if err != nil {
		returnErr(c, err)
		return
	}

	var d transactionReq
	if err := c.ShouldBindJSON(&d); err != nil {
		returnErr(c, err)
		return
	}

	err = a.reg.RecordTransaction(deviceID, d.DataHash, d.EncryptedPayload,
		d.Proof, d.PublicSignals)
	if err != nil {
		returnErr(c, err)
		return
	}

	count, err := a.reg.TransactionCount(deviceID)
	if err != nil {
		returnErr(c, err)
		return
	}
	c.JSON(http.StatusOK, count)
}

func (a *API) postDeactivate(c *gin.Context) {
	deviceID, err := deviceIDFromParam(c)
	if err != nil {
		returnErr(c, err)
		return
	}

	var d deactivateReq
	if err := c.ShouldBindJSON(&d); err != nil {
		returnErr(c, err)
		return
	}
	if !common.IsHexAddress(d.Caller) {
		returnErr(c, fmt.Errorf("invalid caller address: %s", d.Caller))
		return
	}

	if err := a.reg.Deactivate(deviceID, common.HexToAddress(d.Caller)); err != nil {
		returnErr(c, err)
		return
	}
	c.JSON(http.StatusOK, deviceID)
}

func (a *API) getMerkleProof(c *gin.Context) {
	deviceID, err := deviceIDFromParam(c)
	if err != nil {
		returnErr(c, err)
		return
	}

	device, err := a.reg.Device(deviceID)
	if err != nil {
		returnErr(c, err)
		return
	}

	index, proof, err := a.tree.GenProof(deviceID, device.PubKeyHash)
	if err != nil {
		returnErr(c, err)
		return
	}
	root, err := a.tree.Root()
	if err != nil {
		returnErr(c, err)
		return
	}

	c.JSON(http.StatusOK, merkleProofResp{
		Index: index,
		Proof: proof,
		Root:  root,
	})
}
