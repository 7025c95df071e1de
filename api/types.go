package api

import (
	"math/big"

	"github.com/pufid/pufnode/types"
)

type registerDeviceReq struct {
	DeviceID   *big.Int        `json:"deviceId"`
	PubKeyHash types.ByteArray `json:"pubKeyHash"`
	HelperData types.ByteArray `json:"helperData"`
	// Owner contains the hex representation of the owner address
	Owner string `json:"owner"`
}

type authReq struct {
	Proof         types.ByteArray `json:"proof"`
	PublicSignals []*big.Int      `json:"publicSignals"`
}

type authResp struct {
	Success bool `json:"success"`
}

type transactionReq struct {
	DataHash         types.ByteArray `json:"dataHash"`
	EncryptedPayload types.ByteArray `json:"encryptedPayload"`
	Proof            types.ByteArray `json:"proof"`
	PublicSignals    []*big.Int      `json:"publicSignals"`
}

type deactivateReq struct {
	// Caller contains the hex representation of the caller address
	Caller string `json:"caller"`
}

type deviceInfo struct {
	Registered       bool          `json:"registered"`
	Active           bool          `json:"active"`
	TransactionCount uint64        `json:"transactionCount"`
	Device           *types.Device `json:"device,omitempty"`
}

type merkleProofResp struct {
	Index uint64          `json:"index"`
	Proof types.ByteArray `json:"proof"`
	Root  types.ByteArray `json:"root"`
}
